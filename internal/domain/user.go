package domain

import "time"

type User struct {
	ID                     string    `json:"id"`
	Email                  string    `json:"email"`
	DisplayName            string    `json:"display_name,omitempty"`
	PasswordHash           string    `json:"-"`
	DefaultReminderMinutes int       `json:"default_reminder_minutes"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// UserSummary son los campos publicos de un usuario al poblar referencias.
type UserSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email"`
}

// GoogleCredential guarda los tokens OAuth de Google Calendar de un usuario.
type GoogleCredential struct {
	UserID       string     `json:"user_id"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}

// Connected indica si el usuario tiene el calendario vinculado.
func (c GoogleCredential) Connected() bool {
	return c.AccessToken != "" || c.RefreshToken != ""
}
