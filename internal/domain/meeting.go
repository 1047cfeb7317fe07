package domain

import "time"

// Estados RSVP de un participante.
const (
	StatusInvited  = "invited"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// ValidRSVPResponse reporta si status es una respuesta valida a una invitacion.
// "invited" es solo el estado inicial, no una respuesta.
func ValidRSVPResponse(status string) bool {
	return status == StatusAccepted || status == StatusDeclined
}

// Participant es la vista por referencia: solo lleva el id del usuario.
type Participant struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
	// Evento personal en el calendario del propio invitado, distinto
	// del evento del dueno. Solo lo escribe la capa de sincronizacion.
	GoogleEventID string `json:"google_event_id,omitempty"`
}

// ResolvedParticipant es la vista poblada: la referencia expandida a los
// campos publicos del usuario. Quien la consume no debe adivinar la forma.
type ResolvedParticipant struct {
	User          UserSummary `json:"user"`
	Status        string      `json:"status"`
	GoogleEventID string      `json:"google_event_id,omitempty"`
}

func (p ResolvedParticipant) Ref() Participant {
	return Participant{UserID: p.User.ID, Status: p.Status, GoogleEventID: p.GoogleEventID}
}

type Meeting struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description,omitempty"`
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	InvitationLink string        `json:"invitation_link,omitempty"`
	Participants   []Participant `json:"participants"`
	OwnerID        string        `json:"owner_id"`
	Archived       bool          `json:"archived"`
	// Evento en el calendario del dueno.
	GoogleEventID string    `json:"google_event_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ResolvedMeeting es la reunion con participantes y dueno poblados.
type ResolvedMeeting struct {
	Meeting
	Owner                UserSummary           `json:"owner"`
	ResolvedParticipants []ResolvedParticipant `json:"resolved_participants"`
}

// ParticipantRef devuelve el participante con ese usuario, si existe.
func (m *Meeting) ParticipantRef(userID string) (*Participant, bool) {
	for i := range m.Participants {
		if m.Participants[i].UserID == userID {
			return &m.Participants[i], true
		}
	}
	return nil, false
}

// Ended reporta si la reunion ya termino respecto a now.
func (m *Meeting) Ended(now time.Time) bool {
	return m.EndTime.Before(now)
}
