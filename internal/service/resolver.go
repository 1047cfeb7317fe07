package service

import (
	"context"
	"strings"

	"syncmeet/internal/domain"
	"syncmeet/internal/repository"
)

// InviteEntry es una entrada cruda de invitacion: por email (flujo de
// usuario) o por id (flujos internos que ya conocen al usuario).
type InviteEntry struct {
	UserID        string `json:"user_id,omitempty"`
	Email         string `json:"email,omitempty"`
	Status        string `json:"status,omitempty"`
	GoogleEventID string `json:"google_event_id,omitempty"`
}

// ResolveParticipants convierte entradas de invitacion en participantes.
// Los emails se buscan en lote, sin distinguir mayusculas. Si algun email
// no corresponde a un usuario registrado falla todo con ValidationError
// que nombra los no resueltos: nunca se crea una lista parcial.
// Es una consulta pura: no escribe nada.
func ResolveParticipants(ctx context.Context, users repository.UserRepository, entries []InviteEntry) ([]domain.Participant, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var emails []string
	resolved := make([]domain.Participant, 0, len(entries))

	for _, e := range entries {
		email := strings.ToLower(strings.TrimSpace(e.Email))
		if email != "" {
			emails = append(emails, email)
			continue
		}
		if e.UserID != "" {
			// Entrada por id: pasa sin resolver, el caller es confiable.
			resolved = append(resolved, domain.Participant{
				UserID:        e.UserID,
				Status:        sanitizeStatus(e.Status),
				GoogleEventID: e.GoogleEventID,
			})
		}
	}

	if len(emails) > 0 {
		found, err := users.FindByEmails(ctx, emails)
		if err != nil {
			return nil, err
		}
		byEmail := make(map[string]string, len(found))
		for _, u := range found {
			byEmail[strings.ToLower(u.Email)] = u.ID
		}

		var unknown []string
		for _, email := range emails {
			if _, ok := byEmail[email]; !ok {
				unknown = append(unknown, email)
			}
		}
		if len(unknown) > 0 {
			return nil, &domain.ValidationError{UnresolvedEmails: dedupeStrings(unknown)}
		}

		for _, e := range entries {
			email := strings.ToLower(strings.TrimSpace(e.Email))
			if email == "" {
				continue
			}
			resolved = append(resolved, domain.Participant{
				UserID:        byEmail[email],
				Status:        sanitizeStatus(e.Status),
				GoogleEventID: e.GoogleEventID,
			})
		}
	}

	// A lo sumo una entrada por usuario: gana la primera.
	seen := make(map[string]bool, len(resolved))
	out := resolved[:0]
	for _, p := range resolved {
		if seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		out = append(out, p)
	}
	return out, nil
}

func sanitizeStatus(status string) string {
	switch status {
	case domain.StatusInvited, domain.StatusAccepted, domain.StatusDeclined:
		return status
	default:
		return domain.StatusInvited
	}
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
