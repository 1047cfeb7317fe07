package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"syncmeet/internal/domain"
	"syncmeet/internal/gcal"
	"syncmeet/internal/repository"
)

// CalendarSync es lo que la capa de reuniones le pide a la sincronizacion.
// Todos los metodos salvo ManualSync son best-effort: la mutacion primaria
// ya esta confirmada y una falla externa jamas la deshace.
type CalendarSync interface {
	MeetingCreated(ctx context.Context, m domain.ResolvedMeeting, timeZone string)
	MeetingUpdated(ctx context.Context, m domain.ResolvedMeeting, timeZone string)
	MeetingDeleted(ctx context.Context, m domain.Meeting)
	RSVPChanged(ctx context.Context, m domain.ResolvedMeeting, userID, status, timeZone string)
	ManualSync(ctx context.Context, m domain.ResolvedMeeting, timeZone string) (string, error)
}

// eventIDStore es la capacidad angosta que recibe el orquestador para
// persistir ids de evento: no puede tocar nada mas de la reunion.
type eventIDStore interface {
	SetOwnerEventID(ctx context.Context, meetingID, eventID string) error
	SetParticipantEventID(ctx context.Context, meetingID, userID, eventID string) error
}

// SyncService reconcilia reuniones con Google Calendar despues de cada
// mutacion primaria: el evento compartido del dueno y la copia personal de
// cada invitado conectado.
type SyncService struct {
	logger *zap.Logger
	cal    gcal.API
	creds  repository.CredentialRepository
	store  eventIDStore
}

func NewSyncService(logger *zap.Logger, cal gcal.API, creds repository.CredentialRepository, store eventIDStore) *SyncService {
	return &SyncService{
		logger: logger,
		cal:    cal,
		creds:  creds,
		store:  store,
	}
}

// MeetingCreated inserta el evento en el calendario del dueno y guarda el
// id devuelto en la reunion.
func (s *SyncService) MeetingCreated(ctx context.Context, m domain.ResolvedMeeting, timeZone string) {
	if !s.connected(ctx, m.OwnerID) {
		return
	}
	if _, err := s.insertOwnerEvent(ctx, m, timeZone); err != nil {
		s.logSwallowed("create", m.ID, m.OwnerID, err)
	}
}

// MeetingUpdated parchea el evento del dueno si existe, o lo inserta fresco.
func (s *SyncService) MeetingUpdated(ctx context.Context, m domain.ResolvedMeeting, timeZone string) {
	if !s.connected(ctx, m.OwnerID) {
		return
	}
	if _, err := s.upsertOwnerEvent(ctx, m, timeZone); err != nil {
		s.logSwallowed("update", m.ID, m.OwnerID, err)
	}
}

// MeetingDeleted intenta borrar el evento del dueno. La falla se loguea y
// no bloquea el borrado del registro.
func (s *SyncService) MeetingDeleted(ctx context.Context, m domain.Meeting) {
	if m.GoogleEventID == "" {
		return
	}
	if err := s.cal.DeleteEvent(ctx, m.OwnerID, m.GoogleEventID); err != nil {
		s.logSwallowed("delete", m.ID, m.OwnerID, err)
	}
}

// RSVPChanged corre los dos efectos de una respuesta: el calendario
// personal del invitado y la lista de asistentes del evento del dueno.
// Son independientes; cada uno tiene su propia frontera de falla.
func (s *SyncService) RSVPChanged(ctx context.Context, m domain.ResolvedMeeting, userID, status, timeZone string) {
	if err := s.syncInviteePersonalEvent(ctx, m, userID, status, timeZone); err != nil {
		s.logSwallowed("rsvp personal event", m.ID, userID, err)
	}
	if err := s.syncOwnerAttendees(ctx, m); err != nil {
		s.logSwallowed("rsvp attendee patch", m.ID, m.OwnerID, err)
	}
}

// ManualSync es el unico camino donde la falla externa llega al usuario,
// porque la pidio explicitamente. Devuelve el id de evento resultante.
func (s *SyncService) ManualSync(ctx context.Context, m domain.ResolvedMeeting, timeZone string) (string, error) {
	eventID, err := s.upsertOwnerEvent(ctx, m, timeZone)
	if err != nil {
		return "", &domain.SyncError{Op: "manual sync", MeetingID: m.ID, UserID: m.OwnerID, Err: err}
	}
	return eventID, nil
}

func (s *SyncService) insertOwnerEvent(ctx context.Context, m domain.ResolvedMeeting, timeZone string) (string, error) {
	ev, err := s.cal.InsertEvent(ctx, m.OwnerID, buildEvent(m, timeZone, true))
	if err != nil {
		return "", err
	}
	return ev.Id, s.store.SetOwnerEventID(ctx, m.ID, ev.Id)
}

func (s *SyncService) upsertOwnerEvent(ctx context.Context, m domain.ResolvedMeeting, timeZone string) (string, error) {
	if m.GoogleEventID == "" {
		return s.insertOwnerEvent(ctx, m, timeZone)
	}
	_, err := s.cal.PatchEvent(ctx, m.OwnerID, m.GoogleEventID, buildEvent(m, timeZone, true))
	return m.GoogleEventID, err
}

func (s *SyncService) syncInviteePersonalEvent(ctx context.Context, m domain.ResolvedMeeting, userID, status, timeZone string) error {
	if !s.connected(ctx, userID) {
		return nil
	}

	var current *domain.ResolvedParticipant
	for i := range m.ResolvedParticipants {
		if m.ResolvedParticipants[i].User.ID == userID {
			current = &m.ResolvedParticipants[i]
			break
		}
	}
	if current == nil {
		return nil
	}

	switch status {
	case domain.StatusAccepted:
		return s.upsertPersonalEvent(ctx, m, userID, current.GoogleEventID, timeZone)
	case domain.StatusDeclined:
		if current.GoogleEventID == "" {
			return nil
		}
		if err := s.cal.DeleteEvent(ctx, userID, current.GoogleEventID); err != nil {
			return err
		}
		return s.store.SetParticipantEventID(ctx, m.ID, userID, "")
	}
	return nil
}

func (s *SyncService) upsertPersonalEvent(ctx context.Context, m domain.ResolvedMeeting, userID, prevEventID, timeZone string) error {
	// Copia privada en el calendario del invitado: sin asistentes.
	personal := buildEvent(m, timeZone, false)

	if prevEventID != "" {
		_, err := s.cal.PatchEvent(ctx, userID, prevEventID, personal)
		if err == nil {
			return nil
		}
		if !gcal.IsGone(err) {
			return err
		}
		// El evento guardado ya no existe en Google: insertamos de nuevo.
	}

	ev, err := s.cal.InsertEvent(ctx, userID, personal)
	if err != nil {
		return err
	}
	if ev.Id == prevEventID {
		return nil
	}
	return s.store.SetParticipantEventID(ctx, m.ID, userID, ev.Id)
}

func (s *SyncService) syncOwnerAttendees(ctx context.Context, m domain.ResolvedMeeting) error {
	if m.GoogleEventID == "" || !s.connected(ctx, m.OwnerID) {
		return nil
	}
	patch := &calendar.Event{Attendees: buildAttendees(m.ResolvedParticipants)}
	_, err := s.cal.PatchEvent(ctx, m.OwnerID, m.GoogleEventID, patch)
	return err
}

func (s *SyncService) connected(ctx context.Context, userID string) bool {
	cred, err := s.creds.Get(ctx, userID)
	if err != nil {
		s.logger.Warn("load google credential failed",
			zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return cred.Connected()
}

func (s *SyncService) logSwallowed(op, meetingID, userID string, err error) {
	s.logger.Error("google calendar sync failed",
		zap.String("op", op),
		zap.String("meeting_id", meetingID),
		zap.String("user_id", userID),
		zap.Error(err),
	)
}

// buildEvent arma el recurso de evento de Google a partir de la reunion.
// withAttendees distingue el evento compartido del dueno de la copia
// personal de un invitado.
func buildEvent(m domain.ResolvedMeeting, timeZone string, withAttendees bool) *calendar.Event {
	if timeZone == "" {
		timeZone = "UTC"
	}
	ev := &calendar.Event{
		Summary:     m.Title,
		Description: m.Description,
		Start: &calendar.EventDateTime{
			DateTime: m.StartTime.UTC().Format(time.RFC3339),
			TimeZone: timeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: m.EndTime.UTC().Format(time.RFC3339),
			TimeZone: timeZone,
		},
		Location: m.InvitationLink,
	}
	if withAttendees {
		ev.Attendees = buildAttendees(m.ResolvedParticipants)
	}
	return ev
}

func buildAttendees(parts []domain.ResolvedParticipant) []*calendar.EventAttendee {
	out := make([]*calendar.EventAttendee, 0, len(parts))
	for _, p := range parts {
		if p.User.Email == "" {
			continue
		}
		out = append(out, &calendar.EventAttendee{
			Email:          p.User.Email,
			ResponseStatus: responseStatusFor(p.Status),
		})
	}
	return out
}

func responseStatusFor(status string) string {
	switch status {
	case domain.StatusAccepted:
		return "accepted"
	case domain.StatusDeclined:
		return "declined"
	default:
		return "needsAction"
	}
}
