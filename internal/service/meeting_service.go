package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"syncmeet/internal/domain"
	"syncmeet/internal/email"
	"syncmeet/internal/repository"
)

// MeetingService coordina reglas de negocio para reuniones: validacion,
// autorizacion, la maquina de estados RSVP y el barrido de archivado.
// La mutacion primaria siempre se confirma antes de intentar cualquier
// sincronizacion externa.
type MeetingService struct {
	logger      *zap.Logger
	meetings    repository.MeetingRepository
	users       repository.UserRepository
	sync        CalendarSync
	reminders   *ReminderScheduler
	emailSender email.Sender
}

func NewMeetingService(
	logger *zap.Logger,
	meetings repository.MeetingRepository,
	users repository.UserRepository,
	sync CalendarSync,
	reminders *ReminderScheduler,
	emailSender email.Sender,
) *MeetingService {
	return &MeetingService{
		logger:      logger,
		meetings:    meetings,
		users:       users,
		sync:        sync,
		reminders:   reminders,
		emailSender: emailSender,
	}
}

type CreateMeetingInput struct {
	Title          string
	Description    string
	StartTime      time.Time
	EndTime        time.Time
	InvitationLink string
	Participants   []InviteEntry
}

// UpdateMeetingInput usa punteros para distinguir "sin tocar" de "vaciar".
// Participants nil deja la lista como esta.
type UpdateMeetingInput struct {
	Title          *string
	Description    *string
	StartTime      *time.Time
	EndTime        *time.Time
	InvitationLink *string
	Participants   []InviteEntry
}

func (s *MeetingService) CreateMeeting(ctx context.Context, input CreateMeetingInput, ownerID, timeZone string) (domain.ResolvedMeeting, error) {
	if strings.TrimSpace(input.Title) == "" {
		return domain.ResolvedMeeting{}, domain.NewValidationError("title is required")
	}
	if input.StartTime.IsZero() || input.EndTime.IsZero() {
		return domain.ResolvedMeeting{}, domain.NewValidationError("start_time and end_time are required")
	}
	if !input.StartTime.Before(input.EndTime) {
		return domain.ResolvedMeeting{}, domain.NewValidationError("start_time must be before end_time")
	}

	participants, err := ResolveParticipants(ctx, s.users, input.Participants)
	if err != nil {
		return domain.ResolvedMeeting{}, err
	}

	meeting := domain.Meeting{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(input.Title),
		Description:    input.Description,
		StartTime:      input.StartTime.UTC(),
		EndTime:        input.EndTime.UTC(),
		InvitationLink: input.InvitationLink,
		Participants:   participants,
		OwnerID:        ownerID,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.meetings.Create(ctx, meeting); err != nil {
		return domain.ResolvedMeeting{}, fmt.Errorf("persist meeting: %w", err)
	}

	resolved, err := s.meetings.GetResolved(ctx, meeting.ID)
	if err != nil {
		return domain.ResolvedMeeting{}, fmt.Errorf("reload meeting: %w", err)
	}

	// Lo primario ya esta confirmado: todo lo que sigue es best-effort.
	s.sync.MeetingCreated(ctx, resolved, timeZone)
	s.scheduleReminder(ctx, resolved.Meeting)
	s.notifyInvitees(ctx, resolved)

	return s.refreshed(ctx, resolved)
}

func (s *MeetingService) UpdateMeeting(ctx context.Context, meetingID string, updates UpdateMeetingInput, callerID, timeZone string) (domain.ResolvedMeeting, error) {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ResolvedMeeting{}, &domain.NotFoundError{Resource: "meeting", ID: meetingID}
		}
		return domain.ResolvedMeeting{}, err
	}
	if meeting.OwnerID != callerID {
		return domain.ResolvedMeeting{}, domain.NewForbiddenError("not allowed to update this meeting")
	}

	if updates.Title != nil {
		if strings.TrimSpace(*updates.Title) == "" {
			return domain.ResolvedMeeting{}, domain.NewValidationError("title is required")
		}
		meeting.Title = strings.TrimSpace(*updates.Title)
	}
	if updates.Description != nil {
		meeting.Description = *updates.Description
	}
	if updates.StartTime != nil {
		meeting.StartTime = updates.StartTime.UTC()
	}
	if updates.EndTime != nil {
		meeting.EndTime = updates.EndTime.UTC()
	}
	if updates.InvitationLink != nil {
		meeting.InvitationLink = *updates.InvitationLink
	}
	// Los limites de tiempo se revalidan siempre sobre el estado final.
	if !meeting.StartTime.Before(meeting.EndTime) {
		return domain.ResolvedMeeting{}, domain.NewValidationError("start_time must be before end_time")
	}

	if updates.Participants != nil {
		participants, err := ResolveParticipants(ctx, s.users, updates.Participants)
		if err != nil {
			return domain.ResolvedMeeting{}, err
		}
		meeting.Participants = keepKnownEventIDs(meeting.Participants, participants)
	}

	if err := s.meetings.Update(ctx, meeting); err != nil {
		return domain.ResolvedMeeting{}, fmt.Errorf("persist meeting: %w", err)
	}

	resolved, err := s.meetings.GetResolved(ctx, meeting.ID)
	if err != nil {
		return domain.ResolvedMeeting{}, fmt.Errorf("reload meeting: %w", err)
	}

	s.sync.MeetingUpdated(ctx, resolved, timeZone)
	s.scheduleReminder(ctx, resolved.Meeting)

	return s.refreshed(ctx, resolved)
}

func (s *MeetingService) DeleteMeeting(ctx context.Context, meetingID, callerID string) error {
	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.NotFoundError{Resource: "meeting", ID: meetingID}
		}
		return err
	}
	if meeting.OwnerID != callerID {
		return domain.NewForbiddenError("not allowed to delete this meeting")
	}

	// Intento de borrado remoto primero; su falla no bloquea el borrado local.
	s.sync.MeetingDeleted(ctx, meeting)

	if err := s.meetings.Delete(ctx, meetingID); err != nil {
		return fmt.Errorf("delete meeting: %w", err)
	}
	if s.reminders != nil {
		s.reminders.Cancel(meetingID)
	}
	return nil
}

// RespondToInvitation aplica la transicion RSVP de un participante.
// El orden de fallas es fijo: inexistente, estado invalido (archivada o
// pasada), no invitado, respuesta invalida. La persistencia del estado es
// la frontera de durabilidad: despues de ella la sincronizacion es
// best-effort.
func (s *MeetingService) RespondToInvitation(ctx context.Context, meetingID, callerID, status, timeZone string) error {
	resolved, err := s.meetings.GetResolved(ctx, meetingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &domain.NotFoundError{Resource: "meeting", ID: meetingID}
		}
		return err
	}

	now := time.Now().UTC()
	if resolved.Archived || resolved.Ended(now) {
		return &domain.InvalidStateError{Reason: "cannot respond to an archived or past meeting"}
	}

	participant, ok := resolved.ParticipantRef(callerID)
	if !ok {
		return domain.NewForbiddenError("you are not invited to this meeting")
	}

	if !domain.ValidRSVPResponse(status) {
		return domain.NewValidationError("response must be accepted or declined")
	}

	// Ultima respuesta gana: se sobreescribe, no se acumula.
	if err := s.meetings.UpdateParticipantStatus(ctx, meetingID, callerID, status); err != nil {
		return fmt.Errorf("persist rsvp: %w", err)
	}
	participant.Status = status
	for i := range resolved.ResolvedParticipants {
		if resolved.ResolvedParticipants[i].User.ID == callerID {
			resolved.ResolvedParticipants[i].Status = status
		}
	}

	s.sync.RSVPChanged(ctx, resolved, callerID, status, timeZone)
	return nil
}

// SyncMeetingToGoogle es el sync manual del dueno: la unica operacion que
// expone la falla del proveedor al caller.
func (s *MeetingService) SyncMeetingToGoogle(ctx context.Context, meetingID, callerID, timeZone string) (string, error) {
	resolved, err := s.meetings.GetResolved(ctx, meetingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", &domain.NotFoundError{Resource: "meeting", ID: meetingID}
		}
		return "", err
	}
	if resolved.OwnerID != callerID {
		return "", domain.NewForbiddenError("not allowed to sync this meeting")
	}
	return s.sync.ManualSync(ctx, resolved, timeZone)
}

// ArchivePast archiva en lote las reuniones cuyo fin ya paso y devuelve
// cuantas afecto. Repetirla sin que pase el tiempo afecta cero.
func (s *MeetingService) ArchivePast(ctx context.Context) (int64, error) {
	count, err := s.meetings.ArchivePast(ctx, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("archive past meetings: %w", err)
	}
	if count > 0 {
		s.logger.Info("archived past meetings", zap.Int64("count", count))
	}
	return count, nil
}

func (s *MeetingService) ListMeetings(ctx context.Context, userID string) ([]domain.ResolvedMeeting, error) {
	return s.meetings.ListActiveForUser(ctx, userID)
}

func (s *MeetingService) ListInvitations(ctx context.Context, userID string) ([]domain.ResolvedMeeting, error) {
	return s.meetings.ListInvitationsForUser(ctx, userID)
}

func (s *MeetingService) ListArchived(ctx context.Context, userID string) ([]domain.ResolvedMeeting, error) {
	return s.meetings.ListArchivedForUser(ctx, userID)
}

func (s *MeetingService) GetMeeting(ctx context.Context, meetingID, callerID string) (domain.ResolvedMeeting, error) {
	resolved, err := s.meetings.GetResolved(ctx, meetingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ResolvedMeeting{}, &domain.NotFoundError{Resource: "meeting", ID: meetingID}
		}
		return domain.ResolvedMeeting{}, err
	}
	if resolved.OwnerID != callerID {
		if _, ok := resolved.ParticipantRef(callerID); !ok {
			return domain.ResolvedMeeting{}, domain.NewForbiddenError("not allowed to view this meeting")
		}
	}
	return resolved, nil
}

// refreshed relee la reunion para reflejar ids de evento que la capa de
// sync pudo haber guardado. Si falla, devolvemos lo que ya teniamos.
func (s *MeetingService) refreshed(ctx context.Context, resolved domain.ResolvedMeeting) (domain.ResolvedMeeting, error) {
	updated, err := s.meetings.GetResolved(ctx, resolved.ID)
	if err != nil {
		return resolved, nil
	}
	return updated, nil
}

func (s *MeetingService) scheduleReminder(ctx context.Context, m domain.Meeting) {
	if s.reminders == nil {
		return
	}
	owner, err := s.users.GetByID(ctx, m.OwnerID)
	if err != nil {
		s.logger.Warn("load owner for reminder failed",
			zap.String("meeting_id", m.ID), zap.Error(err))
		return
	}
	s.reminders.Schedule(m, owner)
}

func (s *MeetingService) notifyInvitees(ctx context.Context, m domain.ResolvedMeeting) {
	if s.emailSender == nil {
		return
	}
	for _, p := range m.ResolvedParticipants {
		if p.Status != domain.StatusInvited || p.User.Email == "" {
			continue
		}
		if err := s.emailSender.SendMeetingInvite(ctx, p.User.Email, m.Title, m.Owner.DisplayName, m.StartTime); err != nil {
			s.logger.Warn("send invite mail failed",
				zap.String("meeting_id", m.ID),
				zap.String("to", p.User.Email),
				zap.Error(err),
			)
		}
	}
}

// keepKnownEventIDs conserva el id de evento personal de los participantes
// que sobreviven un reemplazo de lista: ese campo pertenece a la capa de
// sync, no al flujo de edicion.
func keepKnownEventIDs(prev, next []domain.Participant) []domain.Participant {
	byUser := make(map[string]domain.Participant, len(prev))
	for _, p := range prev {
		byUser[p.UserID] = p
	}
	for i := range next {
		if next[i].GoogleEventID != "" {
			continue
		}
		if old, ok := byUser[next[i].UserID]; ok {
			next[i].GoogleEventID = old.GoogleEventID
			if next[i].Status == domain.StatusInvited && old.Status != "" {
				next[i].Status = old.Status
			}
		}
	}
	return next
}
