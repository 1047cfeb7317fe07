package email

import (
	"context"
	"errors"
	"time"
)

// Sender define la interfaz para correos de invitacion y recordatorio.
type Sender interface {
	SendMeetingInvite(ctx context.Context, toEmail, meetingTitle, ownerName string, startsAt time.Time) error
	SendMeetingReminder(ctx context.Context, toEmail, meetingTitle string, startsAt time.Time) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendMeetingInvite(_ context.Context, _, _, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) SendMeetingReminder(_ context.Context, _, _ string, _ time.Time) error {
	return s.err()
}

func (s *disabledSender) err() error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
