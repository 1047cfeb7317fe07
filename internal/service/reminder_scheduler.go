package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"syncmeet/internal/domain"
	"syncmeet/internal/email"
)

// ReminderScheduler mantiene la tabla de recordatorios pendientes por
// reunion. Es un servicio inyectable con cancelacion deterministica, no un
// mapa global: cada reunion tiene a lo sumo un handle y reprogramar
// reemplaza al anterior. CancelAll limpia todo al apagar el proceso.
type ReminderScheduler struct {
	logger *zap.Logger
	sender email.Sender

	mu     sync.Mutex
	timers map[string]*time.Timer

	// Reemplazable en tests para disparar sin esperar.
	afterFunc func(d time.Duration, f func()) *time.Timer
	now       func() time.Time
}

func NewReminderScheduler(logger *zap.Logger, sender email.Sender) *ReminderScheduler {
	return &ReminderScheduler{
		logger:    logger,
		sender:    sender,
		timers:    make(map[string]*time.Timer),
		afterFunc: time.AfterFunc,
		now:       time.Now,
	}
}

// Schedule programa (o reprograma) el recordatorio de la reunion segun la
// preferencia del dueno. Un recordatorio cuyo momento ya paso no se programa.
func (s *ReminderScheduler) Schedule(m domain.Meeting, owner domain.User) {
	minutes := owner.DefaultReminderMinutes
	if minutes < 0 || minutes > 1440 {
		minutes = 15
	}
	fireAt := m.StartTime.Add(-time.Duration(minutes) * time.Minute)
	delay := fireAt.Sub(s.now().UTC())
	if delay <= 0 {
		s.Cancel(m.ID)
		return
	}

	meetingID := m.ID
	title := m.Title
	start := m.StartTime
	recipient := owner.Email

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[meetingID]; ok {
		prev.Stop()
	}
	s.timers[meetingID] = s.afterFunc(delay, func() {
		s.fire(meetingID, title, start, recipient)
	})
}

// Cancel detiene y descarta el recordatorio pendiente de la reunion.
func (s *ReminderScheduler) Cancel(meetingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[meetingID]; ok {
		t.Stop()
		delete(s.timers, meetingID)
	}
}

// CancelAll descarta todos los recordatorios pendientes.
func (s *ReminderScheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending devuelve cuantos recordatorios siguen programados.
func (s *ReminderScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *ReminderScheduler) fire(meetingID, title string, start time.Time, recipient string) {
	s.mu.Lock()
	delete(s.timers, meetingID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.sender.SendMeetingReminder(ctx, recipient, title, start); err != nil {
		s.logger.Warn("send meeting reminder failed",
			zap.String("meeting_id", meetingID),
			zap.String("to", recipient),
			zap.Error(err),
		)
	}
}
