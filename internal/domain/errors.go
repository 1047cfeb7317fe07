package domain

import (
	"fmt"
	"strings"
)

// ValidationError indica entrada invalida. Surfaced siempre al caller.
type ValidationError struct {
	Reason string
	// Emails de invitados sin usuario registrado, si aplica.
	UnresolvedEmails []string
}

func (e *ValidationError) Error() string {
	if len(e.UnresolvedEmails) > 0 {
		return fmt.Sprintf("some emails are not registered: %s", strings.Join(e.UnresolvedEmails, ", "))
	}
	return e.Reason
}

func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

// ForbiddenError indica que el caller autenticado no tiene derechos sobre
// la reunion (no es dueno, o no esta invitado). Nunca se confunde con 401.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return e.Reason }

func NewForbiddenError(reason string) *ForbiddenError {
	return &ForbiddenError{Reason: reason}
}

// NotFoundError indica que el recurso no existe.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return e.Resource + " not found"
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// InvalidStateError indica una operacion sobre un recurso en estado que no
// la admite (p. ej. responder a una reunion archivada o ya pasada).
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string { return e.Reason }

// SyncError envuelve una falla hablando con Google Calendar. Se loguea y
// se traga en todos los caminos best-effort; solo el sync manual la expone.
type SyncError struct {
	Op        string
	MeetingID string
	UserID    string
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("calendar sync %s (meeting=%s user=%s): %v", e.Op, e.MeetingID, e.UserID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
