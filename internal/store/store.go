// Package store persists conversation turns, per-user sessions and
// finalized appointments.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ErrInvalidRole is returned when a turn carries an unknown role.
var ErrInvalidRole = errors.New("store: invalid role")

func (r Role) validate() error {
	switch r {
	case RoleUser, RoleAssistant:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidRole, string(r))
}

// Turn is one recorded message.
type Turn struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionRecord is the persisted form of a session. An empty ExpectedSlot and
// a nil PendingBooking are stored as NULL.
type SessionRecord struct {
	ExpectedSlot   string          `json:"expected_slot,omitempty"`
	PendingBooking json.RawMessage `json:"pending_booking,omitempty"`
}

// IsZero reports whether the record holds no session state.
func (r SessionRecord) IsZero() bool {
	return r.ExpectedSlot == "" && len(r.PendingBooking) == 0
}

// NewAppointment is the data needed to insert an appointment. Empty email
// and phone are stored as NULL.
type NewAppointment struct {
	Name  string
	Email string
	Phone string
	Date  string
	Time  string
}

// Appointment is a finalized booking.
type Appointment struct {
	ID        int64     `json:"id"`
	Name      string    `json:"nome"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"telefone,omitempty"`
	Date      string    `json:"data"`
	Time      string    `json:"hora"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationStore keeps turn history and session state.
type ConversationStore interface {
	AppendTurn(ctx context.Context, userID string, role Role, text string) error
	// History returns the user's turns, oldest first.
	History(ctx context.Context, userID string) ([]Turn, error)
	// Session returns the zero record for unknown users.
	Session(ctx context.Context, userID string) (SessionRecord, error)
	PutSession(ctx context.Context, userID string, rec SessionRecord) error
}

// AppointmentStore keeps finalized appointments.
type AppointmentStore interface {
	InsertAppointment(ctx context.Context, appt NewAppointment) (int64, error)
	BookedTimes(ctx context.Context, date string) (map[string]struct{}, error)
	// ListAppointments returns appointments most recent first.
	ListAppointments(ctx context.Context) ([]Appointment, error)
}

// Store is the full persistence surface used by the assistant.
type Store interface {
	ConversationStore
	AppointmentStore
}

func validateAppointment(appt NewAppointment) error {
	if appt.Name == "" {
		return errors.New("store: appointment name is required")
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
