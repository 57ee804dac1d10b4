// Package session tracks each user's in-progress booking between turns.
package session

import (
	"errors"
	"fmt"

	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
)

// Awaiting names the field the assistant is currently soliciting.
type Awaiting string

const (
	AwaitingNone  Awaiting = ""
	AwaitingName  Awaiting = "nome"
	AwaitingEmail Awaiting = "email"
	AwaitingPhone Awaiting = "telefone"
)

// ErrUnknownAwaiting is returned for a persisted tag outside the known set.
var ErrUnknownAwaiting = errors.New("session: unknown awaiting tag")

// ParseAwaiting converts a persisted tag back into an Awaiting value.
func ParseAwaiting(tag string) (Awaiting, error) {
	switch a := Awaiting(tag); a {
	case AwaitingNone, AwaitingName, AwaitingEmail, AwaitingPhone:
		return a, nil
	}
	return AwaitingNone, fmt.Errorf("%w: %q", ErrUnknownAwaiting, tag)
}

// Booking is the staging record that becomes an appointment.
type Booking struct {
	Name  string `json:"nome,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"telefone,omitempty"`
	Day   string `json:"dia,omitempty"`
	Date  string `json:"data,omitempty"`
	Time  string `json:"hora,omitempty"`
}

// IsZero reports whether nothing has been collected.
func (b Booking) IsZero() bool {
	return b == Booking{}
}

// HasSlot reports whether a date and time were chosen.
func (b Booking) HasSlot() bool {
	return b.Date != "" && b.Time != ""
}

// Slot returns the chosen slot, zero when none.
func (b Booking) Slot() availability.Slot {
	if !b.HasSlot() {
		return availability.Slot{}
	}
	return availability.Slot{Day: b.Day, Date: b.Date, Time: b.Time}
}

// WithSlot returns a copy with the slot recorded.
func (b Booking) WithSlot(slot availability.Slot) Booking {
	b.Day, b.Date, b.Time = slot.Day, slot.Date, slot.Time
	return b
}

// Complete reports whether every contact field and a slot are present.
func (b Booking) Complete() bool {
	return len(b.Missing()) == 0
}

// Missing lists the absent fields in collection order.
func (b Booking) Missing() []string {
	var missing []string
	if b.Name == "" {
		missing = append(missing, string(AwaitingName))
	}
	if b.Email == "" {
		missing = append(missing, string(AwaitingEmail))
	}
	if b.Phone == "" {
		missing = append(missing, string(AwaitingPhone))
	}
	if !b.HasSlot() {
		missing = append(missing, "horario")
	}
	return missing
}

// Stage is the derived dialogue stage. It is never persisted.
type Stage int

const (
	StageFresh Stage = iota
	StageCollecting
	StageFreeform
)

func (s Stage) String() string {
	switch s {
	case StageFresh:
		return "fresh"
	case StageCollecting:
		return "collecting"
	default:
		return "freeform"
	}
}

// Session is one user's dialogue state.
type Session struct {
	Awaiting Awaiting
	Booking  Booking
}

// IsZero reports whether the session holds nothing.
func (s Session) IsZero() bool {
	return s.Awaiting == AwaitingNone && s.Booking.IsZero()
}

// Stage derives the dialogue stage from the session and whether the user
// has any history.
func (s Session) Stage(hasHistory bool) Stage {
	if !hasHistory {
		return StageFresh
	}
	if s.Awaiting != AwaitingNone || (!s.Booking.IsZero() && !s.Booking.Complete()) {
		return StageCollecting
	}
	return StageFreeform
}

// Validate reports states no sequence of turns can legally produce.
func (s Session) Validate() error {
	if _, err := ParseAwaiting(string(s.Awaiting)); err != nil {
		return err
	}
	if (s.Booking.Date == "") != (s.Booking.Time == "") {
		return errors.New("session: slot date and time must be set together")
	}
	return nil
}
