package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// Store is the slice of persistence the tracker needs.
type Store interface {
	Session(ctx context.Context, userID string) (store.SessionRecord, error)
	PutSession(ctx context.Context, userID string, rec store.SessionRecord) error
}

// Tracker loads and saves sessions. It does not enforce field order.
type Tracker struct {
	store  Store
	logger *logging.Logger
}

// NewTracker builds a tracker over s.
func NewTracker(s Store, logger *logging.Logger) *Tracker {
	if s == nil {
		panic("session: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Tracker{store: s, logger: logger}
}

// Load returns the user's session. Unknown users get an empty session, and
// so do users whose stored session cannot be decoded.
func (t *Tracker) Load(ctx context.Context, userID string) (Session, error) {
	rec, err := t.store.Session(ctx, userID)
	if err != nil {
		return Session{}, fmt.Errorf("session: load %s: %w", userID, err)
	}
	sess, err := Decode(rec)
	if err != nil {
		t.logger.Warn("discarding malformed session", "user_id", userID, "error", err)
		return Session{}, nil
	}
	return sess, nil
}

// Save replaces the stored session.
func (t *Tracker) Save(ctx context.Context, userID string, sess Session) error {
	rec, err := Encode(sess)
	if err != nil {
		return err
	}
	if err := t.store.PutSession(ctx, userID, rec); err != nil {
		return fmt.Errorf("session: save %s: %w", userID, err)
	}
	return nil
}

// Reset clears the user's session.
func (t *Tracker) Reset(ctx context.Context, userID string) error {
	if err := t.store.PutSession(ctx, userID, store.SessionRecord{}); err != nil {
		return fmt.Errorf("session: reset %s: %w", userID, err)
	}
	return nil
}

// Decode converts a stored record into a Session.
func Decode(rec store.SessionRecord) (Session, error) {
	awaiting, err := ParseAwaiting(rec.ExpectedSlot)
	if err != nil {
		return Session{}, err
	}
	sess := Session{Awaiting: awaiting}
	if len(rec.PendingBooking) > 0 && string(rec.PendingBooking) != "null" {
		if err := json.Unmarshal(rec.PendingBooking, &sess.Booking); err != nil {
			return Session{}, fmt.Errorf("session: decode pending booking: %w", err)
		}
	}
	if err := sess.Validate(); err != nil {
		return Session{}, err
	}
	return sess, nil
}

// Encode converts a Session into its stored record. An empty booking is
// stored as NULL.
func Encode(sess Session) (store.SessionRecord, error) {
	if err := sess.Validate(); err != nil {
		return store.SessionRecord{}, err
	}
	rec := store.SessionRecord{ExpectedSlot: string(sess.Awaiting)}
	if !sess.Booking.IsZero() {
		data, err := json.Marshal(sess.Booking)
		if err != nil {
			return store.SessionRecord{}, fmt.Errorf("session: encode pending booking: %w", err)
		}
		rec.PendingBooking = data
	}
	return rec, nil
}
