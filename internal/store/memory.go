package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu           sync.RWMutex
	now          func() time.Time
	nextTurnID   int64
	nextApptID   int64
	turns        map[string][]Turn
	sessions     map[string]SessionRecord
	appointments []Appointment
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		turns:    make(map[string][]Turn),
		sessions: make(map[string]SessionRecord),
	}
}

func (s *MemoryStore) AppendTurn(_ context.Context, userID string, role Role, text string) error {
	if err := role.validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTurnID++
	s.turns[userID] = append(s.turns[userID], Turn{
		ID:        s.nextTurnID,
		UserID:    userID,
		Role:      role,
		Text:      text,
		CreatedAt: s.now().UTC(),
	})
	return nil
}

func (s *MemoryStore) History(_ context.Context, userID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	turns := s.turns[userID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Session(_ context.Context, userID string) (SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec := s.sessions[userID]
	return SessionRecord{
		ExpectedSlot:   rec.ExpectedSlot,
		PendingBooking: append([]byte(nil), rec.PendingBooking...),
	}, nil
}

func (s *MemoryStore) PutSession(_ context.Context, userID string, rec SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.IsZero() {
		delete(s.sessions, userID)
		return nil
	}
	s.sessions[userID] = SessionRecord{
		ExpectedSlot:   rec.ExpectedSlot,
		PendingBooking: append([]byte(nil), rec.PendingBooking...),
	}
	return nil
}

func (s *MemoryStore) InsertAppointment(_ context.Context, appt NewAppointment) (int64, error) {
	if err := validateAppointment(appt); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextApptID++
	s.appointments = append(s.appointments, Appointment{
		ID:        s.nextApptID,
		Name:      appt.Name,
		Email:     appt.Email,
		Phone:     appt.Phone,
		Date:      appt.Date,
		Time:      appt.Time,
		CreatedAt: s.now().UTC(),
	})
	return s.nextApptID, nil
}

func (s *MemoryStore) BookedTimes(_ context.Context, date string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	booked := make(map[string]struct{})
	for _, appt := range s.appointments {
		if appt.Date == date {
			booked[appt.Time] = struct{}{}
		}
	}
	return booked, nil
}

func (s *MemoryStore) ListAppointments(_ context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Appointment, 0, len(s.appointments))
	for i := len(s.appointments) - 1; i >= 0; i-- {
		out = append(out, s.appointments[i])
	}
	return out, nil
}
