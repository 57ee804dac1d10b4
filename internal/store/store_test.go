package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppedClock returns strictly increasing times so ordering is stable.
func steppedClock() func() time.Time {
	base := time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	var n int
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

// exerciseStore runs the behaviour every Store implementation shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("history is ordered and per user", func(t *testing.T) {
		require.NoError(t, s.AppendTurn(ctx, "u1", RoleUser, "Oi"))
		require.NoError(t, s.AppendTurn(ctx, "u2", RoleUser, "Olá"))
		require.NoError(t, s.AppendTurn(ctx, "u1", RoleAssistant, "Bem-vindo"))

		turns, err := s.History(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, turns, 2)
		assert.Equal(t, RoleUser, turns[0].Role)
		assert.Equal(t, "Oi", turns[0].Text)
		assert.Equal(t, RoleAssistant, turns[1].Role)
		assert.Equal(t, "Bem-vindo", turns[1].Text)
		assert.False(t, turns[1].CreatedAt.Before(turns[0].CreatedAt))

		empty, err := s.History(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("invalid role rejected", func(t *testing.T) {
		err := s.AppendTurn(ctx, "u1", Role("system"), "x")
		assert.True(t, errors.Is(err, ErrInvalidRole))
	})

	t.Run("session defaults and full replace", func(t *testing.T) {
		rec, err := s.Session(ctx, "fresh")
		require.NoError(t, err)
		assert.True(t, rec.IsZero())

		require.NoError(t, s.PutSession(ctx, "u1", SessionRecord{
			ExpectedSlot:   "email",
			PendingBooking: json.RawMessage(`{"nome":"Ana Silva"}`),
		}))
		rec, err = s.Session(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "email", rec.ExpectedSlot)
		assert.JSONEq(t, `{"nome":"Ana Silva"}`, string(rec.PendingBooking))

		require.NoError(t, s.PutSession(ctx, "u1", SessionRecord{}))
		rec, err = s.Session(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, rec.IsZero())
	})

	t.Run("appointments", func(t *testing.T) {
		_, err := s.InsertAppointment(ctx, NewAppointment{Date: "25/08/2025", Time: "15:30h"})
		require.Error(t, err)

		first, err := s.InsertAppointment(ctx, NewAppointment{
			Name: "Ana Silva", Email: "ana@x.com", Phone: "11987654321", Date: "25/08/2025", Time: "15:30h",
		})
		require.NoError(t, err)
		second, err := s.InsertAppointment(ctx, NewAppointment{Name: "Bruno", Date: "28/08/2025", Time: "14:00h"})
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		booked, err := s.BookedTimes(ctx, "25/08/2025")
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"15:30h": {}}, booked)

		none, err := s.BookedTimes(ctx, "01/09/2025")
		require.NoError(t, err)
		assert.Empty(t, none)

		appts, err := s.ListAppointments(ctx)
		require.NoError(t, err)
		require.Len(t, appts, 2)
		assert.Equal(t, second, appts[0].ID)
		assert.Equal(t, "Bruno", appts[0].Name)
		assert.Empty(t, appts[0].Email)
		assert.Empty(t, appts[0].Phone)
		assert.Equal(t, first, appts[1].ID)
		assert.Equal(t, "ana@x.com", appts[1].Email)
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	s.now = steppedClock()
	exerciseStore(t, s)
}

func TestMemoryStore_SessionIsCopied(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	pending := json.RawMessage(`{"nome":"Ana"}`)
	require.NoError(t, s.PutSession(ctx, "u1", SessionRecord{PendingBooking: pending}))
	pending[2] = 'X'

	rec, err := s.Session(ctx, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"nome":"Ana"}`, string(rec.PendingBooking))
}

func TestComposite(t *testing.T) {
	conversations := NewMemoryStore()
	appointments := NewMemoryStore()
	conversations.now = steppedClock()
	appointments.now = steppedClock()
	c := NewComposite(conversations, appointments)
	exerciseStore(t, c)

	// appointments went to the appointment half only
	got, err := conversations.ListAppointments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
