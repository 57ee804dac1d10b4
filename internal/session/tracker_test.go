package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

type failingStore struct{ err error }

func (f failingStore) Session(context.Context, string) (store.SessionRecord, error) {
	return store.SessionRecord{}, f.err
}

func (f failingStore) PutSession(context.Context, string, store.SessionRecord) error {
	return f.err
}

func TestTracker_LoadUnknownUserIsEmpty(t *testing.T) {
	tracker := NewTracker(store.NewMemoryStore(), logging.Discard())
	sess, err := tracker.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, sess.IsZero())
}

func TestTracker_SaveLoadReset(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	tracker := NewTracker(mem, logging.Discard())

	want := Session{Awaiting: AwaitingEmail, Booking: Booking{Name: "Ana Silva"}}
	require.NoError(t, tracker.Save(ctx, "u1", want))

	rec, err := mem.Session(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "email", rec.ExpectedSlot)
	assert.JSONEq(t, `{"nome":"Ana Silva"}`, string(rec.PendingBooking))

	got, err := tracker.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// full replace, not a patch
	require.NoError(t, tracker.Save(ctx, "u1", Session{Booking: Booking{Email: "a@b.co"}}))
	got, err = tracker.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Session{Booking: Booking{Email: "a@b.co"}}, got)

	require.NoError(t, tracker.Reset(ctx, "u1"))
	got, err = tracker.Load(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestTracker_MalformedSessionFailsClosed(t *testing.T) {
	ctx := context.Background()
	cases := map[string]store.SessionRecord{
		"corrupt json":      {ExpectedSlot: "email", PendingBooking: json.RawMessage(`{"nome":`)},
		"wrong json type":   {PendingBooking: json.RawMessage(`["Ana"]`)},
		"unknown tag":       {ExpectedSlot: "cpf", PendingBooking: json.RawMessage(`{"nome":"Ana"}`)},
		"half a slot":       {PendingBooking: json.RawMessage(`{"nome":"Ana","data":"28/08/2025"}`)},
		"null pending only": {PendingBooking: json.RawMessage(`null`)},
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			mem := store.NewMemoryStore()
			require.NoError(t, mem.PutSession(ctx, "u1", rec))

			sess, err := NewTracker(mem, logging.Discard()).Load(ctx, "u1")
			require.NoError(t, err)
			assert.True(t, sess.IsZero())
		})
	}
}

func TestTracker_StorageErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("db down")
	tracker := NewTracker(failingStore{err: boom}, logging.Discard())

	_, err := tracker.Load(ctx, "u1")
	assert.True(t, errors.Is(err, boom))
	assert.True(t, errors.Is(tracker.Save(ctx, "u1", Session{}), boom))
	assert.True(t, errors.Is(tracker.Reset(ctx, "u1"), boom))
}

func TestEncode_RejectsInvalidSession(t *testing.T) {
	_, err := Encode(Session{Awaiting: Awaiting("cpf")})
	assert.Error(t, err)

	rec, err := Encode(Session{})
	require.NoError(t, err)
	assert.True(t, rec.IsZero())
}
