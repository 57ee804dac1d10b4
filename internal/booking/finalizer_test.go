package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

var friday = availability.Slot{Day: "Sexta-feira", Date: "28/08/2025", Time: "14:00h"}

type recordingNotifier struct {
	got []store.Appointment
	err error
}

func (r *recordingNotifier) NotifyAppointment(_ context.Context, appt store.Appointment) error {
	r.got = append(r.got, appt)
	return r.err
}

type failingInserter struct{ calls int }

func (f *failingInserter) InsertAppointment(context.Context, store.NewAppointment) (int64, error) {
	f.calls++
	if f.calls == 1 {
		return 0, errors.New("db down")
	}
	return 7, nil
}

type brokenGuard struct{}

func (brokenGuard) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}
func (brokenGuard) Release(context.Context, string) error { return nil }

func TestFinalize_StoresAppointment(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	notifier := &recordingNotifier{}
	f := NewFinalizer(mem, logging.Discard(), WithNotifier(notifier))

	id, err := f.Finalize(ctx, "u1", session.Booking{Name: " Ana Silva ", Email: "ana@x.com"}, friday)
	require.NoError(t, err)

	appts, err := mem.ListAppointments(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, id, appts[0].ID)
	assert.Equal(t, "Ana Silva", appts[0].Name)
	assert.Equal(t, "ana@x.com", appts[0].Email)
	assert.Empty(t, appts[0].Phone)
	assert.Equal(t, "28/08/2025", appts[0].Date)
	assert.Equal(t, "14:00h", appts[0].Time)

	require.Len(t, notifier.got, 1)
	assert.Equal(t, id, notifier.got[0].ID)
}

func TestFinalize_Validation(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	f := NewFinalizer(mem, logging.Discard())

	_, err := f.Finalize(ctx, "u1", session.Booking{Email: "a@b.co"}, friday)
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = f.Finalize(ctx, "u1", session.Booking{Name: "Ana"}, availability.Slot{})
	assert.ErrorIs(t, err, ErrMissingSlot)

	appts, err := mem.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestFinalize_DuplicateWithinWindow(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	guard := NewMemoryGuard()
	now := time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC)
	guard.now = func() time.Time { return now }
	f := NewFinalizer(mem, logging.Discard(), WithGuard(guard, time.Minute))
	b := session.Booking{Name: "Ana"}

	_, err := f.Finalize(ctx, "u1", b, friday)
	require.NoError(t, err)
	_, err = f.Finalize(ctx, "u1", b, friday)
	assert.ErrorIs(t, err, ErrDuplicate)

	now = now.Add(2 * time.Minute)
	_, err = f.Finalize(ctx, "u1", b, friday)
	require.NoError(t, err)

	appts, err := mem.ListAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, 2)
}

func TestFinalize_StoreErrorReleasesGuard(t *testing.T) {
	ctx := context.Background()
	inserter := &failingInserter{}
	f := NewFinalizer(inserter, logging.Discard())

	_, err := f.Finalize(ctx, "u1", session.Booking{Name: "Ana"}, friday)
	require.Error(t, err)

	id, err := f.Finalize(ctx, "u1", session.Booking{Name: "Ana"}, friday)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
}

func TestFinalize_BrokenGuardStillBooks(t *testing.T) {
	mem := store.NewMemoryStore()
	f := NewFinalizer(mem, logging.Discard(), WithGuard(brokenGuard{}, 0))

	_, err := f.Finalize(context.Background(), "u1", session.Booking{Name: "Ana"}, friday)
	require.NoError(t, err)
}

func TestFinalize_NotifierErrorIsNotFatal(t *testing.T) {
	f := NewFinalizer(store.NewMemoryStore(), logging.Discard(), WithNotifier(&recordingNotifier{err: errors.New("smtp down")}))
	_, err := f.Finalize(context.Background(), "u1", session.Booking{Name: "Ana"}, friday)
	require.NoError(t, err)
}

func TestRedisGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	guard := NewRedisGuard(client)
	ctx := context.Background()

	ok, err := guard.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = guard.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, guard.Release(ctx, "k"))
	assert.False(t, mr.Exists("k"))
}
