package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisConversationStore(t *testing.T) {
	_, client := newTestRedis(t)
	conversations := NewRedisConversationStore(client, 0)
	conversations.now = steppedClock()
	appointments := NewMemoryStore()
	appointments.now = steppedClock()

	exerciseStore(t, NewComposite(conversations, appointments))
}

func TestRedisConversationStore_TTL(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisConversationStore(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, "u1", RoleUser, "Oi"))
	require.NoError(t, s.PutSession(ctx, "u1", SessionRecord{ExpectedSlot: "email"}))
	assert.Equal(t, time.Hour, mr.TTL(historyKey("u1")))
	assert.Equal(t, time.Hour, mr.TTL(sessionKey("u1")))

	mr.FastForward(2 * time.Hour)

	turns, err := s.History(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, turns)
	rec, err := s.Session(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.IsZero())
}

func TestRedisConversationStore_CorruptSessionPassesThroughRaw(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisConversationStore(client, 0)

	require.NoError(t, mr.Set(sessionKey("u1"), "{not json"))
	rec, err := s.Session(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(rec.PendingBooking))
}

func TestRedisConversationStore_HistorySkipsCorruptTurns(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewRedisConversationStore(client, 0)
	s.logger = logging.Discard()
	ctx := context.Background()

	require.NoError(t, s.AppendTurn(ctx, "u1", RoleUser, "Oi"))
	_, err := mr.Push(historyKey("u1"), "{truncated")
	require.NoError(t, err)
	require.NoError(t, s.AppendTurn(ctx, "u1", RoleAssistant, "Olá! Como posso ajudar?"))

	turns, err := s.History(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "Oi", turns[0].Text)
	assert.Equal(t, RoleAssistant, turns[1].Role)
}
