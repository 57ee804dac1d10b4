package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// RedisConversationStore keeps history as a Redis list and sessions as JSON
// values. A positive ttl expires idle conversations.
type RedisConversationStore struct {
	redis  *redis.Client
	ttl    time.Duration
	now    func() time.Time
	tracer trace.Tracer
	logger *logging.Logger
}

// NewRedisConversationStore wraps a connected client.
func NewRedisConversationStore(client *redis.Client, ttl time.Duration) *RedisConversationStore {
	if client == nil {
		panic("store: redis client cannot be nil")
	}
	return &RedisConversationStore{
		redis:  client,
		ttl:    ttl,
		now:    time.Now,
		tracer: otel.Tracer("clinicbot.internal.store.redis"),
		logger: logging.Default(),
	}
}

func historyKey(userID string) string {
	return fmt.Sprintf("chat:history:%s", userID)
}

func sessionKey(userID string) string {
	return fmt.Sprintf("chat:session:%s", userID)
}

func (s *RedisConversationStore) AppendTurn(ctx context.Context, userID string, role Role, text string) error {
	if err := role.validate(); err != nil {
		return err
	}
	ctx, span := s.tracer.Start(ctx, "store.redis.append_turn")
	defer span.End()

	key := historyKey(userID)
	id, err := s.redis.Incr(ctx, key+":seq").Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: next turn id: %w", err)
	}
	data, err := json.Marshal(Turn{ID: id, UserID: userID, Role: role, Text: text, CreatedAt: s.now().UTC()})
	if err != nil {
		return fmt.Errorf("store: marshal turn: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
		pipe.Expire(ctx, key+":seq", s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: append turn: %w", err)
	}
	return nil
}

func (s *RedisConversationStore) History(ctx context.Context, userID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "store.redis.history")
	defer span.End()

	raw, err := s.redis.LRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("store: load history: %w", err)
	}
	// Undecodable entries are skipped and logged.
	turns := make([]Turn, 0, len(raw))
	for i, item := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			span.RecordError(err)
			s.logger.Warn("store: skipping undecodable turn", "user_id", userID, "index", i, "error", err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisConversationStore) Session(ctx context.Context, userID string) (SessionRecord, error) {
	ctx, span := s.tracer.Start(ctx, "store.redis.session")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return SessionRecord{}, nil
		}
		span.RecordError(err)
		return SessionRecord{}, fmt.Errorf("store: load session: %w", err)
	}
	// Undecodable payloads are handed through raw so the session layer can
	// discard them.
	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return SessionRecord{PendingBooking: data}, nil
	}
	return rec, nil
}

func (s *RedisConversationStore) PutSession(ctx context.Context, userID string, rec SessionRecord) error {
	ctx, span := s.tracer.Start(ctx, "store.redis.put_session")
	defer span.End()

	if rec.IsZero() {
		if err := s.redis.Del(ctx, sessionKey(userID)).Err(); err != nil {
			span.RecordError(err)
			return fmt.Errorf("store: clear session: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(userID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("store: save session: %w", err)
	}
	return nil
}
