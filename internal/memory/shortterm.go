package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ShortTermStore keeps session-scoped state in Redis. Expiry is left entirely
// to Redis TTLs; nothing is cached locally.
type ShortTermStore struct {
	client *redis.Client
}

// NewShortTermStore creates a new short-term memory store.
func NewShortTermStore(client *redis.Client) *ShortTermStore {
	return &ShortTermStore{client: client}
}

func stateKey(sessionKey string) string { return "stm:" + sessionKey }
func convKey(sessionKey string) string  { return "conv:" + sessionKey }

// checkTTL rejects non-positive expiries: EXPIRE with 0 deletes the key.
func checkTTL(op, sessionKey string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%s %s: ttl must be positive, got %s", op, sessionKey, ttl)
	}
	return nil
}

func unavailable(op, key string, err error) error {
	return fmt.Errorf("%s %s: %w: %w", op, key, ErrStoreUnavailable, err)
}

// Put JSON-encodes payload under the session key. Writing again overwrites the
// value and restarts the expiry.
func (s *ShortTermStore) Put(ctx context.Context, sessionKey string, payload any, ttl time.Duration) error {
	if err := checkTTL("put", sessionKey, ttl); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	key := stateKey(sessionKey)
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return unavailable("set", key, err)
	}
	return nil
}

// Get decodes the session payload into dst. A missing or expired key is
// reported as found=false with a nil error.
func (s *ShortTermStore) Get(ctx context.Context, sessionKey string, dst any) (bool, error) {
	key := stateKey(sessionKey)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("get", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decoding %s: %w", key, err)
	}
	return true, nil
}

// Touch resets the expiry of the session payload and turn list. Absent keys are left alone.
func (s *ShortTermStore) Touch(ctx context.Context, sessionKey string, ttl time.Duration) error {
	if err := checkTTL("touch", sessionKey, ttl); err != nil {
		return err
	}
	pipe := s.client.Pipeline()
	pipe.Expire(ctx, stateKey(sessionKey), ttl)
	pipe.Expire(ctx, convKey(sessionKey), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("expire", sessionKey, err)
	}
	return nil
}

// AppendTurn adds a turn to the session list, trims it to maxTurns and refreshes the TTL.
func (s *ShortTermStore) AppendTurn(ctx context.Context, sessionKey string, turn Turn, maxTurns int, ttl time.Duration) error {
	if err := checkTTL("append", sessionKey, ttl); err != nil {
		return err
	}
	key := convKey(sessionKey)

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshaling turn: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, string(data))
	if maxTurns > 0 {
		pipe.LTrim(ctx, key, int64(-maxTurns), -1)
	}
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("append", key, err)
	}
	return nil
}

// Turns returns the last limit turns in chronological order. limit <= 0 returns all.
func (s *ShortTermStore) Turns(ctx context.Context, sessionKey string, limit int) ([]Turn, error) {
	key := convKey(sessionKey)

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	vals, err := s.client.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, unavailable("lrange", key, err)
	}

	turns := make([]Turn, 0, len(vals))
	for _, v := range vals {
		var turn Turn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			continue // skip malformed entries
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Clear deletes the session payload and its turn history.
func (s *ShortTermStore) Clear(ctx context.Context, sessionKey string) error {
	if err := s.client.Del(ctx, stateKey(sessionKey), convKey(sessionKey)).Err(); err != nil {
		return unavailable("del", sessionKey, err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (s *ShortTermStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", "", err)
	}
	return nil
}
