package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyActiveSession = "casino:session:%d"

// finishScript deletes the key only while it still holds the given session,
// so a late Finish cannot remove a newer round.
var finishScript = redis.NewScript(`
	local data = redis.call("GET", KEYS[1])
	if not data then
		return 0
	end
	if cjson.decode(data).id ~= ARGV[1] then
		return 0
	end
	return redis.call("DEL", KEYS[1])
`)

// RedisStore is a Store shared by every bot instance using the same Redis.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore over an existing client.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Start opens a session with SET NX, or fails with ErrActive.
func (r *RedisStore) Start(ctx context.Context, accountID int64, game string, bet int64) (*Session, error) {
	s := newSession(accountID, game, bet, time.Now())
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, fmt.Sprintf(keyActiveSession, accountID), data, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	if !ok {
		return nil, ErrActive
	}
	return s, nil
}

// Finish closes s.
func (r *RedisStore) Finish(ctx context.Context, s *Session) error {
	key := fmt.Sprintf(keyActiveSession, s.AccountID)
	if err := finishScript.Run(ctx, r.client, []string{key}, s.ID).Err(); err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}
	return nil
}

// Active returns the account's live session, or nil.
func (r *RedisStore) Active(ctx context.Context, accountID int64) (*Session, error) {
	data, err := r.client.Get(ctx, fmt.Sprintf(keyActiveSession, accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// Ping checks the Redis connection.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
