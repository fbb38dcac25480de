package services

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// OAuthStateTTL bounds how long an initiated link flow may take before the
// callback is rejected.
const OAuthStateTTL = 10 * time.Minute

const oauthStateKeyPrefix = "oauth_state:"

// StateStore binds an OAuth state nonce to the user who initiated the link
// flow. Redeem is single-use: the nonce is removed as it is read, so a
// replayed callback fails.
type StateStore interface {
	Save(ctx context.Context, nonce, userID string) error
	Redeem(ctx context.Context, nonce string) (string, error)
}

// RedisStateStore keeps state nonces in Redis with a TTL.
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

func (s *RedisStateStore) Save(ctx context.Context, nonce, userID string) error {
	return s.client.Set(ctx, oauthStateKeyPrefix+nonce, userID, OAuthStateTTL).Err()
}

func (s *RedisStateStore) Redeem(ctx context.Context, nonce string) (string, error) {
	userID, err := s.client.GetDel(ctx, oauthStateKeyPrefix+nonce).Result()
	if err != nil {
		return "", ErrInvalidOrExpired
	}
	return userID, nil
}

// MemoryStateStore is the in-process StateStore used by tests.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]stateEntry
}

type stateEntry struct {
	userID  string
	expires time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]stateEntry)}
}

func (s *MemoryStateStore) Save(_ context.Context, nonce, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[nonce] = stateEntry{userID: userID, expires: time.Now().Add(OAuthStateTTL)}
	return nil
}

func (s *MemoryStateStore) Redeem(_ context.Context, nonce string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.states[nonce]
	if !ok || time.Now().After(e.expires) {
		return "", ErrInvalidOrExpired
	}
	delete(s.states, nonce)
	return e.userID, nil
}
