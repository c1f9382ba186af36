package auth

import (
	"context"
	"fmt"
	"time"

	"clientbook/internal/cache"
)

const sessionKeyPrefix = "session:user:"

// SessionStoreInterface mirrors the last-issued token per user in Redis.
// The database row stays authoritative; this copy only exists so other
// instances can look up the active session without a DB round trip.
type SessionStoreInterface interface {
	StoreSession(ctx context.Context, userID uint, token string, ttl time.Duration) error
	GetSession(ctx context.Context, userID uint) (string, error)
	DeleteSession(ctx context.Context, userID uint) error
}

// SessionStore is the Redis-backed implementation.
type SessionStore struct {
	cache *cache.Client
}

var _ SessionStoreInterface = (*SessionStore)(nil)

// NewSessionStore creates a new session store.
func NewSessionStore(cache *cache.Client) *SessionStore {
	return &SessionStore{cache: cache}
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, userID)
}

// StoreSession records the user's current token with TTL.
func (s *SessionStore) StoreSession(ctx context.Context, userID uint, token string, ttl time.Duration) error {
	return s.cache.Set(ctx, sessionKey(userID), []byte(token), ttl)
}

// GetSession returns the user's current token, or "" if none is recorded.
func (s *SessionStore) GetSession(ctx context.Context, userID uint) (string, error) {
	data, err := s.cache.Get(ctx, sessionKey(userID))
	if err != nil || data == nil {
		return "", nil
	}
	return string(data), nil
}

// DeleteSession drops the recorded session for a user.
func (s *SessionStore) DeleteSession(ctx context.Context, userID uint) error {
	return s.cache.Delete(ctx, sessionKey(userID))
}
