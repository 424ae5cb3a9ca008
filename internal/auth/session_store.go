package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chessbick/doctor-appointment/internal/cache"
	"github.com/chessbick/doctor-appointment/internal/model"
)

const sessionKeyPrefix = "session:user:"

// SessionStore persists the authenticated user view for the life of a client
// session. The service layer writes it on login and clears it on logout; the
// calling application reads it to rebuild the identity between requests.
type SessionStore interface {
	Put(ctx context.Context, userID uint, view *model.UserView, ttl time.Duration) error
	Get(ctx context.Context, userID uint) (*model.UserView, error)
	Clear(ctx context.Context, userID uint) error
}

type sessionStore struct {
	cache *cache.Client
}

var _ SessionStore = (*sessionStore)(nil)

// NewSessionStore creates a redis-backed session store.
func NewSessionStore(cache *cache.Client) SessionStore {
	return &sessionStore{cache: cache}
}

func sessionKey(userID uint) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, userID)
}

// Put stores the user view as JSON with a TTL.
func (s *sessionStore) Put(ctx context.Context, userID uint, view *model.UserView, ttl time.Duration) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal session payload: %w", err)
	}
	return s.cache.Set(ctx, sessionKey(userID), payload, ttl)
}

// Get returns the stored user view, or nil when no session exists.
func (s *sessionStore) Get(ctx context.Context, userID uint) (*model.UserView, error) {
	data, err := s.cache.Get(ctx, sessionKey(userID))
	if err != nil || data == nil {
		return nil, nil
	}
	var view model.UserView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("unmarshal session payload: %w", err)
	}
	return &view, nil
}

// Clear discards the session for the user.
func (s *sessionStore) Clear(ctx context.Context, userID uint) error {
	return s.cache.Delete(ctx, sessionKey(userID))
}
