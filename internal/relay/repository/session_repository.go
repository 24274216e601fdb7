package repository

import (
	"context"
	"time"

	"chat_relay_service/internal/relay/domain"
	"chat_relay_service/pkg/database"
)

const sessionKeyPrefix = "relay:session:"

// SessionStore live authenticated sessions. A connection whose session is
// missing or expired is refused before it reaches the relay core.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) error
	Find(ctx context.Context, token string) (domain.Session, error)
	Touch(ctx context.Context, token string) error
	Expire(ctx context.Context, token string) error
}

type sessionStore struct {
	repo database.RedisRepository[domain.Session]
	ttl  time.Duration
}

// NewRedisSessionStore create a SessionStore on the shared redis client
func NewRedisSessionStore(repo database.RedisRepository[domain.Session], ttl time.Duration) SessionStore {
	return &sessionStore{repo: repo, ttl: ttl}
}

func (s *sessionStore) Create(ctx context.Context, session domain.Session) error {
	return s.repo.Set(ctx, sessionKeyPrefix+session.Token, session, s.ttl)
}

func (s *sessionStore) Find(ctx context.Context, token string) (domain.Session, error) {
	return s.repo.Get(ctx, sessionKeyPrefix+token)
}

func (s *sessionStore) Touch(ctx context.Context, token string) error {
	return s.repo.ExtendTTL(ctx, sessionKeyPrefix+token, s.ttl)
}

func (s *sessionStore) Expire(ctx context.Context, token string) error {
	return s.repo.Del(ctx, sessionKeyPrefix+token)
}
