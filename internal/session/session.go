// Package session keeps per-client transcripts between HTTP calls.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/comigor/chat-relay/internal/config"
	"github.com/comigor/chat-relay/internal/history"
)

// ErrNotFound is returned by Store.Get for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is the unit of transcript continuity.
type Session struct {
	ID         string
	Transcript history.Transcript
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func newSession() *Session {
	now := time.Now().UTC()
	return &Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
}

// Store persists sessions. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Create(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Close() error
}

// NewStore builds the backend selected by cfg.Backend.
func NewStore(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(cfg.TTL), nil
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisURL, cfg.TTL)
	case config.BackendSQLite:
		return NewSQLiteStore(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported session backend %q", cfg.Backend)
	}
}
