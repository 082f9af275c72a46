package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/comigor/chat-relay/internal/history"
)

const redisKeyPrefix = "relay:session:"

// RedisStore keeps sessions as JSON documents in Redis with a sliding TTL.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

type redisDoc struct {
	Turns     []history.Turn `json:"turns"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewRedisStore connects to url (redis://...) and pings it.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var doc redisDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &Session{
		ID:         id,
		Transcript: history.NewTranscript(doc.Turns...),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

func (s *RedisStore) Create(ctx context.Context) (*Session, error) {
	sess := newSession()
	doc, err := json.Marshal(redisDoc{Turns: []history.Turn{}, CreatedAt: sess.CreatedAt, UpdatedAt: sess.UpdatedAt})
	if err != nil {
		return nil, err
	}
	ok, err := s.rdb.SetNX(ctx, redisKeyPrefix+sess.ID, doc, s.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis create session: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("redis create session: id %s already taken", sess.ID)
	}
	return sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	doc, err := json.Marshal(redisDoc{
		Turns:     sess.Transcript.Turns(),
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+sess.ID, doc, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
