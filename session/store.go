package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/circleci/visits/o11y"
)

// Record is the stored form of a session.
type Record struct {
	ID   string                     `json:"id"`
	Data map[string]json.RawMessage `json:"data"`
	// ExpiresAt is zero for sessions that live until the client discards its cookie.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

func (r *Record) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

// Store is the backing store for session records.
type Store interface {
	// Load returns nil and no error when there is no live record for id.
	Load(ctx context.Context, id string) (*Record, error)
	Save(ctx context.Context, r *Record) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each record as JSON under its own key.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Load(ctx context.Context, id string) (_ *Record, err error) {
	ctx, span := o11y.StartSpan(ctx, "session: load")
	defer o11y.End(span, &err)

	b, err := s.client.Get(ctx, s.key(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		span.AddField("found", false)
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}

	r := &Record{}
	if err := json.Unmarshal(b, r); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if r.expired(time.Now()) {
		span.AddField("expired", true)
		return nil, nil
	}
	span.AddField("found", true)
	return r, nil
}

// Save writes the record, expiring the key at ExpiresAt when it is set.
func (s *RedisStore) Save(ctx context.Context, r *Record) (err error) {
	ctx, span := o11y.StartSpan(ctx, "session: save")
	defer o11y.End(span, &err)

	var ttl time.Duration
	if !r.ExpiresAt.IsZero() {
		ttl = time.Until(r.ExpiresAt)
		if ttl <= 0 {
			return s.Delete(ctx, r.ID)
		}
		span.AddField("ttl_ms", ttl.Milliseconds())
	}

	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(r.ID), b, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) (err error) {
	ctx, span := o11y.StartSpan(ctx, "session: delete")
	defer o11y.End(span, &err)

	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
