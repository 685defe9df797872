package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/walkthrough/pkg/api"
)

type (
	// RedisStore keeps sessions as JSON values in Redis, each expiring
	// after the configured TTL without activity
	RedisStore struct {
		client redis.UniversalClient
		prefix string
		ttl    time.Duration
	}

	getter interface {
		Get(ctx context.Context, key string) *redis.StringCmd
	}
)

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store using client. The caller owns the client
// lifecycle
func NewRedisStore(
	client redis.UniversalClient, prefix string, ttl time.Duration,
) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Ping verifies the Redis connection is alive
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Create stores a new session
func (r *RedisStore) Create(ctx context.Context, s *api.Session) error {
	if s == nil {
		return ErrNoSession
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.key(s.ID), data, r.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrExists, s.ID)
	}
	return nil
}

// Get returns the stored session
func (r *RedisStore) Get(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	return r.get(ctx, r.client, id)
}

// Update applies fn to the stored session inside a WATCH transaction. If
// another writer changes the session first, ErrConflict is returned and
// the result of fn is discarded
func (r *RedisStore) Update(
	ctx context.Context, id api.SessionID, fn UpdateFunc,
) (*api.Session, error) {
	key := r.key(id)
	var res *api.Session
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		s, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		data, err := json.Marshal(s)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		res = s
		return nil
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return nil, fmt.Errorf("%w: %s", ErrConflict, id)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Delete removes the session
func (r *RedisStore) Delete(ctx context.Context, id api.SessionID) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (r *RedisStore) get(
	ctx context.Context, c getter, id api.SessionID,
) (*api.Session, error) {
	data, err := c.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var s api.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if s.Progress.State == nil {
		s.Progress.State = api.StepState{}
	}
	return &s, nil
}

func (r *RedisStore) key(id api.SessionID) string {
	return r.prefix + string(id)
}
