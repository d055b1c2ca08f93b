package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dal/pkg/schema"
)

const (
	redisPrefix     = "dal:history:"
	redisTxAttempts = 3
)

// RedisStore keeps each record as a JSON string and each user's history as
// a capped list of ids, newest first.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore connects to redisURL and pings it.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) userKey(user string) string { return redisPrefix + "user:" + user }
func (s *RedisStore) recordKey(id string) string { return redisPrefix + "record:" + id }

func (s *RedisStore) Save(ctx context.Context, req schema.HistoryRequest) (schema.HistoryRecord, error) {
	id, err := schema.NewHistoryID()
	if err != nil {
		return schema.HistoryRecord{}, err
	}
	rec, err := newRecord(req, id, s.now())
	if err != nil {
		return schema.HistoryRecord{}, err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("marshal history record: %w", err)
	}

	uk := s.userKey(rec.User)
	err = s.retry(ctx, func(tx *redis.Tx) error {
		// Ids at HistoryLimit-1 and beyond fall off once the new id is pushed.
		overflow, err := tx.LRange(ctx, uk, schema.HistoryLimit-1, -1).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.recordKey(rec.ID), data, 0)
			pipe.LPush(ctx, uk, rec.ID)
			pipe.LTrim(ctx, uk, 0, schema.HistoryLimit-1)
			for _, old := range overflow {
				pipe.Del(ctx, s.recordKey(old))
			}
			return nil
		})
		return err
	}, uk)
	if err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("save history record: %w", err)
	}
	return cloneRecord(rec), nil
}

func (s *RedisStore) Update(ctx context.Context, user, id string, suggestions []schema.Suggestion, acceptedCount int) error {
	rk := s.recordKey(id)
	err := s.retry(ctx, func(tx *redis.Tx) error {
		rec, err := s.load(ctx, tx, user, id)
		if err != nil {
			return err
		}
		rec.Suggestions = schema.CloneSuggestions(suggestions)
		rec.AcceptedCount = acceptedCount
		rec.UpdatedAt = s.now()

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal history record: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, rk, data, 0)
			return nil
		})
		return err
	}, rk)
	if errors.Is(err, ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("update history record: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, user string) ([]schema.HistoryRecord, error) {
	ids, err := s.client.LRange(ctx, s.userKey(user), 0, schema.HistoryLimit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history ids: %w", err)
	}
	if len(ids) == 0 {
		return []schema.HistoryRecord{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load history records: %w", err)
	}

	out := make([]schema.HistoryRecord, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var rec schema.HistoryRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal history record %s: %w", ids[i], err)
		}
		if rec.User == user {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *RedisStore) Get(ctx context.Context, user, id string) (schema.HistoryRecord, error) {
	return s.load(ctx, s.client, user, id)
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c stringGetter, user, id string) (schema.HistoryRecord, error) {
	raw, err := c.Get(ctx, s.recordKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return schema.HistoryRecord{}, ErrNotFound
	}
	if err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("get history record: %w", err)
	}

	var rec schema.HistoryRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return schema.HistoryRecord{}, fmt.Errorf("unmarshal history record: %w", err)
	}
	if rec.User != user {
		return schema.HistoryRecord{}, ErrNotFound
	}
	return rec, nil
}

// retry runs fn in an optimistic WATCH transaction, retrying when a
// watched key changes underneath it.
func (s *RedisStore) retry(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	var err error
	for range redisTxAttempts {
		err = s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}
