package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultMaxUpdates = 10000

// RedisStore is a ReadingStore backed by Redis. Each current reading is a
// hash, the set of reading keys is tracked in a set, and update records are
// JSON entries in a capped list (newest first).
type RedisStore struct {
	client     *redis.Client
	prefix     string
	maxUpdates int64
}

// NewRedisStore creates a store for the Redis server at addr. The connection
// is lazy; call Ping to verify it.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &RedisStore{
		client:     client,
		prefix:     "healthwatch",
		maxUpdates: defaultMaxUpdates,
	}, nil
}

// Ping checks the connection to Redis.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) readingKey(key string) string {
	return s.prefix + ":reading:" + key
}

func (s *RedisStore) readingSetKey() string {
	return s.prefix + ":readings"
}

func (s *RedisStore) updatesKey() string {
	return s.prefix + ":updates"
}

func (s *RedisStore) UpsertReading(ctx context.Context, r Reading) (Reading, error) {
	hashKey := s.readingKey(r.Key())

	id, err := s.client.HGet(ctx, hashKey, "id").Result()
	switch {
	case err == redis.Nil:
		id = r.ID
		if id == "" {
			id = uuid.NewString()
		}
	case err != nil:
		return Reading{}, fmt.Errorf("redis hget %s: %w", hashKey, err)
	}
	r.ID = id

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKey,
			"id", r.ID,
			"entity", r.EntityKey,
			"metric", r.MetricName,
			"value", strconv.FormatFloat(r.Value, 'f', -1, 64),
			"category", r.Category,
			"observed_at", r.ObservedAt.UTC().Format(time.RFC3339Nano),
			"is_alert", strconv.FormatBool(r.IsAlert),
		)
		pipe.SAdd(ctx, s.readingSetKey(), r.Key())
		return nil
	})
	if err != nil {
		return Reading{}, fmt.Errorf("redis upsert %s: %w", r.Key(), err)
	}
	return r, nil
}

func (s *RedisStore) AppendUpdate(ctx context.Context, u UpdateRecord) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.updatesKey(), data)
		pipe.LTrim(ctx, s.updatesKey(), 0, s.maxUpdates-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append update: %w", err)
	}
	return nil
}

func (s *RedisStore) ListReadings(ctx context.Context, entity string) ([]Reading, error) {
	keys, err := s.client.SMembers(ctx, s.readingSetKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}
	sort.Strings(keys)

	cmds := make([]*redis.MapStringStringCmd, len(keys))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.HGetAll(ctx, s.readingKey(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	out := make([]Reading, 0, len(keys))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		r, err := readingFromHash(fields)
		if err != nil {
			return nil, err
		}
		if entity != "" && r.EntityKey != entity {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RedisStore) ListUpdates(ctx context.Context, limit int) ([]UpdateRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	raw, err := s.client.LRange(ctx, s.updatesKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	out := make([]UpdateRecord, 0, len(raw))
	for _, entry := range raw {
		var u UpdateRecord
		if err := json.Unmarshal([]byte(entry), &u); err != nil {
			return nil, fmt.Errorf("decode update: %w", err)
		}
		out = append(out, u)
	}
	return out, nil
}

func readingFromHash(fields map[string]string) (Reading, error) {
	value, err := strconv.ParseFloat(fields["value"], 64)
	if err != nil {
		return Reading{}, fmt.Errorf("parse reading value: %w", err)
	}
	observed, err := time.Parse(time.RFC3339Nano, fields["observed_at"])
	if err != nil {
		return Reading{}, fmt.Errorf("parse reading time: %w", err)
	}
	return Reading{
		ID:         fields["id"],
		EntityKey:  fields["entity"],
		MetricName: fields["metric"],
		Value:      value,
		Category:   fields["category"],
		ObservedAt: observed,
		IsAlert:    fields["is_alert"] == "true",
	}, nil
}
