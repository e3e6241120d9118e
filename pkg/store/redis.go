package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/wareflow/pkg/report"
)

// Redis keeps recent runs in Redis. Each run is a JSON value with a TTL;
// a list holds the newest IDs, trimmed to Keep entries.
type Redis struct {
	client redis.UniversalClient
	cfg    RedisConfig
}

// NewRedis wraps an existing client. Close closes the client.
func NewRedis(client redis.UniversalClient, cfg RedisConfig) *Redis {
	if cfg.Prefix == "" {
		cfg.Prefix = "wareflow"
	}
	if cfg.Keep <= 0 {
		cfg.Keep = 100
	}
	return &Redis{client: client, cfg: cfg}
}

func (s *Redis) runKey(id string) string { return fmt.Sprintf("%s:run:%s", s.cfg.Prefix, id) }
func (s *Redis) recentKey() string       { return s.cfg.Prefix + ":recent" }
func (s *Redis) latestKey() string       { return s.cfg.Prefix + ":latest" }

func (s *Redis) Save(ctx context.Context, r *report.Run) error {
	if err := checkRun(r); err != nil {
		return err
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal run: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.runKey(r.ID), payload, s.cfg.TTL)
		pipe.LRem(ctx, s.recentKey(), 0, r.ID)
		pipe.LPush(ctx, s.recentKey(), r.ID)
		pipe.LTrim(ctx, s.recentKey(), 0, int64(s.cfg.Keep-1))
		pipe.Set(ctx, s.latestKey(), r.ID, s.cfg.TTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}
	return nil
}

func decodeRun(raw string) (*report.Run, error) {
	var r report.Run
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &r, nil
}

func (s *Redis) Get(ctx context.Context, id string) (*report.Run, error) {
	raw, err := s.client.Get(ctx, s.runKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return decodeRun(raw)
}

func (s *Redis) Latest(ctx context.Context) (*report.Run, error) {
	id, err := s.client.Get(ctx, s.latestKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	return s.Get(ctx, id)
}

// List skips runs whose payload has expired.
func (s *Redis) List(ctx context.Context, limit int) ([]report.Summary, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.LRange(ctx, s.recentKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.runKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load recent runs: %w", err)
	}

	out := make([]report.Summary, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		r, err := decodeRun(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, r.Summary())
	}
	return out, nil
}

func (s *Redis) Close() error {
	return s.client.Close()
}
