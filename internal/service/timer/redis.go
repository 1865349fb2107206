package timer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	model "github.com/rknm-cell/mise/backend/internal/model/timer"
)

const (
	redisKeyPrefix = "mise:timer:"
	redisOrderKey  = "mise:timers"
)

// Compile-time interface check.
var _ Repository = (*RedisRepository)(nil)

// RedisRepository shares timers between service instances. Each timer is a
// JSON value under its own key; a list keeps insertion order.
type RedisRepository struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisRepository connects to url and verifies the connection.
func NewRedisRepository(url string, log *zap.Logger) (*RedisRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("timer repository connected to redis")
	return &RedisRepository{client: client, log: log}, nil
}

func (r *RedisRepository) Create(ctx context.Context, t model.Timer) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal timer: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKeyPrefix+t.ID, data, 0)
		pipe.LRem(ctx, redisOrderKey, 0, t.ID)
		pipe.RPush(ctx, redisOrderKey, t.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store timer %s: %w", t.ID, err)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, id string) (model.Timer, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.Timer{}, ErrNotFound
	}
	if err != nil {
		return model.Timer{}, fmt.Errorf("load timer %s: %w", id, err)
	}

	var t model.Timer
	if err := json.Unmarshal(raw, &t); err != nil {
		return model.Timer{}, fmt.Errorf("decode timer %s: %w", id, err)
	}
	return t, nil
}

func (r *RedisRepository) List(ctx context.Context) ([]model.Timer, error) {
	ids, err := r.client.LRange(ctx, redisOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list timer ids: %w", err)
	}
	if len(ids) == 0 {
		return []model.Timer{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKeyPrefix + id
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load timers: %w", err)
	}

	out := make([]model.Timer, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Key expired or deleted by another instance between LRANGE and MGET.
			continue
		}
		var t model.Timer
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			r.log.Warn("skipping undecodable timer", zap.String("timer_id", ids[i]), zap.Error(err))
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *RedisRepository) Update(ctx context.Context, t model.Timer) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal timer: %w", err)
	}

	ok, err := r.client.SetXX(ctx, redisKeyPrefix+t.ID, data, redis.KeepTTL).Result()
	if err != nil {
		return fmt.Errorf("update timer %s: %w", t.ID, err)
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, redisKeyPrefix+id)
		pipe.LRem(ctx, redisOrderKey, 0, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete timer %s: %w", id, err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close releases the redis connection pool.
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
