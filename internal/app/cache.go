package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-redis/redis/v8"

	"course-scheduler/internal/schedule"
)

// ResultCache stores calculation results keyed by their inputs.
type ResultCache interface {
	Get(ctx context.Context, key string) (schedule.Result, bool, error)
	Set(ctx context.Context, key string, res schedule.Result) error
}

type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisCache{Client: client, TTL: ttl}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (schedule.Result, bool, error) {
	var res schedule.Result
	data, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return res, false, nil
	}
	if err != nil {
		return res, false, err
	}
	if err := json.Unmarshal(data, &res); err != nil {
		return res, false, err
	}
	return res, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, res schedule.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, key, data, r.TTL).Err()
}

// cacheKey hashes everything the result depends on: the request and the
// blackout dates that were in force.
func cacheKey(req schedule.Request, blackout []civil.Date) (string, error) {
	data, err := json.Marshal(struct {
		Req      schedule.Request `json:"req"`
		Blackout []civil.Date     `json:"blackout"`
	}{req, blackout})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "schedule:calc:" + hex.EncodeToString(sum[:]), nil
}
