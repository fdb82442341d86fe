// Copyright 2025 AgentDesk
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"agentdesk/platform/shared/logger"
)

// SharedWindow is a Redis-backed per-minute sliding window shared by
// all service replicas. It supplements the in-process Limiter when the
// service runs more than one instance against the same vendor quota.
// Redis errors fail open: the local limiter remains the backstop.
type SharedWindow struct {
	client         *redis.Client
	limitPerMinute int
	log            *logger.Logger
}

// NewSharedWindow connects to Redis and verifies the connection.
func NewSharedWindow(redisURL string, limitPerMinute int, log *logger.Logger) (*SharedWindow, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if log == nil {
		log = logger.New("ratelimit")
	}

	log.Info("", "", "Shared rate-limit window connected", map[string]interface{}{
		"limit_per_minute": limitPerMinute,
	})

	return &SharedWindow{
		client:         client,
		limitPerMinute: limitPerMinute,
		log:            log,
	}, nil
}

// Allow records one request under the given key and reports whether
// the shared per-minute window still has room. On Redis errors it
// returns true.
func (w *SharedWindow) Allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()
	redisKey := "ratelimit:" + key

	pipe := w.client.Pipeline()

	// Drop timestamps older than one minute, count the survivors,
	// then add this request.
	minScore := now.Add(-time.Minute).Unix()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", minScore))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, &redis.Z{
		Score:  float64(now.Unix()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, redisKey, 2*time.Minute)

	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Warn("", "", "Shared rate-limit check failed, failing open", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return true, nil
	}

	if countCmd.Val() >= int64(w.limitPerMinute) {
		return false, nil
	}
	return true, nil
}

// Occupancy returns the current number of requests in the shared
// per-minute window for the key.
func (w *SharedWindow) Occupancy(ctx context.Context, key string) (int, error) {
	now := time.Now()
	minScore := now.Add(-time.Minute).Unix()

	count, err := w.client.ZCount(ctx, "ratelimit:"+key, fmt.Sprintf("%d", minScore), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get shared window occupancy: %w", err)
	}
	return int(count), nil
}

// Flush clears the shared window for a key. Admin operation.
func (w *SharedWindow) Flush(ctx context.Context, key string) error {
	if err := w.client.Del(ctx, "ratelimit:"+key).Err(); err != nil {
		return fmt.Errorf("failed to flush shared window: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (w *SharedWindow) Close() error {
	return w.client.Close()
}
