// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "stakes_actions"

// Redis pushes committed action records onto the historian queue and fans out game-updated
// signals over pub/sub.
type Redis struct {
	rdb   *redis.Client
	queue string
}

// ConnectRedis dials addr and pings it.
func ConnectRedis(ctx context.Context, addr string, db int, queue string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	log.Infof("connected to redis at %s (db %d)", addr, db)
	return NewRedis(rdb, queue), nil
}

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, queue string) *Redis {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Redis{rdb: rdb, queue: queue}
}

// UpdatesChannel is the pub/sub channel announcing changes to gameID.
func UpdatesChannel(gameID uuid.UUID) string {
	return "game_updates:" + gameID.String()
}

// Notify queues records in order and then announces the update.
func (r *Redis) Notify(ctx context.Context, gameID uuid.UUID, records []ActionRecord) error {
	if len(records) > 0 {
		values := make([]any, 0, len(records))
		for _, rec := range records {
			data, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to marshal ActionRecord: %w", err)
			}
			values = append(values, data)
		}
		if err := r.rdb.RPush(ctx, r.queue, values...).Err(); err != nil {
			return fmt.Errorf("failed to RPush to Redis list '%s': %w", r.queue, err)
		}
	}
	if err := r.rdb.Publish(ctx, UpdatesChannel(gameID), gameID.String()).Err(); err != nil {
		return fmt.Errorf("publish update for game %s: %w", gameID, err)
	}
	return nil
}

// Subscribe delivers a signal each time gameID changes. The channel is closed once ctx ends or
// cancel is called.
func (r *Redis) Subscribe(ctx context.Context, gameID uuid.UUID) (<-chan struct{}, func(), error) {
	sub := r.rdb.Subscribe(ctx, UpdatesChannel(gameID))
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, fmt.Errorf("subscribe to game %s: %w", gameID, err)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()
	return out, func() { sub.Close() }, nil
}

// Pop blocks up to timeout for the next queued record. It returns nil, nil when the queue stayed
// empty. A record that fails to decode is returned as an error so the caller can log and move on.
func (r *Redis) Pop(ctx context.Context, timeout time.Duration) (*ActionRecord, error) {
	res, err := r.rdb.BLPop(ctx, timeout, r.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", r.queue, err)
	}
	if len(res) < 2 {
		return nil, nil
	}
	// res[0] is the queue name and res[1] the payload.
	var rec ActionRecord
	if err := json.Unmarshal([]byte(res[1]), &rec); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &rec, nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
