package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/redis/go-redis/v9"
)

// Redis stores each transcript as a capped list that expires after ttl of
// inactivity.
type Redis struct {
	client *redis.Client
	limit  int
	ttl    time.Duration
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(addr, password string, db, limit int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("history: redis connection failed: %w", err)
	}
	if limit <= 0 {
		limit = 50
	}
	return &Redis{client: client, limit: limit, ttl: ttl}, nil
}

func key(sessionID string) string {
	return "chat:" + sessionID
}

func (r *Redis) Append(ctx context.Context, sessionID string, messages ...model.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	stamp(messages)

	values := make([]any, 0, len(messages))
	for _, msg := range messages {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		values = append(values, data)
	}

	k := key(sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, k, values...)
	pipe.LTrim(ctx, k, int64(-r.limit), -1)
	if r.ttl > 0 {
		pipe.Expire(ctx, k, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history: append: %w", err)
	}
	return nil
}

func (r *Redis) List(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	raw, err := r.client.LRange(ctx, key(sessionID), 0, -1).Result()
	if err == redis.Nil {
		return []model.ChatMessage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}

	out := make([]model.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("history: decode message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
