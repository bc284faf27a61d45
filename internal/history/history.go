// Package history keeps the bounded chat transcript of each session.
package history

import (
	"context"
	"time"

	"github.com/pathakanu/healthGenie/internal/config"
	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/sirupsen/logrus"
)

// Store appends and lists chat messages per session. Only the last limit
// messages are kept.
type Store interface {
	Append(ctx context.Context, sessionID string, messages ...model.ChatMessage) error
	List(ctx context.Context, sessionID string) ([]model.ChatMessage, error)
	Close() error
}

// New returns a Redis-backed store when REDIS_ADDR is set and an in-memory
// store otherwise.
func New(cfg *config.Config, log *logrus.Logger) (Store, error) {
	if cfg.RedisAddr == "" {
		log.Info("history: REDIS_ADDR not set, keeping chat history in memory")
		return NewMemory(cfg.HistoryLimit), nil
	}
	store, err := NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.HistoryLimit, cfg.HistoryTTL)
	if err != nil {
		return nil, err
	}
	log.Infof("history: using redis at %s", cfg.RedisAddr)
	return store, nil
}

func stamp(messages []model.ChatMessage) {
	now := time.Now().UTC()
	for i := range messages {
		if messages[i].At.IsZero() {
			messages[i].At = now
		}
	}
}
