package history

import (
	"context"
	"sync"

	"github.com/pathakanu/healthGenie/internal/model"
)

// Memory keeps transcripts in process memory. Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	limit int
	state map[string][]model.ChatMessage
}

// NewMemory returns an empty store keeping at most limit messages per session.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = 50
	}
	return &Memory{
		limit: limit,
		state: make(map[string][]model.ChatMessage),
	}
}

func (m *Memory) Append(_ context.Context, sessionID string, messages ...model.ChatMessage) error {
	stamp(messages)

	m.mu.Lock()
	defer m.mu.Unlock()
	transcript := append(m.state[sessionID], messages...)
	if overflow := len(transcript) - m.limit; overflow > 0 {
		transcript = append([]model.ChatMessage(nil), transcript[overflow:]...)
	}
	m.state[sessionID] = transcript
	return nil
}

func (m *Memory) List(_ context.Context, sessionID string) ([]model.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.ChatMessage, len(m.state[sessionID]))
	copy(out, m.state[sessionID])
	return out, nil
}

func (m *Memory) Close() error { return nil }
