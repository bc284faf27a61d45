// Package assistant is the conversational side of HealthGenie: chat with
// symptom logging, personalised insights and symptom pattern analysis.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/healthGenie/internal/history"
	"github.com/pathakanu/healthGenie/internal/llm"
	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/pathakanu/healthGenie/internal/symptom"
	"github.com/sirupsen/logrus"
)

var (
	ErrEmptyMessage      = errors.New("message cannot be empty")
	ErrNotEnoughSymptoms = errors.New("log more than 3 symptoms to analyse patterns")
)

const (
	chatTimeout     = 30 * time.Second
	classifyTimeout = 10 * time.Second
	// contextTurns is how many earlier messages are replayed as context.
	contextTurns = 6
)

// Tracker is the part of the symptom log the assistant needs.
type Tracker interface {
	Record(ctx context.Context, sessionID string, input symptom.Input) (model.SymptomEntry, error)
	Recent(ctx context.Context, sessionID string, limit int) ([]model.SymptomEntry, error)
	Count(ctx context.Context, sessionID string) (int64, error)
}

// Profiles reads the optional user profile.
type Profiles interface {
	GetProfile(ctx context.Context, sessionID string) (model.Profile, error)
}

// Assistant coordinates the AI backend, chat history and the symptom log.
type Assistant struct {
	llm      llm.Client
	history  history.Store
	tracker  Tracker
	profiles Profiles
	logger   *logrus.Logger
}

func New(client llm.Client, store history.Store, tracker Tracker, profiles Profiles, logger *logrus.Logger) *Assistant {
	return &Assistant{
		llm:      client,
		history:  store,
		tracker:  tracker,
		profiles: profiles,
		logger:   logger,
	}
}

// Reply is the outcome of one chat turn.
type Reply struct {
	Reply  string              `json:"reply"`
	Logged *model.SymptomEntry `json:"logged_symptom,omitempty"`
}

// Chat forwards one user message to the AI backend. Messages that read like
// symptom reports are also recorded in the symptom log.
func (a *Assistant) Chat(ctx context.Context, sessionID, message string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	earlier, err := a.history.List(ctx, sessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: load history: %w", err)
	}
	if err := a.history.Append(ctx, sessionID, model.ChatMessage{Role: model.RoleUser, Content: message}); err != nil {
		return Reply{}, fmt.Errorf("assistant: save message: %w", err)
	}

	var logged *model.SymptomEntry
	var notes []string
	if a.isSymptomReport(ctx, message) {
		entry, err := a.tracker.Record(ctx, sessionID, symptom.Input{Description: message, Source: model.SourceChat})
		if err != nil {
			a.logger.WithError(err).WithField("session", sessionID).Warn("assistant: log symptom from chat")
		} else {
			logged = &entry
			notes = append(notes, fmt.Sprintf("The user's message was saved to their symptom log as %q.", entry.Symptom))
		}
	}
	if transcript := formatTranscript(earlier, contextTurns); transcript != "" {
		notes = append(notes, "Recent conversation:\n"+transcript)
	}

	reply, err := a.llm.Complete(ctx, llm.Request{
		Context:     strings.Join(notes, "\n\n"),
		Prompt:      message,
		Temperature: 0.7,
		Timeout:     chatTimeout,
	})
	if err != nil {
		return Reply{Logged: logged}, err
	}

	if err := a.history.Append(ctx, sessionID, model.ChatMessage{Role: model.RoleAssistant, Content: reply}); err != nil {
		a.logger.WithError(err).WithField("session", sessionID).Warn("assistant: save reply")
	}
	return Reply{Reply: reply, Logged: logged}, nil
}

// History returns the session's stored chat messages.
func (a *Assistant) History(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	return a.history.List(ctx, sessionID)
}

func formatTranscript(messages []model.ChatMessage, turns int) string {
	if len(messages) > turns {
		messages = messages[len(messages)-turns:]
	}
	var sb strings.Builder
	for _, msg := range messages {
		sb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
	}
	return strings.TrimSpace(sb.String())
}
