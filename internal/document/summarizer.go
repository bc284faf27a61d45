package document

import (
	"context"
	"fmt"
	"time"

	"github.com/pathakanu/healthGenie/internal/events"
	"github.com/pathakanu/healthGenie/internal/llm"
	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/pathakanu/healthGenie/internal/storage"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	summaryTimeout = 60 * time.Second
	// maxPromptRunes bounds how much document text goes into one prompt.
	maxPromptRunes = 30000
)

// Summarizer extracts, summarises, archives and stores uploaded documents.
type Summarizer struct {
	db       *gorm.DB
	llm      llm.Client
	store    storage.Store
	events   events.Publisher
	logger   *logrus.Logger
	maxBytes int64
}

// NewSummarizer wires a Summarizer. A nil store or publisher disables that
// side channel.
func NewSummarizer(db *gorm.DB, client llm.Client, store storage.Store, publisher events.Publisher, maxBytes int64, logger *logrus.Logger) *Summarizer {
	if store == nil {
		store = storage.None{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Summarizer{
		db:       db,
		llm:      client,
		store:    store,
		events:   publisher,
		logger:   logger,
		maxBytes: maxBytes,
	}
}

// Summarize runs Extract, then one summarisation call, and persists the
// result. Extraction errors return before the AI backend is contacted.
func (s *Summarizer) Summarize(ctx context.Context, sessionID string, file File) (model.DocumentSummary, error) {
	extracted, err := Extract(file, s.maxBytes)
	if err != nil {
		return model.DocumentSummary{}, err
	}

	text, truncated := truncateRunes(extracted.Text, maxPromptRunes)
	summary, err := s.llm.Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(llm.SummarizePrompt, text),
		Temperature: 0.3,
		Timeout:     summaryTimeout,
	})
	if err != nil {
		return model.DocumentSummary{}, err
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = extracted.Kind.ContentType()
	}

	key, err := s.store.Put(ctx, sessionID, file.Name, contentType, file.Data)
	if err != nil {
		s.logger.WithError(err).WithField("file", file.Name).Error("document: archive failed")
		key = ""
	}

	meta := datatypes.JSONMap{
		"kind":       string(extracted.Kind),
		"characters": len([]rune(extracted.Text)),
	}
	if extracted.Pages > 0 {
		meta["pages"] = extracted.Pages
	}
	if truncated {
		meta["truncated"] = true
	}

	record := model.DocumentSummary{
		SessionID:   sessionID,
		FileName:    file.Name,
		ContentType: contentType,
		Size:        int64(len(file.Data)),
		StorageKey:  key,
		Summary:     summary,
		Meta:        meta,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return model.DocumentSummary{}, fmt.Errorf("document: save summary: %w", err)
	}

	if err := s.events.Publish(ctx, events.Event{
		Type:      events.TypeDocumentSummarized,
		SessionID: sessionID,
		Data: map[string]any{
			"id":          record.ID,
			"file_name":   record.FileName,
			"storage_key": record.StorageKey,
		},
	}); err != nil {
		s.logger.WithError(err).Warn("document: publish event failed")
	}
	return record, nil
}

// List returns the session's summaries, newest first.
func (s *Summarizer) List(ctx context.Context, sessionID string) ([]model.DocumentSummary, error) {
	var out []model.DocumentSummary
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("document: list summaries: %w", err)
	}
	return out, nil
}

func truncateRunes(text string, limit int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= limit {
		return text, false
	}
	return string(runes[:limit]), true
}
