// Package symptom records timestamped symptom reports and aggregates them
// into trend views.
package symptom

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pathakanu/healthGenie/internal/events"
	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrEmptySymptom       = errors.New("symptom description cannot be empty")
	ErrMalformedTimestamp = errors.New("malformed timestamp")
	ErrInvalidPeriod      = errors.New("invalid trend period")
)

// Input is a symptom report as submitted by a user. Either Description or
// Symptom must carry text.
type Input struct {
	Symptom     string
	Severity    string
	Description string
	Timestamp   time.Time
	Source      string
}

// Tracker owns the per-session symptom log.
type Tracker struct {
	db       *gorm.DB
	events   events.Publisher
	logger   *logrus.Logger
	location *time.Location
	now      func() time.Time
}

// NewTracker creates a Tracker. A nil publisher disables events.
func NewTracker(db *gorm.DB, publisher events.Publisher, location *time.Location, logger *logrus.Logger) *Tracker {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if location == nil {
		location = time.UTC
	}
	return &Tracker{
		db:       db,
		events:   publisher,
		logger:   logger,
		location: location,
		now:      time.Now,
	}
}

// Location is the timezone used for day buckets and timestamp parsing.
func (t *Tracker) Location() *time.Location {
	return t.location
}

// Now returns the tracker's current time in its location.
func (t *Tracker) Now() time.Time {
	return t.now().In(t.location)
}

// Record appends a symptom entry to the session's log.
func (t *Tracker) Record(ctx context.Context, sessionID string, input Input) (model.SymptomEntry, error) {
	description := strings.TrimSpace(input.Description)
	label := strings.TrimSpace(input.Symptom)
	if description == "" {
		description = label
	}
	if description == "" {
		return model.SymptomEntry{}, ErrEmptySymptom
	}
	if label == "" {
		label = ExtractLabel(description)
	}

	severity := strings.TrimSpace(input.Severity)
	if severity == "" {
		severity = ExtractSeverity(description)
	}
	source := input.Source
	if source == "" {
		source = model.SourceManual
	}
	timestamp := input.Timestamp
	if timestamp.IsZero() {
		timestamp = t.Now()
	}

	entry := model.SymptomEntry{
		SessionID:   sessionID,
		Timestamp:   timestamp,
		Symptom:     truncateLabel(label),
		Severity:    severity,
		Description: description,
		Source:      source,
	}
	if err := t.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return model.SymptomEntry{}, err
	}

	t.publish(ctx, entry)
	return entry, nil
}

// List returns the session's entries in the order they were recorded.
func (t *Tracker) List(ctx context.Context, sessionID string) ([]model.SymptomEntry, error) {
	var entries []model.SymptomEntry
	err := t.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// Recent returns up to limit of the latest entries, oldest first.
func (t *Tracker) Recent(ctx context.Context, sessionID string, limit int) ([]model.SymptomEntry, error) {
	var entries []model.SymptomEntry
	err := t.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Count returns how many entries the session has recorded.
func (t *Tracker) Count(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := t.db.WithContext(ctx).Model(&model.SymptomEntry{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

// Trend aggregates the session's whole log with window.
func (t *Tracker) Trend(ctx context.Context, sessionID string, window Window) (TrendView, error) {
	entries, err := t.List(ctx, sessionID)
	if err != nil {
		return TrendView{}, err
	}
	if window.Location == nil {
		window.Location = t.location
	}
	return Aggregate(entries, window), nil
}

func (t *Tracker) publish(ctx context.Context, entry model.SymptomEntry) {
	err := t.events.Publish(ctx, events.Event{
		Type:      events.TypeSymptomRecorded,
		SessionID: entry.SessionID,
		Data: map[string]any{
			"id":        entry.ID,
			"symptom":   entry.Symptom,
			"severity":  entry.Severity,
			"timestamp": entry.Timestamp,
			"source":    entry.Source,
		},
	})
	if err != nil {
		t.logger.WithError(err).WithField("session", entry.SessionID).Warn("symptom: publish event failed")
	}
}
