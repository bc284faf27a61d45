package symptom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pathakanu/healthGenie/internal/database"
	"github.com/pathakanu/healthGenie/internal/events"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func newTestTracker(t *testing.T, publisher events.Publisher) *Tracker {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite memory: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tracker := NewTracker(db, publisher, time.UTC, logger)
	tracker.now = func() time.Time { return time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC) }
	return tracker
}

func TestRecordRejectsEmptyText(t *testing.T) {
	t.Parallel()
	publisher := &recordingPublisher{}
	tracker := newTestTracker(t, publisher)
	ctx := context.Background()

	for _, input := range []Input{{}, {Description: "   "}, {Symptom: "\t", Description: "\n"}} {
		if _, err := tracker.Record(ctx, "s1", input); !errors.Is(err, ErrEmptySymptom) {
			t.Fatalf("Record(%+v) error = %v, want ErrEmptySymptom", input, err)
		}
	}

	count, err := tracker.Count(ctx, "s1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no entries after rejected input, got %d", count)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no events, got %d", len(publisher.events))
	}
}

func TestRecordDerivesLabelSeverityAndTimestamp(t *testing.T) {
	t.Parallel()
	publisher := &recordingPublisher{}
	tracker := newTestTracker(t, publisher)

	entry, err := tracker.Record(context.Background(), "s1", Input{Description: "  Severe migraine behind my eyes  "})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if entry.ID == 0 {
		t.Fatalf("expected entry to be persisted")
	}
	if entry.Symptom != "headache" || entry.Severity != "severe" {
		t.Fatalf("unexpected derived fields: %+v", entry)
	}
	if entry.Description != "Severe migraine behind my eyes" {
		t.Fatalf("description not trimmed: %q", entry.Description)
	}
	if !entry.Timestamp.Equal(tracker.Now()) {
		t.Fatalf("Timestamp = %v, want tracker now", entry.Timestamp)
	}
	if entry.Source != "manual" {
		t.Fatalf("Source = %q, want manual", entry.Source)
	}

	if len(publisher.events) != 1 || publisher.events[0].Type != events.TypeSymptomRecorded || publisher.events[0].SessionID != "s1" {
		t.Fatalf("unexpected events: %+v", publisher.events)
	}
}

func TestRecordKeepsExplicitLabel(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t, nil)
	ts := time.Date(2024, 3, 30, 22, 0, 0, 0, time.UTC)

	entry, err := tracker.Record(context.Background(), "s1", Input{Symptom: "Cough", Severity: "3", Timestamp: ts})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if entry.Symptom != "Cough" || entry.Description != "Cough" || entry.Severity != "3" || !entry.Timestamp.Equal(ts) {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestRecordSucceedsWhenPublisherFails(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t, &recordingPublisher{err: errors.New("broker down")})

	if _, err := tracker.Record(context.Background(), "s1", Input{Description: "cough"}); err != nil {
		t.Fatalf("Record should not fail on publish error: %v", err)
	}
	count, _ := tracker.Count(context.Background(), "s1")
	if count != 1 {
		t.Fatalf("expected entry to be stored, got %d", count)
	}
}

func TestRecordThenTrendCountsSingleEntry(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	entry, err := tracker.Record(ctx, "s1", Input{Description: "nauseous after breakfast"})
	if err != nil {
		t.Fatalf("Record error: %v", err)
	}

	view, err := tracker.Trend(ctx, "s1", Window{Period: PeriodDay})
	if err != nil {
		t.Fatalf("Trend error: %v", err)
	}
	if len(view.Buckets) != 1 {
		t.Fatalf("expected one bucket, got %#v", view.Buckets)
	}
	bucket := view.Buckets[0]
	if bucket.Key != entry.Timestamp.Format("2006-01-02") {
		t.Fatalf("bucket key = %q, want %q", bucket.Key, entry.Timestamp.Format("2006-01-02"))
	}
	if len(bucket.Counts) != 1 || bucket.Counts[0] != (LabelCount{Label: "nausea", Count: 1}) {
		t.Fatalf("unexpected counts: %#v", bucket.Counts)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	for _, text := range []string{"cough", "fever", "rash"} {
		if _, err := tracker.Record(ctx, "alice", Input{Description: text}); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}
	if _, err := tracker.Record(ctx, "bob", Input{Description: "headache"}); err != nil {
		t.Fatalf("Record error: %v", err)
	}

	bobs, err := tracker.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(bobs) != 1 || bobs[0].Symptom != "headache" {
		t.Fatalf("unexpected entries for bob: %+v", bobs)
	}

	view, err := tracker.Trend(ctx, "alice", Window{})
	if err != nil {
		t.Fatalf("Trend error: %v", err)
	}
	if view.Total != 3 {
		t.Fatalf("alice total = %d, want 3", view.Total)
	}
}

func TestRecentReturnsLatestOldestFirst(t *testing.T) {
	t.Parallel()
	tracker := newTestTracker(t, nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if _, err := tracker.Record(ctx, "s1", Input{Description: fmt.Sprintf("note %d", i)}); err != nil {
			t.Fatalf("Record error: %v", err)
		}
	}

	recent, err := tracker.Recent(ctx, "s1", 3)
	if err != nil {
		t.Fatalf("Recent error: %v", err)
	}
	if len(recent) != 3 || recent[0].Description != "note 3" || recent[2].Description != "note 5" {
		t.Fatalf("unexpected recent entries: %+v", recent)
	}
}
