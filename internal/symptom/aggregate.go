package symptom

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pathakanu/healthGenie/internal/model"
)

// Period is the bucket width of a trend view.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

const unspecifiedLabel = "unspecified"

// ParsePeriod maps query input to a Period. Empty input means PeriodDay.
func ParsePeriod(raw string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, raw)
	}
}

// Window selects the bucket width and an optional [From, To) range.
type Window struct {
	Period   Period
	From     *time.Time
	To       *time.Time
	Location *time.Location
}

// LabelCount is the number of entries carrying one label.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Bucket holds the counts for one period.
type Bucket struct {
	Key    string       `json:"key"`
	Start  time.Time    `json:"start"`
	Total  int          `json:"total"`
	Counts []LabelCount `json:"counts"`
}

// TrendView is the chartable aggregation of a symptom log.
type TrendView struct {
	Period  Period       `json:"period"`
	Total   int          `json:"total"`
	Buckets []Bucket     `json:"buckets"`
	Totals  []LabelCount `json:"totals"`
}

// Aggregate groups entries by period and counts them per label. Labels match
// case-insensitively and keep their first-seen spelling. Counts are ordered
// by count descending; equal counts keep the order in which the label first
// appeared in entries. Buckets are chronological.
func Aggregate(entries []model.SymptomEntry, window Window) TrendView {
	period := window.Period
	if period == "" {
		period = PeriodDay
	}
	location := window.Location
	if location == nil {
		location = time.UTC
	}

	view := TrendView{
		Period:  period,
		Buckets: []Bucket{},
		Totals:  []LabelCount{},
	}

	buckets := make(map[int64]*tally)
	totals := newTally()

	for _, entry := range entries {
		if !window.contains(entry.Timestamp) {
			continue
		}
		display := entryLabel(entry)
		key := strings.ToLower(display)

		start := periodStart(entry.Timestamp, period, location)
		bucket, ok := buckets[start.Unix()]
		if !ok {
			bucket = newTally()
			bucket.start = start
			buckets[start.Unix()] = bucket
		}
		bucket.add(key, display)
		totals.add(key, display)
		view.Total++
	}

	starts := make([]int64, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	for _, start := range starts {
		bucket := buckets[start]
		view.Buckets = append(view.Buckets, Bucket{
			Key:    bucketKey(bucket.start, period),
			Start:  bucket.start,
			Total:  bucket.total,
			Counts: bucket.ranked(),
		})
	}
	view.Totals = totals.ranked()
	return view
}

func (w Window) contains(ts time.Time) bool {
	if w.From != nil && ts.Before(*w.From) {
		return false
	}
	if w.To != nil && !ts.Before(*w.To) {
		return false
	}
	return true
}

func entryLabel(entry model.SymptomEntry) string {
	if label := strings.TrimSpace(entry.Symptom); label != "" {
		return label
	}
	if label := ExtractLabel(entry.Description); label != "" {
		return label
	}
	return unspecifiedLabel
}

// tally counts labels while remembering first-occurrence order.
type tally struct {
	start  time.Time
	total  int
	order  []string
	counts map[string]*LabelCount
}

func newTally() *tally {
	return &tally{counts: make(map[string]*LabelCount)}
}

func (t *tally) add(key, display string) {
	t.total++
	if count, ok := t.counts[key]; ok {
		count.Count++
		return
	}
	t.counts[key] = &LabelCount{Label: display, Count: 1}
	t.order = append(t.order, key)
}

func (t *tally) ranked() []LabelCount {
	out := make([]LabelCount, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, *t.counts[key])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func periodStart(ts time.Time, period Period, location *time.Location) time.Time {
	local := ts.In(location)
	year, month, day := local.Date()
	switch period {
	case PeriodWeek:
		start := time.Date(year, month, day, 0, 0, 0, 0, location)
		offset := (int(start.Weekday()) + 6) % 7
		return start.AddDate(0, 0, -offset)
	case PeriodMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, location)
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, location)
	}
}

func bucketKey(start time.Time, period Period) string {
	switch period {
	case PeriodWeek:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case PeriodMonth:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}
