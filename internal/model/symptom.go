package model

import "time"

// Symptom entry sources.
const (
	SourceManual = "manual"
	SourceChat   = "chat"
)

// SymptomEntry is a single timestamped symptom report. Entries are append-only:
// nothing in the application updates or deletes them.
type SymptomEntry struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SessionID   string    `gorm:"index;not null" json:"-"`
	Timestamp   time.Time `gorm:"index;not null" json:"timestamp"`
	Symptom     string    `gorm:"type:varchar(80);not null" json:"symptom"`
	Severity    string    `gorm:"type:varchar(40)" json:"severity,omitempty"`
	Description string    `gorm:"type:text;not null" json:"description"`
	Source      string    `gorm:"type:varchar(16);not null" json:"source"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
