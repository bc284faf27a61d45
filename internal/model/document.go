package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentSummary is the stored result of summarising an uploaded document.
type DocumentSummary struct {
	ID          string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID   string            `gorm:"index;not null" json:"-"`
	FileName    string            `gorm:"type:varchar(255);not null" json:"file_name"`
	ContentType string            `gorm:"type:varchar(100);not null" json:"content_type"`
	Size        int64             `gorm:"not null" json:"size"`
	StorageKey  string            `gorm:"type:varchar(255)" json:"storage_key,omitempty"`
	Summary     string            `gorm:"type:text;not null" json:"summary"`
	Meta        datatypes.JSONMap `json:"meta,omitempty"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate assigns a random identifier when none was set.
func (d *DocumentSummary) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation kept in the history store.
type ChatMessage struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}
