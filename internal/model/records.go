package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Medication is a scheduled medication owned by a session.
type Medication struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID string    `gorm:"index;not null" json:"-"`
	Name      string    `gorm:"type:varchar(120);not null" json:"name"`
	Dosage    string    `gorm:"type:varchar(120);not null" json:"dosage"`
	Frequency string    `gorm:"type:varchar(40);not null" json:"frequency"`
	NextDose  time.Time `gorm:"index" json:"next_dose"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate assigns a random identifier when none was set.
func (m *Medication) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Appointment is a scheduled visit owned by a session.
type Appointment struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID   string    `gorm:"index;not null" json:"-"`
	Title       string    `gorm:"type:varchar(200);not null" json:"title"`
	ScheduledAt time.Time `gorm:"index;not null" json:"scheduled_at"`
	Doctor      string    `gorm:"type:varchar(200)" json:"doctor,omitempty"`
	Type        string    `gorm:"type:varchar(40);not null" json:"type"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeCreate assigns a random identifier when none was set.
func (a *Appointment) BeforeCreate(*gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Profile holds the optional personal context used for insights and reminders.
type Profile struct {
	SessionID      string    `gorm:"primaryKey" json:"-"`
	Age            string    `gorm:"type:varchar(16)" json:"age"`
	Conditions     string    `gorm:"type:text" json:"conditions"`
	Allergies      string    `gorm:"type:text" json:"allergies"`
	Lifestyle      string    `gorm:"type:text" json:"lifestyle"`
	WhatsAppNumber string    `gorm:"column:whatsapp_number;type:varchar(32);index" json:"whatsapp_number,omitempty"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
