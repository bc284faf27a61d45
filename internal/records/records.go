// Package records manages the medications, appointments and profile of a
// session.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pathakanu/healthGenie/internal/model"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

var (
	ErrMissingName            = errors.New("medication name is required")
	ErrMissingDosage          = errors.New("medication dosage is required")
	ErrInvalidFrequency       = errors.New("invalid medication frequency")
	ErrMissingTitle           = errors.New("appointment title is required")
	ErrMissingSchedule        = errors.New("appointment date and time are required")
	ErrInvalidAppointmentType = errors.New("invalid appointment type")
	ErrInvalidPhoneNumber     = errors.New("invalid WhatsApp number")
)

// Service is the gorm-backed store of per-session records.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// Stats counts what a session has recorded.
type Stats struct {
	Symptoms     int64 `json:"symptoms"`
	Medications  int64 `json:"medications"`
	Appointments int64 `json:"appointments"`
	Documents    int64 `json:"documents"`
}

// QuickStats returns the per-session record counts.
func (s *Service) QuickStats(ctx context.Context, sessionID string) (Stats, error) {
	var stats Stats
	counts := []struct {
		model any
		dest  *int64
	}{
		{&model.SymptomEntry{}, &stats.Symptoms},
		{&model.Medication{}, &stats.Medications},
		{&model.Appointment{}, &stats.Appointments},
		{&model.DocumentSummary{}, &stats.Documents},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(c.model).Where("session_id = ?", sessionID).Count(c.dest).Error; err != nil {
			return Stats{}, fmt.Errorf("records: count: %w", err)
		}
	}
	return stats, nil
}

// removeScoped deletes the record with id owned by sessionID.
func (s *Service) removeScoped(ctx context.Context, record any, sessionID, id string) error {
	result := s.db.WithContext(ctx).Where("id = ? AND session_id = ?", id, sessionID).Delete(record)
	if result.Error != nil {
		return fmt.Errorf("records: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
