package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/samber/lo"
)

// Frequencies lists the accepted medication frequencies.
var Frequencies = []string{"Once daily", "Twice daily", "Three times daily", "As needed"}

const defaultFrequency = "Once daily"

type MedicationInput struct {
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Frequency string    `json:"frequency"`
	NextDose  time.Time `json:"next_dose"`
	Notes     string    `json:"notes"`
}

// AddMedication validates and stores a medication. An empty frequency means
// once daily and a zero NextDose means now.
func (s *Service) AddMedication(ctx context.Context, sessionID string, in MedicationInput) (model.Medication, error) {
	name := strings.TrimSpace(in.Name)
	dosage := strings.TrimSpace(in.Dosage)
	frequency := strings.TrimSpace(in.Frequency)

	if name == "" {
		return model.Medication{}, ErrMissingName
	}
	if dosage == "" {
		return model.Medication{}, ErrMissingDosage
	}
	if frequency == "" {
		frequency = defaultFrequency
	}
	if !lo.Contains(Frequencies, frequency) {
		return model.Medication{}, ErrInvalidFrequency
	}

	nextDose := in.NextDose
	if nextDose.IsZero() {
		nextDose = s.now()
	}

	record := model.Medication{
		SessionID: sessionID,
		Name:      name,
		Dosage:    dosage,
		Frequency: frequency,
		NextDose:  nextDose,
		Notes:     strings.TrimSpace(in.Notes),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return model.Medication{}, fmt.Errorf("records: create medication: %w", err)
	}
	return record, nil
}

// ListMedications returns the session's medications by next dose.
func (s *Service) ListMedications(ctx context.Context, sessionID string) ([]model.Medication, error) {
	var out []model.Medication
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("next_dose ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("records: list medications: %w", err)
	}
	return out, nil
}

func (s *Service) RemoveMedication(ctx context.Context, sessionID, id string) error {
	return s.removeScoped(ctx, &model.Medication{}, sessionID, id)
}
