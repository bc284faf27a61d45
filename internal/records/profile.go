package records

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pathakanu/healthGenie/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

type ProfileInput struct {
	Age            string `json:"age"`
	Conditions     string `json:"conditions"`
	Allergies      string `json:"allergies"`
	Lifestyle      string `json:"lifestyle"`
	WhatsAppNumber string `json:"whatsapp_number"`
}

// GetProfile returns the stored profile or an empty one.
func (s *Service) GetProfile(ctx context.Context, sessionID string) (model.Profile, error) {
	var profile model.Profile
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Profile{SessionID: sessionID}, nil
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("records: get profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile replaces the session's profile.
func (s *Service) UpdateProfile(ctx context.Context, sessionID string, in ProfileInput) (model.Profile, error) {
	number, err := normalizePhone(in.WhatsAppNumber)
	if err != nil {
		return model.Profile{}, err
	}

	profile := model.Profile{
		SessionID:      sessionID,
		Age:            strings.TrimSpace(in.Age),
		Conditions:     strings.TrimSpace(in.Conditions),
		Allergies:      strings.TrimSpace(in.Allergies),
		Lifestyle:      strings.TrimSpace(in.Lifestyle),
		WhatsAppNumber: number,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"age", "conditions", "allergies", "lifestyle", "whatsapp_number", "updated_at"}),
	}).Create(&profile).Error; err != nil {
		return model.Profile{}, fmt.Errorf("records: save profile: %w", err)
	}
	return profile, nil
}

// ProfilesWithWhatsApp returns every profile that opted into WhatsApp
// reminders.
func (s *Service) ProfilesWithWhatsApp(ctx context.Context) ([]model.Profile, error) {
	var out []model.Profile
	if err := s.db.WithContext(ctx).
		Where("whatsapp_number <> ''").
		Order("session_id ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("records: list profiles: %w", err)
	}
	return out, nil
}

// ProfileByWhatsApp finds the profile that registered number.
func (s *Service) ProfileByWhatsApp(ctx context.Context, number string) (model.Profile, error) {
	normalized, err := normalizePhone(number)
	if err != nil {
		return model.Profile{}, err
	}
	if normalized == "" {
		return model.Profile{}, ErrNotFound
	}
	var profile model.Profile
	err = s.db.WithContext(ctx).Where("whatsapp_number = ?", normalized).Order("updated_at DESC").First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("records: find profile: %w", err)
	}
	return profile, nil
}

func normalizePhone(raw string) (string, error) {
	number := strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:")
	number = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(number)
	if number == "" {
		return "", nil
	}
	if !phonePattern.MatchString(number) {
		return "", ErrInvalidPhoneNumber
	}
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}
	return number, nil
}
