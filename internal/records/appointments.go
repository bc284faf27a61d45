package records

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/samber/lo"
)

// AppointmentTypes lists the accepted appointment types.
var AppointmentTypes = []string{"Check-up", "Follow-up", "Specialist", "Lab Test", "Other"}

const defaultAppointmentType = "Other"

type AppointmentInput struct {
	Title       string    `json:"title"`
	ScheduledAt time.Time `json:"scheduled_at"`
	Doctor      string    `json:"doctor"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
}

// AppointmentView is an appointment flagged relative to the time it was listed.
type AppointmentView struct {
	model.Appointment
	Upcoming bool `json:"upcoming"`
}

func (s *Service) AddAppointment(ctx context.Context, sessionID string, in AppointmentInput) (model.Appointment, error) {
	title := strings.TrimSpace(in.Title)
	kind := strings.TrimSpace(in.Type)

	if title == "" {
		return model.Appointment{}, ErrMissingTitle
	}
	if in.ScheduledAt.IsZero() {
		return model.Appointment{}, ErrMissingSchedule
	}
	if kind == "" {
		kind = defaultAppointmentType
	}
	if !lo.Contains(AppointmentTypes, kind) {
		return model.Appointment{}, ErrInvalidAppointmentType
	}

	record := model.Appointment{
		SessionID:   sessionID,
		Title:       title,
		ScheduledAt: in.ScheduledAt,
		Doctor:      strings.TrimSpace(in.Doctor),
		Type:        kind,
		Description: strings.TrimSpace(in.Description),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return model.Appointment{}, fmt.Errorf("records: create appointment: %w", err)
	}
	return record, nil
}

// Appointments returns the session's appointments ordered by date.
func (s *Service) Appointments(ctx context.Context, sessionID string) ([]model.Appointment, error) {
	var out []model.Appointment
	if err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("scheduled_at ASC, created_at ASC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("records: list appointments: %w", err)
	}
	return out, nil
}

// ListAppointments returns the appointments flagged upcoming when they are
// strictly after now.
func (s *Service) ListAppointments(ctx context.Context, sessionID string) ([]AppointmentView, error) {
	appointments, err := s.Appointments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return lo.Map(appointments, func(a model.Appointment, _ int) AppointmentView {
		return AppointmentView{Appointment: a, Upcoming: a.ScheduledAt.After(now)}
	}), nil
}

func (s *Service) RemoveAppointment(ctx context.Context, sessionID, id string) error {
	return s.removeScoped(ctx, &model.Appointment{}, sessionID, id)
}
