// Package reminder computes upcoming medication and appointment reminders and
// sends them as a daily WhatsApp digest.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/samber/lo"
)

// DefaultLimit is how many reminders are shown or sent at once.
const DefaultLimit = 5

// Source is the read side of the records store used to build reminders.
type Source interface {
	ListMedications(ctx context.Context, sessionID string) ([]model.Medication, error)
	Appointments(ctx context.Context, sessionID string) ([]model.Appointment, error)
}

// Upcoming merges medications and appointments dated today or later (by
// calendar day in now's location), sorted by time and capped at limit.
func Upcoming(now time.Time, meds []model.Medication, appts []model.Appointment, limit int) []model.Reminder {
	today := dayOf(now, now.Location())
	keep := func(t time.Time) bool {
		return !dayOf(t, now.Location()).Before(today)
	}

	reminders := make([]model.Reminder, 0, len(meds)+len(appts))
	for _, med := range lo.Filter(meds, func(m model.Medication, _ int) bool { return keep(m.NextDose) }) {
		reminders = append(reminders, model.Reminder{
			Type:        model.ReminderMedication,
			Title:       med.Name,
			Time:        med.NextDose,
			Description: "Take " + med.Dosage,
		})
	}
	for _, appt := range lo.Filter(appts, func(a model.Appointment, _ int) bool { return keep(a.ScheduledAt) }) {
		reminders = append(reminders, model.Reminder{
			Type:        model.ReminderAppointment,
			Title:       appt.Title,
			Time:        appt.ScheduledAt,
			Description: appointmentDescription(appt),
		})
	}

	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].Time.Before(reminders[j].Time)
	})
	if limit > 0 && len(reminders) > limit {
		reminders = reminders[:limit]
	}
	return reminders
}

// ForSession loads the session's records and returns its upcoming reminders.
func ForSession(ctx context.Context, source Source, sessionID string, now time.Time, limit int) ([]model.Reminder, error) {
	meds, err := source.ListMedications(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	appts, err := source.Appointments(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return Upcoming(now, meds, appts, limit), nil
}

// Digest renders reminders as a WhatsApp message.
func Digest(reminders []model.Reminder, location *time.Location) string {
	lines := lo.Map(reminders, func(r model.Reminder, i int) string {
		line := fmt.Sprintf("%d. [%s] %s at %s", i+1, r.Type, r.Title, r.Time.In(location).Format("Mon Jan 02 15:04"))
		if r.Description != "" {
			line += ": " + r.Description
		}
		return line
	})
	return "Your upcoming health reminders:\n" + strings.Join(lines, "\n")
}

func appointmentDescription(appt model.Appointment) string {
	switch {
	case appt.Doctor != "" && appt.Description != "":
		return fmt.Sprintf("%s with %s. %s", appt.Type, appt.Doctor, appt.Description)
	case appt.Doctor != "":
		return fmt.Sprintf("%s with %s", appt.Type, appt.Doctor)
	case appt.Description != "":
		return appt.Description
	default:
		return appt.Type
	}
}

func dayOf(t time.Time, location *time.Location) time.Time {
	local := t.In(location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, location)
}
