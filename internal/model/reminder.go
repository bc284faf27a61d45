package model

import "time"

// Reminder types.
const (
	ReminderMedication  = "Medication"
	ReminderAppointment = "Appointment"
)

// Reminder is an upcoming medication dose or appointment. It is computed from
// the stored records and never persisted.
type Reminder struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Time        time.Time `json:"time"`
	Description string    `json:"description"`
}
