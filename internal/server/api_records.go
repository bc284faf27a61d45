package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/healthGenie/internal/records"
	"github.com/pathakanu/healthGenie/internal/reminder"
	"github.com/pathakanu/healthGenie/internal/session"
	"github.com/pathakanu/healthGenie/internal/symptom"
)

type medicationRequest struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	NextDose  string `json:"next_dose"`
	Notes     string `json:"notes"`
}

type appointmentRequest struct {
	Title       string `json:"title"`
	ScheduledAt string `json:"scheduled_at"`
	Doctor      string `json:"doctor"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// GET /api/medications
func (h *Handler) ApiListMedications(ctx *gin.Context) {
	meds, err := h.Records.ListMedications(ctx.Request.Context(), session.ID(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, meds, int64(len(meds)), gin.H{"frequencies": records.Frequencies})
}

// POST /api/medications
func (h *Handler) ApiAddMedication(ctx *gin.Context) {
	var req medicationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}
	nextDose, err := h.parseWhen(req.NextDose)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	med, err := h.Records.AddMedication(ctx.Request.Context(), session.ID(ctx), records.MedicationInput{
		Name:      req.Name,
		Dosage:    req.Dosage,
		Frequency: req.Frequency,
		NextDose:  nextDose,
		Notes:     req.Notes,
	})
	if err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"status": "ok", "data": med})
}

// DELETE /api/medications/:id
func (h *Handler) ApiRemoveMedication(ctx *gin.Context) {
	if err := h.Records.RemoveMedication(ctx.Request.Context(), session.ID(ctx), ctx.Param("id")); err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GET /api/appointments
func (h *Handler) ApiListAppointments(ctx *gin.Context) {
	appts, err := h.Records.ListAppointments(ctx.Request.Context(), session.ID(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, appts, int64(len(appts)), gin.H{"types": records.AppointmentTypes})
}

// POST /api/appointments
func (h *Handler) ApiAddAppointment(ctx *gin.Context) {
	var req appointmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}
	scheduledAt, err := h.parseWhen(req.ScheduledAt)
	if err != nil {
		h.fail(ctx, err)
		return
	}

	appt, err := h.Records.AddAppointment(ctx.Request.Context(), session.ID(ctx), records.AppointmentInput{
		Title:       req.Title,
		ScheduledAt: scheduledAt,
		Doctor:      req.Doctor,
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"status": "ok", "data": appt})
}

// DELETE /api/appointments/:id
func (h *Handler) ApiRemoveAppointment(ctx *gin.Context) {
	if err := h.Records.RemoveAppointment(ctx.Request.Context(), session.ID(ctx), ctx.Param("id")); err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

// GET /api/profile
func (h *Handler) ApiGetProfile(ctx *gin.Context) {
	profile, err := h.Records.GetProfile(ctx.Request.Context(), session.ID(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, profile, 1, nil)
}

// PUT /api/profile
func (h *Handler) ApiUpdateProfile(ctx *gin.Context) {
	var req records.ProfileInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}
	profile, err := h.Records.UpdateProfile(ctx.Request.Context(), session.ID(ctx), req)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, profile, 1, nil)
}

// POST /api/insights
func (h *Handler) ApiInsights(ctx *gin.Context) {
	insights, err := h.Assistant.HealthInsights(ctx.Request.Context(), session.ID(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, gin.H{"insights": insights}, 1, nil)
}

// GET /api/reminders
func (h *Handler) ApiReminders(ctx *gin.Context) {
	reminders, err := reminder.ForSession(ctx.Request.Context(), h.Records, session.ID(ctx), h.Tracker.Now(), reminder.DefaultLimit)
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, reminders, int64(len(reminders)), nil)
}

// GET /api/stats
func (h *Handler) ApiStats(ctx *gin.Context) {
	stats, err := h.Records.QuickStats(ctx.Request.Context(), session.ID(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, stats, 1, nil)
}

// parseWhen reads an optional form time. Empty input stays zero so the
// records service can apply its own default.
func (h *Handler) parseWhen(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return symptom.ParseTimestamp(raw, h.Tracker.Location(), h.Tracker.Now())
}
