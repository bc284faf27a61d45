package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/pathakanu/healthGenie/internal/session"
	"github.com/pathakanu/healthGenie/internal/symptom"
)

type symptomRequest struct {
	Symptom     string `json:"symptom"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// POST /api/symptoms
func (h *Handler) ApiRecordSymptom(ctx *gin.Context) {
	var req symptomRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.errorHandler(ctx, http.StatusBadRequest, err)
		return
	}
	ts, err := symptom.ParseTimestamp(req.Timestamp, h.Tracker.Location(), h.Tracker.Now())
	if err != nil {
		h.fail(ctx, err)
		return
	}

	entry, err := h.Tracker.Record(ctx.Request.Context(), session.ID(ctx), symptom.Input{
		Symptom:     req.Symptom,
		Severity:    req.Severity,
		Description: req.Description,
		Timestamp:   ts,
		Source:      model.SourceManual,
	})
	if err != nil {
		h.fail(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"status": "ok", "data": entry})
}

// GET /api/symptoms
func (h *Handler) ApiListSymptoms(ctx *gin.Context) {
	entries, err := h.Tracker.List(ctx.Request.Context(), session.ID(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, entries, int64(len(entries)), nil)
}

// GET /api/symptoms/trend?period=week&from=2024-06-01&to=2024-07-01
func (h *Handler) ApiSymptomTrend(ctx *gin.Context) {
	period, err := symptom.ParsePeriod(ctx.Query("period"))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	from, err := h.optionalTime(ctx.Query("from"))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	to, err := h.optionalTime(ctx.Query("to"))
	if err != nil {
		h.fail(ctx, err)
		return
	}

	view, err := h.Tracker.Trend(ctx.Request.Context(), session.ID(ctx), symptom.Window{
		Period:   period,
		From:     from,
		To:       to,
		Location: h.Tracker.Location(),
	})
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, view, int64(view.Total), gin.H{"period": view.Period})
}

// POST /api/symptoms/analysis
func (h *Handler) ApiAnalyzePatterns(ctx *gin.Context) {
	analysis, err := h.Assistant.AnalyzePatterns(ctx.Request.Context(), session.ID(ctx))
	if err != nil {
		h.fail(ctx, err)
		return
	}
	jsonResponse(ctx, gin.H{"analysis": analysis}, 1, nil)
}

// optionalTime parses a query bound. An empty value means no bound.
func (h *Handler) optionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	ts, err := symptom.ParseTimestamp(raw, h.Tracker.Location(), h.Tracker.Now())
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
