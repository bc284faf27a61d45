// Package server exposes HealthGenie over HTTP with gin.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/healthGenie/internal/assistant"
	"github.com/pathakanu/healthGenie/internal/config"
	"github.com/pathakanu/healthGenie/internal/document"
	"github.com/pathakanu/healthGenie/internal/llm"
	"github.com/pathakanu/healthGenie/internal/records"
	"github.com/pathakanu/healthGenie/internal/session"
	"github.com/pathakanu/healthGenie/internal/symptom"
	"github.com/pathakanu/healthGenie/internal/twilio"
	"github.com/sirupsen/logrus"
)

// Deps are the services the HTTP layer calls into.
type Deps struct {
	Config    *config.Config
	Logger    *logrus.Logger
	Assistant *assistant.Assistant
	Documents *document.Summarizer
	Tracker   *symptom.Tracker
	Records   *records.Service
	Sessions  *session.Manager
	// Twilio is optional; without it webhook signatures are not checked.
	Twilio *twilio.Client
}

type Handler struct {
	Deps
}

func New(deps Deps) *Handler {
	return &Handler{Deps: deps}
}

// Router builds the gin engine with every route registered.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger())
	h.RegisterHandler(router)
	return router
}

// RegisterHandler registers the page, the JSON API and the Twilio webhook.
func (h *Handler) RegisterHandler(router *gin.Engine) {
	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.POST("/twilio/webhook", h.TwilioWebhook)

	withSession := router.Group("/", h.Sessions.Middleware())
	withSession.GET("/", h.Index)

	api := withSession.Group("/api")
	api.POST("/chat", h.ApiChat)
	api.GET("/chat/history", h.ApiChatHistory)

	api.POST("/documents", h.ApiUploadDocument)
	api.GET("/documents", h.ApiListDocuments)

	api.POST("/symptoms", h.ApiRecordSymptom)
	api.GET("/symptoms", h.ApiListSymptoms)
	api.GET("/symptoms/trend", h.ApiSymptomTrend)
	api.POST("/symptoms/analysis", h.ApiAnalyzePatterns)

	api.GET("/medications", h.ApiListMedications)
	api.POST("/medications", h.ApiAddMedication)
	api.DELETE("/medications/:id", h.ApiRemoveMedication)

	api.GET("/appointments", h.ApiListAppointments)
	api.POST("/appointments", h.ApiAddAppointment)
	api.DELETE("/appointments/:id", h.ApiRemoveAppointment)

	api.GET("/profile", h.ApiGetProfile)
	api.PUT("/profile", h.ApiUpdateProfile)

	api.POST("/insights", h.ApiInsights)
	api.GET("/reminders", h.ApiReminders)
	api.GET("/stats", h.ApiStats)
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		h.Logger.WithFields(logrus.Fields{
			"method":  ctx.Request.Method,
			"path":    ctx.FullPath(),
			"status":  ctx.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("http request")
	}
}

// jsonResponse writes a successful payload.
func jsonResponse(ctx *gin.Context, data any, total int64, meta gin.H) {
	ctx.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"data":   data,
		"total":  total,
		"meta":   meta,
	})
}

// errorHandler writes the error body and logs it.
func (h *Handler) errorHandler(ctx *gin.Context, errorStatusCode int, err error) {
	entry := h.Logger.WithError(err).WithFields(logrus.Fields{"status": errorStatusCode, "path": ctx.FullPath()})
	description := err.Error()
	if errorStatusCode >= http.StatusInternalServerError && errorStatusCode != http.StatusBadGateway && errorStatusCode != http.StatusServiceUnavailable {
		entry.Error("request failed")
		description = "internal server error"
	} else {
		entry.Warn("request rejected")
	}
	ctx.AbortWithStatusJSON(errorStatusCode, gin.H{
		"status":      "error",
		"description": description,
	})
}

// fail maps err onto its HTTP status and writes it.
func (h *Handler) fail(ctx *gin.Context, err error) {
	h.errorHandler(ctx, statusFor(err), err)
}

var badRequestErrors = []error{
	assistant.ErrEmptyMessage,
	assistant.ErrNotEnoughSymptoms,
	symptom.ErrEmptySymptom,
	symptom.ErrMalformedTimestamp,
	symptom.ErrInvalidPeriod,
	records.ErrMissingName,
	records.ErrMissingDosage,
	records.ErrInvalidFrequency,
	records.ErrMissingTitle,
	records.ErrMissingSchedule,
	records.ErrInvalidAppointmentType,
	records.ErrInvalidPhoneNumber,
	llm.ErrEmptyPrompt,
}

func statusFor(err error) int {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, document.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, document.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, document.ErrCorruptFile), errors.Is(err, document.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, llm.ErrClientNotInitialised):
		return http.StatusServiceUnavailable
	case errors.Is(err, llm.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrEmptyCompletion):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
