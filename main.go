package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathakanu/healthGenie/internal/assistant"
	"github.com/pathakanu/healthGenie/internal/config"
	"github.com/pathakanu/healthGenie/internal/database"
	"github.com/pathakanu/healthGenie/internal/document"
	"github.com/pathakanu/healthGenie/internal/events"
	"github.com/pathakanu/healthGenie/internal/history"
	"github.com/pathakanu/healthGenie/internal/llm"
	"github.com/pathakanu/healthGenie/internal/records"
	"github.com/pathakanu/healthGenie/internal/reminder"
	"github.com/pathakanu/healthGenie/internal/server"
	"github.com/pathakanu/healthGenie/internal/session"
	"github.com/pathakanu/healthGenie/internal/storage"
	"github.com/pathakanu/healthGenie/internal/symptom"
	"github.com/pathakanu/healthGenie/internal/twilio"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)
	ctx := context.Background()

	db, err := database.New(cfg.DatabaseURL, cfg.SQLitePath, logger)
	if err != nil {
		logger.Fatalf("database init failed: %v", err)
	}

	llmClient, err := llm.New(cfg)
	if err != nil {
		logger.Fatalf("llm init failed: %v", err)
	}
	chatHistory, err := history.New(cfg, logger)
	if err != nil {
		logger.Fatalf("history init failed: %v", err)
	}
	documentStore, err := storage.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("document store init failed: %v", err)
	}
	publisher, err := events.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("event sink init failed: %v", err)
	}

	tracker := symptom.NewTracker(db, publisher, cfg.LocalTimezone, logger)
	recordService := records.NewService(db)

	deps := server.Deps{
		Config:    cfg,
		Logger:    logger,
		Assistant: assistant.New(llmClient, chatHistory, tracker, recordService, logger),
		Documents: document.NewSummarizer(db, llmClient, documentStore, publisher, cfg.MaxUploadBytes, logger),
		Tracker:   tracker,
		Records:   recordService,
		Sessions:  session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.CookieSecure, logger),
	}

	var scheduler *reminder.Scheduler
	if cfg.TwilioEnabled() {
		deps.Twilio = twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger)
		scheduler = reminder.NewScheduler(cfg.ReminderCron, cfg.LocalTimezone, recordService, deps.Twilio, logger)
		if err := scheduler.Start(); err != nil {
			logger.Fatalf("scheduler start: %v", err)
		}
		logger.WithField("from", cfg.TwilioWhatsAppNumber).Info("whatsapp reminders enabled")
	} else {
		logger.Info("twilio not configured, whatsapp reminders disabled")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.New(deps).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	waitForShutdown(httpServer, scheduler, publisher, chatHistory, logger)
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.LogFormat, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
		logger.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
	}
	logger.SetLevel(level)
	if level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	return logger
}

func waitForShutdown(httpServer *http.Server, scheduler *reminder.Scheduler, publisher events.Publisher, chatHistory history.Store, logger *logrus.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("server shutdown")
	}
	if scheduler != nil {
		scheduler.Stop()
	}
	if err := publisher.Close(); err != nil {
		logger.WithError(err).Warn("event sink close")
	}
	if err := chatHistory.Close(); err != nil {
		logger.WithError(err).Warn("history store close")
	}
}
