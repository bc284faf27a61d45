package reminder

import (
	"context"
	"time"

	"github.com/pathakanu/healthGenie/internal/model"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sender delivers a WhatsApp message.
type Sender interface {
	SendWhatsAppMessage(to, body string) error
}

// Recipients lists the profiles that receive the digest.
type Recipients interface {
	Source
	ProfilesWithWhatsApp(ctx context.Context) ([]model.Profile, error)
}

// Scheduler sends every opted-in session its upcoming reminders on a cron
// schedule.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	records  Recipients
	sender   Sender
	location *time.Location
	logger   *logrus.Logger
	now      func() time.Time
}

func NewScheduler(spec string, location *time.Location, records Recipients, sender Sender, logger *logrus.Logger) *Scheduler {
	if location == nil {
		location = time.Local
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		spec:     spec,
		records:  records,
		sender:   sender,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the digest job and starts the scheduler loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		sent := s.Dispatch(context.Background())
		s.logger.WithField("sent", sent).Info("reminder: daily digest dispatched")
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop stops the cron scheduler and waits for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// Dispatch sends one digest per opted-in session that has upcoming reminders
// and returns how many were sent. Failures are logged per session.
func (s *Scheduler) Dispatch(ctx context.Context) int {
	profiles, err := s.records.ProfilesWithWhatsApp(ctx)
	if err != nil {
		s.logger.WithError(err).Error("reminder: fetch recipients")
		return 0
	}

	now := s.now().In(s.location)
	sent := 0
	for _, profile := range profiles {
		log := s.logger.WithField("session", profile.SessionID)

		reminders, err := ForSession(ctx, s.records, profile.SessionID, now, DefaultLimit)
		if err != nil {
			log.WithError(err).Error("reminder: load reminders")
			continue
		}
		if len(reminders) == 0 {
			continue
		}
		if err := s.sender.SendWhatsAppMessage(profile.WhatsAppNumber, Digest(reminders, s.location)); err != nil {
			log.WithError(err).Error("reminder: send digest")
			continue
		}
		sent++
	}
	return sent
}
