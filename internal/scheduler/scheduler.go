package scheduler

import (
	"context"
	"fmt"

	"glow/config"
	bookingService "glow/internal/domains/booking/service"
	reminderService "glow/internal/domains/reminder/service"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler owns the background sweeps: appointment reminders and pending
// booking expiry. Safe to run on every instance; both sweeps claim their work
// with conditional updates.
type Scheduler struct {
	cfg      *config.Config
	reminder reminderService.Scheduler
	booking  bookingService.Booking
	cron     *cron.Cron
}

func New(cfg *config.Config, reminder reminderService.Scheduler, booking bookingService.Booking) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		reminder: reminder,
		booking:  booking,
		cron:     cron.New(),
	}
}

func (s *Scheduler) Start() error {
	reminderSpec := fmt.Sprintf("@every %dm", s.cfg.Reminder.SweepIntervalMinutes)
	if _, err := s.cron.AddFunc(reminderSpec, s.sweepReminders); err != nil {
		return fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}

	expirySpec := fmt.Sprintf("@every %dm", s.cfg.Booking.SweepIntervalMinutes)
	if _, err := s.cron.AddFunc(expirySpec, s.sweepExpiredPending); err != nil {
		return fmt.Errorf("failed to schedule pending expiry sweep: %w", err)
	}

	s.cron.Start()

	log.Info().
		Str("reminderInterval", reminderSpec).
		Str("expiryInterval", expirySpec).
		Msg("background scheduler started")

	return nil
}

// Stop halts scheduling and waits for in-flight sweeps to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()

	log.Info().Msg("background scheduler stopped")
}

func (s *Scheduler) sweepReminders() {
	sent, err := s.reminder.Sweep(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("reminder sweep failed")

		return
	}

	if sent > 0 {
		log.Info().Int("sent", sent).Msg("reminder sweep completed")
	}
}

func (s *Scheduler) sweepExpiredPending() {
	if _, err := s.booking.ExpirePending(context.Background()); err != nil {
		log.Error().Err(err).Msg("pending expiry sweep failed")
	}
}
