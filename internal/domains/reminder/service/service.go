package service

import (
	"context"
	"fmt"
	"time"

	"glow/config"
	"glow/infras/otel"
	"glow/infras/telegram"
	bookingRepo "glow/internal/domains/booking/repository"
	clientRepo "glow/internal/domains/client/repository"
	slotRepo "glow/internal/domains/slot/repository"
	"glow/shared/constant"
	"glow/shared/retry"
	"glow/shared/timezone"

	"github.com/rs/zerolog/log"
)

const slotTimeFormat = "02.01.2006 at 15:04"

// Scheduler sweeps upcoming bookings and dispatches appointment reminders.
// Multiple instances may sweep concurrently; the per-booking claim keeps
// dispatch at-most-once.
type Scheduler interface {
	Sweep(ctx context.Context) (int, error)
}

type serviceImpl struct {
	repo       bookingRepo.Booking
	slotRepo   slotRepo.Slot
	clientRepo clientRepo.Client
	cfg        *config.Config
	notifier   telegram.Notifier
	otel       otel.Otel

	dispatchRetry retry.Policy
}

func New(
	repo bookingRepo.Booking,
	slotRepo slotRepo.Slot,
	clientRepo clientRepo.Client,
	cfg *config.Config,
	notifier telegram.Notifier,
	otel otel.Otel,
) Scheduler {
	return &serviceImpl{
		repo:       repo,
		slotRepo:   slotRepo,
		clientRepo: clientRepo,
		cfg:        cfg,
		notifier:   notifier,
		otel:       otel,
		dispatchRetry: retry.NewPolicy(
			cfg.Reminder.DispatchMaxAttempts,
			time.Duration(cfg.Reminder.DispatchBackoffMs)*time.Millisecond,
			nil,
		),
	}
}

// Sweep finds bookings whose slot starts inside the lead window and sends
// each client one reminder. The booking is claimed before dispatch: a sweep
// running on another instance that loses the claim skips the booking, so a
// client never receives the reminder twice. A dispatch failure after a won
// claim is logged as a permanent failure rather than retried on the next
// sweep.
func (s *serviceImpl) Sweep(ctx context.Context) (sent int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".reminder.Sweep")
	defer scope.End()
	defer scope.TraceIfError(err)

	now := timezone.Now()
	window := time.Duration(s.cfg.Reminder.LeadHours) * time.Hour

	due, err := s.repo.ListDueReminders(ctx, now, now.Add(window))
	if err != nil {
		log.Error().Err(err).Msg("failed to list due reminders")

		return 0, fmt.Errorf("failed to list due reminders: %w", err)
	}

	if len(due) == 0 {
		return 0, nil
	}

	log.Info().Int("due", len(due)).Msg("processing bookings for reminders")

	slotIDs := make([]string, 0, len(due))
	clientIDs := make([]string, 0, len(due))

	for _, booking := range due {
		slotIDs = append(slotIDs, booking.SlotID)
		clientIDs = append(clientIDs, booking.ClientID)
	}

	slots, err := s.slotRepo.GetByIDs(ctx, slotIDs)
	if err != nil {
		log.Error().Err(err).Msg("failed to batch get slots")

		return 0, fmt.Errorf("failed to batch get slots: %w", err)
	}

	clients, err := s.clientRepo.GetByIDs(ctx, clientIDs)
	if err != nil {
		log.Error().Err(err).Msg("failed to batch get clients")

		return 0, fmt.Errorf("failed to batch get clients: %w", err)
	}

	for _, booking := range due {
		slot, ok := slots[booking.SlotID]
		if !ok {
			log.Warn().Str("bookingID", booking.ID).Str("slotID", booking.SlotID).Msg("slot not found for due reminder")

			continue
		}

		client, ok := clients[booking.ClientID]
		if !ok {
			log.Warn().Str("bookingID", booking.ID).Str("clientID", booking.ClientID).Msg("client not found for due reminder")

			continue
		}

		claimed, err := s.repo.ConditionalMarkReminderSent(ctx, booking.ID, timezone.Now())
		if err != nil {
			log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to claim reminder")

			continue
		}

		if !claimed {
			// Another instance got there first.
			continue
		}

		if err := s.dispatch(ctx, client.ChatID, slot.StartTime); err != nil {
			log.Error().Err(err).
				Str("bookingID", booking.ID).
				Str("chatID", client.ChatID).
				Msg("reminder dispatch failed permanently")

			continue
		}

		sent++

		log.Info().Str("bookingID", booking.ID).Msg("reminder sent")
	}

	return sent, nil
}

func (s *serviceImpl) dispatch(ctx context.Context, chatID string, startTime time.Time) error {
	message := fmt.Sprintf(
		"🔔 Reminder: You have an appointment tomorrow!\n\nTime: %s\n\nSee you soon! 💅",
		timezone.Format(startTime, slotTimeFormat),
	)

	err := s.dispatchRetry.Do(ctx, "send reminder", func() error {
		return s.notifier.Send(ctx, chatID, message)
	})
	if err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}

	return nil
}
