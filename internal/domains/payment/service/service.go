package service

import (
	"context"
	"fmt"

	"glow/config"
	"glow/infras/kafka"
	"glow/infras/otel"
	"glow/infras/stripe"
	bookingModel "glow/internal/domains/booking/model"
	bookingDto "glow/internal/domains/booking/model/dto"
	bookingRepo "glow/internal/domains/booking/repository"
	"glow/shared"
	"glow/shared/cache"
	"glow/shared/constant"
	"glow/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	cacheDedupEvent = "payevent"
	cacheGetBooking = "booking:get"
	cacheGetSlot    = "slot:get"
	cacheListSlots  = "slot:list"
)

// Reconciler applies verified payment processor callbacks to bookings.
type Reconciler interface {
	HandleEvent(ctx context.Context, event stripe.WebhookEvent) error
}

type serviceImpl struct {
	repo      bookingRepo.Booking
	cfg       *config.Config
	cache     cache.RedisCache
	publisher kafka.Publisher
	otel      otel.Otel
}

func New(repo bookingRepo.Booking, cfg *config.Config, cache cache.RedisCache, publisher kafka.Publisher, otel otel.Otel) Reconciler {
	return &serviceImpl{
		repo:      repo,
		cfg:       cfg,
		cache:     cache,
		publisher: publisher,
		otel:      otel,
	}
}

// HandleEvent is idempotent: duplicate deliveries inside the dedup window are
// acknowledged without effect, and every status transition is conditional, so
// a duplicate that slips past the window still cannot apply twice.
func (s *serviceImpl) HandleEvent(ctx context.Context, event stripe.WebhookEvent) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".payment.HandleEvent")
	defer scope.End()
	defer scope.TraceIfError(err)

	if event.Type == stripe.EventTypeIgnored {
		return nil
	}

	fresh, err := s.cache.SetIfAbsent(ctx,
		shared.BuildCacheKey(cacheDedupEvent, event.ID), event.IntentID, s.cfg.Payment.DedupWindowSeconds)
	if err != nil {
		// Conditional updates below keep duplicates harmless, so a dedup
		// store outage does not block reconciliation.
		log.Error().Err(err).Str("eventID", event.ID).Msg("failed to check event dedup, processing anyway")
	} else if !fresh {
		log.Info().Str("eventID", event.ID).Msg("duplicate payment event acknowledged")

		return nil
	}

	booking, err := s.findBooking(ctx, event)
	if err != nil {
		return err
	}

	if booking.ID == constant.Empty {
		log.Warn().
			Str("eventID", event.ID).
			Str("intentID", event.IntentID).
			Msg("payment event matches no booking, flagged for manual review")

		s.publishEvent(ctx, bookingDto.LifecycleEvent{
			Type:     bookingDto.EventPaymentUnmatched,
			IntentID: event.IntentID,
			Reason:   fmt.Sprintf("event %s matches no booking", event.ID),
			At:       timezone.Now(),
		})

		return nil
	}

	switch event.Type {
	case stripe.EventTypeSucceeded:
		return s.applySucceeded(ctx, booking, event)
	case stripe.EventTypeFailed:
		return s.applyFailed(ctx, booking, event)
	}

	return nil
}

func (s *serviceImpl) findBooking(ctx context.Context, event stripe.WebhookEvent) (bookingModel.Booking, error) {
	if event.BookingID != constant.Empty {
		booking, err := s.repo.GetByID(ctx, event.BookingID)
		if err != nil {
			log.Error().Err(err).Msg("failed to get booking for payment event")

			return bookingModel.Booking{}, fmt.Errorf("failed to get booking for payment event: %w", err)
		}

		if booking.ID != constant.Empty {
			return booking, nil
		}
	}

	booking, err := s.repo.GetByPaymentIntent(ctx, event.IntentID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking by payment intent")

		return bookingModel.Booking{}, fmt.Errorf("failed to get booking by payment intent: %w", err)
	}

	return booking, nil
}

func (s *serviceImpl) applySucceeded(ctx context.Context, booking bookingModel.Booking, event stripe.WebhookEvent) error {
	updated, err := s.repo.ConditionalUpdateStatus(ctx, booking.ID,
		[]string{bookingModel.StatusPending, bookingModel.StatusConfirmed}, bookingModel.StatusPaid)
	if err != nil {
		log.Error().Err(err).Msg("failed to mark booking paid")

		return fmt.Errorf("failed to mark booking paid: %w", err)
	}

	if !updated {
		log.Info().
			Str("bookingID", booking.ID).
			Str("status", booking.Status).
			Msg("payment succeeded for booking no longer awaiting payment")

		return nil
	}

	if err := s.repo.UpdatePayment(ctx, booking.ID, event.IntentID, bookingModel.PaymentStatusSucceeded); err != nil {
		log.Error().Err(err).Msg("failed to record payment status")

		return fmt.Errorf("failed to record payment status: %w", err)
	}

	s.publishEvent(ctx, bookingDto.LifecycleEvent{
		Type:      bookingDto.EventBookingPaid,
		BookingID: booking.ID,
		SlotID:    booking.SlotID,
		ClientID:  booking.ClientID,
		IntentID:  event.IntentID,
		At:        timezone.Now(),
	})

	s.invalidateCaches(ctx, booking)

	return nil
}

func (s *serviceImpl) applyFailed(ctx context.Context, booking bookingModel.Booking, event stripe.WebhookEvent) error {
	// A failure arriving after the success callback is stale provider noise.
	if booking.Status == bookingModel.StatusPaid {
		log.Info().Str("bookingID", booking.ID).Msg("ignoring payment failure after successful payment")

		return nil
	}

	released, err := s.repo.Release(ctx, booking.ID,
		[]string{bookingModel.StatusPending, bookingModel.StatusConfirmed})
	if err != nil {
		log.Error().Err(err).Msg("failed to release booking on payment failure")

		return fmt.Errorf("failed to release booking on payment failure: %w", err)
	}

	if !released {
		log.Info().Str("bookingID", booking.ID).Msg("booking already transitioned, payment failure is a no-op")

		return nil
	}

	if err := s.repo.UpdatePayment(ctx, booking.ID, event.IntentID, bookingModel.PaymentStatusFailed); err != nil {
		log.Error().Err(err).Msg("failed to record payment failure")

		return fmt.Errorf("failed to record payment failure: %w", err)
	}

	s.publishEvent(ctx, bookingDto.LifecycleEvent{
		Type:      bookingDto.EventBookingPaymentFailed,
		BookingID: booking.ID,
		SlotID:    booking.SlotID,
		ClientID:  booking.ClientID,
		IntentID:  event.IntentID,
		At:        timezone.Now(),
	})

	s.invalidateCaches(ctx, booking)

	return nil
}

func (s *serviceImpl) publishEvent(ctx context.Context, event bookingDto.LifecycleEvent) {
	if err := s.publisher.SendMessages(ctx, s.cfg.Kafka.Topic, kafka.Message{
		Key:   event.BookingID,
		Value: event,
	}); err != nil {
		log.Error().Err(err).Str("event", event.Type).Msg("failed to publish lifecycle event")
	}
}

func (s *serviceImpl) invalidateCaches(ctx context.Context, booking bookingModel.Booking) {
	c := context.WithoutCancel(ctx)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, booking.ID)); err != nil {
		log.Error().Err(err).Msg("failed to delete booking from cache")
	}

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetSlot, booking.SlotID)); err != nil {
		log.Error().Err(err).Msg("failed to delete slot from cache")
	}

	shared.InvalidateCaches(c, s.cache, cacheListSlots)
}
