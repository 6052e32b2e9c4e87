package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"glow/config"
	"glow/infras/kafka"
	"glow/infras/otel"
	"glow/infras/stripe"
	"glow/internal/domains/booking/model"
	"glow/internal/domains/booking/model/dto"
	"glow/internal/domains/booking/repository"
	clientRepo "glow/internal/domains/client/repository"
	slotRepo "glow/internal/domains/slot/repository"
	"glow/shared"
	"glow/shared/cache"
	"glow/shared/constant"
	"glow/shared/failure"
	"glow/shared/retry"
	"glow/shared/timezone"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetBooking = "booking:get"
	cacheGetSlot    = "slot:get"
	cacheListSlots  = "slot:list"
)

type Booking interface {
	Reserve(ctx context.Context, req dto.ReserveRequest) (dto.BookingResponse, error)
	Cancel(ctx context.Context, id string, req dto.CancelRequest) error
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	ExpirePending(ctx context.Context) (int, error)
	ListNeedingReminders(ctx context.Context) (dto.BookingsResponse, error)
}

type serviceImpl struct {
	repo       repository.Booking
	slotRepo   slotRepo.Slot
	clientRepo clientRepo.Client
	cfg        *config.Config
	cache      cache.RedisCache
	gateway    stripe.Gateway
	publisher  kafka.Publisher
	otel       otel.Otel

	paymentRetry retry.Policy
}

func New(
	repo repository.Booking,
	slotRepo slotRepo.Slot,
	clientRepo clientRepo.Client,
	cfg *config.Config,
	cache cache.RedisCache,
	gateway stripe.Gateway,
	publisher kafka.Publisher,
	otel otel.Otel,
) Booking {
	return &serviceImpl{
		repo:       repo,
		slotRepo:   slotRepo,
		clientRepo: clientRepo,
		cfg:        cfg,
		cache:      cache,
		gateway:    gateway,
		publisher:  publisher,
		otel:       otel,
		paymentRetry: retry.NewPolicy(
			cfg.Payment.MaxAttempts,
			time.Duration(cfg.Payment.RetryBackoffMs)*time.Millisecond,
			func(err error) bool { return !failure.IsCode(err, http.StatusBadRequest) },
		),
	}
}

// Reserve claims the slot for the client and creates the payment intent. The
// slot claim and the pending booking commit atomically; if the payment intent
// cannot be created afterwards, the booking is rolled back so the slot is not
// held hostage by a reservation that can never be paid.
func (s *serviceImpl) Reserve(ctx context.Context, req dto.ReserveRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Reserve")
	defer scope.End()
	defer scope.TraceIfError(err)

	client, err := s.clientRepo.GetByID(ctx, req.ClientID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get client")

		return res, fmt.Errorf("failed to get client: %w", err)
	}

	if client.ID == constant.Empty {
		return res, failure.NotFound("client not found") // nolint:wrapcheck
	}

	if !client.ConsentGiven {
		return res, failure.Forbidden("consent is required before booking") // nolint:wrapcheck
	}

	slot, err := s.slotRepo.GetByID(ctx, req.SlotID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get slot")

		return res, fmt.Errorf("failed to get slot: %w", err)
	}

	if slot.ID == constant.Empty {
		return res, failure.NotFound("slot not found") // nolint:wrapcheck
	}

	booking := req.ToModel(slot)

	err = s.repo.Reserve(ctx, booking)
	if errors.Is(err, repository.ErrSlotUnavailable) {
		return res, failure.Conflict("slot is no longer available") // nolint:wrapcheck
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to reserve slot")

		return res, fmt.Errorf("failed to reserve slot: %w", err)
	}

	intent, err := s.createIntent(ctx, booking, client.ChatID)
	if err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to create payment intent, rolling back reservation")

		if _, releaseErr := s.repo.Release(ctx, booking.ID, []string{model.StatusPending}); releaseErr != nil {
			log.Error().Err(releaseErr).Str("bookingID", booking.ID).Msg("failed to roll back reservation")
		}

		return res, failure.BadGateway("payment processor is unavailable") // nolint:wrapcheck
	}

	if err = s.repo.UpdatePayment(ctx, booking.ID, intent.ID, model.PaymentStatusCreated); err != nil {
		log.Error().Err(err).Msg("failed to attach payment intent")

		return res, fmt.Errorf("failed to attach payment intent: %w", err)
	}

	intentID := intent.ID
	paymentStatus := model.PaymentStatusCreated
	booking.PaymentIntentID = &intentID
	booking.PaymentStatus = &paymentStatus

	s.publishEvent(ctx, dto.LifecycleEvent{
		Type:      dto.EventBookingCreated,
		BookingID: booking.ID,
		SlotID:    booking.SlotID,
		ClientID:  booking.ClientID,
		IntentID:  intent.ID,
		At:        timezone.Now(),
	})

	s.invalidateSlotCaches(ctx, booking.SlotID)

	res.FromModel(booking)

	return res, nil
}

// Cancel moves the booking to cancelled and frees its slot. A refund is
// issued when the booking had been paid; refund failures are logged and
// published for reconciliation but do not undo the local cancellation.
func (s *serviceImpl) Cancel(ctx context.Context, id string, req dto.CancelRequest) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return failure.NotFound("booking not found") // nolint:wrapcheck
	}

	if !booking.IsLive() {
		return failure.UnprocessableEntity(fmt.Sprintf("booking cannot be cancelled from status %s", booking.Status)) // nolint:wrapcheck
	}

	released, err := s.repo.Release(ctx, id, model.LiveStatuses)
	if err != nil {
		log.Error().Err(err).Msg("failed to cancel booking")

		return fmt.Errorf("failed to cancel booking: %w", err)
	}

	if !released {
		return failure.Conflict("booking was already transitioned") // nolint:wrapcheck
	}

	if booking.Status == model.StatusPaid && booking.PaymentIntentID != nil {
		s.refund(ctx, booking)
	}

	s.publishEvent(ctx, dto.LifecycleEvent{
		Type:      dto.EventBookingCancelled,
		BookingID: booking.ID,
		SlotID:    booking.SlotID,
		ClientID:  booking.ClientID,
		Reason:    req.Reason,
		At:        timezone.Now(),
	})

	s.invalidateBookingCaches(ctx, booking)

	return nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return res, failure.NotFound("booking not found") // nolint:wrapcheck
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

// ExpirePending releases pending bookings older than the configured
// threshold. Runs from the sweep timer; each release is conditional, so a
// booking paid between the listing and the release is left alone.
func (s *serviceImpl) ExpirePending(ctx context.Context) (expired int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.ExpirePending")
	defer scope.End()
	defer scope.TraceIfError(err)

	cutoff := timezone.Now().Add(-time.Duration(s.cfg.Booking.PendingExpiryMinutes) * time.Minute)

	stale, err := s.repo.ListExpiredPending(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Msg("failed to list expired pending bookings")

		return 0, fmt.Errorf("failed to list expired pending bookings: %w", err)
	}

	for _, booking := range stale {
		released, err := s.repo.Release(ctx, booking.ID, []string{model.StatusPending})
		if err != nil {
			log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to expire pending booking")

			continue
		}

		if !released {
			continue
		}

		expired++

		s.publishEvent(ctx, dto.LifecycleEvent{
			Type:      dto.EventBookingExpired,
			BookingID: booking.ID,
			SlotID:    booking.SlotID,
			ClientID:  booking.ClientID,
			At:        timezone.Now(),
		})

		s.invalidateBookingCaches(ctx, booking)
	}

	if expired > 0 {
		log.Info().Int("expired", expired).Msg("released expired pending bookings")
	}

	return expired, nil
}

func (s *serviceImpl) ListNeedingReminders(ctx context.Context) (res dto.BookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".booking.ListNeedingReminders")
	defer scope.End()
	defer scope.TraceIfError(err)

	now := timezone.Now()
	window := time.Duration(s.cfg.Reminder.LeadHours) * time.Hour

	bookings, err := s.repo.ListDueReminders(ctx, now, now.Add(window))
	if err != nil {
		log.Error().Err(err).Msg("failed to list bookings needing reminders")

		return res, fmt.Errorf("failed to list bookings needing reminders: %w", err)
	}

	res.FromModels(bookings)

	return res, nil
}

func (s *serviceImpl) createIntent(ctx context.Context, booking model.Booking, clientChatID string) (*stripe.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Payment.TimeoutSeconds)*time.Second)
	defer cancel()

	var intent *stripe.Intent

	err := s.paymentRetry.Do(ctx, "create payment intent", func() error {
		var opErr error
		intent, opErr = s.gateway.CreateIntent(ctx, booking.PriceCZK, booking.ID, clientChatID)

		return opErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return intent, nil
}

func (s *serviceImpl) refund(ctx context.Context, booking model.Booking) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.Payment.TimeoutSeconds)*time.Second)
	defer cancel()

	err := s.paymentRetry.Do(ctx, "refund payment", func() error {
		return s.gateway.Refund(ctx, *booking.PaymentIntentID)
	})
	if err != nil {
		log.Error().Err(err).
			Str("bookingID", booking.ID).
			Str("intentID", *booking.PaymentIntentID).
			Msg("refund failed, needs manual reconciliation")

		s.publishEvent(ctx, dto.LifecycleEvent{
			Type:      dto.EventRefundFailed,
			BookingID: booking.ID,
			IntentID:  *booking.PaymentIntentID,
			Reason:    err.Error(),
			At:        timezone.Now(),
		})

		return
	}

	if err := s.repo.UpdatePayment(ctx, booking.ID, *booking.PaymentIntentID, model.PaymentStatusRefunded); err != nil {
		log.Error().Err(err).Str("bookingID", booking.ID).Msg("failed to record refund")
	}
}

func (s *serviceImpl) publishEvent(ctx context.Context, event dto.LifecycleEvent) {
	if err := s.publisher.SendMessages(ctx, s.cfg.Kafka.Topic, kafka.Message{
		Key:   event.BookingID,
		Value: event,
	}); err != nil {
		log.Error().Err(err).Str("event", event.Type).Msg("failed to publish lifecycle event")
	}
}

func (s *serviceImpl) invalidateSlotCaches(ctx context.Context, slotID string) {
	c := context.WithoutCancel(ctx)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetSlot, slotID)); err != nil {
		log.Error().Err(err).Msg("failed to delete slot from cache")
	}

	shared.InvalidateCaches(c, s.cache, cacheListSlots)
}

func (s *serviceImpl) invalidateBookingCaches(ctx context.Context, booking model.Booking) {
	c := context.WithoutCancel(ctx)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, booking.ID)); err != nil {
		log.Error().Err(err).Msg("failed to delete booking from cache")
	}

	s.invalidateSlotCaches(ctx, booking.SlotID)
}
