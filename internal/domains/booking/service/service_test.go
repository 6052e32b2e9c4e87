package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"glow/config"
	kafkaMocks "glow/infras/kafka/mocks"
	"glow/infras/otel/mocks"
	"glow/infras/stripe"
	stripeMocks "glow/infras/stripe/mocks"
	bookingMocks "glow/internal/domains/booking/mocks"
	"glow/internal/domains/booking/model"
	"glow/internal/domains/booking/model/dto"
	"glow/internal/domains/booking/repository"
	"glow/internal/domains/booking/service"
	clientMocks "glow/internal/domains/client/mocks"
	clientModel "glow/internal/domains/client/model"
	slotMocks "glow/internal/domains/slot/mocks"
	slotModel "glow/internal/domains/slot/model"
	cacheMocks "glow/shared/cache/mocks"
	"glow/shared/failure"
	"glow/shared/timezone"
)

type bookingMockSet struct {
	repo      *bookingMocks.MockBooking
	slotRepo  *slotMocks.MockSlot
	client    *clientMocks.MockClient
	cache     *cacheMocks.MockRedisCache
	gateway   *stripeMocks.MockGateway
	publisher *kafkaMocks.MockPublisher
}

func newBookingService(t *testing.T) (service.Booking, bookingMockSet) {
	t.Helper()

	ctrl := gomock.NewController(t)

	m := bookingMockSet{
		repo:      bookingMocks.NewMockBooking(ctrl),
		slotRepo:  slotMocks.NewMockSlot(ctrl),
		client:    clientMocks.NewMockClient(ctrl),
		cache:     cacheMocks.NewMockRedisCache(ctrl),
		gateway:   stripeMocks.NewMockGateway(ctrl),
		publisher: kafkaMocks.NewMockPublisher(ctrl),
	}

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Payment.TimeoutSeconds = 10
	cfg.Payment.MaxAttempts = 1
	cfg.Payment.RetryBackoffMs = 1
	cfg.Booking.PendingExpiryMinutes = 30
	cfg.Reminder.LeadHours = 24
	cfg.Kafka.Topic = "booking.events"

	svc := service.New(m.repo, m.slotRepo, m.client, cfg, m.cache, m.gateway, m.publisher, mocks.NewOtel())

	return svc, m
}

func TestBookingService_Reserve(t *testing.T) {
	consented := clientModel.Client{ID: "client-id", ChatID: "12345", ConsentGiven: true}
	openSlot := slotModel.Slot{
		ID:              "slot-id",
		ServiceCategory: "haircut",
		PriceCZK:        800,
		Status:          slotModel.StatusAvailable,
	}
	intent := &stripe.Intent{ID: "pi_123", Amount: 800, Currency: "czk"}

	req := dto.ReserveRequest{SlotID: "slot-id", ClientID: "client-id", Notes: "first visit"}

	tests := []struct {
		name      string
		setupMock func(m bookingMockSet)
		wantErr   bool
		wantCode  int
	}{
		{
			name: "successful reservation",
			setupMock: func(m bookingMockSet) {
				m.client.EXPECT().GetByID(gomock.Any(), "client-id").Return(consented, nil)
				m.slotRepo.EXPECT().GetByID(gomock.Any(), "slot-id").Return(openSlot, nil)
				m.repo.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(nil)
				m.gateway.EXPECT().
					CreateIntent(gomock.Any(), int64(800), gomock.Any(), "12345").
					Return(intent, nil)
				m.repo.EXPECT().
					UpdatePayment(gomock.Any(), gomock.Any(), "pi_123", model.PaymentStatusCreated).
					Return(nil)
				m.publisher.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)
				m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: false,
		},
		{
			name: "client not found",
			setupMock: func(m bookingMockSet) {
				m.client.EXPECT().GetByID(gomock.Any(), "client-id").Return(clientModel.Client{}, nil)
			},
			wantErr:  true,
			wantCode: 404,
		},
		{
			name: "consent missing",
			setupMock: func(m bookingMockSet) {
				m.client.EXPECT().
					GetByID(gomock.Any(), "client-id").
					Return(clientModel.Client{ID: "client-id", ConsentGiven: false}, nil)
			},
			wantErr:  true,
			wantCode: 403,
		},
		{
			name: "slot not found",
			setupMock: func(m bookingMockSet) {
				m.client.EXPECT().GetByID(gomock.Any(), "client-id").Return(consented, nil)
				m.slotRepo.EXPECT().GetByID(gomock.Any(), "slot-id").Return(slotModel.Slot{}, nil)
			},
			wantErr:  true,
			wantCode: 404,
		},
		{
			name: "slot lost to concurrent reservation",
			setupMock: func(m bookingMockSet) {
				m.client.EXPECT().GetByID(gomock.Any(), "client-id").Return(consented, nil)
				m.slotRepo.EXPECT().GetByID(gomock.Any(), "slot-id").Return(openSlot, nil)
				m.repo.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(repository.ErrSlotUnavailable)
			},
			wantErr:  true,
			wantCode: 409,
		},
		{
			name: "payment intent failure rolls back the reservation",
			setupMock: func(m bookingMockSet) {
				m.client.EXPECT().GetByID(gomock.Any(), "client-id").Return(consented, nil)
				m.slotRepo.EXPECT().GetByID(gomock.Any(), "slot-id").Return(openSlot, nil)
				m.repo.EXPECT().Reserve(gomock.Any(), gomock.Any()).Return(nil)
				m.gateway.EXPECT().
					CreateIntent(gomock.Any(), int64(800), gomock.Any(), "12345").
					Return(nil, errors.New("processor timeout"))
				m.repo.EXPECT().
					Release(gomock.Any(), gomock.Any(), []string{model.StatusPending}).
					Return(true, nil)
			},
			wantErr:  true,
			wantCode: 502,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newBookingService(t)
			tt.setupMock(m)

			result, err := svc.Reserve(context.Background(), req)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, model.StatusPending, result.Status)
				assert.Equal(t, "pi_123", result.PaymentIntentID)
			}
		})
	}
}

func TestBookingService_Cancel(t *testing.T) {
	intentID := "pi_123"
	paymentStatus := model.PaymentStatusSucceeded

	paidBooking := model.Booking{
		ID:              "booking-id",
		ClientID:        "client-id",
		SlotID:          "slot-id",
		Status:          model.StatusPaid,
		PaymentIntentID: &intentID,
		PaymentStatus:   &paymentStatus,
	}
	pendingBooking := model.Booking{
		ID:       "booking-id",
		ClientID: "client-id",
		SlotID:   "slot-id",
		Status:   model.StatusPending,
	}

	tests := []struct {
		name      string
		setupMock func(m bookingMockSet)
		wantErr   bool
		wantCode  int
	}{
		{
			name: "cancel pending booking frees slot without refund",
			setupMock: func(m bookingMockSet) {
				m.repo.EXPECT().GetByID(gomock.Any(), "booking-id").Return(pendingBooking, nil)
				m.repo.EXPECT().
					Release(gomock.Any(), "booking-id", model.LiveStatuses).
					Return(true, nil)
				m.publisher.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).Times(2)
				m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: false,
		},
		{
			name: "cancel paid booking issues refund",
			setupMock: func(m bookingMockSet) {
				m.repo.EXPECT().GetByID(gomock.Any(), "booking-id").Return(paidBooking, nil)
				m.repo.EXPECT().
					Release(gomock.Any(), "booking-id", model.LiveStatuses).
					Return(true, nil)
				m.gateway.EXPECT().Refund(gomock.Any(), "pi_123").Return(nil)
				m.repo.EXPECT().
					UpdatePayment(gomock.Any(), "booking-id", "pi_123", model.PaymentStatusRefunded).
					Return(nil)
				m.publisher.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).Times(2)
				m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: false,
		},
		{
			name: "refund failure does not undo the cancellation",
			setupMock: func(m bookingMockSet) {
				m.repo.EXPECT().GetByID(gomock.Any(), "booking-id").Return(paidBooking, nil)
				m.repo.EXPECT().
					Release(gomock.Any(), "booking-id", model.LiveStatuses).
					Return(true, nil)
				m.gateway.EXPECT().Refund(gomock.Any(), "pi_123").Return(errors.New("processor down"))
				m.publisher.EXPECT().
					SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil).
					Times(2)
				m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).Times(2)
				m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: false,
		},
		{
			name: "booking not found",
			setupMock: func(m bookingMockSet) {
				m.repo.EXPECT().GetByID(gomock.Any(), "booking-id").Return(model.Booking{}, nil)
			},
			wantErr:  true,
			wantCode: 404,
		},
		{
			name: "completed booking cannot be cancelled",
			setupMock: func(m bookingMockSet) {
				m.repo.EXPECT().
					GetByID(gomock.Any(), "booking-id").
					Return(model.Booking{ID: "booking-id", Status: model.StatusCompleted}, nil)
			},
			wantErr:  true,
			wantCode: 422,
		},
		{
			name: "lost race to another transition",
			setupMock: func(m bookingMockSet) {
				m.repo.EXPECT().GetByID(gomock.Any(), "booking-id").Return(pendingBooking, nil)
				m.repo.EXPECT().
					Release(gomock.Any(), "booking-id", model.LiveStatuses).
					Return(false, nil)
			},
			wantErr:  true,
			wantCode: 409,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newBookingService(t)
			tt.setupMock(m)

			err := svc.Cancel(context.Background(), "booking-id", dto.CancelRequest{Reason: "client request"})

			if tt.wantErr {
				assert.Error(t, err)
				if tt.wantCode != 0 {
					assert.Equal(t, tt.wantCode, failure.GetCode(err))
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBookingService_ExpirePending(t *testing.T) {
	stale := []model.Booking{
		{ID: "booking-1", SlotID: "slot-1", ClientID: "client-1", Status: model.StatusPending},
		{ID: "booking-2", SlotID: "slot-2", ClientID: "client-2", Status: model.StatusPending},
	}

	tests := []struct {
		name        string
		setupMock   func(m bookingMockSet)
		wantErr     bool
		wantExpired int
	}{
		{
			name: "expires all stale pending bookings",
			setupMock: func(m bookingMockSet) {
				m.repo.EXPECT().ListExpiredPending(gomock.Any(), gomock.Any()).Return(stale, nil)
				m.repo.EXPECT().
					Release(gomock.Any(), gomock.Any(), []string{model.StatusPending}).
					Return(true, nil).
					Times(2)
				m.publisher.EXPECT().
					SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil).
					Times(2)
				m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
				m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
			},
			wantErr:     false,
			wantExpired: 2,
		},
		{
			name: "booking paid between listing and release is left alone",
			setupMock: func(m bookingMockSet) {
				m.repo.EXPECT().ListExpiredPending(gomock.Any(), gomock.Any()).Return(stale[:1], nil)
				m.repo.EXPECT().
					Release(gomock.Any(), "booking-1", []string{model.StatusPending}).
					Return(false, nil)
			},
			wantErr:     false,
			wantExpired: 0,
		},
		{
			name: "listing error",
			setupMock: func(m bookingMockSet) {
				m.repo.EXPECT().
					ListExpiredPending(gomock.Any(), gomock.Any()).
					Return(nil, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newBookingService(t)
			tt.setupMock(m)

			expired, err := svc.ExpirePending(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantExpired, expired)
			}
		})
	}
}

func TestBookingService_ListNeedingReminders(t *testing.T) {
	svc, m := newBookingService(t)

	due := []model.Booking{
		{ID: "booking-1", Status: model.StatusPaid},
		{ID: "booking-2", Status: model.StatusConfirmed},
	}

	now := timezone.Now()

	m.repo.EXPECT().
		ListDueReminders(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, from, to time.Time) ([]model.Booking, error) {
			assert.WithinDuration(t, now, from, 5*time.Second)
			assert.WithinDuration(t, now.Add(24*time.Hour), to, 5*time.Second)

			return due, nil
		})

	result, err := svc.ListNeedingReminders(context.Background())

	assert.NoError(t, err)
	assert.Len(t, result.Bookings, 2)
}
