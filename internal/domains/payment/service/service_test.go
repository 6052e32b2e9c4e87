package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"glow/config"
	kafkaMocks "glow/infras/kafka/mocks"
	"glow/infras/otel/mocks"
	"glow/infras/stripe"
	bookingMocks "glow/internal/domains/booking/mocks"
	bookingModel "glow/internal/domains/booking/model"
	"glow/internal/domains/payment/service"
	cacheMocks "glow/shared/cache/mocks"
)

type reconcilerMockSet struct {
	repo      *bookingMocks.MockBooking
	cache     *cacheMocks.MockRedisCache
	publisher *kafkaMocks.MockPublisher
}

func newReconciler(t *testing.T) (service.Reconciler, reconcilerMockSet) {
	t.Helper()

	ctrl := gomock.NewController(t)

	m := reconcilerMockSet{
		repo:      bookingMocks.NewMockBooking(ctrl),
		cache:     cacheMocks.NewMockRedisCache(ctrl),
		publisher: kafkaMocks.NewMockPublisher(ctrl),
	}

	cfg := &config.Config{}
	cfg.Payment.DedupWindowSeconds = 90000
	cfg.Kafka.Topic = "booking.events"

	svc := service.New(m.repo, cfg, m.cache, m.publisher, mocks.NewOtel())

	return svc, m
}

func TestReconciler_HandleEvent_Succeeded(t *testing.T) {
	pendingBooking := bookingModel.Booking{
		ID:       "booking-id",
		ClientID: "client-id",
		SlotID:   "slot-id",
		Status:   bookingModel.StatusPending,
	}

	succeeded := stripe.WebhookEvent{
		ID:        "evt_1",
		Type:      stripe.EventTypeSucceeded,
		IntentID:  "pi_123",
		BookingID: "booking-id",
	}

	tests := []struct {
		name      string
		event     stripe.WebhookEvent
		setupMock func(m reconcilerMockSet)
		wantErr   bool
	}{
		{
			name:  "marks pending booking paid",
			event: succeeded,
			setupMock: func(m reconcilerMockSet) {
				m.cache.EXPECT().
					SetIfAbsent(gomock.Any(), "payevent:evt_1", gomock.Any(), 90000).
					Return(true, nil)
				m.repo.EXPECT().GetByID(gomock.Any(), "booking-id").Return(pendingBooking, nil)
				m.repo.EXPECT().
					ConditionalUpdateStatus(gomock.Any(), "booking-id",
						[]string{bookingModel.StatusPending, bookingModel.StatusConfirmed}, bookingModel.StatusPaid).
					Return(true, nil)
				m.repo.EXPECT().
					UpdatePayment(gomock.Any(), "booking-id", "pi_123", bookingModel.PaymentStatusSucceeded).
					Return(nil)
				m.publisher.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).Times(2)
				m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: false,
		},
		{
			name:  "duplicate event is acknowledged without effect",
			event: succeeded,
			setupMock: func(m reconcilerMockSet) {
				m.cache.EXPECT().
					SetIfAbsent(gomock.Any(), "payevent:evt_1", gomock.Any(), 90000).
					Return(false, nil)
			},
			wantErr: false,
		},
		{
			name:  "booking no longer awaiting payment is a no-op",
			event: succeeded,
			setupMock: func(m reconcilerMockSet) {
				m.cache.EXPECT().
					SetIfAbsent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(true, nil)
				m.repo.EXPECT().
					GetByID(gomock.Any(), "booking-id").
					Return(bookingModel.Booking{ID: "booking-id", Status: bookingModel.StatusCancelled}, nil)
				m.repo.EXPECT().
					ConditionalUpdateStatus(gomock.Any(), "booking-id", gomock.Any(), bookingModel.StatusPaid).
					Return(false, nil)
			},
			wantErr: false,
		},
		{
			name: "unknown intent is acknowledged and flagged",
			event: stripe.WebhookEvent{
				ID:       "evt_2",
				Type:     stripe.EventTypeSucceeded,
				IntentID: "pi_unknown",
			},
			setupMock: func(m reconcilerMockSet) {
				m.cache.EXPECT().
					SetIfAbsent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(true, nil)
				m.repo.EXPECT().
					GetByPaymentIntent(gomock.Any(), "pi_unknown").
					Return(bookingModel.Booking{}, nil)
				m.publisher.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: false,
		},
		{
			name: "ignored event type is acknowledged immediately",
			event: stripe.WebhookEvent{
				ID:   "evt_3",
				Type: stripe.EventTypeIgnored,
			},
			setupMock: func(m reconcilerMockSet) {},
			wantErr:   false,
		},
		{
			name:  "dedup store outage does not block reconciliation",
			event: succeeded,
			setupMock: func(m reconcilerMockSet) {
				m.cache.EXPECT().
					SetIfAbsent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(false, errors.New("redis down"))
				m.repo.EXPECT().GetByID(gomock.Any(), "booking-id").Return(pendingBooking, nil)
				m.repo.EXPECT().
					ConditionalUpdateStatus(gomock.Any(), "booking-id", gomock.Any(), bookingModel.StatusPaid).
					Return(true, nil)
				m.repo.EXPECT().
					UpdatePayment(gomock.Any(), "booking-id", "pi_123", bookingModel.PaymentStatusSucceeded).
					Return(nil)
				m.publisher.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).Times(2)
				m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: false,
		},
		{
			name:  "status update error is returned for redelivery",
			event: succeeded,
			setupMock: func(m reconcilerMockSet) {
				m.cache.EXPECT().
					SetIfAbsent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(true, nil)
				m.repo.EXPECT().GetByID(gomock.Any(), "booking-id").Return(pendingBooking, nil)
				m.repo.EXPECT().
					ConditionalUpdateStatus(gomock.Any(), "booking-id", gomock.Any(), bookingModel.StatusPaid).
					Return(false, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newReconciler(t)
			tt.setupMock(m)

			err := svc.HandleEvent(context.Background(), tt.event)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReconciler_HandleEvent_Failed(t *testing.T) {
	failed := stripe.WebhookEvent{
		ID:        "evt_4",
		Type:      stripe.EventTypeFailed,
		IntentID:  "pi_123",
		BookingID: "booking-id",
	}

	tests := []struct {
		name      string
		booking   bookingModel.Booking
		setupMock func(m reconcilerMockSet)
		wantErr   bool
	}{
		{
			name: "payment failure frees the slot without refund",
			booking: bookingModel.Booking{
				ID:       "booking-id",
				ClientID: "client-id",
				SlotID:   "slot-id",
				Status:   bookingModel.StatusPending,
			},
			setupMock: func(m reconcilerMockSet) {
				m.repo.EXPECT().
					Release(gomock.Any(), "booking-id",
						[]string{bookingModel.StatusPending, bookingModel.StatusConfirmed}).
					Return(true, nil)
				m.repo.EXPECT().
					UpdatePayment(gomock.Any(), "booking-id", "pi_123", bookingModel.PaymentStatusFailed).
					Return(nil)
				m.publisher.EXPECT().SendMessages(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				m.cache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).Times(2)
				m.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: false,
		},
		{
			name: "failure after success is ignored",
			booking: bookingModel.Booking{
				ID:     "booking-id",
				Status: bookingModel.StatusPaid,
			},
			setupMock: func(m reconcilerMockSet) {},
			wantErr:   false,
		},
		{
			name: "booking already cancelled is a no-op",
			booking: bookingModel.Booking{
				ID:     "booking-id",
				Status: bookingModel.StatusCancelled,
			},
			setupMock: func(m reconcilerMockSet) {
				m.repo.EXPECT().
					Release(gomock.Any(), "booking-id", gomock.Any()).
					Return(false, nil)
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newReconciler(t)

			m.cache.EXPECT().
				SetIfAbsent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(true, nil)
			m.repo.EXPECT().GetByID(gomock.Any(), "booking-id").Return(tt.booking, nil)

			tt.setupMock(m)

			err := svc.HandleEvent(context.Background(), failed)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
