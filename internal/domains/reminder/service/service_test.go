package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"glow/config"
	"glow/infras/otel/mocks"
	telegramMocks "glow/infras/telegram/mocks"
	bookingMocks "glow/internal/domains/booking/mocks"
	bookingModel "glow/internal/domains/booking/model"
	clientMocks "glow/internal/domains/client/mocks"
	clientModel "glow/internal/domains/client/model"
	"glow/internal/domains/reminder/service"
	slotMocks "glow/internal/domains/slot/mocks"
	slotModel "glow/internal/domains/slot/model"
	"glow/shared/timezone"
)

type schedulerMockSet struct {
	repo     *bookingMocks.MockBooking
	slotRepo *slotMocks.MockSlot
	client   *clientMocks.MockClient
	notifier *telegramMocks.MockNotifier
}

func newScheduler(t *testing.T) (service.Scheduler, schedulerMockSet) {
	t.Helper()

	ctrl := gomock.NewController(t)

	m := schedulerMockSet{
		repo:     bookingMocks.NewMockBooking(ctrl),
		slotRepo: slotMocks.NewMockSlot(ctrl),
		client:   clientMocks.NewMockClient(ctrl),
		notifier: telegramMocks.NewMockNotifier(ctrl),
	}

	cfg := &config.Config{}
	cfg.Reminder.LeadHours = 24
	cfg.Reminder.DispatchMaxAttempts = 2
	cfg.Reminder.DispatchBackoffMs = 1

	svc := service.New(m.repo, m.slotRepo, m.client, cfg, m.notifier, mocks.NewOtel())

	return svc, m
}

func dueFixtures() ([]bookingModel.Booking, map[string]slotModel.Slot, map[string]clientModel.Client) {
	start := timezone.Now().Add(20 * time.Hour)

	bookings := []bookingModel.Booking{
		{ID: "booking-1", SlotID: "slot-1", ClientID: "client-1", Status: bookingModel.StatusPaid},
		{ID: "booking-2", SlotID: "slot-2", ClientID: "client-2", Status: bookingModel.StatusConfirmed},
	}

	slots := map[string]slotModel.Slot{
		"slot-1": {ID: "slot-1", StartTime: start},
		"slot-2": {ID: "slot-2", StartTime: start.Add(time.Hour)},
	}

	clients := map[string]clientModel.Client{
		"client-1": {ID: "client-1", ChatID: "111"},
		"client-2": {ID: "client-2", ChatID: "222"},
	}

	return bookings, slots, clients
}

func TestScheduler_Sweep(t *testing.T) {
	bookings, slots, clients := dueFixtures()

	tests := []struct {
		name      string
		setupMock func(m schedulerMockSet)
		wantErr   bool
		wantSent  int
	}{
		{
			name: "sends one reminder per due booking",
			setupMock: func(m schedulerMockSet) {
				m.repo.EXPECT().ListDueReminders(gomock.Any(), gomock.Any(), gomock.Any()).Return(bookings, nil)
				m.slotRepo.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(slots, nil)
				m.client.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(clients, nil)
				m.repo.EXPECT().
					ConditionalMarkReminderSent(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(true, nil).
					Times(2)
				m.notifier.EXPECT().Send(gomock.Any(), "111", gomock.Any()).Return(nil)
				m.notifier.EXPECT().Send(gomock.Any(), "222", gomock.Any()).Return(nil)
			},
			wantErr:  false,
			wantSent: 2,
		},
		{
			name: "empty due set does nothing",
			setupMock: func(m schedulerMockSet) {
				m.repo.EXPECT().
					ListDueReminders(gomock.Any(), gomock.Any(), gomock.Any()).
					Return([]bookingModel.Booking{}, nil)
			},
			wantErr:  false,
			wantSent: 0,
		},
		{
			name: "lost claim skips dispatch",
			setupMock: func(m schedulerMockSet) {
				m.repo.EXPECT().ListDueReminders(gomock.Any(), gomock.Any(), gomock.Any()).Return(bookings[:1], nil)
				m.slotRepo.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(slots, nil)
				m.client.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(clients, nil)
				m.repo.EXPECT().
					ConditionalMarkReminderSent(gomock.Any(), "booking-1", gomock.Any()).
					Return(false, nil)
			},
			wantErr:  false,
			wantSent: 0,
		},
		{
			name: "missing slot is skipped without claiming",
			setupMock: func(m schedulerMockSet) {
				m.repo.EXPECT().ListDueReminders(gomock.Any(), gomock.Any(), gomock.Any()).Return(bookings[:1], nil)
				m.slotRepo.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(map[string]slotModel.Slot{}, nil)
				m.client.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(clients, nil)
			},
			wantErr:  false,
			wantSent: 0,
		},
		{
			name: "dispatch failure is retried then dropped",
			setupMock: func(m schedulerMockSet) {
				m.repo.EXPECT().ListDueReminders(gomock.Any(), gomock.Any(), gomock.Any()).Return(bookings[:1], nil)
				m.slotRepo.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(slots, nil)
				m.client.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(clients, nil)
				m.repo.EXPECT().
					ConditionalMarkReminderSent(gomock.Any(), "booking-1", gomock.Any()).
					Return(true, nil)
				m.notifier.EXPECT().
					Send(gomock.Any(), "111", gomock.Any()).
					Return(errors.New("telegram unavailable")).
					Times(2)
			},
			wantErr:  false,
			wantSent: 0,
		},
		{
			name: "listing error fails the sweep",
			setupMock: func(m schedulerMockSet) {
				m.repo.EXPECT().
					ListDueReminders(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newScheduler(t)
			tt.setupMock(m)

			sent, err := svc.Sweep(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantSent, sent)
			}
		})
	}
}

// Two scheduler instances sweeping the same due booking must dispatch exactly
// one reminder between them.
func TestScheduler_Sweep_TwoInstancesDispatchOnce(t *testing.T) {
	bookings, slots, clients := dueFixtures()
	due := bookings[:1]

	var (
		mu      sync.Mutex
		claimed bool
		sent    int
	)

	claim := func(_ context.Context, _ string, _ time.Time) (bool, error) {
		mu.Lock()
		defer mu.Unlock()

		if claimed {
			return false, nil
		}

		claimed = true

		return true, nil
	}

	var wg sync.WaitGroup

	for range 2 {
		svc, m := newScheduler(t)

		m.repo.EXPECT().ListDueReminders(gomock.Any(), gomock.Any(), gomock.Any()).Return(due, nil)
		m.slotRepo.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(slots, nil)
		m.client.EXPECT().GetByIDs(gomock.Any(), gomock.Any()).Return(clients, nil)
		m.repo.EXPECT().
			ConditionalMarkReminderSent(gomock.Any(), "booking-1", gomock.Any()).
			DoAndReturn(claim)
		m.notifier.EXPECT().
			Send(gomock.Any(), "111", gomock.Any()).
			DoAndReturn(func(_ context.Context, _, _ string) error {
				mu.Lock()
				defer mu.Unlock()
				sent++

				return nil
			}).
			MaxTimes(1)

		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := svc.Sweep(context.Background())
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	assert.Equal(t, 1, sent)
}
