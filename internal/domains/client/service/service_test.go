package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"glow/config"
	"glow/infras/otel/mocks"
	clientMocks "glow/internal/domains/client/mocks"
	"glow/internal/domains/client/model"
	"glow/internal/domains/client/model/dto"
	"glow/internal/domains/client/service"
	cacheMocks "glow/shared/cache/mocks"
	"glow/shared/timezone"
)

func TestClientService_Register(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := clientMocks.NewMockClient(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	tests := []struct {
		name      string
		req       dto.RegisterClientRequest
		setupMock func()
		wantErr   bool
		wantID    string
	}{
		{
			name: "successful registration",
			req: dto.RegisterClientRequest{
				ChatID:    "12345",
				FirstName: "Anna",
			},
			setupMock: func() {
				mockRepo.EXPECT().
					GetByChatID(gomock.Any(), "12345").
					Return(model.Client{}, nil)

				mockRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name: "chat id already registered returns existing client",
			req: dto.RegisterClientRequest{
				ChatID:    "12345",
				FirstName: "Anna",
			},
			setupMock: func() {
				mockRepo.EXPECT().
					GetByChatID(gomock.Any(), "12345").
					Return(model.Client{ID: "existing-id", ChatID: "12345"}, nil)
			},
			wantErr: false,
			wantID:  "existing-id",
		},
		{
			name: "lookup error",
			req: dto.RegisterClientRequest{
				ChatID:    "12345",
				FirstName: "Anna",
			},
			setupMock: func() {
				mockRepo.EXPECT().
					GetByChatID(gomock.Any(), "12345").
					Return(model.Client{}, errors.New("database error"))
			},
			wantErr: true,
		},
		{
			name: "insert error",
			req: dto.RegisterClientRequest{
				ChatID:    "12345",
				FirstName: "Anna",
			},
			setupMock: func() {
				mockRepo.EXPECT().
					GetByChatID(gomock.Any(), "12345").
					Return(model.Client{}, nil)

				mockRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			ctx := context.Background()
			result, err := svc.Register(ctx, tt.req)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.wantID != "" {
					assert.Equal(t, tt.wantID, result.ID)
				}
			}
		})
	}
}

func TestClientService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := clientMocks.NewMockClient(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	now := timezone.Now()
	client := model.Client{
		ID:           "test-id",
		ChatID:       "12345",
		FirstName:    "Anna",
		ConsentGiven: true,
		ConsentAt:    &now,
	}

	tests := []struct {
		name      string
		id        string
		setupMock func()
		wantErr   bool
		wantID    string
	}{
		{
			name: "cache hit",
			id:   "test-id",
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name: "cache miss, successful get from db",
			id:   "test-id",
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetByID(gomock.Any(), "test-id").
					Return(client, nil)

				mockCache.EXPECT().
					Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil).
					AnyTimes()
			},
			wantErr: false,
			wantID:  "test-id",
		},
		{
			name: "client not found",
			id:   "nonexistent-id",
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetByID(gomock.Any(), "nonexistent-id").
					Return(model.Client{}, nil)
			},
			wantErr: true,
		},
		{
			name: "repository error",
			id:   "test-id",
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetByID(gomock.Any(), "test-id").
					Return(model.Client{}, errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			ctx := context.Background()
			result, err := svc.Get(ctx, tt.id)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				if tt.wantID != "" {
					assert.Equal(t, tt.wantID, result.ID)
				}
			}
		})
	}
}

func TestClientService_UpdateConsent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := clientMocks.NewMockClient(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	svc := service.New(mockRepo, cfg, mockCache, mockOtel)

	tests := []struct {
		name      string
		id        string
		consent   bool
		setupMock func()
		wantErr   bool
	}{
		{
			name:    "consent granted",
			id:      "test-id",
			consent: true,
			setupMock: func() {
				mockRepo.EXPECT().
					GetByID(gomock.Any(), "test-id").
					Return(model.Client{ID: "test-id"}, nil)

				mockRepo.EXPECT().
					UpdateConsent(gomock.Any(), "test-id", true, gomock.Any()).
					Return(nil)

				mockCache.EXPECT().
					Delete(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name:    "consent revoked",
			id:      "test-id",
			consent: false,
			setupMock: func() {
				mockRepo.EXPECT().
					GetByID(gomock.Any(), "test-id").
					Return(model.Client{ID: "test-id"}, nil)

				mockRepo.EXPECT().
					UpdateConsent(gomock.Any(), "test-id", false, gomock.Any()).
					Return(nil)

				mockCache.EXPECT().
					Delete(gomock.Any(), gomock.Any()).
					Return(nil)
			},
			wantErr: false,
		},
		{
			name:    "client not found",
			id:      "nonexistent-id",
			consent: true,
			setupMock: func() {
				mockRepo.EXPECT().
					GetByID(gomock.Any(), "nonexistent-id").
					Return(model.Client{}, nil)
			},
			wantErr: true,
		},
		{
			name:    "update error",
			id:      "test-id",
			consent: true,
			setupMock: func() {
				mockRepo.EXPECT().
					GetByID(gomock.Any(), "test-id").
					Return(model.Client{ID: "test-id"}, nil)

				mockRepo.EXPECT().
					UpdateConsent(gomock.Any(), "test-id", true, gomock.Any()).
					Return(errors.New("database error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			ctx := context.Background()
			err := svc.UpdateConsent(ctx, tt.id, tt.consent)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
