package service

import (
	"context"
	"fmt"

	"glow/config"
	"glow/infras/otel"
	"glow/internal/domains/slot/model/dto"
	"glow/internal/domains/slot/repository"
	"glow/shared"
	"glow/shared/cache"
	"glow/shared/constant"
	"glow/shared/failure"
	"glow/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetSlot   = "slot:get"
	cacheListSlots = "slot:list"
)

type Slot interface {
	Create(ctx context.Context, req dto.CreateSlotRequest) (dto.SlotResponse, error)
	Get(ctx context.Context, id string) (dto.SlotResponse, error)
	ListAvailable(ctx context.Context, serviceCategory string) (dto.SlotsResponse, error)
}

type serviceImpl struct {
	repo  repository.Slot
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Slot, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Slot {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateSlotRequest) (res dto.SlotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".slot.Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	if err = req.Validate(); err != nil {
		return res, err // nolint:wrapcheck
	}

	slot := req.ToModel()
	if err = s.repo.Insert(ctx, slot); err != nil {
		log.Error().Err(err).Msg("failed to create slot")

		return res, fmt.Errorf("failed to create slot: %w", err)
	}

	shared.InvalidateCaches(ctx, s.cache, cacheListSlots)

	res.FromModel(slot)

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.SlotResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".slot.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetSlot, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for slot")

		return res, nil
	}

	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to get slot")

		return res, fmt.Errorf("failed to get slot: %w", err)
	}

	if slot.ID == constant.Empty {
		return res, failure.NotFound("slot not found") // nolint:wrapcheck
	}

	res.FromModel(slot)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save slot to cache")
		}
	}()

	return res, nil
}

// ListAvailable returns upcoming open slots for one service category. Results
// are cached per category; any booking or cancellation invalidates the list.
func (s *serviceImpl) ListAvailable(ctx context.Context, serviceCategory string) (res dto.SlotsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".slot.ListAvailable")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheListSlots, serviceCategory)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for slot list")

		return res, nil
	}

	slots, err := s.repo.ListAvailable(ctx, serviceCategory, timezone.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to list available slots")

		return res, fmt.Errorf("failed to list available slots: %w", err)
	}

	res.FromModels(slots)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save slot list to cache")
		}
	}()

	return res, nil
}
