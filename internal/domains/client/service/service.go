package service

import (
	"context"
	"fmt"

	"glow/config"
	"glow/infras/otel"
	"glow/internal/domains/client/model/dto"
	"glow/internal/domains/client/repository"
	"glow/shared"
	"glow/shared/cache"
	"glow/shared/constant"
	"glow/shared/failure"
	"glow/shared/timezone"

	"github.com/rs/zerolog/log"
)

const (
	cacheGetClient = "client:get"
)

type Client interface {
	Register(ctx context.Context, req dto.RegisterClientRequest) (dto.ClientResponse, error)
	Get(ctx context.Context, id string) (dto.ClientResponse, error)
	UpdateConsent(ctx context.Context, id string, consent bool) error
}

type serviceImpl struct {
	repo  repository.Client
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Client, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Client {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) Register(ctx context.Context, req dto.RegisterClientRequest) (res dto.ClientResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".client.Register")
	defer scope.End()
	defer scope.TraceIfError(err)

	existing, err := s.repo.GetByChatID(ctx, req.ChatID)
	if err != nil {
		log.Error().Err(err).Msg("failed to check existing client")

		return res, fmt.Errorf("failed to check existing client: %w", err)
	}

	if existing.ID != constant.Empty {
		res.FromModel(existing)

		return res, nil
	}

	client := req.ToModel()
	if err = s.repo.Insert(ctx, client); err != nil {
		log.Error().Err(err).Msg("failed to register client")

		return res, fmt.Errorf("failed to register client: %w", err)
	}

	res.FromModel(client)

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.ClientResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".client.Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetClient, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Debug().Str("cacheKey", cacheKey).Msg("cache hit for client")

		return res, nil
	}

	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to get client")

		return res, fmt.Errorf("failed to get client: %w", err)
	}

	if client.ID == constant.Empty {
		return res, failure.NotFound("client not found") // nolint:wrapcheck
	}

	res.FromModel(client)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save client to cache")
		}
	}()

	return res, nil
}

// UpdateConsent records the client's consent decision. The cache entry is
// invalidated before returning so a read right after the write cannot serve
// the stale consent flag.
func (s *serviceImpl) UpdateConsent(ctx context.Context, id string, consent bool) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".client.UpdateConsent")
	defer scope.End()
	defer scope.TraceIfError(err)

	client, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Msg("failed to get client")

		return fmt.Errorf("failed to get client: %w", err)
	}

	if client.ID == constant.Empty {
		return failure.NotFound("client not found") // nolint:wrapcheck
	}

	if err := s.repo.UpdateConsent(ctx, id, consent, timezone.Now()); err != nil {
		log.Error().Err(err).Msg("failed to update client consent")

		return fmt.Errorf("failed to update client consent: %w", err)
	}

	if err := s.cache.Delete(ctx, shared.BuildCacheKey(cacheGetClient, id)); err != nil {
		log.Error().Err(err).Msg("failed to delete client from cache")
	}

	return nil
}
