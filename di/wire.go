//go:build wireinject
// +build wireinject

package di

import (
	"glow/config"
	"glow/infras/kafka"
	"glow/infras/otel"
	"glow/infras/postgres"
	"glow/infras/redis"
	"glow/infras/stripe"
	"glow/infras/telegram"
	bookingHandler "glow/internal/handlers/booking"
	clientHandler "glow/internal/handlers/client"
	slotHandler "glow/internal/handlers/slot"
	webhookHandler "glow/internal/handlers/webhook"
	"glow/internal/scheduler"
	"glow/shared/cache"
	"glow/transport/http"
	"glow/transport/http/middleware"
	"glow/transport/http/router"

	bookingRepository "glow/internal/domains/booking/repository"
	bookingService "glow/internal/domains/booking/service"
	clientRepository "glow/internal/domains/client/repository"
	clientService "glow/internal/domains/client/service"
	paymentService "glow/internal/domains/payment/service"
	reminderService "glow/internal/domains/reminder/service"
	slotRepository "glow/internal/domains/slot/repository"
	slotService "glow/internal/domains/slot/service"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	stripe.New,
	telegram.New,
	kafka.New,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
)

var clientDomain = wire.NewSet(
	clientRepository.New,
	clientService.New,
)

var slotDomain = wire.NewSet(
	slotRepository.New,
	slotService.New,
)

var bookingDomain = wire.NewSet(
	bookingRepository.New,
	bookingService.New,
)

var paymentDomain = wire.NewSet(
	paymentService.New,
)

var reminderDomain = wire.NewSet(
	reminderService.New,
)

var domains = wire.NewSet(
	clientDomain,
	slotDomain,
	bookingDomain,
	paymentDomain,
	reminderDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	clientHandler.New,
	slotHandler.New,
	bookingHandler.New,
	webhookHandler.New,
	router.New,
)

func InitializeApp() *App {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		scheduler.New,
		http.New,
		NewApp,
	)

	return &App{}
}
