package router

import (
	"glow/internal/handlers/booking"
	"glow/internal/handlers/client"
	"glow/internal/handlers/slot"
	"glow/internal/handlers/webhook"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Client  client.Handler
	Slot    slot.Handler
	Booking booking.Handler
	Webhook webhook.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Client.Router(routerGroup)
		r.DomainHandlers.Slot.Router(routerGroup)
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Webhook.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}
