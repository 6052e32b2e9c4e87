package slot

import (
	"net/http"

	"glow/infras/otel"
	"glow/internal/domains/slot/model"
	"glow/internal/domains/slot/model/dto"
	"glow/internal/domains/slot/service"
	"glow/shared/constant"
	"glow/shared/validator"
	"glow/transport/http/middleware"
	"glow/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service    service.Slot
	middleware middleware.AppMiddleware
	otel       otel.Otel
}

func New(service service.Slot, middleware middleware.AppMiddleware, otel otel.Otel) Handler {
	return Handler{
		service:    service,
		middleware: middleware,
		otel:       otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/slots", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.ListAvailableSlots)
		routerGroup.Get("/{id}", handler.GetSlot)

		routerGroup.Group(func(admin chi.Router) {
			admin.Use(handler.middleware.AdminOnly)
			admin.Post("/", handler.CreateSlot)
		})
	})
}

// CreateSlot is the administrative entry point for publishing bookable slots.
func (handler *Handler) CreateSlot(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateSlot")
	defer scope.End()

	req := dto.CreateSlotRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	slot, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create slot")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusCreated, slot)
}

func (handler *Handler) GetSlot(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetSlot")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	slot, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get slot")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, slot)
}

func (handler *Handler) ListAvailableSlots(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ListAvailableSlots")
	defer scope.End()

	serviceCategory := request.URL.Query().Get(model.FieldServiceCategory)

	slots, err := handler.service.ListAvailable(ctx, serviceCategory)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to list available slots")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, slots)
}
