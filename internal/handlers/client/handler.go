package client

import (
	"net/http"

	"glow/infras/otel"
	"glow/internal/domains/client/model/dto"
	"glow/internal/domains/client/service"
	"glow/shared/constant"
	"glow/shared/validator"
	"glow/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Client
	otel    otel.Otel
}

func New(service service.Client, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/clients", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.RegisterClient)
		routerGroup.Get("/{id}", handler.GetClient)
		routerGroup.Put("/{id}/consent", handler.UpdateConsent)
	})
}

// RegisterClient registers the chat user, or returns the existing record when
// the chat id is already known.
func (handler *Handler) RegisterClient(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".RegisterClient")
	defer scope.End()

	req := dto.RegisterClientRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	client, err := handler.service.Register(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to register client")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusCreated, client)
}

func (handler *Handler) GetClient(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetClient")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	client, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get client")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, client)
}

func (handler *Handler) UpdateConsent(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateConsent")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	req := dto.UpdateConsentRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	if err := handler.service.UpdateConsent(ctx, id, *req.ConsentGiven); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to update consent")

		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Consent updated successfully")
}
