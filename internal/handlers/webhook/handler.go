package webhook

import (
	"io"
	"net/http"

	"glow/infras/otel"
	"glow/infras/stripe"
	"glow/internal/domains/payment/service"
	"glow/shared/constant"
	"glow/shared/failure"
	"glow/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Stripe caps event payloads well below this; anything larger is noise.
const maxPayloadBytes = 1 << 16

type Handler struct {
	reconciler service.Reconciler
	gateway    stripe.Gateway
	otel       otel.Otel
}

func New(reconciler service.Reconciler, gateway stripe.Gateway, otel otel.Otel) Handler {
	return Handler{
		reconciler: reconciler,
		gateway:    gateway,
		otel:       otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/webhooks", func(routerGroup chi.Router) {
		routerGroup.Post("/stripe", handler.HandleStripeEvent)
	})
}

// HandleStripeEvent verifies the callback signature and hands the event to
// the reconciler. A non-2xx response makes the processor redeliver, so only
// genuine processing failures return an error status; everything the
// reconciler chooses to skip is acknowledged.
func (handler *Handler) HandleStripeEvent(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".HandleStripeEvent")
	defer scope.End()

	payload, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, maxPayloadBytes))
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to read webhook payload")

		response.WithError(writer, failure.BadRequestFromString("failed to read payload"))

		return
	}

	signature := request.Header.Get(constant.RequestHeaderStripeSignature)

	event, err := handler.gateway.VerifyEvent(payload, signature)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("remoteAddr", request.RemoteAddr).Msg("rejected webhook with invalid signature")

		response.WithError(writer, failure.Unauthorized("invalid webhook signature"))

		return
	}

	if err := handler.reconciler.HandleEvent(ctx, event); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("eventID", event.ID).Msg("failed to reconcile payment event")

		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Event processed")
}
