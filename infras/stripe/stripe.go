package stripe

//go:generate go run go.uber.org/mock/mockgen -source=./stripe.go -destination=./mocks/stripe_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"glow/config"

	stripeGo "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/rs/zerolog/log"
)

// Event types after normalization from the provider's wire format.
const (
	EventTypeSucceeded = "succeeded"
	EventTypeFailed    = "failed"
	EventTypeIgnored   = "ignored"
)

const (
	wireEventSucceeded = "payment_intent.succeeded"
	wireEventFailed    = "payment_intent.payment_failed"

	metadataKeyBookingID    = "booking_id"
	metadataKeyClientChatID = "client_chat_id"
)

// Intent is the subset of the processor's payment-intent object the booking
// core cares about.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64
	Currency     string
}

// WebhookEvent is a provider callback normalized for the reconciler. Type is
// one of the EventType constants; events the core does not react to come back
// as EventTypeIgnored and are acknowledged without any state transition.
type WebhookEvent struct {
	ID        string
	Type      string
	IntentID  string
	BookingID string
	Amount    int64
	CreatedAt time.Time
}

// Gateway is the outbound payment-processor surface: intent creation on
// reservation, refund on cancellation of a paid booking, and authentication
// of inbound callbacks against the shared webhook secret.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, bookingID, clientChatID string) (*Intent, error)
	Refund(ctx context.Context, intentID string) error
	VerifyEvent(payload []byte, signature string) (WebhookEvent, error)
}

type gatewayImpl struct {
	config *config.Config
	api    *client.API
}

func New(cfg *config.Config) Gateway {
	api := &client.API{}
	api.Init(cfg.Payment.Stripe.SecretKey, nil)

	return &gatewayImpl{
		config: cfg,
		api:    api,
	}
}

// CreateIntent implements Gateway. The booking identifier and client chat
// reference travel in the intent metadata so callbacks can be tied back to a
// booking even when the intent reference itself is all the event carries.
func (g *gatewayImpl) CreateIntent(ctx context.Context, amount int64, bookingID, clientChatID string) (*Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.config.Payment.TimeoutSeconds)*time.Second)
	defer cancel()

	params := &stripeGo.PaymentIntentParams{
		Params: stripeGo.Params{
			Context: ctx,
		},
		Amount:      stripeGo.Int64(amount),
		Currency:    stripeGo.String(g.config.Payment.Currency),
		Description: stripeGo.String(fmt.Sprintf("%s booking %.8s", g.config.App.Name, bookingID)),
		AutomaticPaymentMethods: &stripeGo.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeGo.Bool(true),
		},
	}
	params.AddMetadata(metadataKeyBookingID, bookingID)
	params.AddMetadata(metadataKeyClientChatID, clientChatID)

	intent, err := g.api.PaymentIntents.New(params)
	if err != nil {
		log.Error().Err(err).Str("bookingID", bookingID).Msg("failed to create payment intent")

		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	log.Info().Str("intentID", intent.ID).Str("bookingID", bookingID).Msg("created payment intent")

	return &Intent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
	}, nil
}

// Refund implements Gateway.
func (g *gatewayImpl) Refund(ctx context.Context, intentID string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.config.Payment.TimeoutSeconds)*time.Second)
	defer cancel()

	params := &stripeGo.RefundParams{
		Params: stripeGo.Params{
			Context: ctx,
		},
		PaymentIntent: stripeGo.String(intentID),
	}

	if _, err := g.api.Refunds.New(params); err != nil {
		log.Error().Err(err).Str("intentID", intentID).Msg("failed to create refund")

		return fmt.Errorf("failed to create refund: %w", err)
	}

	log.Info().Str("intentID", intentID).Msg("refund issued")

	return nil
}

// VerifyEvent implements Gateway. Signature verification is mandatory in
// production; without the shared secret the event is rejected before any
// state is touched.
func (g *gatewayImpl) VerifyEvent(payload []byte, signature string) (WebhookEvent, error) {
	secret := g.config.Payment.Stripe.WebhookSecret

	var event stripeGo.Event

	if secret == "" {
		if g.config.IsProduction() {
			return WebhookEvent{}, fmt.Errorf("webhook secret is required in production")
		}

		log.Warn().Msg("webhook secret not set, skipping signature verification (development only)")

		if err := json.Unmarshal(payload, &event); err != nil {
			return WebhookEvent{}, fmt.Errorf("failed to parse webhook payload: %w", err)
		}
	} else {
		verified, err := webhook.ConstructEvent(payload, signature, secret)
		if err != nil {
			return WebhookEvent{}, fmt.Errorf("failed to verify webhook signature: %w", err)
		}

		event = verified
	}

	return normalize(event)
}

func normalize(event stripeGo.Event) (WebhookEvent, error) {
	normalized := WebhookEvent{
		ID:        event.ID,
		Type:      EventTypeIgnored,
		CreatedAt: time.Unix(event.Created, 0),
	}

	switch string(event.Type) {
	case wireEventSucceeded:
		normalized.Type = EventTypeSucceeded
	case wireEventFailed:
		normalized.Type = EventTypeFailed
	default:
		return normalized, nil
	}

	var intent stripeGo.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return WebhookEvent{}, fmt.Errorf("failed to parse payment intent from event: %w", err)
	}

	normalized.IntentID = intent.ID
	normalized.BookingID = intent.Metadata[metadataKeyBookingID]
	normalized.Amount = intent.Amount

	return normalized, nil
}
