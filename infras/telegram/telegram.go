package telegram

//go:generate go run go.uber.org/mock/mockgen -source=./telegram.go -destination=./mocks/telegram_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"glow/config"
	"glow/shared/failure"

	"github.com/rs/zerolog/log"
)

// Notifier is the outbound notification channel. Implementations must respect
// the context deadline; the reminder scheduler treats any error as a transient
// dispatch failure subject to its retry policy.
type Notifier interface {
	Send(ctx context.Context, chatID, message string) error
}

type notifierImpl struct {
	config *config.Config
	client *http.Client
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func New(cfg *config.Config) Notifier {
	return &notifierImpl{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.Notifier.TimeoutSeconds) * time.Second,
		},
	}
}

// Send implements Notifier via the Telegram Bot API sendMessage method.
func (n *notifierImpl) Send(ctx context.Context, chatID, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.config.Notifier.Telegram.BaseURL, n.config.Notifier.Telegram.BotToken)

	body, err := json.Marshal(sendMessageRequest{
		ChatID: chatID,
		Text:   message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("chatID", chatID).Msg("notification channel unreachable")

		return failure.BadGateway(fmt.Sprintf("notification channel unreachable: %v", err)) //nolint:wrapcheck
	}
	defer resp.Body.Close()

	var decoded sendMessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return failure.BadGateway(fmt.Sprintf("invalid notification channel response: %v", err)) //nolint:wrapcheck
	}

	if !decoded.OK {
		log.Error().Str("chatID", chatID).Str("description", decoded.Description).Msg("notification rejected")

		return failure.BadGateway(fmt.Sprintf("notification rejected: %s", decoded.Description)) //nolint:wrapcheck
	}

	return nil
}
