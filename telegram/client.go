// Package telegram talks to the Telegram bot API to publish articles into a
// channel. Failures are classified so the publisher only retries the
// retryable ones.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/models"
	"news-bureau/transport"
)

// Client sends messages to a single channel via the bot API.
type Client struct {
	cfg    *config.Config
	client *transport.Client
	logger *zap.Logger
}

// NewClient wires a Telegram client for the configured bot and channel.
func NewClient(cfg *config.Config, client *transport.Client, logger *zap.Logger) *Client {
	return &Client{cfg: cfg, client: client, logger: logger}
}

// Channel returns the target channel identifier.
func (c *Client) Channel() string {
	return c.cfg.TelegramChannel
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	Parameters struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// SendMessage posts an HTML-formatted message to the channel and returns the
// channel's message identifier. Rate limits and transient network failures
// surface as retryable TransportErrors; auth failures and permanently
// rejected payloads do not.
func (c *Client) SendMessage(ctx context.Context, text string) (int64, error) {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                c.cfg.TelegramChannel,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: false,
	})
	if err != nil {
		return 0, fmt.Errorf("telegram: marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", c.cfg.TelegramBaseURL, c.cfg.TelegramBotToken)
	resp, err := c.client.Post(ctx, endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		// The transport already classified HTTP-level failures; pin down the
		// non-retryable bot API cases.
		var te *models.TransportError
		if errors.As(err, &te) {
			switch te.StatusCode {
			case 401, 403:
				te.Retryable = false
				c.logger.Error("Telegram auth failure", zap.Int("status", te.StatusCode))
			case 400:
				te.Retryable = false
				c.logger.Error("Telegram rejected message payload")
			}
		}
		return 0, err
	}
	defer resp.Body.Close()

	var ar apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return 0, fmt.Errorf("telegram: decode response: %w", err)
	}
	if !ar.OK {
		return 0, &models.TransportError{
			Op:        "telegram sendMessage",
			Retryable: ar.Parameters.RetryAfter > 0,
			Err:       fmt.Errorf("bot API error: %s", ar.Description),
		}
	}

	c.logger.Info("Message sent to Telegram channel",
		zap.String("channel", c.cfg.TelegramChannel),
		zap.Int64("message_id", ar.Result.MessageID))
	return ar.Result.MessageID, nil
}

// TestConnection calls getMe to verify bot credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/bot%s/getMe", c.cfg.TelegramBaseURL, c.cfg.TelegramBotToken)
	resp, err := c.client.Get(ctx, endpoint)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return nil
}
