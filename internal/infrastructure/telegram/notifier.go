package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"EngagementSync/internal/ports"
)

const (
	defaultAPIURL  = "https://api.telegram.org"
	requestTimeout = 5 * time.Second
)

var errMisconfigured = errors.New("telegram notifier misconfigured")

// Notifier sends cycle alerts to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	client   *resty.Client
}

var _ ports.Notifier = (*Notifier)(nil)

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	client := resty.New().
		SetBaseURL(defaultAPIURL).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json")
	return &Notifier{botToken: botToken, chatID: chatID, client: client}
}

// WithAPIURL points the notifier at another Bot API endpoint.
func (n *Notifier) WithAPIURL(apiURL string) *Notifier {
	n.client.SetBaseURL(strings.TrimSuffix(apiURL, "/"))
	return n
}

// PublishAlert posts a plain-text message to Telegram. A response with ok=false
// is an error even when the status is 200.
func (n *Notifier) PublishAlert(ctx context.Context, message string) error {
	if n.botToken == "" || n.chatID == "" {
		return errMisconfigured
	}

	var result, failure apiResponse
	resp, err := n.client.R().
		SetContext(ctx).
		SetPathParam("token", n.botToken).
		SetBody(sendMessageRequest{ChatID: n.chatID, Text: message, DisableWebPagePreview: true}).
		SetResult(&result).
		SetError(&failure).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("telegram error: %s %s", resp.Status(), failure.Description)
	}
	if !result.OK {
		return fmt.Errorf("telegram rejected message: %s", result.Description)
	}
	return nil
}
