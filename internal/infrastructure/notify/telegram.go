package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

var ErrNotConfigured = errors.New("telegram: missing bot token or chat id")

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram allows roughly one message per second per chat.
const telegramMessagesPerSecond = 1

type TelegramNotifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

type TelegramOption func(*TelegramNotifier)

func WithBaseURL(u string) TelegramOption {
	return func(t *TelegramNotifier) { t.baseURL = u }
}

func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *TelegramNotifier) { t.client = c }
}

func WithRate(perSecond float64, burst int) TelegramOption {
	return func(t *TelegramNotifier) { t.limiter = rate.NewLimiter(rate.Limit(perSecond), burst) }
}

func NewTelegramNotifier(token, chatID string, opts ...TelegramOption) *TelegramNotifier {
	t := &TelegramNotifier{
		token:   token,
		chatID:  chatID,
		baseURL: defaultTelegramAPI,
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(telegramMessagesPerSecond, 3),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	if t.token == "" || t.chatID == "" {
		return ErrNotConfigured
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit: %w", err)
	}

	body, err := json.Marshal(sendMessageRequest{ChatID: t.chatID, Text: text})
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, url.PathEscape(t.token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram http %d", resp.StatusCode)
	}
	return nil
}
