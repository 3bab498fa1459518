// Package telegram posts to a Telegram chat through the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"sessionsale/internal/notify"
	"sessionsale/internal/platform/config"
	"sessionsale/pkg/platform/sentinel"
)

// maxResponseBytes caps how much of a Bot API response is read.
const maxResponseBytes = 1 << 20

// Client implements notify.Channel. Every call goes through a circuit
// breaker; permanent rejections do not count toward tripping it.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	chatID  string
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New builds a client for the configured bot and chat.
func New(cfg config.TelegramConfig, opts ...Option) (*Client, error) {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil, errors.New("telegram bot token and chat id are required")
	}
	baseURL := strings.TrimRight(cfg.APIBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		token:   cfg.BotToken,
		chatID:  cfg.ChatID,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	trips := cfg.BreakerTrips
	if trips == 0 {
		trips = 5
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "telegram",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooloff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trips
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, notify.ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c, nil
}

// BreakerState exposes the breaker state for health reporting.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type sentMessage struct {
	MessageID int64 `json:"message_id"`
}

// PostMessage sends a plain-text message.
func (c *Client) PostMessage(ctx context.Context, text string) (notify.MessageID, error) {
	body, err := json.Marshal(map[string]any{
		"chat_id":                  c.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	})
	if err != nil {
		return 0, fmt.Errorf("encode sendMessage: %w", err)
	}
	result, err := c.call(ctx, "sendMessage", "application/json", body)
	if err != nil {
		return 0, err
	}
	var msg sentMessage
	if err := json.Unmarshal(result, &msg); err != nil {
		return 0, fmt.Errorf("decode sendMessage result: %w", err)
	}
	return notify.MessageID(msg.MessageID), nil
}

// PostDocument uploads data as a file with a caption.
func (c *Client) PostDocument(ctx context.Context, filename string, data []byte, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", c.chatID); err != nil {
		return fmt.Errorf("encode sendDocument: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("encode sendDocument: %w", err)
		}
	}
	part, err := w.CreateFormFile("document", filename)
	if err != nil {
		return fmt.Errorf("encode sendDocument: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("encode sendDocument: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("encode sendDocument: %w", err)
	}
	_, err = c.call(ctx, "sendDocument", w.FormDataContentType(), buf.Bytes())
	return err
}

func (c *Client) call(ctx context.Context, method, contentType string, body []byte) (json.RawMessage, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, method, contentType, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("telegram %s: %w: %w", method, sentinel.ErrUnavailable, err)
		}
		return nil, err
	}
	return out.(json.RawMessage), nil
}

func (c *Client) do(ctx context.Context, method, contentType string, body []byte) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build telegram %s request: %w", method, redact(err))
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram %s: %w: %w", method, sentinel.ErrUnavailable, redact(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("telegram %s: read response: %w: %w", method, sentinel.ErrUnavailable, err)
	}

	var parsed apiResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("telegram %s: status %d %s: %w", method, resp.StatusCode, parsed.Description, sentinel.ErrUnavailable)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("telegram %s: status %d %s: %w", method, resp.StatusCode, parsed.Description, notify.ErrRejected)
	case decodeErr != nil:
		return nil, fmt.Errorf("telegram %s: decode response: %w: %w", method, sentinel.ErrUnavailable, decodeErr)
	case !parsed.OK:
		return nil, fmt.Errorf("telegram %s: %s: %w", method, parsed.Description, notify.ErrRejected)
	}
	return parsed.Result, nil
}

// redact strips the request URL, which carries the bot token, from
// transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
