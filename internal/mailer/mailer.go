// Package mailer sends transactional email through a Postmark-compatible
// HTTP API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/iliyamo/bootcamp-directory/internal/breaker"
)

// ErrNotConfigured is returned by Send when no API token is set.
var ErrNotConfigured = errors.New("mailer not configured: missing api token")

type Client struct {
	token      string
	from       string
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[struct{}]
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBreaker replaces the default circuit breaker settings.
func WithBreaker(cfg breaker.Config, logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.cb = breaker.New[struct{}](cfg, logger)
	}
}

func NewClient(token, from, baseURL string, opts ...Option) *Client {
	c := &Client{
		token:      token,
		from:       from,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cb == nil {
		c.cb = breaker.New[struct{}](breaker.DefaultConfig("mailer"), nil)
	}
	return c
}

// Configured returns true if the API token is set.
func (c *Client) Configured() bool {
	return c.token != ""
}

type message struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	TextBody string `json:"TextBody"`
}

// Send delivers a plain text email.  5xx responses and transport errors
// count against the circuit breaker; 4xx responses do not.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(message{From: c.from, To: to, Subject: subject, TextBody: body})
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	var clientErr error
	_, err = c.cb.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/email", bytes.NewReader(payload))
		if err != nil {
			return struct{}{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Postmark-Server-Token", c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("send email: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return struct{}{}, fmt.Errorf("mail api error: status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			clientErr = fmt.Errorf("mail api rejected message: status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	return clientErr
}
