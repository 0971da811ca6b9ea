package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/entitlekit/pkg/retry"
)

const (
	userAgent       = "entitlekit-webhook/1.0"
	maxResponseBody = 64 << 10
)

// Sender delivers JSON over HTTP. Use NewSender.
type Sender struct {
	client *http.Client
}

func NewSender() *Sender {
	return &Sender{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewSenderWithClient uses client for all requests. A nil client falls back to NewSender.
func NewSenderWithClient(client *http.Client) *Sender {
	if client == nil {
		return NewSender()
	}
	return &Sender{client: client}
}

// Send POSTs data as JSON and discards the response body.
func (s *Sender) Send(ctx context.Context, endpoint string, data any, opts ...Option) error {
	return s.Call(ctx, http.MethodPost, endpoint, data, nil, opts...)
}

// Call sends body as JSON and decodes a 2xx response into out when out is non-nil.
// 4xx responses other than 408, 425 and 429 are not retried.
func (s *Sender) Call(ctx context.Context, method, endpoint string, body, out any, opts ...Option) error {
	if err := validateURL(endpoint); err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.breaker != nil && !o.breaker.Allow() {
		return ErrCircuitOpen
	}

	attempt := 0
	err := retry.Do(ctx, o.attempts, o.backoff, func(ctx context.Context) error {
		attempt++
		start := time.Now()
		status, respBody, err := s.do(ctx, method, endpoint, payload, o)

		if o.observe != nil {
			o.observe(Attempt{Number: attempt, StatusCode: status, Duration: time.Since(start), Err: err})
		}
		if o.breaker != nil {
			if err == nil {
				o.breaker.RecordSuccess()
			} else {
				o.breaker.RecordFailure()
			}
		}
		if err != nil {
			if isPermanent(status) {
				return retry.Permanent(fmt.Errorf("%w: %w", ErrPermanentFailure, err))
			}
			return err
		}
		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return retry.Permanent(fmt.Errorf("%w: %w", ErrDecodeResponse, err))
			}
		}
		return nil
	})
	if err != nil && errors.Is(err, retry.ErrExhausted) {
		return fmt.Errorf("%w after %d attempts: %w", ErrDeliveryFailed, attempt, err)
	}
	return err
}

func (s *Sender) do(ctx context.Context, method, endpoint string, payload []byte, o *options) (int, []byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, endpoint, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range o.headers {
		req.Header[k] = v
	}
	if o.secret != "" && payload != nil {
		sig, err := Sign(o.secret, payload, time.Now())
		if err != nil {
			return 0, nil, err
		}
		sig.Apply(req.Header)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.ReplaceAll(string(respBody), "\n", " ")
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		return resp.StatusCode, nil, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, msg)
	}
	return resp.StatusCode, respBody, nil
}

func isPermanent(status int) bool {
	if status < 400 || status >= 500 {
		return false
	}
	switch status {
	case http.StatusRequestTimeout, http.StatusTooEarly, http.StatusTooManyRequests:
		return false
	}
	return true
}

func validateURL(endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("%w: URL is required", ErrInvalidURL)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: only http and https schemes are supported", ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return nil
}
