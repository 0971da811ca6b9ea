package webhook

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/entitlekit/pkg/retry"
)

// Attempt describes a single delivery attempt.
type Attempt struct {
	Number     int
	StatusCode int
	Duration   time.Duration
	Err        error
}

type options struct {
	timeout  time.Duration
	headers  http.Header
	attempts int
	backoff  retry.BackoffStrategy
	secret   string
	breaker  *CircuitBreaker
	observe  func(Attempt)
}

func defaultOptions() *options {
	return &options{
		timeout:  10 * time.Second,
		headers:  make(http.Header),
		attempts: 4,
		backoff:  retry.DefaultBackoff(),
	}
}

// Option configures a single Send or Call.
type Option func(*options)

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithHeader(key, value string) Option {
	return func(o *options) {
		if key != "" && value != "" {
			o.headers.Set(key, value)
		}
	}
}

// WithAttempts sets the total number of tries, including the first one.
func WithAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.attempts = n
		}
	}
}

func WithBackoff(b retry.BackoffStrategy) Option {
	return func(o *options) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithSignature signs the body with secret.
func WithSignature(secret string) Option {
	return func(o *options) { o.secret = secret }
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(o *options) { o.breaker = cb }
}

// WithObserver is called after every attempt.
func WithObserver(fn func(Attempt)) Option {
	return func(o *options) { o.observe = fn }
}
