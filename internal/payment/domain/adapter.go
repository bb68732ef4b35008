package domain

import (
	"context"
	"net/http"
	"time"
)

type AdapterConfig struct {
	Provider      string
	WebhookSecret string
	// Tolerance bounds the age of a signed delivery. Zero disables the check.
	Tolerance time.Duration
	Now       func() time.Time
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}

type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*LifecycleEvent, error)
}
