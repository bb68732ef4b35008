package domain

import (
	"context"
	"errors"
	"net/http"
)

type Service interface {
	// IngestWebhook fails only for delivery problems: unknown provider, bad
	// signature or malformed payload. Reconciliation results never fail it.
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) error
}

var (
	ErrInvalidProvider  = errors.New("invalid_provider")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_config")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrSignatureExpired = errors.New("signature_expired")
	ErrEventIgnored     = errors.New("event_ignored")
)
