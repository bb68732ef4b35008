package domain

import (
	"context"
	"errors"
)

// Resolver maps a payment provider customer reference to an email identity.
type Resolver interface {
	ResolveCustomerEmail(ctx context.Context, customerRef string) (string, error)
}

var (
	ErrInvalidCustomerRef  = errors.New("invalid_customer_ref")
	ErrNotFound            = errors.New("not_found")
	ErrProviderUnavailable = errors.New("provider_unavailable")
)
