package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/talentloop/internal/cache"
	"github.com/smallbiznis/talentloop/internal/config"
	"github.com/smallbiznis/talentloop/internal/customer/domain"
	entitlementdomain "github.com/smallbiznis/talentloop/internal/entitlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const cacheProvider = "stripe"

// EmailLookup is the local record lookup consulted before the provider API.
type EmailLookup interface {
	FindEmailByCustomerRef(ctx context.Context, customerRef string) (string, error)
}

// ProviderLookup fetches the email from the payment provider.
type ProviderLookup interface {
	FetchCustomerEmail(ctx context.Context, customerRef string) (string, error)
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Cfg          config.Config
	Entitlements entitlementdomain.Service
}

type Resolver struct {
	log      *zap.Logger
	local    EmailLookup
	provider ProviderLookup
	cache    cache.CustomerEmailCache
}

func New(p Params) domain.Resolver {
	client := NewStripeClient(p.Cfg.Stripe.APIBaseURL, p.Cfg.Stripe.APIKey, nil)
	var provider ProviderLookup
	if client.Configured() {
		provider = client
	}
	return NewResolver(p.Log, p.Entitlements, provider, cache.NewCustomerEmailCache(p.Cfg.Stripe.CustomerCacheTTL))
}

func NewResolver(log *zap.Logger, local EmailLookup, provider ProviderLookup, emails cache.CustomerEmailCache) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	if emails == nil {
		emails = cache.NewCustomerEmailCache(0)
	}
	return &Resolver{
		log:      log.Named("customer.resolver"),
		local:    local,
		provider: provider,
		cache:    emails,
	}
}

// ResolveCustomerEmail checks the cache, then local records, then the provider.
func (r *Resolver) ResolveCustomerEmail(ctx context.Context, customerRef string) (string, error) {
	customerRef = strings.TrimSpace(customerRef)
	if customerRef == "" {
		return "", domain.ErrInvalidCustomerRef
	}

	if email, ok := r.cache.GetEmail(cacheProvider, customerRef); ok {
		return email, nil
	}

	if r.local != nil {
		email, err := r.local.FindEmailByCustomerRef(ctx, customerRef)
		switch {
		case err == nil:
			r.cache.SetEmail(cacheProvider, customerRef, email)
			return email, nil
		case errors.Is(err, entitlementdomain.ErrNotFound):
		default:
			r.log.Warn("local customer lookup failed", zap.Error(err))
		}
	}

	if r.provider == nil {
		return "", domain.ErrNotFound
	}
	email, err := r.provider.FetchCustomerEmail(ctx, customerRef)
	if err != nil {
		return "", err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	r.cache.SetEmail(cacheProvider, customerRef, email)
	return email, nil
}
