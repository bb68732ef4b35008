package cache

import (
	"strings"
	"time"
)

const defaultCustomerEmailTTL = 15 * time.Minute

// CustomerEmailCache stores provider customer reference to email lookups.
type CustomerEmailCache interface {
	GetEmail(provider, customerRef string) (string, bool)
	SetEmail(provider, customerRef, email string)
	Forget(provider, customerRef string)
}

type customerEmailCache struct {
	emails Cache[string, string]
	ttl    time.Duration
}

func NewCustomerEmailCache(ttl time.Duration, opts ...Option) CustomerEmailCache {
	if ttl <= 0 {
		ttl = defaultCustomerEmailTTL
	}
	return &customerEmailCache{
		emails: NewTTLCache[string, string](opts...),
		ttl:    ttl,
	}
}

func (c *customerEmailCache) GetEmail(provider, customerRef string) (string, bool) {
	return c.emails.Get(cacheKey(provider, customerRef))
}

func (c *customerEmailCache) SetEmail(provider, customerRef, email string) {
	if strings.TrimSpace(customerRef) == "" || strings.TrimSpace(email) == "" {
		return
	}
	c.emails.Set(cacheKey(provider, customerRef), email, c.ttl)
}

func (c *customerEmailCache) Forget(provider, customerRef string) {
	c.emails.Delete(cacheKey(provider, customerRef))
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
