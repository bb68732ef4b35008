package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smallbiznis/talentloop/internal/customer/domain"
	"github.com/smallbiznis/talentloop/internal/observability/tracing"
)

const defaultStripeAPIBase = "https://api.stripe.com"

// StripeClient reads customer objects from the Stripe REST API.
type StripeClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewStripeClient(baseURL, apiKey string, client *http.Client) *StripeClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultStripeAPIBase
	}
	if client == nil {
		client = &http.Client{
			Timeout:   10 * time.Second,
			Transport: tracing.NewTransport(http.DefaultTransport, "stripe"),
		}
	}
	return &StripeClient{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		http:    client,
	}
}

type stripeCustomer struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Deleted bool   `json:"deleted"`
}

func (c *StripeClient) Configured() bool {
	return c != nil && c.apiKey != ""
}

// FetchCustomerEmail returns ErrNotFound for unknown, deleted or email-less customers.
func (c *StripeClient) FetchCustomerEmail(ctx context.Context, customerRef string) (string, error) {
	if !c.Configured() {
		return "", domain.ErrProviderUnavailable
	}

	endpoint := c.baseURL + "/v1/customers/" + url.PathEscape(customerRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %v", domain.ErrProviderUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", domain.ErrNotFound
	case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return "", fmt.Errorf("stripe customer lookup: status %d", resp.StatusCode)
	}

	var customer stripeCustomer
	if err := json.Unmarshal(body, &customer); err != nil {
		return "", fmt.Errorf("decode stripe customer: %w", err)
	}
	email := strings.TrimSpace(customer.Email)
	if customer.Deleted || email == "" {
		return "", domain.ErrNotFound
	}
	return email, nil
}
