package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/talentloop/internal/payment/domain"
)

func newTestAdapter(now time.Time) *Adapter {
	return &Adapter{
		webhookSecret: "whsec_test",
		tolerance:     5 * time.Minute,
		now:           func() time.Time { return now },
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"customer.subscription.deleted","data":{"object":{}}}`)
	now := time.Now().UTC()
	timestamp := now.Unix()

	header := buildStripeSignatureHeader(secret, payload, timestamp)
	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", header)

	adapter := newTestAdapter(now)
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, timestamp))
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	reqHeader.Del("Stripe-Signature")
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected missing header to be rejected, got %v", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_old"}`)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	signedAt := now.Add(-6 * time.Minute).Unix()

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("whsec_test", payload, signedAt))

	err := newTestAdapter(now).Verify(context.Background(), payload, reqHeader)
	if !errors.Is(err, paymentdomain.ErrSignatureExpired) {
		t.Fatalf("expected expired signature, got %v", err)
	}
}

func TestFactoryRequiresSecret(t *testing.T) {
	if _, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{WebhookSecret: "  "}); !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestParseLifecycleEvents(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC).Unix()
	periodEnd := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		event    any
		wantType paymentdomain.EventType
		check    func(t *testing.T, event *paymentdomain.LifecycleEvent)
	}{{
		name: "checkout.session.completed",
		event: map[string]any{
			"id":      "evt_cs",
			"type":    "checkout.session.completed",
			"created": created,
			"data": map[string]any{
				"object": map[string]any{
					"id":               "cs_1",
					"customer":         "cus_1",
					"customer_details": map[string]any{"email": "U@x.com"},
					"amount_total":     4900,
					"currency":         "USD",
					"metadata":         map[string]any{"price_id": "price_premium_monthly"},
				},
			},
		},
		wantType: paymentdomain.EventCheckoutCompleted,
		check: func(t *testing.T, event *paymentdomain.LifecycleEvent) {
			if event.CustomerEmail != "U@x.com" || event.CustomerRef != "cus_1" {
				t.Fatalf("unexpected identity %q / %q", event.CustomerEmail, event.CustomerRef)
			}
			if event.PriceRef != "price_premium_monthly" || event.Amount != 4900 || event.Currency != "usd" {
				t.Fatalf("unexpected price %q %d %q", event.PriceRef, event.Amount, event.Currency)
			}
		},
	}, {
		name: "customer.subscription.updated",
		event: map[string]any{
			"id":      "evt_sub",
			"type":    "customer.subscription.updated",
			"created": created,
			"data": map[string]any{
				"object": map[string]any{
					"id":                   "sub_1",
					"created":              created - 30*24*3600,
					"customer":             "cus_1",
					"status":               "Active",
					"cancel_at_period_end": true,
					"items": map[string]any{
						"data": []any{map[string]any{
							"current_period_end": periodEnd.Unix(),
							"price": map[string]any{
								"id":          "price_pro_monthly",
								"unit_amount": 9900,
								"currency":    "usd",
							},
						}},
					},
				},
			},
		},
		wantType: paymentdomain.EventSubscriptionUpdated,
		check: func(t *testing.T, event *paymentdomain.LifecycleEvent) {
			if event.SubscriptionStatus != paymentdomain.SubscriptionStatusActive || !event.CancelAtPeriodEnd {
				t.Fatalf("unexpected status %q cancel=%v", event.SubscriptionStatus, event.CancelAtPeriodEnd)
			}
			if event.PriceRef != "price_pro_monthly" || event.Amount != 9900 {
				t.Fatalf("unexpected price %q %d", event.PriceRef, event.Amount)
			}
			if event.CurrentPeriodEnd == nil || !event.CurrentPeriodEnd.Equal(periodEnd) {
				t.Fatalf("expected period end from item, got %v", event.CurrentPeriodEnd)
			}
		},
	}, {
		name: "invoice.payment_failed",
		event: map[string]any{
			"id":      "evt_inv",
			"type":    "invoice.payment_failed",
			"created": created,
			"data": map[string]any{
				"object": map[string]any{
					"id":          "in_1",
					"customer":    "cus_1",
					"amount_paid": 0,
					"amount_due":  4900,
					"currency":    "usd",
				},
			},
		},
		wantType: paymentdomain.EventInvoiceFailed,
		check: func(t *testing.T, event *paymentdomain.LifecycleEvent) {
			if event.Amount != 4900 {
				t.Fatalf("expected amount due, got %d", event.Amount)
			}
		},
	}}

	adapter := newTestAdapter(time.Now())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("marshal payload: %v", err)
			}
			event, err := adapter.Parse(context.Background(), payload)
			if err != nil {
				t.Fatalf("parse event: %v", err)
			}
			if event.Type != tt.wantType {
				t.Fatalf("expected type %s, got %s", tt.wantType, event.Type)
			}
			if event.Provider != "stripe" {
				t.Fatalf("expected stripe provider, got %s", event.Provider)
			}
			if !event.OccurredAt.Equal(time.Unix(created, 0).UTC()) {
				t.Fatalf("expected occurred at event created, got %v", event.OccurredAt)
			}
			tt.check(t, event)
		})
	}
}

func TestParseIgnoresUnrelatedEvents(t *testing.T) {
	adapter := newTestAdapter(time.Now())
	_, err := adapter.Parse(context.Background(), []byte(`{"id":"evt_x","type":"charge.refunded","data":{"object":{}}}`))
	if !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ignored event, got %v", err)
	}

	_, err = adapter.Parse(context.Background(), []byte(`{"type":"customer.subscription.deleted"}`))
	if !errors.Is(err, paymentdomain.ErrInvalidEvent) {
		t.Fatalf("expected invalid event, got %v", err)
	}
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}
