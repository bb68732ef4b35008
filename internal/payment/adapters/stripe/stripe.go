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
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/talentloop/internal/payment/domain"
)

const providerName = "stripe"

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return providerName
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Adapter{
		webhookSecret: secret,
		tolerance:     cfg.Tolerance,
		now:           now,
	}, nil
}

type Adapter struct {
	webhookSecret string
	tolerance     time.Duration
	now           func() time.Time
}

func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(a.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	matched := false
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return paymentdomain.ErrInvalidSignature
	}

	if a.tolerance > 0 {
		signedAt, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return paymentdomain.ErrInvalidSignature
		}
		age := a.currentTime().Sub(time.Unix(signedAt, 0))
		if age < 0 {
			age = -age
		}
		if age > a.tolerance {
			return paymentdomain.ErrSignatureExpired
		}
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.LifecycleEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case "checkout.session.completed":
		return a.parseCheckoutSession(event, payload)
	case "customer.subscription.created":
		return a.parseSubscription(event, payload, paymentdomain.EventSubscriptionCreated)
	case "customer.subscription.updated":
		return a.parseSubscription(event, payload, paymentdomain.EventSubscriptionUpdated)
	case "customer.subscription.deleted":
		return a.parseSubscription(event, payload, paymentdomain.EventSubscriptionDeleted)
	case "invoice.payment_succeeded", "invoice.paid":
		return a.parseInvoice(event, payload, paymentdomain.EventInvoiceSucceeded)
	case "invoice.payment_failed":
		return a.parseInvoice(event, payload, paymentdomain.EventInvoiceFailed)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID              string `json:"id"`
	Customer        string `json:"customer"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	AmountTotal  int64          `json:"amount_total"`
	Currency     string         `json:"currency"`
	Subscription string         `json:"subscription"`
	Created      int64          `json:"created"`
	Metadata     map[string]any `json:"metadata"`
}

type stripeSubscription struct {
	ID                string                  `json:"id"`
	Customer          string                  `json:"customer"`
	Status            string                  `json:"status"`
	CancelAtPeriodEnd bool                    `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64                   `json:"current_period_end"`
	Created           int64                   `json:"created"`
	Items             stripeSubscriptionItems `json:"items"`
	Metadata          map[string]any          `json:"metadata"`
}

type stripeSubscriptionItems struct {
	Data []stripeSubscriptionItem `json:"data"`
}

type stripeSubscriptionItem struct {
	CurrentPeriodEnd int64       `json:"current_period_end"`
	Price            stripePrice `json:"price"`
}

type stripePrice struct {
	ID         string `json:"id"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
}

type stripeInvoice struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	CustomerEmail string `json:"customer_email"`
	AmountPaid    int64  `json:"amount_paid"`
	AmountDue     int64  `json:"amount_due"`
	Currency      string `json:"currency"`
	Subscription  string `json:"subscription"`
	Created       int64  `json:"created"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent, payload []byte) (*paymentdomain.LifecycleEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	email := strings.TrimSpace(session.CustomerEmail)
	if session.CustomerDetails != nil && strings.TrimSpace(session.CustomerDetails.Email) != "" {
		email = strings.TrimSpace(session.CustomerDetails.Email)
	}

	return &paymentdomain.LifecycleEvent{
		Provider:        providerName,
		ProviderEventID: event.ID,
		ProviderType:    event.Type,
		Type:            paymentdomain.EventCheckoutCompleted,
		CustomerRef:     strings.TrimSpace(session.Customer),
		CustomerEmail:   email,
		PriceRef:        readMetadataValue(session.Metadata, "price_id"),
		Amount:          session.AmountTotal,
		Currency:        strings.ToLower(strings.TrimSpace(session.Currency)),
		SubscriptionID:  strings.TrimSpace(session.Subscription),
		OccurredAt:      timestamp(event.Created, session.Created),
		RawPayload:      payload,
	}, nil
}

func (a *Adapter) parseSubscription(event stripeEvent, payload []byte, eventType paymentdomain.EventType) (*paymentdomain.LifecycleEvent, error) {
	var subscription stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &subscription); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(subscription.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	priceRef := readMetadataValue(subscription.Metadata, "price_id")
	var amount int64
	var currency string
	periodEnd := subscription.CurrentPeriodEnd
	if len(subscription.Items.Data) > 0 {
		item := subscription.Items.Data[0]
		if strings.TrimSpace(item.Price.ID) != "" {
			priceRef = strings.TrimSpace(item.Price.ID)
		}
		amount = item.Price.UnitAmount
		currency = strings.ToLower(strings.TrimSpace(item.Price.Currency))
		// Newer API versions carry the period on the item.
		if periodEnd == 0 {
			periodEnd = item.CurrentPeriodEnd
		}
	}

	var currentPeriodEnd *time.Time
	if periodEnd > 0 {
		end := time.Unix(periodEnd, 0).UTC()
		currentPeriodEnd = &end
	}

	return &paymentdomain.LifecycleEvent{
		Provider:           providerName,
		ProviderEventID:    event.ID,
		ProviderType:       event.Type,
		Type:               eventType,
		CustomerRef:        strings.TrimSpace(subscription.Customer),
		PriceRef:           priceRef,
		Amount:             amount,
		Currency:           currency,
		SubscriptionID:     subscription.ID,
		SubscriptionStatus: strings.ToLower(strings.TrimSpace(subscription.Status)),
		CancelAtPeriodEnd:  subscription.CancelAtPeriodEnd,
		CurrentPeriodEnd:   currentPeriodEnd,
		OccurredAt:         timestamp(event.Created, subscription.Created),
		RawPayload:         payload,
	}, nil
}

func (a *Adapter) parseInvoice(event stripeEvent, payload []byte, eventType paymentdomain.EventType) (*paymentdomain.LifecycleEvent, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	amount := invoice.AmountPaid
	if eventType == paymentdomain.EventInvoiceFailed || amount <= 0 {
		amount = invoice.AmountDue
	}

	return &paymentdomain.LifecycleEvent{
		Provider:        providerName,
		ProviderEventID: event.ID,
		ProviderType:    event.Type,
		Type:            eventType,
		CustomerRef:     strings.TrimSpace(invoice.Customer),
		CustomerEmail:   strings.TrimSpace(invoice.CustomerEmail),
		Amount:          amount,
		Currency:        strings.ToLower(strings.TrimSpace(invoice.Currency)),
		SubscriptionID:  strings.TrimSpace(invoice.Subscription),
		OccurredAt:      timestamp(event.Created, invoice.Created),
		RawPayload:      payload,
	}, nil
}

func (a *Adapter) currentTime() time.Time {
	if a.now == nil {
		return time.Now().UTC()
	}
	return a.now()
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

// timestamp prefers the event's own creation time. Object timestamps stay
// fixed across a subscription's lifetime, so they cannot order events.
func timestamp(primary int64, fallback int64) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	}
	return ""
}
