package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// EventRecord is the ledger row used to dedupe provider deliveries.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey"`
	Provider        string         `json:"provider" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	ProviderEventID string         `json:"provider_event_id" gorm:"type:text;not null;uniqueIndex:ux_payment_events_provider_event"`
	EventType       string         `json:"event_type" gorm:"type:text;not null"`
	CustomerRef     string         `json:"customer_ref" gorm:"type:text"`
	CorrelationID   string         `json:"correlation_id" gorm:"type:text"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	Outcome         string         `json:"outcome" gorm:"type:text"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// EventType is the provider-neutral lifecycle event type.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.completed"
	EventSubscriptionCreated EventType = "subscription.created"
	EventSubscriptionUpdated EventType = "subscription.updated"
	EventSubscriptionDeleted EventType = "subscription.deleted"
	EventInvoiceSucceeded    EventType = "invoice.succeeded"
	EventInvoiceFailed       EventType = "invoice.failed"
)

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusCanceled = "canceled"
)

// LifecycleEvent is the canonical event parsed by adapters. Only verified
// deliveries are turned into a LifecycleEvent.
type LifecycleEvent struct {
	Provider        string
	ProviderEventID string
	ProviderType    string
	Type            EventType

	CustomerRef   string
	CustomerEmail string

	PriceRef string
	Amount   int64
	Currency string

	SubscriptionID     string
	SubscriptionStatus string
	CancelAtPeriodEnd  bool
	CurrentPeriodEnd   *time.Time

	OccurredAt time.Time
	RawPayload []byte
}
