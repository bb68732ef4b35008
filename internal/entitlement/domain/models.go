package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentloop/internal/plan"
)

// Record is a customer's entitlement state, keyed by email.
type Record struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	Email         string       `gorm:"not null;uniqueIndex" json:"email"`
	CustomerRef   *string      `gorm:"index" json:"customer_ref,omitempty"`
	PlanTier      plan.Tier    `gorm:"not null;default:'free'" json:"plan_tier"`
	PlanStartAt   *time.Time   `json:"plan_start_at,omitempty"`
	PlanEndAt     *time.Time   `gorm:"index" json:"plan_end_at,omitempty"`
	Featured      bool         `gorm:"not null;default:false" json:"featured"`
	FeaturedUntil *time.Time   `json:"featured_until,omitempty"`
	LastEventAt   *time.Time   `json:"last_event_at,omitempty"`
	Version       int64        `gorm:"not null;default:1" json:"version"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (Record) TableName() string { return "entitlements" }

// Features returns the entitlements granted by the record's current tier.
func (r Record) Features() plan.Features {
	return r.PlanTier.Features()
}

// Lapsed reports whether a paid window has ended before now.
func (r Record) Lapsed(now time.Time) bool {
	return r.PlanTier.Paid() && r.PlanEndAt != nil && r.PlanEndAt.Before(now)
}
