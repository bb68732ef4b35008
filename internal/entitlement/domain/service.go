package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/talentloop/internal/plan"
)

type ProvisionRequest struct {
	Email       string
	CustomerRef string
}

type ApplyPlanRequest struct {
	Email          string
	Tier           plan.Tier
	DurationMonths int
	// CustomerRef is linked to the record when it has none yet.
	CustomerRef string
	// EventAt is when the provider emitted the change. Zero skips ordering.
	EventAt time.Time
}

type ExpireResult struct {
	Scanned    int
	Downgraded int
	Conflicts  int
}

//go:generate mockgen -destination=../mocks/mock_service.go -package=mocks . Service
type Service interface {
	Provision(ctx context.Context, req ProvisionRequest) (Record, error)
	ApplyPlan(ctx context.Context, req ApplyPlanRequest) (Record, error)
	Downgrade(ctx context.Context, email string, eventAt time.Time) (Record, error)
	ScheduleLapse(ctx context.Context, email string, at, eventAt time.Time) (Record, error)
	ExpirePlans(ctx context.Context, limit int) (ExpireResult, error)
	Get(ctx context.Context, email string) (Record, error)
	FindEmailByCustomerRef(ctx context.Context, customerRef string) (string, error)
}

var (
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrInvalidTier        = errors.New("invalid_tier")
	ErrInvalidDuration    = errors.New("invalid_duration")
	ErrInvalidCustomerRef = errors.New("invalid_customer_ref")
	ErrNotFound           = errors.New("not_found")
	ErrVersionConflict    = errors.New("version_conflict")
	// ErrStaleEvent rejects a change older than the last one applied.
	ErrStaleEvent = errors.New("stale_event")
)
