package reconcile

import (
	"errors"

	"github.com/smallbiznis/talentloop/internal/plan"
)

var (
	ErrUnresolvedIdentity   = errors.New("unresolved_identity")
	ErrUnknownPlanReference = plan.ErrUnknownPlanReference
	ErrStoreWriteFailure    = errors.New("store_write_failure")
)

type Action string

const (
	ActionApplied        Action = "applied"
	ActionScheduledLapse Action = "scheduled_lapse"
	ActionDowngraded     Action = "downgraded"
	ActionRecorded       Action = "recorded"
	ActionSkipped        Action = "skipped"
)

// Outcome describes what a lifecycle event did to the entitlement record.
// Err is set when the event could not be applied; it is never returned to
// the webhook caller.
type Outcome struct {
	Action    Action
	Tier      plan.Tier
	MatchKind plan.MatchKind

	// Stale is set when the event was older than the last applied change.
	Stale bool
	Err   error
}

// ErrorClass is the low-cardinality label used in logs and metrics.
func (o Outcome) ErrorClass() string {
	switch {
	case o.Err == nil:
		return ""
	case errors.Is(o.Err, ErrUnresolvedIdentity):
		return "unresolved_identity"
	case errors.Is(o.Err, ErrUnknownPlanReference):
		return "unknown_plan_reference"
	case errors.Is(o.Err, ErrStoreWriteFailure):
		return "store_write_failure"
	default:
		return "unknown"
	}
}

// Retryable reports whether a redelivery could succeed. Store failures are
// transient; missing identities and unknown prices need operator action.
func (o Outcome) Retryable() bool {
	return errors.Is(o.Err, ErrStoreWriteFailure)
}

func skipped(err error) Outcome {
	return Outcome{Action: ActionSkipped, Err: err}
}
