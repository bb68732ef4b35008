package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/talentloop/internal/clock"
	"github.com/smallbiznis/talentloop/internal/config"
	customerdomain "github.com/smallbiznis/talentloop/internal/customer/domain"
	entitlementdomain "github.com/smallbiznis/talentloop/internal/entitlement/domain"
	"github.com/smallbiznis/talentloop/internal/observability/logger"
	"github.com/smallbiznis/talentloop/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/talentloop/internal/payment/domain"
	"github.com/smallbiznis/talentloop/internal/plan"
	"github.com/smallbiznis/talentloop/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	lockKeyPrefix  = "entitlement:lock:"
	lockAttempts   = 5
	lockBackoff    = 100 * time.Millisecond
	defaultLockTTL = 10 * time.Second
)

// PlanResolver maps a provider price reference or charged amount to a tier.
type PlanResolver interface {
	Resolve(priceRef string, amount int64, currency string) (plan.Match, error)
}

type Params struct {
	fx.In

	Log          *zap.Logger
	Cfg          config.Config
	Clock        clock.Clock
	Entitlements entitlementdomain.Service
	Resolver     customerdomain.Resolver
	Catalog      *plan.Catalog
	Locker       *ratelimit.Locker `optional:"true"`
	Metrics      *metrics.Metrics  `optional:"true"`
}

type Service struct {
	log          *zap.Logger
	clock        clock.Clock
	entitlements entitlementdomain.Service
	resolver     customerdomain.Resolver
	plans        PlanResolver
	locker       *ratelimit.Locker
	lockTTL      time.Duration
	policy       string
	metrics      *metrics.Metrics
}

func New(p Params) *Service {
	return NewService(p.Log, p.Cfg, p.Clock, p.Entitlements, p.Resolver, p.Catalog, p.Locker, p.Metrics)
}

func NewService(
	log *zap.Logger,
	cfg config.Config,
	c clock.Clock,
	entitlements entitlementdomain.Service,
	resolver customerdomain.Resolver,
	plans PlanResolver,
	locker *ratelimit.Locker,
	m *metrics.Metrics,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if c == nil {
		c = clock.New()
	}
	lockTTL := cfg.Entitlement.IdentityLockTTL
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	policy := cfg.Entitlement.CancellationPolicy
	if policy != config.CancellationPolicyImmediate {
		policy = config.CancellationPolicyPeriodEnd
	}
	return &Service{
		log:          log.Named("reconcile"),
		clock:        c,
		entitlements: entitlements,
		resolver:     resolver,
		plans:        plans,
		locker:       locker,
		lockTTL:      lockTTL,
		policy:       policy,
		metrics:      m,
	}
}

// HandleLifecycleEvent applies a verified provider event to the entitlement
// record. Failures are reported through the Outcome only.
func (s *Service) HandleLifecycleEvent(ctx context.Context, event paymentdomain.LifecycleEvent) Outcome {
	outcome := s.handle(ctx, event)

	log := logger.WithContext(ctx, s.log).With(
		zap.String("event_type", string(event.Type)),
		zap.String("provider_event_id", event.ProviderEventID),
		zap.String("action", string(outcome.Action)),
	)
	if outcome.Err != nil {
		log.Warn("lifecycle event not applied",
			zap.String("error_class", outcome.ErrorClass()),
			zap.Error(outcome.Err),
		)
	} else {
		log.Info("lifecycle event reconciled", zap.String("tier", outcome.Tier.String()))
	}
	s.metrics.RecordReconcileOutcome(ctx, string(event.Type), string(outcome.Action), outcome.ErrorClass())
	return outcome
}

func (s *Service) handle(ctx context.Context, event paymentdomain.LifecycleEvent) Outcome {
	switch event.Type {
	case paymentdomain.EventCheckoutCompleted:
		return s.activate(ctx, event, true)
	case paymentdomain.EventSubscriptionCreated:
		if !activeStatus(event.SubscriptionStatus) {
			return Outcome{Action: ActionRecorded}
		}
		return s.activate(ctx, event, false)
	case paymentdomain.EventSubscriptionUpdated:
		return s.subscriptionUpdated(ctx, event)
	case paymentdomain.EventSubscriptionDeleted:
		return s.downgrade(ctx, event)
	case paymentdomain.EventInvoiceSucceeded, paymentdomain.EventInvoiceFailed:
		return Outcome{Action: ActionRecorded}
	default:
		return skipped(fmt.Errorf("unsupported event type %q", event.Type))
	}
}

func (s *Service) subscriptionUpdated(ctx context.Context, event paymentdomain.LifecycleEvent) Outcome {
	status := event.SubscriptionStatus
	switch {
	case status == paymentdomain.SubscriptionStatusCanceled:
		return s.cancel(ctx, event)
	case activeStatus(status) && event.CancelAtPeriodEnd:
		return s.cancel(ctx, event)
	case activeStatus(status):
		return s.activate(ctx, event, false)
	default:
		// past_due, unpaid, incomplete and friends leave the window alone;
		// the provider follows up with deleted or active.
		s.log.Info("subscription status not actionable", zap.String("status", status))
		return Outcome{Action: ActionRecorded}
	}
}

func (s *Service) activate(ctx context.Context, event paymentdomain.LifecycleEvent, provision bool) Outcome {
	email, err := s.resolveIdentity(ctx, event)
	if err != nil {
		return skipped(err)
	}

	match, err := s.plans.Resolve(event.PriceRef, event.Amount, event.Currency)
	if err != nil {
		return skipped(fmt.Errorf("%w: price %q", ErrUnknownPlanReference, event.PriceRef))
	}
	if match.Kind == plan.MatchAmountFallback {
		s.log.Warn("ambiguous plan match by amount",
			zap.Int64("amount", event.Amount),
			zap.String("currency", event.Currency),
			zap.String("tier", match.Tier.String()),
			zap.String("catalog_version", match.CatalogVersion),
		)
	}

	err = s.withIdentityLock(ctx, email, func(ctx context.Context) error {
		if provision {
			if _, err := s.entitlements.Provision(ctx, entitlementdomain.ProvisionRequest{
				Email:       email,
				CustomerRef: event.CustomerRef,
			}); err != nil {
				return err
			}
		}
		_, err := s.entitlements.ApplyPlan(ctx, entitlementdomain.ApplyPlanRequest{
			Email:          email,
			Tier:           match.Tier,
			DurationMonths: match.Months,
			CustomerRef:    event.CustomerRef,
			EventAt:        event.OccurredAt,
		})
		return err
	})
	if err != nil {
		return s.writeFailed(event, err)
	}
	return Outcome{Action: ActionApplied, Tier: match.Tier, MatchKind: match.Kind}
}

func (s *Service) cancel(ctx context.Context, event paymentdomain.LifecycleEvent) Outcome {
	if s.policy == config.CancellationPolicyImmediate {
		return s.downgrade(ctx, event)
	}

	email, err := s.resolveIdentity(ctx, event)
	if err != nil {
		return skipped(err)
	}
	at := s.clock.Now()
	if event.CurrentPeriodEnd != nil {
		at = event.CurrentPeriodEnd.UTC()
	}

	var record entitlementdomain.Record
	err = s.withIdentityLock(ctx, email, func(ctx context.Context) error {
		var err error
		record, err = s.entitlements.ScheduleLapse(ctx, email, at, event.OccurredAt)
		return err
	})
	if err != nil {
		return s.writeFailed(event, err)
	}
	return Outcome{Action: ActionScheduledLapse, Tier: record.PlanTier}
}

func (s *Service) downgrade(ctx context.Context, event paymentdomain.LifecycleEvent) Outcome {
	email, err := s.resolveIdentity(ctx, event)
	if err != nil {
		return skipped(err)
	}
	err = s.withIdentityLock(ctx, email, func(ctx context.Context) error {
		_, err := s.entitlements.Downgrade(ctx, email, event.OccurredAt)
		return err
	})
	if err != nil {
		return s.writeFailed(event, err)
	}
	return Outcome{Action: ActionDowngraded, Tier: plan.TierFree}
}

func (s *Service) resolveIdentity(ctx context.Context, event paymentdomain.LifecycleEvent) (string, error) {
	if email := strings.TrimSpace(event.CustomerEmail); email != "" {
		return email, nil
	}
	if strings.TrimSpace(event.CustomerRef) == "" {
		return "", fmt.Errorf("%w: event carries no customer", ErrUnresolvedIdentity)
	}
	if s.resolver == nil {
		return "", fmt.Errorf("%w: no customer resolver", ErrUnresolvedIdentity)
	}
	email, err := s.resolver.ResolveCustomerEmail(ctx, event.CustomerRef)
	if err != nil {
		if errors.Is(err, customerdomain.ErrProviderUnavailable) {
			return "", fmt.Errorf("%w: %w", ErrStoreWriteFailure, err)
		}
		return "", fmt.Errorf("%w: %w", ErrUnresolvedIdentity, err)
	}
	return email, nil
}

// withIdentityLock serialises writes for one email across replicas. Without
// redis the process is the only writer and fn runs directly.
func (s *Service) withIdentityLock(ctx context.Context, email string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	key := lockKeyPrefix + strings.ToLower(strings.TrimSpace(email))
	for attempt := 1; ; attempt++ {
		err := s.locker.WithLock(ctx, key, s.lockTTL, fn)
		if !errors.Is(err, ratelimit.ErrLockBusy) || attempt >= lockAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockBackoff * time.Duration(attempt)):
		}
	}
}

// writeFailed turns a rejected write into an outcome. An event older than the
// record's last applied change is recorded without touching the record.
func (s *Service) writeFailed(event paymentdomain.LifecycleEvent, err error) Outcome {
	if errors.Is(err, entitlementdomain.ErrStaleEvent) {
		s.log.Info("stale lifecycle event ignored",
			zap.String("provider_event_id", event.ProviderEventID),
			zap.Time("occurred_at", event.OccurredAt),
		)
		return Outcome{Action: ActionRecorded, Stale: true}
	}
	return skipped(classifyWriteErr(err))
}

func classifyWriteErr(err error) error {
	switch {
	case errors.Is(err, entitlementdomain.ErrNotFound):
		return fmt.Errorf("%w: no entitlement record", ErrUnresolvedIdentity)
	case errors.Is(err, entitlementdomain.ErrInvalidEmail):
		return fmt.Errorf("%w: %w", ErrUnresolvedIdentity, err)
	default:
		return fmt.Errorf("%w: %w", ErrStoreWriteFailure, err)
	}
}

func activeStatus(status string) bool {
	switch status {
	case "", paymentdomain.SubscriptionStatusActive, paymentdomain.SubscriptionStatusTrialing:
		return true
	default:
		return false
	}
}
