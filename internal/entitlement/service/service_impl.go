package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/talentloop/internal/clock"
	"github.com/smallbiznis/talentloop/internal/entitlement/domain"
	"github.com/smallbiznis/talentloop/internal/plan"
	"github.com/smallbiznis/talentloop/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxWriteAttempts bounds optimistic retries: the first write plus one reload.
const maxWriteAttempts = 2

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("entitlement.service"),
		genID: p.GenID,
		clock: c,
		repo:  p.Repo,
	}
}

func (s *Service) Provision(ctx context.Context, req domain.ProvisionRequest) (domain.Record, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Record{}, err
	}
	customerRef := strings.TrimSpace(req.CustomerRef)

	existing, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.Record{}, err
	}
	if existing != nil {
		if customerRef == "" || existing.CustomerRef != nil {
			return *existing, nil
		}
		return s.mutate(ctx, email, time.Time{}, func(rec *domain.Record, _ time.Time) bool {
			return linkCustomerRef(rec, customerRef)
		})
	}

	now := s.clock.Now()
	record := domain.Record{
		ID:        s.genID.Generate(),
		Email:     email,
		PlanTier:  plan.TierFree,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if customerRef != "" {
		record.CustomerRef = &customerRef
	}

	if err := s.repo.Insert(ctx, s.db, &record); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.Record{}, err
		}
		// Lost the insert race; the winner's row is authoritative.
		winner, findErr := s.repo.FindByEmail(ctx, s.db, email)
		if findErr != nil {
			return domain.Record{}, findErr
		}
		if winner == nil {
			return domain.Record{}, err
		}
		return *winner, nil
	}

	s.log.Info("entitlement provisioned", zap.String("entitlement_id", record.ID.String()))
	return record, nil
}

// ApplyPlan anchors a fresh window at the current time. Calling it twice does
// not stack periods; the second call's clock wins.
func (s *Service) ApplyPlan(ctx context.Context, req domain.ApplyPlanRequest) (domain.Record, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Record{}, err
	}
	if !req.Tier.Valid() {
		return domain.Record{}, domain.ErrInvalidTier
	}
	if req.Tier == plan.TierFree {
		return s.Downgrade(ctx, email, req.EventAt)
	}
	if req.DurationMonths <= 0 {
		return domain.Record{}, domain.ErrInvalidDuration
	}
	customerRef := strings.TrimSpace(req.CustomerRef)

	record, err := s.mutate(ctx, email, req.EventAt, func(rec *domain.Record, now time.Time) bool {
		start := now
		end := now.AddDate(0, req.DurationMonths, 0)
		rec.PlanTier = req.Tier
		rec.PlanStartAt = &start
		rec.PlanEndAt = &end
		setFeatured(rec, end)
		linkCustomerRef(rec, customerRef)
		return true
	})
	if err != nil {
		return domain.Record{}, err
	}

	s.log.Info("plan applied",
		zap.String("entitlement_id", record.ID.String()),
		zap.String("tier", record.PlanTier.String()),
		zap.Int("duration_months", req.DurationMonths),
	)
	return record, nil
}

func (s *Service) Downgrade(ctx context.Context, email string, eventAt time.Time) (domain.Record, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domain.Record{}, err
	}
	return s.mutate(ctx, normalized, eventAt, func(rec *domain.Record, _ time.Time) bool {
		return downgrade(rec)
	})
}

// ScheduleLapse keeps the current tier and moves the window end to at.
// The expiry sweep downgrades the record once at has passed.
func (s *Service) ScheduleLapse(ctx context.Context, email string, at, eventAt time.Time) (domain.Record, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domain.Record{}, err
	}
	at = at.UTC()
	return s.mutate(ctx, normalized, eventAt, func(rec *domain.Record, _ time.Time) bool {
		if !rec.PlanTier.Paid() {
			return false
		}
		if rec.PlanEndAt != nil && rec.PlanEndAt.Equal(at) {
			return false
		}
		end := at
		rec.PlanEndAt = &end
		setFeatured(rec, end)
		return true
	})
}

func (s *Service) ExpirePlans(ctx context.Context, limit int) (domain.ExpireResult, error) {
	now := s.clock.Now()
	records, err := s.repo.ListLapsed(ctx, s.db, now, limit)
	if err != nil {
		return domain.ExpireResult{}, err
	}

	result := domain.ExpireResult{Scanned: len(records)}
	var errs []error
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		expected := rec.Version
		downgrade(rec)
		rec.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, rec, expected); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				// Renewed or expired elsewhere since the scan.
				result.Conflicts++
				continue
			}
			errs = append(errs, fmt.Errorf("expire %s: %w", rec.ID, err))
			continue
		}
		result.Downgraded++
	}

	if result.Downgraded > 0 || len(errs) > 0 {
		s.log.Info("expired lapsed plans",
			zap.Int("scanned", result.Scanned),
			zap.Int("downgraded", result.Downgraded),
			zap.Int("conflicts", result.Conflicts),
			zap.Int("errors", len(errs)),
		)
	}
	return result, errors.Join(errs...)
}

func (s *Service) Get(ctx context.Context, email string) (domain.Record, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domain.Record{}, err
	}
	record, err := s.repo.FindByEmail(ctx, s.db, normalized)
	if err != nil {
		return domain.Record{}, err
	}
	if record == nil {
		return domain.Record{}, domain.ErrNotFound
	}
	return *record, nil
}

func (s *Service) FindEmailByCustomerRef(ctx context.Context, customerRef string) (string, error) {
	customerRef = strings.TrimSpace(customerRef)
	if customerRef == "" {
		return "", domain.ErrInvalidCustomerRef
	}
	record, err := s.repo.FindByCustomerRef(ctx, s.db, customerRef)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", domain.ErrNotFound
	}
	return record.Email, nil
}

// mutate loads the record, applies fn and writes it back under the version
// token. A conflicting write reloads and retries once. fn returns false when
// there is nothing to write.
//
// A non-zero eventAt orders provider changes: one older than the record's
// last applied event fails with ErrStaleEvent, and a newer one advances
// last_event_at even when fn changes nothing else.
func (s *Service) mutate(ctx context.Context, email string, eventAt time.Time, fn func(rec *domain.Record, now time.Time) bool) (domain.Record, error) {
	eventAt = eventAt.UTC()
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		rec, err := s.repo.FindByEmail(ctx, s.db, email)
		if err != nil {
			return domain.Record{}, err
		}
		if rec == nil {
			return domain.Record{}, domain.ErrNotFound
		}
		if !eventAt.IsZero() && rec.LastEventAt != nil && eventAt.Before(*rec.LastEventAt) {
			return *rec, domain.ErrStaleEvent
		}

		now := s.clock.Now()
		changed := fn(rec, now)
		if advanceLastEvent(rec, eventAt) {
			changed = true
		}
		if !changed {
			return *rec, nil
		}
		rec.UpdatedAt = now

		err = s.repo.Update(ctx, s.db, rec, rec.Version)
		if err == nil {
			return *rec, nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return domain.Record{}, err
		}
		s.log.Warn("entitlement write conflict",
			zap.String("entitlement_id", rec.ID.String()),
			zap.Int("attempt", attempt),
		)
	}
	return domain.Record{}, domain.ErrVersionConflict
}

func downgrade(rec *domain.Record) bool {
	if rec.PlanTier == plan.TierFree && rec.PlanStartAt == nil && rec.PlanEndAt == nil && !rec.Featured && rec.FeaturedUntil == nil {
		return false
	}
	rec.PlanTier = plan.TierFree
	rec.PlanStartAt = nil
	rec.PlanEndAt = nil
	rec.Featured = false
	rec.FeaturedUntil = nil
	return true
}

func advanceLastEvent(rec *domain.Record, eventAt time.Time) bool {
	if eventAt.IsZero() {
		return false
	}
	if rec.LastEventAt != nil && !eventAt.After(*rec.LastEventAt) {
		return false
	}
	at := eventAt
	rec.LastEventAt = &at
	return true
}

func setFeatured(rec *domain.Record, end time.Time) {
	if rec.PlanTier.Features().Featured {
		until := end
		rec.Featured = true
		rec.FeaturedUntil = &until
		return
	}
	rec.Featured = false
	rec.FeaturedUntil = nil
}

func linkCustomerRef(rec *domain.Record, customerRef string) bool {
	if customerRef == "" || rec.CustomerRef != nil {
		return false
	}
	ref := customerRef
	rec.CustomerRef = &ref
	return true
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
