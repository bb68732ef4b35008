package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/talentloop/internal/entitlement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const selectColumns = `SELECT id, email, customer_ref, plan_tier, plan_start_at, plan_end_at,
		featured, featured_until, last_event_at, version, created_at, updated_at
		FROM entitlements`

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Raw(selectColumns+` WHERE email = ?`, email).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) FindByCustomerRef(ctx context.Context, db *gorm.DB, customerRef string) (*domain.Record, error) {
	var record domain.Record
	err := db.WithContext(ctx).Raw(
		selectColumns+` WHERE customer_ref = ? ORDER BY updated_at DESC LIMIT 1`,
		customerRef,
	).Scan(&record).Error
	if err != nil {
		return nil, err
	}
	if record.ID == 0 {
		return nil, nil
	}
	return &record, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, record *domain.Record) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO entitlements (id, email, customer_ref, plan_tier, plan_start_at, plan_end_at,
			featured, featured_until, last_event_at, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Email,
		record.CustomerRef,
		record.PlanTier,
		record.PlanStartAt,
		record.PlanEndAt,
		record.Featured,
		record.FeaturedUntil,
		record.LastEventAt,
		record.Version,
		record.CreatedAt,
		record.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, record *domain.Record, expectedVersion int64) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE entitlements
		 SET customer_ref = ?, plan_tier = ?, plan_start_at = ?, plan_end_at = ?,
			featured = ?, featured_until = ?, last_event_at = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		record.CustomerRef,
		record.PlanTier,
		record.PlanStartAt,
		record.PlanEndAt,
		record.Featured,
		record.FeaturedUntil,
		record.LastEventAt,
		record.UpdatedAt,
		record.ID,
		expectedVersion,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	record.Version = expectedVersion + 1
	return nil
}

func (r *repo) ListLapsed(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*domain.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []*domain.Record
	err := db.WithContext(ctx).Raw(
		selectColumns+` WHERE plan_tier <> 'free' AND plan_end_at IS NOT NULL AND plan_end_at < ?
		 ORDER BY plan_end_at ASC, id ASC
		 LIMIT ?`,
		now,
		limit,
	).Scan(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
