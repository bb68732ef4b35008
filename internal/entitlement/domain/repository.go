package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Record, error)
	FindByCustomerRef(ctx context.Context, db *gorm.DB, customerRef string) (*Record, error)
	Insert(ctx context.Context, db *gorm.DB, record *Record) error
	// Update writes the mutable fields when the stored version still equals
	// expectedVersion, and returns ErrVersionConflict otherwise.
	Update(ctx context.Context, db *gorm.DB, record *Record, expectedVersion int64) error
	ListLapsed(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]*Record, error)
}
