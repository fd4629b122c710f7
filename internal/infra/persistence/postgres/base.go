package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// baseRepository bounds every statement by the configured store timeout.
type baseRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func newBaseRepository(db *gorm.DB, timeout time.Duration) baseRepository {
	return baseRepository{db: db, timeout: timeout}
}

// conn returns a session bound to ctx with the store deadline applied.
// The returned cancel must always be called.
func (b baseRepository) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if b.timeout <= 0 {
		return b.db.WithContext(ctx), func() {}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)

	return b.db.WithContext(ctx), cancel
}
