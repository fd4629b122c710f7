// Package postgres contains the concrete implementation of the persistence layer using GORM and PostgreSQL.
package postgres

import (
	"context"
	"time"

	"fintrack/config"
	domainerrors "fintrack/internal/domain/errors"
	"fintrack/internal/domain/repository"
	"fintrack/internal/errors"

	"gorm.io/gorm"
)

// gormTransactionManager implements the domain's TransactionManager interface using GORM.
type gormTransactionManager struct {
	db      *gorm.DB
	timeout time.Duration
}

// gormRepositoryFactory hands out repositories bound to one *gorm.DB transaction.
// They carry no statement timeout of their own; the transaction deadline set in
// Execute bounds them.
type gormRepositoryFactory struct {
	tx *gorm.DB
}

func (f *gormRepositoryFactory) NewUserRepository() repository.UserRepository {
	return newUserRepository(f.tx, 0)
}

func (f *gormRepositoryFactory) NewSessionRepository() repository.SessionRepository {
	return newSessionRepository(f.tx, 0)
}

func (f *gormRepositoryFactory) NewOTPRepository() repository.OTPRepository {
	return newOTPRepository(f.tx, 0)
}

func (f *gormRepositoryFactory) NewPaymentRepository() repository.PaymentRepository {
	return newPaymentRepository(f.tx, 0)
}

func (f *gormRepositoryFactory) NewSubscriptionRepository() repository.SubscriptionRepository {
	return newSubscriptionRepository(f.tx, 0)
}

func (f *gormRepositoryFactory) NewWebhookEventRepository() repository.WebhookEventRepository {
	return newWebhookEventRepository(f.tx, 0)
}

// NewTransactionManager is the constructor for gormTransactionManager.
// This function will be used as an Fx provider.
func NewTransactionManager(db *gorm.DB, cfg *config.Config) repository.TransactionManager {
	return &gormTransactionManager{db: db, timeout: cfg.Upstream.StoreTimeout}
}

// Execute runs the given function within a single database transaction.
// The whole transaction shares one store deadline.
func (tm *gormTransactionManager) Execute(ctx context.Context, fn func(repoFactory repository.RepositoryFactory) error) error {
	if tm.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, tm.timeout)
		defer cancel()
	}

	tx := tm.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return domainerrors.NewDatabaseExecuteError(tx.Error, "failed to begin transaction")
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	factory := &gormRepositoryFactory{tx: tx}

	if err := fn(factory); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			return errors.Wrapf(err, "transaction rollback failed: %v", rbErr)
		}

		return err
	}

	if err := tx.Commit().Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to commit transaction")
	}

	return nil
}
