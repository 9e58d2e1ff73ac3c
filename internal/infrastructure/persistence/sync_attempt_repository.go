package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/persistence/models"
)

const defaultHistoryLimit = 20

// GormSyncAttemptRepository is the append-only audit log of reconciliation
// attempts. Reconciliation never reads it back to decide whether an order
// was synced.
type GormSyncAttemptRepository struct {
	db *gorm.DB
}

// NewGormSyncAttemptRepository creates a new GormSyncAttemptRepository
func NewGormSyncAttemptRepository(db *gorm.DB) *GormSyncAttemptRepository {
	return &GormSyncAttemptRepository{db: db}
}

// Record appends one attempt.
func (r *GormSyncAttemptRepository) Record(ctx context.Context, attempt *integration.SyncAttempt) error {
	if attempt == nil {
		return errors.New("sync attempt cannot be nil")
	}
	model := models.SyncAttemptModelFromDomain(attempt)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to record sync attempt for order %s: %w", attempt.OrderID, err)
	}
	return nil
}

// ListByOrder returns the newest attempts for one storefront order.
func (r *GormSyncAttemptRepository) ListByOrder(ctx context.Context, orderID string, limit int) ([]*integration.SyncAttempt, error) {
	var rows []models.SyncAttemptModel
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("started_at DESC").
		Limit(normalizeLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync attempts for order %s: %w", orderID, err)
	}
	return toDomainAttempts(rows), nil
}

// ListFailedSince returns failed attempts that started at or after since,
// newest first.
func (r *GormSyncAttemptRepository) ListFailedSince(ctx context.Context, since time.Time, limit int) ([]*integration.SyncAttempt, error) {
	var rows []models.SyncAttemptModel
	err := r.db.WithContext(ctx).
		Where("outcome = ? AND started_at >= ?", integration.SyncOutcomeFailed, since).
		Order("started_at DESC").
		Limit(normalizeLimit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list failed sync attempts: %w", err)
	}
	return toDomainAttempts(rows), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}

func toDomainAttempts(rows []models.SyncAttemptModel) []*integration.SyncAttempt {
	out := make([]*integration.SyncAttempt, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}
