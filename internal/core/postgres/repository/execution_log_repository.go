package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
)

type executionLogRepository struct {
	db *gorm.DB
}

// NewExecutionLogRepository creates the gorm-backed execution log. The store
// is append-only; nothing here updates or deletes rows.
func NewExecutionLogRepository(db *gorm.DB) ports.ExecutionLogStore {
	return &executionLogRepository{db: db}
}

func (r *executionLogRepository) Append(ctx context.Context, entry *domain.ExecutionLogEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *executionLogRepository) ListByInstance(ctx context.Context, instanceID uuid.UUID) ([]domain.ExecutionLogEntry, error) {
	var entries []domain.ExecutionLogEntry
	err := r.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("created_at, id").
		Find(&entries).Error
	return entries, err
}
