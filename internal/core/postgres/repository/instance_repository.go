package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
)

type instanceRepository struct {
	db *gorm.DB
}

// NewInstanceRepository creates the gorm-backed instance store.
func NewInstanceRepository(db *gorm.DB) ports.InstanceStore {
	return &instanceRepository{db: db}
}

func (r *instanceRepository) Create(ctx context.Context, inst *domain.Instance) error {
	return r.db.WithContext(ctx).Create(inst).Error
}

func (r *instanceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	var inst domain.Instance
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// Advance applies the mutation only where both id and version match. A
// losing concurrent writer sees zero rows affected and gets
// ErrConcurrentModification; the caller re-reads and retries.
func (r *instanceRepository) Advance(ctx context.Context, id uuid.UUID, expectedVersion int, upd domain.InstanceUpdate) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Instance{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"current_node_key":  upd.CurrentNodeKey,
			"status":            upd.Status,
			"completed_at":      upd.CompletedAt,
			"completion_reason": upd.CompletionReason,
			"version":           expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("instance %s at version %d: %w", id, expectedVersion, domain.ErrConcurrentModification)
	}
	return nil
}
