package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
)

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates the gorm-backed task store.
func NewTaskRepository(db *gorm.DB) ports.TaskStore {
	return &taskRepository{db: db}
}

func (r *taskRepository) CreateBatch(ctx context.Context, tasks []domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&tasks).Error
}

func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *taskRepository) ListByInstance(ctx context.Context, instanceID uuid.UUID, status domain.TaskStatus) ([]domain.Task, error) {
	q := r.db.WithContext(ctx).Where("instance_id = ?", instanceID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var tasks []domain.Task
	err := q.Order("created_at, id").Find(&tasks).Error
	return tasks, err
}

// MarkInProgress claims a pending task. The status check lives in the WHERE
// clause so two callers racing on the same task cannot both succeed.
func (r *taskRepository) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND status = ?", id, domain.TaskPending).
		Updates(map[string]interface{}{
			"status":     domain.TaskInProgress,
			"started_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %s is not pending: %w", id, domain.ErrInvalidState)
	}
	return nil
}

func (r *taskRepository) MarkCompleted(ctx context.Context, id uuid.UUID, actor, executionResult, comments string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&domain.Task{}).
		Where("id = ? AND status IN ?", id, []domain.TaskStatus{domain.TaskPending, domain.TaskInProgress}).
		Updates(map[string]interface{}{
			"status":           domain.TaskCompleted,
			"completed_at":     now,
			"completed_by":     actor,
			"execution_result": executionResult,
			"comments":         comments,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("task %s is not open: %w", id, domain.ErrInvalidState)
	}
	return nil
}
