package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stageflow/internal/domain"
)

// StartTask claims a pending task for work.
func (e *Engine) StartTask(ctx context.Context, taskID uuid.UUID, actor string) (*domain.Task, error) {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskPending {
		return nil, fmt.Errorf("task %s is %s: %w", taskID, task.Status, domain.ErrInvalidState)
	}
	if err := e.tasks.MarkInProgress(ctx, taskID); err != nil {
		return nil, err
	}
	now := time.Now()
	task.Status = domain.TaskInProgress
	task.StartedAt = &now

	if err := e.appendLog(ctx, &domain.ExecutionLogEntry{
		InstanceID: task.InstanceID,
		NodeKey:    task.NodeKey,
		ActorID:    actor,
		Action:     "task_started",
		Result:     fmt.Sprintf("task %q picked up", task.Name),
	}); err != nil {
		return nil, err
	}
	return task, nil
}

// CompleteTask finishes an open task and records the execution result.
// It never advances the workflow itself: deciding whether a finished task
// should trigger a transition is the caller's concern.
func (e *Engine) CompleteTask(ctx context.Context, taskID uuid.UUID, actor, executionResult, comments string) (*domain.Task, error) {
	task, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Open() {
		return nil, fmt.Errorf("task %s is %s: %w", taskID, task.Status, domain.ErrInvalidState)
	}
	if err := e.tasks.MarkCompleted(ctx, taskID, actor, executionResult, comments); err != nil {
		return nil, err
	}
	now := time.Now()
	task.Status = domain.TaskCompleted
	task.CompletedAt = &now
	task.CompletedBy = actor
	task.ExecutionResult = executionResult
	task.Comments = comments

	if err := e.appendLog(ctx, &domain.ExecutionLogEntry{
		InstanceID: task.InstanceID,
		NodeKey:    task.NodeKey,
		ActorID:    actor,
		Action:     domain.ActionComplete,
		Result:     executionResult,
		Comments:   comments,
	}); err != nil {
		return nil, err
	}

	e.metrics.TaskCompleted()
	taskIDCopy := task.ID
	e.notify(ctx, domain.NotificationEvent{
		InstanceID: task.InstanceID,
		TaskID:     &taskIDCopy,
		Type:       domain.EventTaskCompleted,
		Payload:    map[string]any{"node": task.NodeKey, "actor": actor},
	})
	return task, nil
}

// ListTasks returns the instance's tasks, optionally filtered by status.
func (e *Engine) ListTasks(ctx context.Context, instanceID uuid.UUID, status domain.TaskStatus) ([]domain.Task, error) {
	if _, err := e.instances.GetByID(ctx, instanceID); err != nil {
		return nil, err
	}
	return e.tasks.ListByInstance(ctx, instanceID, status)
}
