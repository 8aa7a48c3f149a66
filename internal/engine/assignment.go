package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
)

const (
	directoryAttempts = 3
	directoryBackoff  = 100 * time.Millisecond
)

// fanOut materializes tasks for a freshly entered node. The transition (or
// start) is already committed at this point, so nothing here may fail the
// caller: any breakage is recorded as a degraded fan-out in the log and the
// instance keeps running.
func (e *Engine) fanOut(ctx context.Context, inst *domain.Instance, node *domain.Node) {
	tasks, err := e.MaterializeTasks(ctx, inst, node)
	if err != nil {
		e.logger.Error("task fan-out degraded",
			zap.String("instance_id", inst.ID.String()),
			zap.String("node", node.Key),
			zap.Error(err))
		if logErr := e.log.Append(ctx, &domain.ExecutionLogEntry{
			InstanceID: inst.ID,
			NodeKey:    node.Key,
			Action:     domain.ActionFanoutDegraded,
			Result:     err.Error(),
		}); logErr != nil {
			e.logger.Error("failed to record degraded fan-out", zap.Error(logErr))
		}
		return
	}
	e.metrics.TasksCreated(len(tasks))
}

// MaterializeTasks resolves the node's required positions and creates one
// pending task per resolved assignee. A position resolving to nobody is
// fail-open: the gap is recorded as a resolution_warning log entry and a
// warning notification, and the remaining positions still get their tasks.
func (e *Engine) MaterializeTasks(ctx context.Context, inst *domain.Instance, node *domain.Node) ([]domain.Task, error) {
	var due *time.Time
	if node.SLA != "" {
		if d, err := ParseSLA(node.SLA); err != nil {
			e.logger.Warn("unparseable node SLA, tasks created without due date",
				zap.String("node", node.Key), zap.String("sla", node.SLA), zap.Error(err))
		} else {
			t := time.Now().Add(d)
			due = &t
		}
	}

	var tasks []domain.Task
	for _, positionID := range node.RequiredPositions {
		assignees, err := e.resolveAssignees(ctx, positionID)
		if err != nil {
			return nil, fmt.Errorf("resolve position %q: %w", positionID, err)
		}
		if len(assignees) == 0 {
			e.metrics.ResolutionWarning()
			if err := e.appendLog(ctx, &domain.ExecutionLogEntry{
				InstanceID: inst.ID,
				NodeKey:    node.Key,
				Action:     domain.ActionResolutionWarning,
				Result:     fmt.Sprintf("position %q resolved to no assignees", positionID),
			}); err != nil {
				return nil, err
			}
			e.notify(ctx, domain.NotificationEvent{
				InstanceID: inst.ID,
				Type:       domain.EventResolutionWarning,
				Payload:    map[string]any{"node": node.Key, "position": positionID},
			})
			continue
		}
		for _, a := range assignees {
			task := domain.NewTask(inst.ID, node.Key, a.UserID, a.DisplayName)
			task.Name = node.Label
			if task.Name == "" {
				task.Name = node.Key
			}
			task.Description = fmt.Sprintf("%s (%s) for %s", task.Name, positionID, inst.Name)
			task.DueAt = due
			tasks = append(tasks, *task)
		}
	}

	if err := e.tasks.CreateBatch(ctx, tasks); err != nil {
		return nil, fmt.Errorf("create tasks for node %q: %w", node.Key, err)
	}
	for i := range tasks {
		taskID := tasks[i].ID
		e.notify(ctx, domain.NotificationEvent{
			InstanceID: inst.ID,
			TaskID:     &taskID,
			Type:       domain.EventTaskCreated,
			Payload:    map[string]any{"node": node.Key, "assignee": tasks[i].AssigneeID},
		})
	}
	return tasks, nil
}

// resolveAssignees calls the external directory with bounded retry. The
// directory is a network collaborator; transient failures get a few chances
// before the fan-out is declared degraded.
func (e *Engine) resolveAssignees(ctx context.Context, positionID string) ([]ports.Assignee, error) {
	var lastErr error
	for attempt := 0; attempt < directoryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(directoryBackoff):
			}
		}
		assignees, err := e.directory.ResolveAssignees(ctx, positionID)
		if err == nil {
			return assignees, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// ParseSLA turns an SLA string into a duration. Plain Go durations are
// accepted, plus "Nd" for days and "Nw" for weeks.
func ParseSLA(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty SLA")
	}
	if n, ok := strings.CutSuffix(s, "d"); ok {
		if days, err := strconv.Atoi(n); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	if n, ok := strings.CutSuffix(s, "w"); ok {
		if weeks, err := strconv.Atoi(n); err == nil {
			return time.Duration(weeks) * 7 * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}
