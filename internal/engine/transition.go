package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stageflow/internal/domain"
)

// Transition advances an instance along the outgoing edge of its current
// node whose condition matches the supplied label exactly. All structural
// checks happen before the first write: a rejected transition leaves the
// instance and its log completely untouched. The instance write itself is
// guarded by the optimistic version; a losing concurrent caller gets
// ErrConcurrentModification and is expected to re-read and retry.
func (e *Engine) Transition(ctx context.Context, instanceID uuid.UUID, condition, actor, comments string) (*domain.Instance, error) {
	started := time.Now()

	inst, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.IsTerminal() {
		e.metrics.TransitionRejected("invalid_state")
		return nil, fmt.Errorf("instance %s is %s: %w", instanceID, inst.Status, domain.ErrInvalidState)
	}

	graph, err := e.loadGraph(ctx, inst.TemplateID)
	if err != nil {
		return nil, err
	}
	if _, ok := graph.Node(inst.CurrentNodeKey); !ok {
		return nil, fmt.Errorf("%w: instance %s points at unknown node %q", domain.ErrInvalidTemplate, instanceID, inst.CurrentNodeKey)
	}

	edge, err := graph.SelectEdge(inst.CurrentNodeKey, condition)
	if err != nil {
		e.metrics.TransitionRejected("no_match")
		return nil, err
	}
	target, _ := graph.Node(edge.TargetKey)

	completed := graph.IsTerminal(edge.TargetKey)
	upd := domain.InstanceUpdate{
		CurrentNodeKey: edge.TargetKey,
		Status:         domain.InstanceActive,
	}
	if completed {
		now := time.Now()
		upd.Status = domain.InstanceCompleted
		upd.CompletedAt = &now
		upd.CompletionReason = fmt.Sprintf("reached terminal node %q", edge.TargetKey)
	}

	if err := e.instances.Advance(ctx, instanceID, inst.Version, upd); err != nil {
		e.metrics.TransitionRejected("conflict")
		return nil, err
	}
	source := inst.CurrentNodeKey
	inst.CurrentNodeKey = upd.CurrentNodeKey
	inst.Status = upd.Status
	inst.CompletedAt = upd.CompletedAt
	inst.CompletionReason = upd.CompletionReason
	inst.Version++

	if err := e.appendLog(ctx, &domain.ExecutionLogEntry{
		InstanceID: instanceID,
		NodeKey:    edge.TargetKey,
		ActorID:    actor,
		Action:     domain.ActionTransition,
		Condition:  condition,
		Result:     fmt.Sprintf("%s -> %s", source, edge.TargetKey),
		Comments:   comments,
	}); err != nil {
		return nil, err
	}

	e.metrics.Transition(time.Since(started))
	e.logger.Info("instance transitioned",
		zap.String("instance_id", instanceID.String()),
		zap.String("from", source),
		zap.String("to", edge.TargetKey),
		zap.String("condition", condition))

	if completed {
		e.metrics.InstanceFinished(string(domain.InstanceCompleted))
		e.notify(ctx, domain.NotificationEvent{
			InstanceID: instanceID,
			Type:       domain.EventInstanceCompleted,
			Payload:    map[string]any{"node": edge.TargetKey, "condition": condition},
		})
		return inst, nil
	}

	e.fanOut(ctx, inst, target)
	return inst, nil
}
