package engine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stageflow/internal/domain"
)

// StartRequest describes a workflow start. Name is optional and defaults to
// the template name. Starting is deliberately not idempotent: two starts for
// the same entity create two independent instances, and callers wanting
// single-instance-per-entity semantics must check for an active instance
// themselves.
type StartRequest struct {
	TemplateID uuid.UUID
	EntityType string
	EntityID   uuid.UUID
	Name       string
	Initiator  string
}

// Start creates an instance on the template's first node (by sort order),
// appends the start log entry and fans out tasks for that node. If the
// initial node is already terminal the instance completes immediately, with
// no transition entry and no tasks.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*domain.Instance, error) {
	graph, err := e.loadGraph(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if !graph.Template.Active {
		return nil, fmt.Errorf("template %s is not active: %w", req.TemplateID, domain.ErrInvalidState)
	}
	first, err := graph.First()
	if err != nil {
		return nil, err
	}

	if e.validator != nil {
		if err := e.validator.ValidateEntity(ctx, req.EntityType, req.EntityID); err != nil {
			if e.strict {
				return nil, fmt.Errorf("entity %s/%s: %w", req.EntityType, req.EntityID, err)
			}
			e.logger.Warn("entity validation failed, continuing",
				zap.String("entity_type", req.EntityType),
				zap.String("entity_id", req.EntityID.String()),
				zap.Error(err))
		}
	}

	name := req.Name
	if name == "" {
		name = graph.Template.Name
	}
	inst := domain.NewInstance(req.TemplateID, req.EntityType, req.EntityID, name, req.Initiator)
	inst.CurrentNodeKey = first.Key

	completed := graph.IsTerminal(first.Key)
	if completed {
		now := time.Now()
		inst.Status = domain.InstanceCompleted
		inst.CompletedAt = &now
		inst.CompletionReason = "initial node is terminal"
	}

	if err := e.instances.Create(ctx, inst); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}
	if err := e.appendLog(ctx, &domain.ExecutionLogEntry{
		InstanceID: inst.ID,
		NodeKey:    first.Key,
		ActorID:    req.Initiator,
		Action:     domain.ActionStart,
		Result:     fmt.Sprintf("started at node %q", first.Key),
	}); err != nil {
		return nil, err
	}

	e.metrics.InstanceStarted()
	if completed {
		e.metrics.InstanceFinished(string(domain.InstanceCompleted))
		e.notify(ctx, domain.NotificationEvent{
			InstanceID: inst.ID,
			Type:       domain.EventInstanceCompleted,
			Payload:    map[string]any{"node": first.Key, "reason": inst.CompletionReason},
		})
		return inst, nil
	}

	e.fanOut(ctx, inst, first)
	return inst, nil
}

// Cancel moves an active instance to cancelled. Terminal instances reject
// the call.
func (e *Engine) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (*domain.Instance, error) {
	return e.terminate(ctx, id, actor, reason, domain.InstanceCancelled, domain.ActionCancel, domain.EventInstanceCancelled)
}

// Fail moves an active instance to failed, symmetric to Cancel.
func (e *Engine) Fail(ctx context.Context, id uuid.UUID, actor, reason string) (*domain.Instance, error) {
	return e.terminate(ctx, id, actor, reason, domain.InstanceFailed, domain.ActionFail, domain.EventInstanceFailed)
}

func (e *Engine) terminate(ctx context.Context, id uuid.UUID, actor, reason string, status domain.InstanceStatus, action, eventType string) (*domain.Instance, error) {
	inst, err := e.instances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inst.IsTerminal() {
		return nil, fmt.Errorf("instance %s is already %s: %w", id, inst.Status, domain.ErrInvalidState)
	}

	now := time.Now()
	upd := domain.InstanceUpdate{
		CurrentNodeKey:   inst.CurrentNodeKey,
		Status:           status,
		CompletedAt:      &now,
		CompletionReason: reason,
	}
	if err := e.instances.Advance(ctx, id, inst.Version, upd); err != nil {
		return nil, err
	}
	inst.Status = status
	inst.CompletedAt = &now
	inst.CompletionReason = reason
	inst.Version++

	if err := e.appendLog(ctx, &domain.ExecutionLogEntry{
		InstanceID: id,
		NodeKey:    inst.CurrentNodeKey,
		ActorID:    actor,
		Action:     action,
		Result:     reason,
	}); err != nil {
		return nil, err
	}

	e.metrics.InstanceFinished(string(status))
	e.notify(ctx, domain.NotificationEvent{
		InstanceID: id,
		Type:       eventType,
		Payload:    map[string]any{"node": inst.CurrentNodeKey, "reason": reason, "actor": actor},
	})
	return inst, nil
}

// Progress is a read-only view over the execution log: the share of the
// template's nodes the instance has visited at least once.
type Progress struct {
	Percent      int `json:"percent"`
	VisitedNodes int `json:"visited_nodes"`
	TotalNodes   int `json:"total_nodes"`
}

func (e *Engine) Progress(ctx context.Context, id uuid.UUID) (*Progress, error) {
	inst, err := e.instances.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	nodes, err := e.templates.GetNodes(ctx, inst.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("load nodes for template %s: %w", inst.TemplateID, err)
	}
	entries, err := e.log.ListByInstance(ctx, id)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]struct{})
	for _, entry := range entries {
		if entry.NodeKey != "" {
			visited[entry.NodeKey] = struct{}{}
		}
	}

	p := &Progress{VisitedNodes: len(visited), TotalNodes: len(nodes)}
	if p.TotalNodes > 0 {
		p.Percent = int(math.Round(100 * float64(p.VisitedNodes) / float64(p.TotalNodes)))
	}
	return p, nil
}

// ElapsedDays returns whole days between the instance start and its
// completion, or now while it is still running.
func (e *Engine) ElapsedDays(ctx context.Context, id uuid.UUID) (int, error) {
	inst, err := e.instances.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	end := time.Now()
	if inst.CompletedAt != nil {
		end = *inst.CompletedAt
	}
	return int(end.Sub(inst.StartedAt).Hours() / 24), nil
}
