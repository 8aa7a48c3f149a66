// Package engine implements the workflow orchestration core: starting and
// finishing instances, advancing them along condition-labeled edges, fanning
// out tasks to resolved assignees and keeping the append-only execution log.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
	"stageflow/internal/observability"
)

// Params collects the engine's dependencies. Templates, Instances, Tasks,
// Log and Directory are required; the rest are optional.
type Params struct {
	Templates ports.TemplateStore
	Instances ports.InstanceStore
	Tasks     ports.TaskStore
	Log       ports.ExecutionLogStore
	Directory ports.DirectoryResolver

	// Validator, when set, is consulted before Start. Failures abort the
	// start only in strict mode; otherwise they are logged and ignored.
	Validator         ports.EntityValidator
	StrictEntityCheck bool

	Notifier ports.Notifier
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

type Engine struct {
	templates ports.TemplateStore
	instances ports.InstanceStore
	tasks     ports.TaskStore
	log       ports.ExecutionLogStore
	directory ports.DirectoryResolver

	validator ports.EntityValidator
	strict    bool

	notifier ports.Notifier
	logger   *zap.Logger
	metrics  *observability.Metrics
}

func New(p Params) *Engine {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		templates: p.Templates,
		instances: p.Instances,
		tasks:     p.Tasks,
		log:       p.Log,
		directory: p.Directory,
		validator: p.Validator,
		strict:    p.StrictEntityCheck,
		notifier:  p.Notifier,
		logger:    logger,
		metrics:   p.Metrics,
	}
}

// loadGraph materializes a template's graph. Template absence is fatal to
// every operation that needs the shape.
func (e *Engine) loadGraph(ctx context.Context, templateID uuid.UUID) (*Graph, error) {
	tmpl, err := e.templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	nodes, err := e.templates.GetNodes(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load nodes for template %s: %w", templateID, err)
	}
	edges, err := e.templates.GetEdges(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("load edges for template %s: %w", templateID, err)
	}
	return BuildGraph(tmpl, nodes, edges)
}

// GetInstance reads one instance.
func (e *Engine) GetInstance(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	return e.instances.GetByID(ctx, id)
}

// ListExecutionLog returns the instance's history, oldest first.
func (e *Engine) ListExecutionLog(ctx context.Context, instanceID uuid.UUID) ([]domain.ExecutionLogEntry, error) {
	if _, err := e.instances.GetByID(ctx, instanceID); err != nil {
		return nil, err
	}
	return e.log.ListByInstance(ctx, instanceID)
}

// notify hands an event to the notification collaborator. Delivery is
// best-effort: a failed handoff is logged and never propagated.
func (e *Engine) notify(ctx context.Context, ev domain.NotificationEvent) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, ev); err != nil {
		e.logger.Warn("notification handoff failed",
			zap.String("event_type", ev.Type),
			zap.String("instance_id", ev.InstanceID.String()),
			zap.Error(err))
	}
}

func (e *Engine) appendLog(ctx context.Context, entry *domain.ExecutionLogEntry) error {
	if err := e.log.Append(ctx, entry); err != nil {
		return fmt.Errorf("append %s log entry for instance %s: %w", entry.Action, entry.InstanceID, err)
	}
	return nil
}
