package ports

import (
	"context"

	"github.com/google/uuid"

	"stageflow/internal/domain"
)

// TemplateStore reads immutable process definitions. Template authoring is
// an administrative concern; CreateTemplate exists as the seeding path and
// must reject edges whose endpoints are not nodes of the same template.
type TemplateStore interface {
	// CreateTemplate persists a template with its nodes and edges atomically.
	CreateTemplate(ctx context.Context, tmpl *domain.WorkflowTemplate, nodes []domain.Node, edges []domain.Edge) error

	GetTemplate(ctx context.Context, id uuid.UUID) (*domain.WorkflowTemplate, error)

	// GetNodes returns the template's nodes ordered by sort position.
	GetNodes(ctx context.Context, templateID uuid.UUID) ([]domain.Node, error)

	// GetEdges returns the template's edges in creation order.
	GetEdges(ctx context.Context, templateID uuid.UUID) ([]domain.Edge, error)
}

// InstanceStore persists running and finished instances.
type InstanceStore interface {
	Create(ctx context.Context, inst *domain.Instance) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Instance, error)

	// Advance moves the instance to a new current node (and possibly a
	// terminal status) guarded by the expected version: the update applies
	// only where id and version both match, and a zero-row result surfaces
	// as domain.ErrConcurrentModification.
	Advance(ctx context.Context, id uuid.UUID, expectedVersion int, upd domain.InstanceUpdate) error
}

// TaskStore persists work items. Tasks are never deleted.
type TaskStore interface {
	CreateBatch(ctx context.Context, tasks []domain.Task) error

	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListByInstance filters by status when status is non-empty.
	ListByInstance(ctx context.Context, instanceID uuid.UUID, status domain.TaskStatus) ([]domain.Task, error)

	// MarkInProgress sets a pending task in_progress; zero rows affected
	// means the task was not pending anymore.
	MarkInProgress(ctx context.Context, id uuid.UUID) error

	// MarkCompleted completes an open (pending or in_progress) task; zero
	// rows affected means the task was already completed.
	MarkCompleted(ctx context.Context, id uuid.UUID, actor, executionResult, comments string) error
}

// ExecutionLogStore is append-only: no update or delete surface exists.
type ExecutionLogStore interface {
	Append(ctx context.Context, entry *domain.ExecutionLogEntry) error

	// ListByInstance returns entries ordered by timestamp, insertion order
	// breaking ties.
	ListByInstance(ctx context.Context, instanceID uuid.UUID) ([]domain.ExecutionLogEntry, error)
}

// Assignee is a concrete party a position resolves to.
type Assignee struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// DirectoryResolver maps a required-position identifier to the parties that
// currently hold it. Implemented by the external user/position directory.
type DirectoryResolver interface {
	ResolveAssignees(ctx context.Context, positionID string) ([]Assignee, error)
}

// EntityValidator optionally confirms the external entity a workflow
// concerns actually exists. Only consulted when the engine runs in strict
// mode.
type EntityValidator interface {
	ValidateEntity(ctx context.Context, entityType string, entityID uuid.UUID) error
}

// Notifier receives fire-and-forget events on task creation/completion and
// terminal state transitions. Implementations must not block the engine;
// delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, event domain.NotificationEvent) error
}
