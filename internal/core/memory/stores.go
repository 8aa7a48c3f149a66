// Package memory provides map-backed implementations of the persistence
// contracts. They mirror the semantics of the postgres repositories,
// including the optimistic version guard and append-only log, and back the
// engine tests as well as embedded, storage-free deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
)

type TemplateStore struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]domain.WorkflowTemplate
	nodes     map[uuid.UUID][]domain.Node
	edges     map[uuid.UUID][]domain.Edge
	edgeSeq   uint64
}

func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		templates: make(map[uuid.UUID]domain.WorkflowTemplate),
		nodes:     make(map[uuid.UUID][]domain.Node),
		edges:     make(map[uuid.UUID][]domain.Edge),
	}
}

func (s *TemplateStore) CreateTemplate(ctx context.Context, tmpl *domain.WorkflowTemplate, nodes []domain.Node, edges []domain.Edge) error {
	keys := make(map[string]struct{}, len(nodes))
	for i := range nodes {
		if nodes[i].Key == "" {
			return fmt.Errorf("%w: node %d has empty key", domain.ErrInvalidTemplate, i)
		}
		if _, dup := keys[nodes[i].Key]; dup {
			return fmt.Errorf("%w: duplicate node key %q", domain.ErrInvalidTemplate, nodes[i].Key)
		}
		keys[nodes[i].Key] = struct{}{}
	}
	for i := range edges {
		if _, ok := keys[edges[i].SourceKey]; !ok {
			return fmt.Errorf("%w: edge source %q is not a node of the template", domain.ErrInvalidTemplate, edges[i].SourceKey)
		}
		if _, ok := keys[edges[i].TargetKey]; !ok {
			return fmt.Errorf("%w: edge target %q is not a node of the template", domain.ErrInvalidTemplate, edges[i].TargetKey)
		}
		if edges[i].Condition == "" {
			return fmt.Errorf("%w: edge %s->%s has empty condition", domain.ErrInvalidTemplate, edges[i].SourceKey, edges[i].TargetKey)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if tmpl.CreatedAt.IsZero() {
		tmpl.CreatedAt = now
	}
	s.templates[tmpl.ID] = *tmpl

	stored := make([]domain.Node, len(nodes))
	for i := range nodes {
		nodes[i].TemplateID = tmpl.ID
		if nodes[i].ID == uuid.Nil {
			nodes[i].ID = uuid.New()
		}
		if nodes[i].CreatedAt.IsZero() {
			nodes[i].CreatedAt = now
		}
		stored[i] = nodes[i]
	}
	s.nodes[tmpl.ID] = stored

	storedEdges := make([]domain.Edge, len(edges))
	for i := range edges {
		s.edgeSeq++
		edges[i].ID = s.edgeSeq
		edges[i].TemplateID = tmpl.ID
		if edges[i].CreatedAt.IsZero() {
			edges[i].CreatedAt = now
		}
		storedEdges[i] = edges[i]
	}
	s.edges[tmpl.ID] = storedEdges
	return nil
}

func (s *TemplateStore) GetTemplate(ctx context.Context, id uuid.UUID) (*domain.WorkflowTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tmpl, ok := s.templates[id]
	if !ok {
		return nil, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	out := tmpl
	return &out, nil
}

func (s *TemplateStore) GetNodes(ctx context.Context, templateID uuid.UUID) ([]domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := append([]domain.Node(nil), s.nodes[templateID]...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].SortOrder < nodes[j].SortOrder })
	return nodes, nil
}

func (s *TemplateStore) GetEdges(ctx context.Context, templateID uuid.UUID) ([]domain.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := append([]domain.Edge(nil), s.edges[templateID]...)
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
	return edges, nil
}

type InstanceStore struct {
	mu        sync.RWMutex
	instances map[uuid.UUID]domain.Instance
}

func NewInstanceStore() *InstanceStore {
	return &InstanceStore{instances: make(map[uuid.UUID]domain.Instance)}
}

func (s *InstanceStore) Create(ctx context.Context, inst *domain.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst.CreatedAt.IsZero() {
		inst.CreatedAt = time.Now()
	}
	s.instances[inst.ID] = *inst
	return nil
}

func (s *InstanceStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	if !ok {
		return nil, fmt.Errorf("instance %s: %w", id, domain.ErrNotFound)
	}
	out := inst
	return &out, nil
}

func (s *InstanceStore) Advance(ctx context.Context, id uuid.UUID, expectedVersion int, upd domain.InstanceUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.instances[id]
	if !ok || inst.Version != expectedVersion {
		return fmt.Errorf("instance %s at version %d: %w", id, expectedVersion, domain.ErrConcurrentModification)
	}
	inst.CurrentNodeKey = upd.CurrentNodeKey
	inst.Status = upd.Status
	inst.CompletedAt = upd.CompletedAt
	inst.CompletionReason = upd.CompletionReason
	inst.Version = expectedVersion + 1
	inst.UpdatedAt = time.Now()
	s.instances[id] = inst
	return nil
}

type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]domain.Task
	order []uuid.UUID
}

func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[uuid.UUID]domain.Task)}
}

func (s *TaskStore) CreateBatch(ctx context.Context, tasks []domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for i := range tasks {
		if tasks[i].CreatedAt.IsZero() {
			tasks[i].CreatedAt = now
		}
		s.tasks[tasks[i].ID] = tasks[i]
		s.order = append(s.order, tasks[i].ID)
	}
	return nil
}

func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	out := task
	return &out, nil
}

func (s *TaskStore) ListByInstance(ctx context.Context, instanceID uuid.UUID, status domain.TaskStatus) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var tasks []domain.Task
	for _, id := range s.order {
		task := s.tasks[id]
		if task.InstanceID != instanceID {
			continue
		}
		if status != "" && task.Status != status {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *TaskStore) MarkInProgress(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || task.Status != domain.TaskPending {
		return fmt.Errorf("task %s is not pending: %w", id, domain.ErrInvalidState)
	}
	now := time.Now()
	task.Status = domain.TaskInProgress
	task.StartedAt = &now
	s.tasks[id] = task
	return nil
}

func (s *TaskStore) MarkCompleted(ctx context.Context, id uuid.UUID, actor, executionResult, comments string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok || !task.Open() {
		return fmt.Errorf("task %s is not open: %w", id, domain.ErrInvalidState)
	}
	now := time.Now()
	task.Status = domain.TaskCompleted
	task.CompletedAt = &now
	task.CompletedBy = actor
	task.ExecutionResult = executionResult
	task.Comments = comments
	s.tasks[id] = task
	return nil
}

type ExecutionLogStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID][]domain.ExecutionLogEntry
	seq     uint64
}

func NewExecutionLogStore() *ExecutionLogStore {
	return &ExecutionLogStore{entries: make(map[uuid.UUID][]domain.ExecutionLogEntry)}
}

func (s *ExecutionLogStore) Append(ctx context.Context, entry *domain.ExecutionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry.ID = s.seq
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	s.entries[entry.InstanceID] = append(s.entries[entry.InstanceID], *entry)
	return nil
}

func (s *ExecutionLogStore) ListByInstance(ctx context.Context, instanceID uuid.UUID) ([]domain.ExecutionLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := append([]domain.ExecutionLogEntry(nil), s.entries[instanceID]...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries, nil
}

var (
	_ ports.TemplateStore     = (*TemplateStore)(nil)
	_ ports.InstanceStore     = (*InstanceStore)(nil)
	_ ports.TaskStore         = (*TaskStore)(nil)
	_ ports.ExecutionLogStore = (*ExecutionLogStore)(nil)
)
