package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"stageflow/internal/core/memory"
	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
)

// fakeDirectory resolves positions from a map and can be told to fail a
// number of times per position to exercise the bounded retry.
type fakeDirectory struct {
	mu        sync.Mutex
	positions map[string][]ports.Assignee
	failures  map[string]int
	calls     map[string]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		positions: make(map[string][]ports.Assignee),
		failures:  make(map[string]int),
		calls:     make(map[string]int),
	}
}

func (d *fakeDirectory) ResolveAssignees(ctx context.Context, positionID string) ([]ports.Assignee, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls[positionID]++
	if d.failures[positionID] > 0 {
		d.failures[positionID]--
		return nil, context.DeadlineExceeded
	}
	return d.positions[positionID], nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
}

func (n *recordingNotifier) Notify(ctx context.Context, event domain.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) byType(eventType string) []domain.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.NotificationEvent
	for _, e := range n.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	engine    *Engine
	templates *memory.TemplateStore
	instances *memory.InstanceStore
	tasks     *memory.TaskStore
	log       *memory.ExecutionLogStore
	directory *fakeDirectory
	notifier  *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		templates: memory.NewTemplateStore(),
		instances: memory.NewInstanceStore(),
		tasks:     memory.NewTaskStore(),
		log:       memory.NewExecutionLogStore(),
		directory: newFakeDirectory(),
		notifier:  &recordingNotifier{},
	}
	f.engine = New(Params{
		Templates: f.templates,
		Instances: f.instances,
		Tasks:     f.tasks,
		Log:       f.log,
		Directory: f.directory,
		Notifier:  f.notifier,
	})
	return f
}

// seedHiringTemplate creates the canonical fixture: a four-stage hiring
// process ending in a dead-end "done" node.
func (f *fixture) seedHiringTemplate(t *testing.T) *domain.WorkflowTemplate {
	t.Helper()
	tmpl := domain.NewWorkflowTemplate("Hiring", "vacancy to hire")
	nodes := []domain.Node{
		{Key: "post_vacancy", Label: "Post vacancy", SortOrder: 0, RequiredPositions: datatypes.JSONSlice[string]{"HR Recruiter"}, SLA: "3d"},
		{Key: "review_applications", Label: "Review applications", SortOrder: 1, RequiredPositions: datatypes.JSONSlice[string]{"HR Recruiter", "HR Manager"}},
		{Key: "interview", Label: "Interview", SortOrder: 2, RequiredPositions: datatypes.JSONSlice[string]{"HR Manager"}},
		{Key: "done", Label: "Done", SortOrder: 3},
	}
	edges := []domain.Edge{
		{SourceKey: "post_vacancy", TargetKey: "review_applications", Condition: "vacancy_posted"},
		{SourceKey: "review_applications", TargetKey: "interview", Condition: "applications_reviewed"},
		{SourceKey: "interview", TargetKey: "done", Condition: "candidate_accepted"},
	}
	require.NoError(t, f.templates.CreateTemplate(context.Background(), tmpl, nodes, edges))
	f.directory.positions["HR Recruiter"] = []ports.Assignee{{UserID: "u-recruiter", DisplayName: "Rae Recruiter"}}
	f.directory.positions["HR Manager"] = []ports.Assignee{{UserID: "u-manager", DisplayName: "Mel Manager"}}
	return tmpl
}

func (f *fixture) start(t *testing.T, templateID uuid.UUID) *domain.Instance {
	t.Helper()
	inst, err := f.engine.Start(context.Background(), StartRequest{
		TemplateID: templateID,
		EntityType: "vacancy",
		EntityID:   uuid.New(),
		Initiator:  "u-initiator",
	})
	require.NoError(t, err)
	return inst
}

func (f *fixture) entries(t *testing.T, instanceID uuid.UUID) []domain.ExecutionLogEntry {
	t.Helper()
	entries, err := f.log.ListByInstance(context.Background(), instanceID)
	require.NoError(t, err)
	return entries
}

func actionsOf(entries []domain.ExecutionLogEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Action)
	}
	return out
}
