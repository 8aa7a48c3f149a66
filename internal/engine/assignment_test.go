package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
)

func TestMaterializeTasksFailOpenOnEmptyPosition(t *testing.T) {
	f := newFixture(t)
	tmpl := domain.NewWorkflowTemplate("review", "")
	nodes := []domain.Node{
		{Key: "review", Label: "Review", SortOrder: 0,
			RequiredPositions: datatypes.JSONSlice[string]{"HR Recruiter", "HR Manager"}},
	}
	require.NoError(t, f.templates.CreateTemplate(context.Background(), tmpl, nodes, nil))
	f.directory.positions["HR Recruiter"] = []ports.Assignee{{UserID: "u-recruiter", DisplayName: "Rae Recruiter"}}
	// "HR Manager" deliberately absent from the directory.

	inst := f.start(t, tmpl.ID)

	tasks, err := f.tasks.ListByInstance(context.Background(), inst.ID, "")
	require.NoError(t, err)
	require.Len(t, tasks, 1, "the resolvable position still gets its task")
	assert.Equal(t, "u-recruiter", tasks[0].AssigneeID)
	assert.Equal(t, domain.TaskPending, tasks[0].Status)

	entries := f.entries(t, inst.ID)
	warnings := 0
	for _, e := range entries {
		if e.Action == domain.ActionResolutionWarning {
			warnings++
			assert.Contains(t, e.Result, "HR Manager")
		}
	}
	assert.Equal(t, 1, warnings)

	events := f.notifier.byType(domain.EventResolutionWarning)
	require.Len(t, events, 1)
	assert.Equal(t, "HR Manager", events[0].Payload["position"])
}

func TestMaterializeTasksOnePerAssignee(t *testing.T) {
	f := newFixture(t)
	tmpl := domain.NewWorkflowTemplate("panel", "")
	nodes := []domain.Node{
		{Key: "panel", Label: "Panel interview", SortOrder: 0,
			RequiredPositions: datatypes.JSONSlice[string]{"Interviewer"}},
	}
	require.NoError(t, f.templates.CreateTemplate(context.Background(), tmpl, nodes, nil))
	f.directory.positions["Interviewer"] = []ports.Assignee{
		{UserID: "u-1", DisplayName: "One"},
		{UserID: "u-2", DisplayName: "Two"},
		{UserID: "u-3", DisplayName: "Three"},
	}

	inst := f.start(t, tmpl.ID)

	tasks, err := f.tasks.ListByInstance(context.Background(), inst.ID, "")
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	for _, task := range tasks {
		assert.Equal(t, "Panel interview", task.Name)
	}

	events := f.notifier.byType(domain.EventTaskCreated)
	assert.Len(t, events, 3)
}

func TestResolveAssigneesRetriesTransientFailures(t *testing.T) {
	f := newFixture(t)
	f.directory.positions["Flaky"] = []ports.Assignee{{UserID: "u", DisplayName: "U"}}
	f.directory.failures["Flaky"] = 2

	assignees, err := f.engine.resolveAssignees(context.Background(), "Flaky")
	require.NoError(t, err)
	require.Len(t, assignees, 1)
	assert.Equal(t, 3, f.directory.calls["Flaky"], "two failures then one success")
}

func TestResolveAssigneesGivesUpAfterBoundedAttempts(t *testing.T) {
	f := newFixture(t)
	f.directory.failures["Down"] = 10

	_, err := f.engine.resolveAssignees(context.Background(), "Down")
	require.Error(t, err)
	assert.Equal(t, directoryAttempts, f.directory.calls["Down"])
}

func TestFanOutDegradedDoesNotRollBackTransition(t *testing.T) {
	f := newFixture(t)
	tmpl := f.seedHiringTemplate(t)
	inst := f.start(t, tmpl.ID)

	// Every directory call for the next node fails.
	f.directory.failures["HR Recruiter"] = 100
	f.directory.failures["HR Manager"] = 100

	moved, err := f.engine.Transition(context.Background(), inst.ID, "vacancy_posted", "u", "")
	require.NoError(t, err, "fan-out breakage must not fail a committed transition")
	assert.Equal(t, "review_applications", moved.CurrentNodeKey)

	entries := f.entries(t, inst.ID)
	actions := actionsOf(entries)
	assert.Contains(t, actions, domain.ActionTransition)
	assert.Contains(t, actions, domain.ActionFanoutDegraded)
}

func TestParseSLA(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"3d", 72 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"48h", 48 * time.Hour},
		{"90m", 90 * time.Minute},
	}
	for _, tc := range cases {
		got, err := ParseSLA(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, bad := range []string{"", "soon", "3 days", "d"} {
		_, err := ParseSLA(bad)
		assert.Error(t, err, bad)
	}
}

func TestUnparseableSLAStillCreatesTasks(t *testing.T) {
	f := newFixture(t)
	tmpl := domain.NewWorkflowTemplate("sla", "")
	nodes := []domain.Node{
		{Key: "a", SortOrder: 0, RequiredPositions: datatypes.JSONSlice[string]{"P"}, SLA: "whenever"},
	}
	require.NoError(t, f.templates.CreateTemplate(context.Background(), tmpl, nodes, nil))
	f.directory.positions["P"] = []ports.Assignee{{UserID: "u", DisplayName: "U"}}

	inst := f.start(t, tmpl.ID)

	tasks, err := f.tasks.ListByInstance(context.Background(), inst.ID, "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].DueAt)
}
