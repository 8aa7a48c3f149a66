package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stageflow/internal/domain"
)

func (f *fixture) firstTask(t *testing.T, instanceID uuid.UUID) domain.Task {
	t.Helper()
	tasks, err := f.tasks.ListByInstance(context.Background(), instanceID, "")
	require.NoError(t, err)
	require.NotEmpty(t, tasks)
	return tasks[0]
}

func TestStartTaskClaimsPendingTask(t *testing.T) {
	f := newFixture(t)
	tmpl := f.seedHiringTemplate(t)
	inst := f.start(t, tmpl.ID)
	task := f.firstTask(t, inst.ID)

	started, err := f.engine.StartTask(context.Background(), task.ID, "u-recruiter")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskInProgress, started.Status)
	require.NotNil(t, started.StartedAt)

	// Claiming twice fails.
	_, err = f.engine.StartTask(context.Background(), task.ID, "u-recruiter")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestCompleteTaskFromPendingOrInProgress(t *testing.T) {
	f := newFixture(t)
	tmpl := f.seedHiringTemplate(t)

	// Pending straight to completed.
	inst := f.start(t, tmpl.ID)
	task := f.firstTask(t, inst.ID)
	done, err := f.engine.CompleteTask(context.Background(), task.ID, "u-recruiter", "posted", "went live today")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskCompleted, done.Status)
	assert.Equal(t, "u-recruiter", done.CompletedBy)
	assert.Equal(t, "posted", done.ExecutionResult)

	// In-progress to completed.
	inst2 := f.start(t, tmpl.ID)
	task2 := f.firstTask(t, inst2.ID)
	_, err = f.engine.StartTask(context.Background(), task2.ID, "u-recruiter")
	require.NoError(t, err)
	_, err = f.engine.CompleteTask(context.Background(), task2.ID, "u-recruiter", "posted", "")
	require.NoError(t, err)

	// Completed is final.
	_, err = f.engine.CompleteTask(context.Background(), task.ID, "u-recruiter", "again", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestCompleteTaskDoesNotAdvanceInstance(t *testing.T) {
	f := newFixture(t)
	tmpl := f.seedHiringTemplate(t)
	inst := f.start(t, tmpl.ID)
	task := f.firstTask(t, inst.ID)

	_, err := f.engine.CompleteTask(context.Background(), task.ID, "u-recruiter", "posted", "")
	require.NoError(t, err)

	after, err := f.instances.GetByID(context.Background(), inst.ID)
	require.NoError(t, err)
	assert.Equal(t, "post_vacancy", after.CurrentNodeKey,
		"finishing a task records work, the transition is a separate call")
	assert.Equal(t, 1, after.Version)

	events := f.notifier.byType(domain.EventTaskCompleted)
	require.Len(t, events, 1)
	entries := f.entries(t, inst.ID)
	assert.Contains(t, actionsOf(entries), domain.ActionComplete)
}

func TestCompleteUnknownTask(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.CompleteTask(context.Background(), uuid.New(), "u", "", "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestListTasksFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	tmpl := f.seedHiringTemplate(t)
	inst := f.start(t, tmpl.ID)

	_, err := f.engine.Transition(context.Background(), inst.ID, "vacancy_posted", "u", "")
	require.NoError(t, err)

	all, err := f.engine.ListTasks(context.Background(), inst.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	_, err = f.engine.CompleteTask(context.Background(), all[0].ID, "u", "ok", "")
	require.NoError(t, err)

	pending, err := f.engine.ListTasks(context.Background(), inst.ID, domain.TaskPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	completed, err := f.engine.ListTasks(context.Background(), inst.ID, domain.TaskCompleted)
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	_, err = f.engine.ListTasks(context.Background(), uuid.New(), "")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
