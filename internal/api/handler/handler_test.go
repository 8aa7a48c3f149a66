package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stageflow/internal/core/memory"
	"stageflow/internal/core/ports"
	"stageflow/internal/engine"
)

type mapDirectory map[string][]ports.Assignee

func (d mapDirectory) ResolveAssignees(ctx context.Context, positionID string) ([]ports.Assignee, error) {
	return d[positionID], nil
}

type testServer struct {
	router    *gin.Engine
	templates *memory.TemplateStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	templates := memory.NewTemplateStore()
	eng := engine.New(engine.Params{
		Templates: templates,
		Instances: memory.NewInstanceStore(),
		Tasks:     memory.NewTaskStore(),
		Log:       memory.NewExecutionLogStore(),
		Directory: mapDirectory{
			"HR Recruiter": {{UserID: "u-recruiter", DisplayName: "Rae Recruiter"}},
		},
	})

	router := gin.New()
	NewWorkflowHandler(eng, templates, nil).RegisterRoutes(router.Group("/api/v1"))
	return &testServer{router: router, templates: templates}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *testServer) createHiringTemplate(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/templates", map[string]any{
		"name": "Hiring",
		"nodes": []map[string]any{
			{"key": "post_vacancy", "label": "Post vacancy", "required_positions": []string{"HR Recruiter"}, "sort_order": 0},
			{"key": "review_applications", "label": "Review applications", "sort_order": 1},
			{"key": "done", "label": "Done", "sort_order": 2},
		},
		"edges": []map[string]any{
			{"source": "post_vacancy", "target": "review_applications", "condition": "vacancy_posted"},
			{"source": "review_applications", "target": "done", "condition": "applications_reviewed"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func (s *testServer) startInstance(t *testing.T, templateID string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/instances", map[string]any{
		"template_id": templateID,
		"entity_type": "vacancy",
		"entity_id":   "7b0e4d8e-4a2e-4a61-9a3f-02a8b7f6e001",
		"name":        "Backend engineer",
		"initiator":   "u-hr",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["id"].(string)
}

func TestTemplateLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	id := s.createHiringTemplate(t)

	w := s.do(t, http.MethodGet, "/api/v1/templates/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Hiring", body["name"])
	assert.Len(t, body["nodes"], 3)
	assert.Len(t, body["edges"], 2)
}

func TestCreateTemplateValidation(t *testing.T) {
	s := newTestServer(t)

	// Missing nodes fails binding.
	w := s.do(t, http.MethodPost, "/api/v1/templates", map[string]any{"name": "empty"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Dangling edge is a semantic template error.
	w = s.do(t, http.MethodPost, "/api/v1/templates", map[string]any{
		"name":  "broken",
		"nodes": []map[string]any{{"key": "a"}},
		"edges": []map[string]any{{"source": "a", "target": "ghost", "condition": "go"}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestInstanceFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	tmplID := s.createHiringTemplate(t)
	instID := s.startInstance(t, tmplID)

	w := s.do(t, http.MethodGet, "/api/v1/instances/"+instID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "post_vacancy", body["current_node"])
	assert.Equal(t, "active", body["status"])

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/instances/%s/transition", instID), map[string]any{
		"condition": "vacancy_posted",
		"actor":     "u-hr",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "review_applications", decode(t, w)["current_node"])

	// Undefined condition maps to 409.
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/instances/%s/transition", instID), map[string]any{
		"condition": "bogus",
		"actor":     "u-hr",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Final hop completes the instance.
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/instances/%s/transition", instID), map[string]any{
		"condition": "applications_reviewed",
		"actor":     "u-hr",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["status"])

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/instances/%s/log", instID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 3)
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t)
	tmplID := s.createHiringTemplate(t)

	// Unknown ids are 404.
	w := s.do(t, http.MethodGet, "/api/v1/instances/11111111-1111-1111-1111-111111111111", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Malformed ids are 400.
	w = s.do(t, http.MethodGet, "/api/v1/instances/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Acting on a cancelled instance is 409.
	instID := s.startInstance(t, tmplID)
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/instances/%s/cancel", instID), map[string]any{
		"actor":  "u-admin",
		"reason": "withdrawn",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode(t, w)["status"])

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/instances/%s/transition", instID), map[string]any{
		"condition": "vacancy_posted",
		"actor":     "u-hr",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProgressEndpoint(t *testing.T) {
	s := newTestServer(t)
	tmplID := s.createHiringTemplate(t)
	instID := s.startInstance(t, tmplID)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/instances/%s/progress", instID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(33), body["percent"])
	assert.Equal(t, float64(1), body["visited_nodes"])
	assert.Equal(t, float64(3), body["total_nodes"])
	assert.Equal(t, float64(0), body["elapsed_days"])
}

func TestTaskEndpoints(t *testing.T) {
	s := newTestServer(t)
	tmplID := s.createHiringTemplate(t)
	instID := s.startInstance(t, tmplID)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/instances/%s/tasks", instID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tasks []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	taskID := tasks[0]["id"].(string)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/start", taskID), map[string]any{"actor": "u-recruiter"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "in_progress", decode(t, w)["status"])

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/complete", taskID), map[string]any{
		"actor":            "u-recruiter",
		"execution_result": "posted",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["status"])

	// Double completion is a state conflict.
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/tasks/%s/complete", taskID), map[string]any{
		"actor": "u-recruiter",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Status filter narrows the list.
	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/instances/%s/tasks?status=pending", instID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	assert.Empty(t, tasks)
}
