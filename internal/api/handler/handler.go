package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"stageflow/internal/api/dto"
	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
	"stageflow/internal/engine"
)

type WorkflowHandler struct {
	engine    *engine.Engine
	templates ports.TemplateStore
	logger    *zap.Logger
}

func NewWorkflowHandler(eng *engine.Engine, templates ports.TemplateStore, logger *zap.Logger) *WorkflowHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowHandler{engine: eng, templates: templates, logger: logger}
}

// RegisterRoutes mounts the engine's method surface under the group.
func (h *WorkflowHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/templates", h.CreateTemplate)
	api.GET("/templates/:id", h.GetTemplate)

	api.POST("/instances", h.StartInstance)
	api.GET("/instances/:id", h.GetInstance)
	api.POST("/instances/:id/transition", h.Transition)
	api.POST("/instances/:id/cancel", h.Cancel)
	api.POST("/instances/:id/fail", h.Fail)
	api.GET("/instances/:id/progress", h.Progress)
	api.GET("/instances/:id/log", h.ListLog)
	api.GET("/instances/:id/tasks", h.ListTasks)

	api.POST("/tasks/:id/start", h.StartTask)
	api.POST("/tasks/:id/complete", h.CompleteTask)
}

// writeError maps the engine's error taxonomy to HTTP statuses. Conflicts
// carry a retryable flag so callers know a re-read-and-retry is worthwhile.
func (h *WorkflowHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "retryable": true})
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrNoMatchingTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTemplate):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *WorkflowHandler) CreateTemplate(c *gin.Context) {
	var req dto.CreateTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl, nodes, edges := req.ToModel()
	if err := h.templates.CreateTemplate(c.Request.Context(), tmpl, nodes, edges); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": tmpl.ID})
}

func (h *WorkflowHandler) GetTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	tmpl, err := h.templates.GetTemplate(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	nodes, err := h.templates.GetNodes(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	edges, err := h.templates.GetEdges(ctx, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTemplate(tmpl, nodes, edges))
}

func (h *WorkflowHandler) StartInstance(c *gin.Context) {
	var req dto.StartInstanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inst, err := h.engine.Start(c.Request.Context(), engine.StartRequest{
		TemplateID: req.TemplateID,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Name:       req.Name,
		Initiator:  req.Initiator,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromInstance(inst))
}

func (h *WorkflowHandler) GetInstance(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	inst, err := h.engine.GetInstance(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInstance(inst))
}

func (h *WorkflowHandler) Transition(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inst, err := h.engine.Transition(c.Request.Context(), id, req.Condition, req.Actor, req.Comments)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInstance(inst))
}

func (h *WorkflowHandler) Cancel(c *gin.Context) {
	h.terminate(c, h.engine.Cancel)
}

func (h *WorkflowHandler) Fail(c *gin.Context) {
	h.terminate(c, h.engine.Fail)
}

func (h *WorkflowHandler) terminate(c *gin.Context, op func(ctx context.Context, id uuid.UUID, actor, reason string) (*domain.Instance, error)) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.TerminateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	inst, err := op(c.Request.Context(), id, req.Actor, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromInstance(inst))
}

func (h *WorkflowHandler) Progress(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	progress, err := h.engine.Progress(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	elapsed, err := h.engine.ElapsedDays(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"percent":       progress.Percent,
		"visited_nodes": progress.VisitedNodes,
		"total_nodes":   progress.TotalNodes,
		"elapsed_days":  elapsed,
	})
}

func (h *WorkflowHandler) ListLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	entries, err := h.engine.ListExecutionLog(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLogEntries(entries))
}

func (h *WorkflowHandler) ListTasks(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	status := domain.TaskStatus(c.Query("status"))
	tasks, err := h.engine.ListTasks(c.Request.Context(), id, status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTasks(tasks))
}

func (h *WorkflowHandler) StartTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.StartTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.engine.StartTask(c.Request.Context(), id, req.Actor)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTask(task))
}

func (h *WorkflowHandler) CompleteTask(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.CompleteTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task, err := h.engine.CompleteTask(c.Request.Context(), id, req.Actor, req.ExecutionResult, req.Comments)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTask(task))
}
