package dto

import (
	"time"

	"github.com/google/uuid"

	"stageflow/internal/domain"
)

type InstanceResponse struct {
	ID               uuid.UUID  `json:"id"`
	TemplateID       uuid.UUID  `json:"template_id"`
	EntityType       string     `json:"entity_type"`
	EntityID         uuid.UUID  `json:"entity_id"`
	Name             string     `json:"name"`
	CurrentNode      string     `json:"current_node"`
	Status           string     `json:"status"`
	Version          int        `json:"version"`
	Initiator        string     `json:"initiator"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CompletionReason string     `json:"completion_reason,omitempty"`
}

func FromInstance(inst *domain.Instance) InstanceResponse {
	return InstanceResponse{
		ID:               inst.ID,
		TemplateID:       inst.TemplateID,
		EntityType:       inst.EntityType,
		EntityID:         inst.EntityID,
		Name:             inst.Name,
		CurrentNode:      inst.CurrentNodeKey,
		Status:           string(inst.Status),
		Version:          inst.Version,
		Initiator:        inst.InitiatorID,
		StartedAt:        inst.StartedAt,
		CompletedAt:      inst.CompletedAt,
		CompletionReason: inst.CompletionReason,
	}
}

type TaskResponse struct {
	ID              uuid.UUID  `json:"id"`
	InstanceID      uuid.UUID  `json:"instance_id"`
	NodeKey         string     `json:"node_key"`
	AssigneeID      string     `json:"assignee_id"`
	AssigneeName    string     `json:"assignee_name,omitempty"`
	Status          string     `json:"status"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	Priority        int        `json:"priority"`
	DueAt           *time.Time `json:"due_at,omitempty"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletedBy     string     `json:"completed_by,omitempty"`
	ExecutionResult string     `json:"execution_result,omitempty"`
	Comments        string     `json:"comments,omitempty"`
}

func FromTask(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:              task.ID,
		InstanceID:      task.InstanceID,
		NodeKey:         task.NodeKey,
		AssigneeID:      task.AssigneeID,
		AssigneeName:    task.AssigneeName,
		Status:          string(task.Status),
		Name:            task.Name,
		Description:     task.Description,
		Priority:        task.Priority,
		DueAt:           task.DueAt,
		StartedAt:       task.StartedAt,
		CompletedAt:     task.CompletedAt,
		CompletedBy:     task.CompletedBy,
		ExecutionResult: task.ExecutionResult,
		Comments:        task.Comments,
	}
}

func FromTasks(tasks []domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		out = append(out, FromTask(&tasks[i]))
	}
	return out
}

type LogEntryResponse struct {
	ID         uint64    `json:"id"`
	InstanceID uuid.UUID `json:"instance_id"`
	NodeKey    string    `json:"node_key,omitempty"`
	ActorID    string    `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	Condition  string    `json:"condition,omitempty"`
	Result     string    `json:"result,omitempty"`
	Comments   string    `json:"comments,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func FromLogEntries(entries []domain.ExecutionLogEntry) []LogEntryResponse {
	out := make([]LogEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LogEntryResponse{
			ID:         e.ID,
			InstanceID: e.InstanceID,
			NodeKey:    e.NodeKey,
			ActorID:    e.ActorID,
			Action:     e.Action,
			Condition:  e.Condition,
			Result:     e.Result,
			Comments:   e.Comments,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}

type TemplateResponse struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Description     string         `json:"description,omitempty"`
	Version         string         `json:"version,omitempty"`
	OwnerPositionID string         `json:"owner_position_id,omitempty"`
	Active          bool           `json:"active"`
	Config          map[string]any `json:"config,omitempty"`
	Nodes           []NodeDTO      `json:"nodes"`
	Edges           []EdgeDTO      `json:"edges"`
}

func FromTemplate(tmpl *domain.WorkflowTemplate, nodes []domain.Node, edges []domain.Edge) TemplateResponse {
	resp := TemplateResponse{
		ID:              tmpl.ID,
		Name:            tmpl.Name,
		Description:     tmpl.Description,
		Version:         tmpl.Version,
		OwnerPositionID: tmpl.OwnerPositionID,
		Active:          tmpl.Active,
		Config:          map[string]any(tmpl.Config),
	}
	for _, n := range nodes {
		resp.Nodes = append(resp.Nodes, NodeDTO{
			Key:               n.Key,
			Label:             n.Label,
			EntityType:        n.EntityType,
			RequiredPositions: []string(n.RequiredPositions),
			AllowedActions:    []string(n.AllowedActions),
			EstimatedDuration: n.EstimatedDuration,
			SLA:               n.SLA,
			Config:            map[string]any(n.Config),
			SortOrder:         n.SortOrder,
		})
	}
	for _, e := range edges {
		resp.Edges = append(resp.Edges, EdgeDTO{
			Source:    e.SourceKey,
			Target:    e.TargetKey,
			Condition: e.Condition,
			Label:     e.Label,
			Priority:  e.Priority,
			Style:     e.Style,
		})
	}
	return resp
}
