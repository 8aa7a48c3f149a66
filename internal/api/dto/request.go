package dto

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"stageflow/internal/domain"
)

type NodeDTO struct {
	Key               string         `json:"key" binding:"required"`
	Label             string         `json:"label"`
	EntityType        string         `json:"entity_type"`
	RequiredPositions []string       `json:"required_positions"`
	AllowedActions    []string       `json:"allowed_actions"`
	EstimatedDuration string         `json:"estimated_duration"`
	SLA               string         `json:"sla"`
	Config            map[string]any `json:"config"`
	SortOrder         int            `json:"sort_order"`
}

type EdgeDTO struct {
	Source    string `json:"source" binding:"required"`
	Target    string `json:"target" binding:"required"`
	Condition string `json:"condition" binding:"required"`
	Label     string `json:"label"`
	Priority  int    `json:"priority"`
	Style     string `json:"style"`
}

type CreateTemplateRequest struct {
	Name            string         `json:"name" binding:"required"`
	Description     string         `json:"description"`
	Version         string         `json:"version"`
	OwnerPositionID string         `json:"owner_position_id"`
	Config          map[string]any `json:"config"`
	Nodes           []NodeDTO      `json:"nodes" binding:"required,min=1"`
	Edges           []EdgeDTO      `json:"edges"`
}

// ToModel converts the request into the storage shapes.
func (r *CreateTemplateRequest) ToModel() (*domain.WorkflowTemplate, []domain.Node, []domain.Edge) {
	tmpl := domain.NewWorkflowTemplate(r.Name, r.Description)
	tmpl.Version = r.Version
	tmpl.OwnerPositionID = r.OwnerPositionID
	if r.Config != nil {
		tmpl.Config = datatypes.JSONMap(r.Config)
	}

	nodes := make([]domain.Node, 0, len(r.Nodes))
	for _, n := range r.Nodes {
		nodes = append(nodes, domain.Node{
			ID:                uuid.New(),
			Key:               n.Key,
			Label:             n.Label,
			EntityType:        n.EntityType,
			RequiredPositions: datatypes.JSONSlice[string](n.RequiredPositions),
			AllowedActions:    datatypes.JSONSlice[string](n.AllowedActions),
			EstimatedDuration: n.EstimatedDuration,
			SLA:               n.SLA,
			Config:            datatypes.JSONMap(n.Config),
			SortOrder:         n.SortOrder,
		})
	}
	edges := make([]domain.Edge, 0, len(r.Edges))
	for _, e := range r.Edges {
		edges = append(edges, domain.Edge{
			SourceKey: e.Source,
			TargetKey: e.Target,
			Condition: e.Condition,
			Label:     e.Label,
			Priority:  e.Priority,
			Style:     e.Style,
		})
	}
	return tmpl, nodes, edges
}

type StartInstanceRequest struct {
	TemplateID uuid.UUID `json:"template_id" binding:"required"`
	EntityType string    `json:"entity_type" binding:"required"`
	EntityID   uuid.UUID `json:"entity_id" binding:"required"`
	Name       string    `json:"name"`
	Initiator  string    `json:"initiator" binding:"required"`
}

type TransitionRequest struct {
	Condition string `json:"condition" binding:"required"`
	Actor     string `json:"actor" binding:"required"`
	Comments  string `json:"comments"`
}

type TerminateRequest struct {
	Actor  string `json:"actor" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type StartTaskRequest struct {
	Actor string `json:"actor" binding:"required"`
}

type CompleteTaskRequest struct {
	Actor           string `json:"actor" binding:"required"`
	ExecutionResult string `json:"execution_result"`
	Comments        string `json:"comments"`
}
