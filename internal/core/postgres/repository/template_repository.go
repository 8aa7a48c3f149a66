package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stageflow/internal/core/ports"
	"stageflow/internal/domain"
)

type templateRepository struct {
	db *gorm.DB
}

// NewTemplateRepository creates the gorm-backed template store.
func NewTemplateRepository(db *gorm.DB) ports.TemplateStore {
	return &templateRepository{db: db}
}

// CreateTemplate writes the template with its nodes and edges in one
// transaction. Edge endpoints are checked against the node set before
// anything touches the database; a dangling endpoint is an invalid template,
// not a foreign-key surprise at read time.
func (r *templateRepository) CreateTemplate(ctx context.Context, tmpl *domain.WorkflowTemplate, nodes []domain.Node, edges []domain.Edge) error {
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

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Nodes", "Edges").Create(tmpl).Error; err != nil {
			return err
		}
		for i := range nodes {
			nodes[i].TemplateID = tmpl.ID
			if nodes[i].ID == uuid.Nil {
				nodes[i].ID = uuid.New()
			}
		}
		if len(nodes) > 0 {
			if err := tx.Create(&nodes).Error; err != nil {
				return err
			}
		}
		for i := range edges {
			edges[i].TemplateID = tmpl.ID
		}
		if len(edges) > 0 {
			if err := tx.Create(&edges).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *templateRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*domain.WorkflowTemplate, error) {
	var tmpl domain.WorkflowTemplate
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("template %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

func (r *templateRepository) GetNodes(ctx context.Context, templateID uuid.UUID) ([]domain.Node, error) {
	var nodes []domain.Node
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("sort_order, created_at").
		Find(&nodes).Error
	return nodes, err
}

func (r *templateRepository) GetEdges(ctx context.Context, templateID uuid.UUID) ([]domain.Edge, error) {
	var edges []domain.Edge
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("id").
		Find(&edges).Error
	return edges, err
}
