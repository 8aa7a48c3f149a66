package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CompletionMode controls how the engine decides that a node is terminal.
type CompletionMode string

const (
	// CompletionImplicit treats any node with zero outgoing edges as terminal.
	CompletionImplicit CompletionMode = "implicit"
	// CompletionExplicit requires a node to carry a "terminal" marker in its
	// config; dead-end nodes without the marker leave the instance active.
	CompletionExplicit CompletionMode = "explicit"
)

// WorkflowTemplate is the reusable definition of a business process.
// Templates are immutable once instances reference them; the engine only
// ever reads them.
type WorkflowTemplate struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key"`
	Name            string    `gorm:"type:varchar(200);not null"`
	Description     string    `gorm:"type:text"`
	Config          datatypes.JSONMap
	Version         string    `gorm:"type:varchar(50)"`
	OwnerPositionID string    `gorm:"type:varchar(100)"`
	Active          bool      `gorm:"default:true"`

	Nodes []Node `gorm:"foreignKey:TemplateID"`
	Edges []Edge `gorm:"foreignKey:TemplateID"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewWorkflowTemplate(name, description string) *WorkflowTemplate {
	return &WorkflowTemplate{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Active:      true,
		Config:      datatypes.JSONMap{},
	}
}

// CompletionMode reads the template's terminal-detection setting. Templates
// without an explicit setting fall back to the zero-out-degree heuristic.
func (t *WorkflowTemplate) CompletionMode() CompletionMode {
	if t.Config != nil {
		if v, ok := t.Config["completion"].(string); ok && CompletionMode(v) == CompletionExplicit {
			return CompletionExplicit
		}
	}
	return CompletionImplicit
}

// Node is one stage of a process. Key is the template-local identifier the
// rest of the engine uses; ID exists only as a storage primary key.
type Node struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TemplateID uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_template_node_key"`
	Key        string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_template_node_key"`
	Label      string    `gorm:"type:varchar(200)"`
	EntityType string    `gorm:"type:varchar(100)"`

	RequiredPositions datatypes.JSONSlice[string]
	AllowedActions    datatypes.JSONSlice[string]

	EstimatedDuration string `gorm:"type:varchar(50)"`
	SLA               string `gorm:"type:varchar(50)"`
	Config            datatypes.JSONMap
	SortOrder         int `gorm:"index;default:0"`

	CreatedAt time.Time
}

// Terminal reports whether the node carries an explicit terminal marker.
// Only consulted when the owning template uses CompletionExplicit.
func (n *Node) Terminal() bool {
	if n.Config == nil {
		return false
	}
	v, ok := n.Config["terminal"].(bool)
	return ok && v
}

// Edge is a permitted, labeled transition between two nodes of one template.
// The auto-incremented ID doubles as the creation-order tie-break when two
// edges share a source and condition at equal priority.
type Edge struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	TemplateID uuid.UUID `gorm:"type:uuid;index;not null"`
	SourceKey  string    `gorm:"type:varchar(100);not null;index"`
	TargetKey  string    `gorm:"type:varchar(100);not null"`
	Condition  string    `gorm:"type:varchar(200);not null"`
	Label      string    `gorm:"type:varchar(200)"`
	Priority   int       `gorm:"default:0"`
	Style      string    `gorm:"type:varchar(100)"`

	CreatedAt time.Time
}
