package domain

import (
	"time"

	"github.com/google/uuid"
)

type InstanceStatus string

const (
	InstanceActive    InstanceStatus = "active"
	InstanceCompleted InstanceStatus = "completed"
	InstanceCancelled InstanceStatus = "cancelled"
	InstanceFailed    InstanceStatus = "failed"
)

// Instance is one running (or finished) execution of a template against a
// specific external entity. CurrentNodeKey must always name a node of the
// instance's template; Version is the optimistic-concurrency guard threaded
// through every mutation.
type Instance struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TemplateID uuid.UUID `gorm:"type:uuid;index;not null"`

	EntityType string    `gorm:"type:varchar(100);not null"`
	EntityID   uuid.UUID `gorm:"type:uuid;index;not null"`
	Name       string    `gorm:"type:varchar(200)"`

	CurrentNodeKey string         `gorm:"type:varchar(100);not null"`
	Status         InstanceStatus `gorm:"type:varchar(20);index;default:'active'"`
	Version        int            `gorm:"default:1"`

	InitiatorID      string `gorm:"type:varchar(100)"`
	StartedAt        time.Time
	CompletedAt      *time.Time
	CompletionReason string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewInstance(templateID uuid.UUID, entityType string, entityID uuid.UUID, name, initiator string) *Instance {
	return &Instance{
		ID:          uuid.New(),
		TemplateID:  templateID,
		EntityType:  entityType,
		EntityID:    entityID,
		Name:        name,
		Status:      InstanceActive,
		Version:     1,
		InitiatorID: initiator,
		StartedAt:   time.Now(),
	}
}

func (i *Instance) IsTerminal() bool {
	return i.Status != InstanceActive
}

// InstanceUpdate is the mutation applied to an instance under the version
// guard: the new current node, the resulting status, and terminal metadata
// when the status is no longer active.
type InstanceUpdate struct {
	CurrentNodeKey   string
	Status           InstanceStatus
	CompletedAt      *time.Time
	CompletionReason string
}
