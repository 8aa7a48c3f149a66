package domain

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Task is a unit of work generated for one assignee when an instance enters
// a node. Tasks are never deleted, only completed.
type Task struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	InstanceID uuid.UUID `gorm:"type:uuid;index;not null"`
	NodeKey    string    `gorm:"type:varchar(100);not null"`

	AssigneeID   string `gorm:"type:varchar(100);index;not null"`
	AssigneeName string `gorm:"type:varchar(200)"`

	Status      TaskStatus `gorm:"type:varchar(20);index;default:'pending'"`
	Name        string     `gorm:"type:varchar(200)"`
	Description string     `gorm:"type:text"`
	Priority    int        `gorm:"default:0"`

	DueAt       *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CompletedBy string `gorm:"type:varchar(100)"`

	ExecutionResult string `gorm:"type:text"`
	Comments        string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTask(instanceID uuid.UUID, nodeKey, assigneeID, assigneeName string) *Task {
	return &Task{
		ID:           uuid.New(),
		InstanceID:   instanceID,
		NodeKey:      nodeKey,
		AssigneeID:   assigneeID,
		AssigneeName: assigneeName,
		Status:       TaskPending,
	}
}

// Open reports whether the task still accepts work (start or complete).
func (t *Task) Open() bool {
	return t.Status == TaskPending || t.Status == TaskInProgress
}
