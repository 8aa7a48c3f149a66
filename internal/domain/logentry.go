package domain

import (
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the execution log.
const (
	ActionStart             = "start"
	ActionTransition        = "transition"
	ActionComplete          = "complete"
	ActionCancel            = "cancel"
	ActionFail              = "fail"
	ActionResolutionWarning = "resolution_warning"
	ActionFanoutDegraded    = "fanout_degraded"
)

// ExecutionLogEntry is one record of the append-only instance history.
// Entries are never mutated or deleted; the auto-incremented ID breaks
// timestamp ties in insertion order.
type ExecutionLogEntry struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	InstanceID uuid.UUID `gorm:"type:uuid;index;not null"`
	NodeKey    string    `gorm:"type:varchar(100)"`

	ActorID   string `gorm:"type:varchar(100)"`
	Action    string `gorm:"type:varchar(50);not null"`
	Condition string `gorm:"type:varchar(200)"`
	Result    string `gorm:"type:text"`
	Comments  string `gorm:"type:text"`

	CreatedAt time.Time
}

func (ExecutionLogEntry) TableName() string { return "execution_log" }
