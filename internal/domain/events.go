package domain

import (
	"github.com/google/uuid"
)

// Notification event types published to the dispatcher. Delivery is
// fire-and-forget; the engine never blocks on it.
const (
	EventTaskCreated       = "task.created"
	EventTaskCompleted     = "task.completed"
	EventInstanceCompleted = "instance.completed"
	EventInstanceCancelled = "instance.cancelled"
	EventInstanceFailed    = "instance.failed"
	EventResolutionWarning = "resolution.warning"
)

// NotificationEvent is handed to the notification collaborator on task
// creation/completion and on terminal state transitions.
type NotificationEvent struct {
	InstanceID uuid.UUID      `json:"instance_id"`
	TaskID     *uuid.UUID     `json:"task_id,omitempty"`
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload,omitempty"`
}
