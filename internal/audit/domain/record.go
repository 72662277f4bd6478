// Package domain defines the append-only audit record.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened.
type EventType string

const (
	SessionCreated      EventType = "session_created"
	SessionCancelled    EventType = "session_cancelled"
	SessionExpired      EventType = "session_expired"
	PlanCompleted       EventType = "plan_completed"
	DeploymentCompleted EventType = "deployment_completed"
	DeploymentFailed    EventType = "deployment_failed"
	ExportIssued        EventType = "export_issued"
)

// Record captures one auditable event. Records are append-only and pruned
// only by the retention sweep.
type Record struct {
	ID        uuid.UUID
	EventType EventType
	Actor     string
	ProjectID string
	SessionID uuid.UUID
	Outcome   string
	Metadata  map[string]any
	CreatedAt time.Time
}
