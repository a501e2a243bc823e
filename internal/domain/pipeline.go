package domain

import "time"

// PipelineStatus is the lifecycle state of one end-to-end run attempt.
type PipelineStatus string

// Pipeline statuses.
const (
	PipelineRunning   PipelineStatus = "running"
	PipelineCompleted PipelineStatus = "completed"
	PipelineFailed    PipelineStatus = "failed"
	PipelineCancelled PipelineStatus = "cancelled"
)

// ActionStatus is the lifecycle state of one node execution.
//
// Legal transitions: pending -> running -> {completed, failed} and
// pending -> skipped. Nothing else.
type ActionStatus string

// Action statuses.
const (
	ActionPending   ActionStatus = "pending"
	ActionRunning   ActionStatus = "running"
	ActionCompleted ActionStatus = "completed"
	ActionFailed    ActionStatus = "failed"
	ActionSkipped   ActionStatus = "skipped"
)

// Pipeline is one run attempt against a specific graph.
type Pipeline struct {
	ID         string
	GraphID    int64
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     PipelineStatus
}

// Action is one node execution within a pipeline. Since and Until bound
// the data time window the action covered, for adapters that support
// time-bounded ingestion; both are nil otherwise.
type Action struct {
	ID             string
	PipelineID     string
	NodeName       string
	ExecutionOrder int
	Since          *time.Time
	Until          *time.Time
	Status         ActionStatus
	StartedAt      *time.Time
	FinishedAt     *time.Time
	Error          *string
}
