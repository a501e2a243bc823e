package domain

import (
	"context"
	"time"
)

// GraphStore persists dependency graph versions. Graph ids are assigned
// by the store and strictly increase, so a larger id always means a
// later version.
type GraphStore interface {
	// SaveGraph writes a new graph version atomically with the per-node
	// configuration fingerprints and returns its id.
	SaveGraph(ctx context.Context, g Graph, fingerprints map[string]string) (int64, error)

	// LatestGraphID returns the id of the newest graph, or ErrNoGraph.
	LatestGraphID(ctx context.Context) (int64, error)

	// LoadGraph returns a stored graph and its node fingerprints.
	LoadGraph(ctx context.Context, id int64) (Graph, map[string]string, error)

	// LatestPipelineGraphID returns the graph id referenced by the most
	// recent completed pipeline, or ErrNoGraph when none completed yet.
	LatestPipelineGraphID(ctx context.Context) (int64, error)
}

// PipelineStore persists pipeline executions and their actions.
type PipelineStore interface {
	// CreatePipeline opens a running pipeline against a graph version.
	CreatePipeline(ctx context.Context, graphID int64) (*Pipeline, error)

	// InsertActions records the planned actions of a pipeline. Action ids
	// are assigned by the store; the returned slice carries them.
	InsertActions(ctx context.Context, pipelineID string, actions []Action) ([]Action, error)

	// MarkActionRunning transitions an action to running and stamps its
	// start time.
	MarkActionRunning(ctx context.Context, id string) error

	// FinishAction records an action's terminal status, finish time, and
	// optional error message.
	FinishAction(ctx context.Context, id string, status ActionStatus, errMsg *string) error

	// FinishPipeline records a pipeline's terminal status and finish time.
	FinishPipeline(ctx context.Context, id string, status PipelineStatus) error

	// GetPipeline returns a pipeline by id.
	GetPipeline(ctx context.Context, id string) (*Pipeline, error)

	// ListActions returns a pipeline's actions ordered by execution order
	// then node name.
	ListActions(ctx context.Context, pipelineID string) ([]Action, error)

	// ListPipelines returns the most recent pipelines, newest first.
	ListPipelines(ctx context.Context, limit int) ([]Pipeline, error)

	// LastCompletedUntil returns the upper bound of the newest completed
	// window for a node, or nil when the node never completed an action.
	LastCompletedUntil(ctx context.Context, node string) (*time.Time, error)
}
