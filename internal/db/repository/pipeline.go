package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/featherbox/featherbox/internal/domain"
)

// Compile-time check.
var _ domain.PipelineStore = (*PipelineRepo)(nil)

// PipelineRepo implements domain.PipelineStore using SQLite.
type PipelineRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// NewPipelineRepo creates a PipelineRepo over a write/read pool pair.
func NewPipelineRepo(writeDB, readDB *sql.DB) *PipelineRepo {
	return &PipelineRepo{writeDB: writeDB, readDB: readDB}
}

// CreatePipeline opens a running pipeline against a graph version.
func (r *PipelineRepo) CreatePipeline(ctx context.Context, graphID int64) (*domain.Pipeline, error) {
	p := &domain.Pipeline{
		ID:        newID(),
		GraphID:   graphID,
		Status:    domain.PipelineRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := r.writeDB.ExecContext(ctx,
		`INSERT INTO fb_pipelines (id, graph_id, status, started_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.GraphID, string(p.Status), p.StartedAt,
	)
	if err != nil {
		return nil, storeErr("create pipeline", err)
	}
	return p, nil
}

// InsertActions records the planned actions of a pipeline in one
// transaction, assigning ids.
func (r *PipelineRepo) InsertActions(ctx context.Context, pipelineID string, actions []domain.Action) ([]domain.Action, error) {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("insert actions", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := make([]domain.Action, len(actions))
	for i, a := range actions {
		a.ID = newID()
		a.PipelineID = pipelineID
		if a.Status == "" {
			a.Status = domain.ActionPending
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fb_pipeline_actions
			   (id, pipeline_id, node_name, execution_order, status, since, until, error)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.PipelineID, a.NodeName, a.ExecutionOrder, string(a.Status),
			nullTimeFromPtr(a.Since), nullTimeFromPtr(a.Until), nullStrFromPtr(a.Error),
		); err != nil {
			return nil, storeErr("insert actions", err)
		}
		out[i] = a
	}

	if err := tx.Commit(); err != nil {
		return nil, storeErr("insert actions", err)
	}
	return out, nil
}

// MarkActionRunning transitions an action to running.
func (r *PipelineRepo) MarkActionRunning(ctx context.Context, id string) error {
	_, err := r.writeDB.ExecContext(ctx,
		`UPDATE fb_pipeline_actions SET status = ?, started_at = ? WHERE id = ?`,
		string(domain.ActionRunning), time.Now().UTC(), id,
	)
	return storeErr("mark action running", err)
}

// FinishAction records an action's terminal status.
func (r *PipelineRepo) FinishAction(ctx context.Context, id string, status domain.ActionStatus, errMsg *string) error {
	_, err := r.writeDB.ExecContext(ctx,
		`UPDATE fb_pipeline_actions SET status = ?, finished_at = ?, error = ? WHERE id = ?`,
		string(status), time.Now().UTC(), nullStrFromPtr(errMsg), id,
	)
	return storeErr("finish action", err)
}

// FinishPipeline records a pipeline's terminal status.
func (r *PipelineRepo) FinishPipeline(ctx context.Context, id string, status domain.PipelineStatus) error {
	_, err := r.writeDB.ExecContext(ctx,
		`UPDATE fb_pipelines SET status = ?, finished_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	return storeErr("finish pipeline", err)
}

// GetPipeline returns a pipeline by id.
func (r *PipelineRepo) GetPipeline(ctx context.Context, id string) (*domain.Pipeline, error) {
	row := r.readDB.QueryRowContext(ctx,
		`SELECT id, graph_id, status, started_at, finished_at FROM fb_pipelines WHERE id = ?`, id)
	p, err := scanPipeline(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("pipeline %q not found", id)
	}
	if err != nil {
		return nil, storeErr("get pipeline", err)
	}
	return p, nil
}

// ListPipelines returns the most recent pipelines, newest first.
func (r *PipelineRepo) ListPipelines(ctx context.Context, limit int) ([]domain.Pipeline, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT id, graph_id, status, started_at, finished_at
		   FROM fb_pipelines ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storeErr("list pipelines", err)
	}
	defer rows.Close()

	var out []domain.Pipeline
	for rows.Next() {
		p, err := scanPipeline(rows)
		if err != nil {
			return nil, storeErr("list pipelines", err)
		}
		out = append(out, *p)
	}
	return out, storeErr("list pipelines", rows.Err())
}

// ListActions returns a pipeline's actions ordered by execution order
// then node name.
func (r *PipelineRepo) ListActions(ctx context.Context, pipelineID string) ([]domain.Action, error) {
	rows, err := r.readDB.QueryContext(ctx,
		`SELECT id, pipeline_id, node_name, execution_order, status,
		        since, until, started_at, finished_at, error
		   FROM fb_pipeline_actions
		  WHERE pipeline_id = ?
		  ORDER BY execution_order, node_name`, pipelineID)
	if err != nil {
		return nil, storeErr("list actions", err)
	}
	defer rows.Close()

	var out []domain.Action
	for rows.Next() {
		var (
			a              domain.Action
			status         string
			since, until   sql.NullTime
			started, ended sql.NullTime
			errMsg         sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.PipelineID, &a.NodeName, &a.ExecutionOrder,
			&status, &since, &until, &started, &ended, &errMsg); err != nil {
			return nil, storeErr("list actions", err)
		}
		a.Status = domain.ActionStatus(status)
		a.Since = timePtrFromNull(since)
		a.Until = timePtrFromNull(until)
		a.StartedAt = timePtrFromNull(started)
		a.FinishedAt = timePtrFromNull(ended)
		a.Error = strPtrFromNull(errMsg)
		out = append(out, a)
	}
	return out, storeErr("list actions", rows.Err())
}

// LastCompletedUntil returns the upper bound of the newest completed
// window for a node. Ingestion windows resume from this point.
func (r *PipelineRepo) LastCompletedUntil(ctx context.Context, node string) (*time.Time, error) {
	var until sql.NullTime
	err := r.readDB.QueryRowContext(ctx,
		`SELECT until FROM fb_pipeline_actions
		  WHERE node_name = ? AND status = ? AND until IS NOT NULL
		  ORDER BY until DESC LIMIT 1`,
		node, string(domain.ActionCompleted),
	).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("last completed until", err)
	}
	return timePtrFromNull(until), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPipeline(row rowScanner) (*domain.Pipeline, error) {
	var (
		p        domain.Pipeline
		status   string
		finished sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.GraphID, &status, &p.StartedAt, &finished); err != nil {
		return nil, err
	}
	p.Status = domain.PipelineStatus(status)
	p.FinishedAt = timePtrFromNull(finished)
	return &p, nil
}
