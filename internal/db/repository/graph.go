package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/featherbox/featherbox/internal/domain"
)

// Compile-time check.
var _ domain.GraphStore = (*GraphRepo)(nil)

// GraphRepo implements domain.GraphStore using SQLite.
type GraphRepo struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// NewGraphRepo creates a GraphRepo over a write/read pool pair.
func NewGraphRepo(writeDB, readDB *sql.DB) *GraphRepo {
	return &GraphRepo{writeDB: writeDB, readDB: readDB}
}

// SaveGraph writes a graph version and its node fingerprints in one
// transaction. The AUTOINCREMENT id guarantees later versions get larger
// ids even after deletions.
func (r *GraphRepo) SaveGraph(ctx context.Context, g domain.Graph, fingerprints map[string]string) (int64, error) {
	tx, err := r.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeErr("save graph", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `INSERT INTO fb_graphs DEFAULT VALUES`)
	if err != nil {
		return 0, storeErr("save graph", err)
	}
	graphID, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("save graph", err)
	}

	for _, n := range g.Nodes {
		fp, ok := fingerprints[n.Name]
		if !ok {
			return 0, storeErr("save graph", fmt.Errorf("node %q has no fingerprint", n.Name))
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fb_nodes (graph_id, name, config_fingerprint) VALUES (?, ?, ?)`,
			graphID, n.Name, fp,
		); err != nil {
			return 0, storeErr("save graph node", err)
		}
	}
	for _, e := range g.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fb_edges (graph_id, from_name, to_name) VALUES (?, ?, ?)`,
			graphID, e.From, e.To,
		); err != nil {
			return 0, storeErr("save graph edge", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, storeErr("save graph", err)
	}
	return graphID, nil
}

// LatestGraphID returns the id of the newest stored graph.
func (r *GraphRepo) LatestGraphID(ctx context.Context) (int64, error) {
	var id int64
	err := r.readDB.QueryRowContext(ctx, `SELECT id FROM fb_graphs ORDER BY id DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNoGraph
	}
	if err != nil {
		return 0, storeErr("latest graph", err)
	}
	return id, nil
}

// LoadGraph returns a stored graph with deterministically ordered nodes
// and edges, plus the per-node fingerprints.
func (r *GraphRepo) LoadGraph(ctx context.Context, id int64) (domain.Graph, map[string]string, error) {
	var g domain.Graph
	fps := map[string]string{}

	rows, err := r.readDB.QueryContext(ctx,
		`SELECT name, config_fingerprint FROM fb_nodes WHERE graph_id = ? ORDER BY name`, id)
	if err != nil {
		return g, nil, storeErr("load graph nodes", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, fp string
		if err := rows.Scan(&name, &fp); err != nil {
			return g, nil, storeErr("load graph nodes", err)
		}
		g.Nodes = append(g.Nodes, domain.Node{Name: name})
		fps[name] = fp
	}
	if err := rows.Err(); err != nil {
		return g, nil, storeErr("load graph nodes", err)
	}
	if len(g.Nodes) == 0 {
		var exists int
		err := r.readDB.QueryRowContext(ctx, `SELECT 1 FROM fb_graphs WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return g, nil, domain.ErrNoGraph
		}
		if err != nil {
			return g, nil, storeErr("load graph", err)
		}
	}

	erows, err := r.readDB.QueryContext(ctx,
		`SELECT from_name, to_name FROM fb_edges WHERE graph_id = ? ORDER BY from_name, to_name`, id)
	if err != nil {
		return g, nil, storeErr("load graph edges", err)
	}
	defer erows.Close()
	for erows.Next() {
		var from, to string
		if err := erows.Scan(&from, &to); err != nil {
			return g, nil, storeErr("load graph edges", err)
		}
		g.Edges = append(g.Edges, domain.Edge{From: from, To: to})
	}
	if err := erows.Err(); err != nil {
		return g, nil, storeErr("load graph edges", err)
	}

	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].Name < g.Nodes[j].Name })
	return g, fps, nil
}

// LatestPipelineGraphID returns the graph the most recent completed
// pipeline ran against. Failed and cancelled pipelines do not count:
// their nodes never fully materialized, so the next run must still see
// them as pending work.
func (r *GraphRepo) LatestPipelineGraphID(ctx context.Context) (int64, error) {
	var id int64
	err := r.readDB.QueryRowContext(ctx,
		`SELECT graph_id FROM fb_pipelines WHERE status = ? ORDER BY started_at DESC, id DESC LIMIT 1`,
		string(domain.PipelineCompleted)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNoGraph
	}
	if err != nil {
		return 0, storeErr("latest pipeline graph", err)
	}
	return id, nil
}
