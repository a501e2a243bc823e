// Package runner wires configuration, graph versioning, planning, and
// execution into the operations the CLI exposes.
package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/featherbox/featherbox/internal/config"
	"github.com/featherbox/featherbox/internal/db"
	"github.com/featherbox/featherbox/internal/db/repository"
	"github.com/featherbox/featherbox/internal/domain"
	"github.com/featherbox/featherbox/internal/engine"
	"github.com/featherbox/featherbox/internal/graph"
	"github.com/featherbox/featherbox/internal/pipeline"
	"github.com/featherbox/featherbox/internal/storage"
)

// Engine is the catalog session the runner drives. *engine.Engine
// implements it.
type Engine interface {
	pipeline.Engine
	Query(ctx context.Context, query string) (*sql.Rows, error)
	Close() error
}

// Service owns the metadata store handles and executes the top-level
// operations: migrate, run, query, drop.
type Service struct {
	cfg       *config.Config
	log       *slog.Logger
	writeDB   *sql.DB
	readDB    *sql.DB
	graphs    *repository.GraphRepo
	pipelines *repository.PipelineRepo

	openEngine func(ctx context.Context) (Engine, error)
	now        func() time.Time
}

// New opens the metadata store at the project's database path, runs
// pending migrations, and returns a ready Service.
func New(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	writeDB, readDB, err := db.OpenSQLitePair(cfg.Project.Database.Path, 4)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(writeDB); err != nil {
		_ = readDB.Close()
		_ = writeDB.Close()
		return nil, err
	}

	s := &Service{
		cfg:       cfg,
		log:       logger,
		writeDB:   writeDB,
		readDB:    readDB,
		graphs:    repository.NewGraphRepo(writeDB, readDB),
		pipelines: repository.NewPipelineRepo(writeDB, readDB),
	}
	s.openEngine = func(ctx context.Context) (Engine, error) {
		return engine.Open(ctx, cfg.Project, logger)
	}
	return s, nil
}

// Close releases the metadata store handles.
func (s *Service) Close() error {
	rerr := s.readDB.Close()
	werr := s.writeDB.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

// Migrate derives the dependency graph from the configuration and
// commits it as a new graph version. Committing is unconditional: an
// unchanged configuration still writes a new row, and the differ
// reports zero changes on the next run.
func (s *Service) Migrate(ctx context.Context) (int64, error) {
	g, err := graph.Build(s.cfg)
	if err != nil {
		return 0, err
	}
	id, err := s.graphs.SaveGraph(ctx, g, graph.Fingerprints(s.cfg))
	if err != nil {
		return 0, err
	}
	s.log.Info("graph committed", "graph_id", id,
		"nodes", len(g.Nodes), "edges", len(g.Edges))
	return id, nil
}

// RunOptions tunes a single run.
type RunOptions struct {
	// Only restricts live execution to the named nodes; everything else
	// in the affected set is recorded as skipped.
	Only []string

	// Parallelism caps concurrent actions within a level; 0 means the
	// number of logical CPUs.
	Parallelism int

	// ContinueOnFailure keeps independent branches running after a
	// failure.
	ContinueOnFailure bool

	// RetryAttempts is the number of retries for retryable action
	// errors. Zero picks the default of 3; negative disables retries.
	RetryAttempts int

	// RetryDelay is the initial retry back-off; it doubles per attempt.
	RetryDelay time.Duration

	// Deadline bounds the whole run; zero means no deadline.
	Deadline time.Duration
}

// RunResult summarizes one run.
type RunResult struct {
	PipelineID     string
	GraphID        int64
	Status         domain.PipelineStatus
	Classification domain.Classification
	Drops          int
	LiveActions    int
	Filtered       int
}

// Run plans and executes a pipeline against the latest committed graph.
// The previous graph for diffing is the one the most recent completed
// pipeline ran against: changes accumulated over several migrates are
// still picked up by the next run, and a failed run leaves the anchor
// in place so its unfinished nodes are replanned. An empty plan records
// a completed pipeline with zero actions.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if opts.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Deadline)
		defer cancel()
	}

	nextID, err := s.graphs.LatestGraphID(ctx)
	if err != nil {
		return nil, err
	}
	next, nextFPs, err := s.graphs.LoadGraph(ctx, nextID)
	if err != nil {
		return nil, err
	}

	var prev *domain.Graph
	var prevFPs map[string]string
	prevID, err := s.graphs.LatestPipelineGraphID(ctx)
	switch {
	case errors.Is(err, domain.ErrNoGraph):
		// First run ever; everything is added.
	case err != nil:
		return nil, err
	case prevID == nextID:
		prev, prevFPs = &next, nextFPs
	default:
		g, fps, err := s.graphs.LoadGraph(ctx, prevID)
		if err != nil {
			return nil, err
		}
		prev, prevFPs = &g, fps
	}

	cls := graph.Classify(next, prev, prevFPs, nextFPs)
	planner := pipeline.NewPlanner(s.cfg, s.pipelines, s.now)
	plan, err := planner.BuildPlan(ctx, next, prev, cls, opts.Only)
	if err != nil {
		return nil, err
	}

	p, err := s.pipelines.CreatePipeline(ctx, nextID)
	if err != nil {
		return nil, err
	}
	res := &RunResult{
		PipelineID:     p.ID,
		GraphID:        nextID,
		Classification: cls,
		Drops:          len(plan.Drops),
		LiveActions:    plan.LiveCount() - len(plan.Drops),
		Filtered:       len(plan.Filtered),
	}

	if plan.Empty() {
		if err := s.pipelines.FinishPipeline(ctx, p.ID, domain.PipelineCompleted); err != nil {
			return nil, err
		}
		res.Status = domain.PipelineCompleted
		s.log.Info("nothing to do", "pipeline", p.ID, "graph_id", nextID)
		return res, nil
	}

	eng, err := s.openEngine(ctx)
	if err != nil {
		ferr := s.failPipeline(ctx, p.ID)
		return nil, errors.Join(err, ferr)
	}
	defer func() { _ = eng.Close() }()

	listers, err := s.buildListers()
	if err != nil {
		ferr := s.failPipeline(ctx, p.ID)
		return nil, errors.Join(err, ferr)
	}

	runner := pipeline.NewActionRunner(s.cfg, eng, listers)
	ex := pipeline.NewExecutor(runner, s.pipelines, s.log, pipeline.Options{
		Parallelism:       opts.Parallelism,
		ContinueOnFailure: opts.ContinueOnFailure,
		RetryAttempts:     opts.RetryAttempts,
		RetryDelay:        opts.RetryDelay,
		ActionTimeout:     s.cfg.Project.ActionTimeout(),
	})

	s.log.Info("pipeline started", "pipeline", p.ID, "graph_id", nextID,
		"drops", res.Drops, "actions", res.LiveActions)

	status, err := ex.Execute(ctx, p.ID, next, plan)
	if ferr := s.pipelines.FinishPipeline(context.WithoutCancel(ctx), p.ID, status); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		return nil, err
	}

	res.Status = status
	s.log.Info("pipeline finished", "pipeline", p.ID, "status", string(status))
	return res, nil
}

// failPipeline closes a pipeline row when setup fails before any action
// runs.
func (s *Service) failPipeline(ctx context.Context, id string) error {
	return s.pipelines.FinishPipeline(context.WithoutCancel(ctx), id, domain.PipelineFailed)
}

// buildListers creates one object lister per connection used by a
// file-backed adapter.
func (s *Service) buildListers() (map[string]storage.Lister, error) {
	listers := map[string]storage.Lister{}
	for name, a := range s.cfg.Adapters {
		if a.Source.File == nil {
			continue
		}
		if _, ok := listers[a.Connection]; ok {
			continue
		}
		conn := s.cfg.Project.Connections[a.Connection]
		switch conn.Type {
		case config.ConnectionLocalFile:
			listers[a.Connection] = storage.NewLocalStore(conn.BasePath)
		case config.ConnectionS3:
			listers[a.Connection] = storage.NewS3Store(conn)
		default:
			return nil, domain.ErrConfigInvalid(
				"adapter %q: connection %q (type %q) cannot serve file sources",
				name, a.Connection, conn.Type)
		}
	}
	return listers, nil
}

// QueryResult is a rendered result set.
type QueryResult struct {
	Columns []string
	Rows    [][]string
}

// Query runs a read statement against the lake catalog and renders every
// value as text. NULL renders as an empty string.
func (s *Service) Query(ctx context.Context, query string) (*QueryResult, error) {
	eng, err := s.openEngine(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = eng.Close() }()

	rows, err := eng.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	res := &QueryResult{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		rec := make([]string, len(cols))
		for i, v := range vals {
			rec[i] = renderValue(v)
		}
		res.Rows = append(res.Rows, rec)
	}
	return res, rows.Err()
}

func renderValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

// Drop removes a node's table from the lake catalog without touching
// the graph history.
func (s *Service) Drop(ctx context.Context, node string) error {
	eng, err := s.openEngine(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()
	return eng.DropTable(ctx, node)
}

// Pipelines returns the most recent pipelines, newest first.
func (s *Service) Pipelines(ctx context.Context, limit int) ([]domain.Pipeline, error) {
	return s.pipelines.ListPipelines(ctx, limit)
}

// Actions returns a pipeline's actions in execution order.
func (s *Service) Actions(ctx context.Context, pipelineID string) ([]domain.Action, error) {
	return s.pipelines.ListActions(ctx, pipelineID)
}
