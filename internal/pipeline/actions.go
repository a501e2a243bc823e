package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/featherbox/featherbox/internal/config"
	"github.com/featherbox/featherbox/internal/domain"
	"github.com/featherbox/featherbox/internal/engine"
	"github.com/featherbox/featherbox/internal/sqlparse"
	"github.com/featherbox/featherbox/internal/storage"
)

// Engine is the catalog surface the pipeline needs. *engine.Engine
// implements it; tests substitute fakes.
type Engine interface {
	CreateTableAs(ctx context.Context, table, query string) error
	InsertFromQuery(ctx context.Context, table, query string) error
	DropTable(ctx context.Context, table string) error
	AttachDatabase(ctx context.Context, alias string, conn config.ConnectionConfig) error
	Detach(ctx context.Context, alias string) error
}

// ActionRunner executes one planned action against the engine.
type ActionRunner struct {
	cfg     *config.Config
	eng     Engine
	listers map[string]storage.Lister // by connection name
}

// NewActionRunner creates an ActionRunner. listers must hold one Lister
// per file-backed connection referenced by the adapters.
func NewActionRunner(cfg *config.Config, eng Engine, listers map[string]storage.Lister) *ActionRunner {
	return &ActionRunner{cfg: cfg, eng: eng, listers: listers}
}

// Run dispatches a planned action by node kind.
func (r *ActionRunner) Run(ctx context.Context, a PlannedAction) error {
	if a.Kind == KindDrop {
		return r.eng.DropTable(ctx, a.NodeName)
	}
	if m, ok := r.cfg.Models[a.NodeName]; ok {
		return r.runModel(ctx, a.NodeName, m)
	}
	ad, ok := r.cfg.Adapters[a.NodeName]
	if !ok {
		return domain.ErrAction(domain.ErrKindSQLExecution,
			fmt.Errorf("node %q not present in configuration", a.NodeName))
	}
	switch {
	case ad.Source.File != nil:
		return r.runFileAdapter(ctx, a, ad)
	case ad.Source.Database != nil:
		return r.runDatabaseAdapter(ctx, a.NodeName, ad)
	default:
		return domain.ErrAction(domain.ErrKindSQLExecution,
			fmt.Errorf("adapter %q has no source", a.NodeName))
	}
}

// runModel materializes a model: CREATE OR REPLACE TABLE name AS (sql),
// with any ref() templating resolved first.
func (r *ActionRunner) runModel(ctx context.Context, name string, m config.ModelConfig) error {
	return r.eng.CreateTableAs(ctx, name, sqlparse.ResolveRefs(m.SQL))
}

// runFileAdapter lists the source objects for the action's window and
// ingests them. With max_batch_size set, files load in committed chunks:
// the first chunk replaces the table, later chunks append, so a failure
// mid-way leaves earlier chunks in place.
func (r *ActionRunner) runFileAdapter(ctx context.Context, a PlannedAction, ad config.AdapterConfig) error {
	src := ad.Source.File
	lister, ok := r.listers[ad.Connection]
	if !ok {
		return domain.ErrAction(domain.ErrKindConnectionUnavailable,
			fmt.Errorf("no store for connection %q", ad.Connection))
	}

	objs, err := lister.List(ctx, ToWildcard(src.Path))
	if err != nil {
		return err
	}
	objs, err = filterWindow(objs, src.Path, a.Since, a.Until)
	if err != nil {
		return err
	}
	objs = applyLimits(objs, ad.Limits)
	if len(objs) == 0 {
		return domain.ErrAction(domain.ErrKindSourceObjectMissing,
			fmt.Errorf("no source objects match %q", src.Path))
	}

	keys := make([]string, len(objs))
	for i, o := range objs {
		keys[i] = o.Key
	}

	batch := src.MaxBatchSize
	if batch <= 0 || batch >= len(keys) {
		query, err := engine.ReadFilesSQL(src, ad.Columns, keys)
		if err != nil {
			return domain.ErrAction(domain.ErrKindSQLExecution, err)
		}
		return r.eng.CreateTableAs(ctx, a.NodeName, query)
	}

	for start := 0; start < len(keys); start += batch {
		end := start + batch
		if end > len(keys) {
			end = len(keys)
		}
		query, err := engine.ReadFilesSQL(src, ad.Columns, keys[start:end])
		if err != nil {
			return domain.ErrAction(domain.ErrKindSQLExecution, err)
		}
		if start == 0 {
			err = r.eng.CreateTableAs(ctx, a.NodeName, query)
		} else {
			err = r.eng.InsertFromQuery(ctx, a.NodeName, query)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// runDatabaseAdapter attaches the source database under a throwaway
// alias, copies the table, and detaches.
func (r *ActionRunner) runDatabaseAdapter(ctx context.Context, name string, ad config.AdapterConfig) error {
	conn, ok := r.cfg.Project.Connections[ad.Connection]
	if !ok {
		return domain.ErrAction(domain.ErrKindConnectionUnavailable,
			fmt.Errorf("unknown connection %q", ad.Connection))
	}

	alias := "src_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := r.eng.AttachDatabase(ctx, alias, conn); err != nil {
		return err
	}
	defer func() { _ = r.eng.Detach(context.WithoutCancel(ctx), alias) }()

	query, err := engine.ReadDatabaseTableSQL(alias, ad.Source.Database.Table, ad.Columns)
	if err != nil {
		return domain.ErrAction(domain.ErrKindSQLExecution, err)
	}
	return r.eng.CreateTableAs(ctx, name, query)
}

// filterWindow keeps the objects whose inferred timestamp falls inside
// [since, until). Patterns without placeholders pass everything
// through; objects whose path does not yield a timestamp are dropped.
func filterWindow(objs []storage.Object, pattern string, since, until *time.Time) ([]storage.Object, error) {
	if !HasDatePattern(pattern) {
		return objs, nil
	}
	x, err := NewTimestampExtractor(pattern)
	if err != nil {
		return nil, domain.ErrAction(domain.ErrKindSQLExecution, err)
	}
	var out []storage.Object
	for _, o := range objs {
		ts, ok := x.Timestamp(o.Rel)
		if !ok {
			continue
		}
		if InWindow(ts, since, until) {
			out = append(out, o)
		}
	}
	return out, nil
}

// applyLimits caps the listing by max_files and max_size, in listing
// order.
func applyLimits(objs []storage.Object, limits *config.LimitsConfig) []storage.Object {
	if limits == nil {
		return objs
	}
	maxFiles := limits.MaxFiles
	maxBytes := limits.MaxSizeBytes()

	var out []storage.Object
	var total int64
	for _, o := range objs {
		if maxFiles > 0 && len(out) >= maxFiles {
			break
		}
		if maxBytes > 0 && total+o.Size > maxBytes && len(out) > 0 {
			break
		}
		out = append(out, o)
		total += o.Size
	}
	return out
}
