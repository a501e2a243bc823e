// Package engine drives the embedded DuckDB instance and its DuckLake
// catalog. All user-data tables live in the attached lake catalog; the
// engine only ever addresses them by name and leaves file layout to the
// ducklake extension.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/featherbox/featherbox/internal/config"
)

// CatalogName is the alias the lake catalog is attached under.
const CatalogName = "lake"

// Engine is one DuckDB session with the lake catalog attached and made
// the default catalog. It is safe for concurrent use; DuckDB serializes
// catalog writes internally and the scheduler never targets the same
// table from two actions.
type Engine struct {
	db  *sql.DB
	log *slog.Logger
}

// Open starts an in-memory DuckDB instance, installs the ducklake,
// sqlite, and httpfs extensions, creates one S3 secret per configured
// s3 connection, and attaches the lake catalog.
func Open(ctx context.Context, proj config.ProjectConfig, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	e := &Engine{db: db, log: logger}
	if err := e.setup(ctx, proj); err != nil {
		_ = db.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) setup(ctx context.Context, proj config.ProjectConfig) error {
	extensions := []string{
		"INSTALL ducklake; LOAD ducklake;",
		"INSTALL sqlite; LOAD sqlite;",
		"INSTALL httpfs; LOAD httpfs;",
	}
	if hasMySQLConnection(proj) {
		extensions = append(extensions, "INSTALL mysql; LOAD mysql;")
	}
	for _, ext := range extensions {
		if _, err := e.db.ExecContext(ctx, ext); err != nil {
			return fmt.Errorf("extension setup (%s): %w", ext, err)
		}
	}

	// Deterministic secret creation order keeps startup logs stable.
	names := make([]string, 0, len(proj.Connections))
	for name, conn := range proj.Connections {
		if conn.Type == config.ConnectionS3 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		stmt, err := CreateS3SecretSQL(name, proj.Connections[name])
		if err != nil {
			return fmt.Errorf("s3 secret %q: %w", name, err)
		}
		if _, err := e.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create s3 secret %q: %w", name, err)
		}
		e.log.Debug("created s3 secret", "connection", name)
	}

	attach, err := AttachDuckLakeSQL(CatalogName, proj.Database.Path, proj.Storage.Path)
	if err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, attach); err != nil {
		return fmt.Errorf("attach ducklake: %w", err)
	}
	if _, err := e.db.ExecContext(ctx, "USE "+QuoteIdentifier(CatalogName)); err != nil {
		return fmt.Errorf("use %s: %w", CatalogName, err)
	}
	e.log.Debug("attached lake catalog",
		"metastore", proj.Database.Path, "data_path", proj.Storage.Path)
	return nil
}

func hasMySQLConnection(proj config.ProjectConfig) bool {
	for _, conn := range proj.Connections {
		if conn.Type == config.ConnectionMySQL {
			return true
		}
	}
	return false
}

// CreateTableAs replaces the named lake table with the query result.
func (e *Engine) CreateTableAs(ctx context.Context, table, query string) error {
	stmt, err := CreateTableAsSQL(table, query)
	if err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return Classify(err)
	}
	return nil
}

// InsertFromQuery appends the query result to an existing lake table.
func (e *Engine) InsertFromQuery(ctx context.Context, table, query string) error {
	stmt, err := InsertFromQuerySQL(table, query)
	if err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return Classify(err)
	}
	return nil
}

// DropTable removes the named lake table if it exists.
func (e *Engine) DropTable(ctx context.Context, table string) error {
	stmt, err := DropTableSQL(table)
	if err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return Classify(err)
	}
	return nil
}

// AttachDatabase attaches an external source database read-only under
// the given alias.
func (e *Engine) AttachDatabase(ctx context.Context, alias string, conn config.ConnectionConfig) error {
	var stmt string
	var err error
	switch conn.Type {
	case config.ConnectionSQLite:
		stmt, err = AttachSQLiteSQL(alias, conn.Path)
	case config.ConnectionMySQL:
		stmt, err = AttachMySQLSQL(alias, conn)
	default:
		return fmt.Errorf("connection type %q is not a database", conn.Type)
	}
	if err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return Classify(err)
	}
	return nil
}

// Detach removes a previously attached source database.
func (e *Engine) Detach(ctx context.Context, alias string) error {
	stmt, err := DetachSQL(alias)
	if err != nil {
		return err
	}
	if _, err := e.db.ExecContext(ctx, stmt); err != nil {
		return Classify(err)
	}
	return nil
}

// Query runs a read statement against the lake catalog and returns the
// rows. The caller owns the rows and must close them.
func (e *Engine) Query(ctx context.Context, query string) (*sql.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, Classify(err)
	}
	return rows, nil
}

// Close shuts down the DuckDB session.
func (e *Engine) Close() error {
	return e.db.Close()
}
