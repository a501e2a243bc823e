// Package config holds the typed project, adapter, and model configuration
// consumed by the engine. The engine itself never touches the filesystem;
// loaders in this package are a convenience for callers that keep their
// configuration in YAML.
package config

import (
	"time"

	"github.com/featherbox/featherbox/internal/domain"
)

// Config is the full in-memory configuration of a project: the project
// settings plus every adapter and model, keyed by node name.
type Config struct {
	Project  ProjectConfig
	Adapters map[string]AdapterConfig
	Models   map[string]ModelConfig
}

// StorageType selects where lake data files live.
type StorageType string

// Storage types.
const (
	StorageLocal StorageType = "local"
	StorageS3    StorageType = "s3"
)

// StorageConfig is the lake storage root.
type StorageConfig struct {
	Type StorageType `yaml:"type"`
	Path string      `yaml:"path"`
}

// DatabaseConfig locates the SQLite file backing both the metadata store
// and the lake catalog.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// ConnectionType identifies the kind of external system a connection
// binds to.
type ConnectionType string

// Connection types.
const (
	ConnectionLocalFile ConnectionType = "localfile"
	ConnectionS3        ConnectionType = "s3"
	ConnectionSQLite    ConnectionType = "sqlite"
	ConnectionMySQL     ConnectionType = "mysql"
)

// ConnectionConfig is a named binding to an external system. Which fields
// are meaningful depends on Type.
type ConnectionConfig struct {
	Type ConnectionType `yaml:"type"`

	// localfile
	BasePath string `yaml:"base_path,omitempty"`

	// s3
	Bucket          string `yaml:"bucket,omitempty"`
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	PathStyle       bool   `yaml:"path_style,omitempty"`

	// sqlite
	Path string `yaml:"path,omitempty"`

	// mysql
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// ProjectConfig is the project-level configuration.
type ProjectConfig struct {
	Storage     StorageConfig               `yaml:"storage"`
	Database    DatabaseConfig              `yaml:"database"`
	Connections map[string]ConnectionConfig `yaml:"connections"`

	// ActionTimeoutSeconds bounds each action; zero means no deadline.
	ActionTimeoutSeconds int `yaml:"timeout,omitempty"`

	// Schedule is an optional cron expression for periodic runs.
	Schedule string `yaml:"schedule,omitempty"`
}

// ActionTimeout returns the per-action deadline, or zero when unset.
func (p *ProjectConfig) ActionTimeout() time.Duration {
	return time.Duration(p.ActionTimeoutSeconds) * time.Second
}

// FormatKind is the file format of a file-backed adapter.
type FormatKind string

// File formats.
const (
	FormatCSV     FormatKind = "csv"
	FormatJSON    FormatKind = "json"
	FormatParquet FormatKind = "parquet"
)

// FormatConfig describes how to read a file-backed source.
type FormatConfig struct {
	Kind      FormatKind `yaml:"type"`
	Delimiter string     `yaml:"delimiter,omitempty"`
	NullValue string     `yaml:"null_value,omitempty"`
	HasHeader *bool      `yaml:"has_header,omitempty"`
}

// FileSource describes a file-backed adapter source. Path may contain
// glob wildcards and the date placeholders {YYYY} {MM} {DD} {HH} {mm}.
type FileSource struct {
	Path         string       `yaml:"path"`
	Compression  string       `yaml:"compression,omitempty"`
	MaxBatchSize int          `yaml:"max_batch_size,omitempty"` // files per committed chunk; 0 = single batch
	Format       FormatConfig `yaml:"format"`
}

// DatabaseSource describes a database-backed adapter source.
type DatabaseSource struct {
	Table string `yaml:"table"`
}

// SourceConfig is the discriminated source descriptor of an adapter:
// exactly one of File or Database is set.
type SourceConfig struct {
	File     *FileSource     `yaml:"file,omitempty"`
	Database *DatabaseSource `yaml:"database,omitempty"`
}

// LimitsConfig caps what a single file-adapter action may ingest.
type LimitsConfig struct {
	MaxFiles     int    `yaml:"max_files,omitempty"`
	MaxSize      string `yaml:"max_size,omitempty"`
	maxSizeBytes int64
}

// MaxSizeBytes returns the parsed MaxSize in bytes, or zero when unset.
func (l *LimitsConfig) MaxSizeBytes() int64 { return l.maxSizeBytes }

// ColumnConfig is one column of an adapter's declared schema.
type ColumnConfig struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description,omitempty"`
}

// AdapterConfig configures a node that ingests external data.
type AdapterConfig struct {
	Connection  string         `yaml:"connection"`
	Description string         `yaml:"description,omitempty"`
	Source      SourceConfig   `yaml:",inline"`
	Columns     []ColumnConfig `yaml:"columns"`
	Limits      *LimitsConfig  `yaml:"limits,omitempty"`

	// RangeSince is the lower bound for the first time-partitioned
	// ingestion window, e.g. "2024-01-01" or "2024-01-01 00:00:00".
	RangeSince string `yaml:"since,omitempty"`
}

// ModelConfig configures a node produced by evaluating a SQL statement.
type ModelConfig struct {
	// Path is the hierarchical identifier for models kept in nested
	// folders. The map key in Config.Models stays the unique table name.
	Path        string        `yaml:"path,omitempty"`
	Description string        `yaml:"description,omitempty"`
	SQL         string        `yaml:"sql"`
	MaxAge      time.Duration `yaml:"max_age,omitempty"`

	// Depends is advisory only; authoritative dependencies are derived
	// from SQL.
	Depends []string `yaml:"depends,omitempty"`
}

// Validate checks structural consistency: node name uniqueness across
// adapters and models, connection references, source descriptors, and
// format kinds.
func (c *Config) Validate() error {
	for name, a := range c.Adapters {
		if name == "" {
			return domain.ErrConfigInvalid("adapter with empty name")
		}
		if _, dup := c.Models[name]; dup {
			return domain.ErrConfigInvalid("node name %q is declared as both adapter and model", name)
		}
		if a.Connection == "" {
			return domain.ErrConfigInvalid("adapter %q: connection is required", name)
		}
		if _, ok := c.Project.Connections[a.Connection]; !ok {
			return domain.ErrConfigInvalid("adapter %q: unknown connection %q", name, a.Connection)
		}
		if err := a.Source.validate(name); err != nil {
			return err
		}
	}
	for name, m := range c.Models {
		if name == "" {
			return domain.ErrConfigInvalid("model with empty name")
		}
		if m.SQL == "" {
			return domain.ErrConfigInvalid("model %q: sql is required", name)
		}
	}
	return nil
}

func (s *SourceConfig) validate(adapter string) error {
	switch {
	case s.File == nil && s.Database == nil:
		return domain.ErrConfigInvalid("adapter %q: one of file or database source is required", adapter)
	case s.File != nil && s.Database != nil:
		return domain.ErrConfigInvalid("adapter %q: file and database sources are mutually exclusive", adapter)
	case s.File != nil:
		if s.File.Path == "" {
			return domain.ErrConfigInvalid("adapter %q: file.path is required", adapter)
		}
		switch s.File.Format.Kind {
		case FormatCSV, FormatJSON, FormatParquet:
		default:
			return domain.ErrConfigInvalid("adapter %q: unsupported format %q", adapter, s.File.Format.Kind)
		}
	case s.Database != nil:
		if s.Database.Table == "" {
			return domain.ErrConfigInvalid("adapter %q: database.table is required", adapter)
		}
	}
	return nil
}
