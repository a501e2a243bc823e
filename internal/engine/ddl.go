package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/featherbox/featherbox/internal/config"
)

// identifierRe allows alphanumeric + underscores, starting with a letter
// or underscore.
var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const maxIdentifierLen = 128

// ValidateIdentifier checks that name is a safe SQL identifier: non-empty,
// at most 128 characters, matching [a-zA-Z_][a-zA-Z0-9_]*.
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > maxIdentifierLen {
		return fmt.Errorf("name must be at most %d characters", maxIdentifierLen)
	}
	if !identifierRe.MatchString(name) {
		return fmt.Errorf("name must match [a-zA-Z_][a-zA-Z0-9_]*")
	}
	return nil
}

// QuoteIdentifier wraps a SQL identifier in double quotes, doubling any
// embedded double quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteLiteral wraps a string value in single quotes, doubling any
// embedded single quotes.
func QuoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

// CreateTableAsSQL returns: CREATE OR REPLACE TABLE "<table>" AS (<query>).
func CreateTableAsSQL(table, query string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query is required")
	}
	return fmt.Sprintf("CREATE OR REPLACE TABLE %s AS (%s)", QuoteIdentifier(table), query), nil
}

// InsertFromQuerySQL returns: INSERT INTO "<table>" <query>.
func InsertFromQuerySQL(table, query string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("query is required")
	}
	return fmt.Sprintf("INSERT INTO %s %s", QuoteIdentifier(table), query), nil
}

// DropTableSQL returns: DROP TABLE IF EXISTS "<table>".
func DropTableSQL(table string) (string, error) {
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", QuoteIdentifier(table)), nil
}

// AttachDuckLakeSQL returns the statement attaching a DuckLake catalog
// backed by a SQLite metastore:
//
//	ATTACH 'ducklake:sqlite:<metaDBPath>' AS "<catalog>" (DATA_PATH '<dataPath>')
func AttachDuckLakeSQL(catalog, metaDBPath, dataPath string) (string, error) {
	if err := ValidateIdentifier(catalog); err != nil {
		return "", fmt.Errorf("invalid catalog name: %w", err)
	}
	if metaDBPath == "" {
		return "", fmt.Errorf("metastore path is required")
	}
	if dataPath == "" {
		return "", fmt.Errorf("data path is required")
	}
	return fmt.Sprintf("ATTACH %s AS %s (DATA_PATH %s)",
		QuoteLiteral("ducklake:sqlite:"+metaDBPath),
		QuoteIdentifier(catalog),
		QuoteLiteral(dataPath),
	), nil
}

// CreateS3SecretSQL returns a CREATE OR REPLACE SECRET statement for
// S3-compatible storage. Empty endpoint/region are omitted so DuckDB
// falls back to its defaults.
func CreateS3SecretSQL(name string, conn config.ConnectionConfig) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", fmt.Errorf("invalid secret name: %w", err)
	}
	parts := []string{"TYPE S3"}
	if conn.AccessKeyID != "" {
		parts = append(parts, "KEY_ID "+QuoteLiteral(conn.AccessKeyID))
	}
	if conn.SecretAccessKey != "" {
		parts = append(parts, "SECRET "+QuoteLiteral(conn.SecretAccessKey))
	}
	if conn.Endpoint != "" {
		parts = append(parts, "ENDPOINT "+QuoteLiteral(conn.Endpoint))
	}
	if conn.Region != "" {
		parts = append(parts, "REGION "+QuoteLiteral(conn.Region))
	}
	if conn.PathStyle {
		parts = append(parts, "URL_STYLE 'path'")
	}
	return fmt.Sprintf("CREATE OR REPLACE SECRET %s (%s)",
		QuoteIdentifier(name), strings.Join(parts, ", ")), nil
}

// AttachSQLiteSQL returns: ATTACH '<path>' AS "<alias>" (TYPE sqlite, READ_ONLY).
func AttachSQLiteSQL(alias, path string) (string, error) {
	if err := ValidateIdentifier(alias); err != nil {
		return "", fmt.Errorf("invalid alias: %w", err)
	}
	if path == "" {
		return "", fmt.Errorf("sqlite path is required")
	}
	return fmt.Sprintf("ATTACH %s AS %s (TYPE sqlite, READ_ONLY)",
		QuoteLiteral(path), QuoteIdentifier(alias)), nil
}

// AttachMySQLSQL returns: ATTACH '<dsn>' AS "<alias>" (TYPE mysql, READ_ONLY)
// with a space-separated key=value DSN in the form the mysql extension
// expects.
func AttachMySQLSQL(alias string, conn config.ConnectionConfig) (string, error) {
	if err := ValidateIdentifier(alias); err != nil {
		return "", fmt.Errorf("invalid alias: %w", err)
	}
	if conn.Host == "" || conn.Database == "" {
		return "", fmt.Errorf("mysql host and database are required")
	}
	port := conn.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("host=%s port=%d database=%s", conn.Host, port, conn.Database)
	if conn.User != "" {
		dsn += " user=" + conn.User
	}
	if conn.Password != "" {
		dsn += " passwd=" + conn.Password
	}
	return fmt.Sprintf("ATTACH %s AS %s (TYPE mysql, READ_ONLY)",
		QuoteLiteral(dsn), QuoteIdentifier(alias)), nil
}

// DetachSQL returns: DETACH "<alias>".
func DetachSQL(alias string) (string, error) {
	if err := ValidateIdentifier(alias); err != nil {
		return "", fmt.Errorf("invalid alias: %w", err)
	}
	return "DETACH " + QuoteIdentifier(alias), nil
}
