package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/featherbox/featherbox/internal/config"
)

// ReadFilesSQL returns a SELECT over the DuckDB table function matching
// the source format, e.g.
//
//	SELECT * FROM read_csv(['a.csv', 'b.csv'], columns = {...}, delim = ',')
//
// The declared columns pin the schema so drifting files surface as
// errors instead of silent type changes. With no declared columns the
// auto-detecting variants are used.
func ReadFilesSQL(src *config.FileSource, columns []config.ColumnConfig, paths []string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("at least one path is required")
	}
	list := pathList(paths)

	var fn string
	var opts []string
	switch src.Format.Kind {
	case config.FormatCSV:
		fn = "read_csv"
		if len(columns) == 0 {
			fn = "read_csv_auto"
		} else {
			opts = append(opts, "columns = "+columnsStruct(columns))
		}
		if d := src.Format.Delimiter; d != "" {
			opts = append(opts, "delim = "+QuoteLiteral(d))
		}
		if n := src.Format.NullValue; n != "" {
			opts = append(opts, "nullstr = "+QuoteLiteral(n))
		}
		if h := src.Format.HasHeader; h != nil {
			opts = append(opts, fmt.Sprintf("header = %t", *h))
		}
	case config.FormatJSON:
		fn = "read_json"
		if len(columns) == 0 {
			fn = "read_json_auto"
		} else {
			opts = append(opts, "columns = "+columnsStruct(columns))
		}
	case config.FormatParquet:
		fn = "read_parquet"
	default:
		return "", fmt.Errorf("unsupported format %q", src.Format.Kind)
	}

	if c := src.Compression; c != "" && src.Format.Kind != config.FormatParquet {
		opts = append(opts, "compression = "+QuoteLiteral(c))
	}

	args := list
	if len(opts) > 0 {
		args += ", " + strings.Join(opts, ", ")
	}
	return fmt.Sprintf("SELECT * FROM %s(%s)", fn, args), nil
}

// ReadDatabaseTableSQL returns the SELECT issued against an attached
// source database. With declared columns the projection is explicit;
// otherwise SELECT *.
func ReadDatabaseTableSQL(alias, table string, columns []config.ColumnConfig) (string, error) {
	if err := ValidateIdentifier(alias); err != nil {
		return "", fmt.Errorf("invalid alias: %w", err)
	}
	if err := ValidateIdentifier(table); err != nil {
		return "", fmt.Errorf("invalid table name: %w", err)
	}
	proj := "*"
	if len(columns) > 0 {
		names := make([]string, len(columns))
		for i, c := range columns {
			names[i] = QuoteIdentifier(c.Name)
		}
		proj = strings.Join(names, ", ")
	}
	return fmt.Sprintf("SELECT %s FROM %s.%s", proj, QuoteIdentifier(alias), QuoteIdentifier(table)), nil
}

func pathList(paths []string) string {
	sorted := append([]string{}, paths...)
	sort.Strings(sorted)
	quoted := make([]string, len(sorted))
	for i, p := range sorted {
		quoted[i] = QuoteLiteral(p)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func columnsStruct(columns []config.ColumnConfig) string {
	pairs := make([]string, len(columns))
	for i, c := range columns {
		pairs[i] = QuoteLiteral(c.Name) + ": " + QuoteLiteral(c.Type)
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}
