package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featherbox/featherbox/internal/config"
)

func TestReadFilesSQLCSV(t *testing.T) {
	hasHeader := true
	src := &config.FileSource{
		Path: "data/{YYYY}/{MM}/*.csv",
		Format: config.FormatConfig{
			Kind:      config.FormatCSV,
			Delimiter: ";",
			NullValue: "NA",
			HasHeader: &hasHeader,
		},
		Compression: "gzip",
	}
	cols := []config.ColumnConfig{
		{Name: "id", Type: "INTEGER"},
		{Name: "x", Type: "INTEGER"},
	}

	got, err := ReadFilesSQL(src, cols, []string{"data/2026/08/b.csv", "data/2026/08/a.csv"})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM read_csv(['data/2026/08/a.csv', 'data/2026/08/b.csv'], `+
			`columns = {'id': 'INTEGER', 'x': 'INTEGER'}, delim = ';', nullstr = 'NA', `+
			`header = true, compression = 'gzip')`,
		got)
}

func TestReadFilesSQLAutoVariants(t *testing.T) {
	csv := &config.FileSource{Format: config.FormatConfig{Kind: config.FormatCSV}}
	got, err := ReadFilesSQL(csv, nil, []string{"a.csv"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM read_csv_auto(['a.csv'])`, got)

	jsonSrc := &config.FileSource{Format: config.FormatConfig{Kind: config.FormatJSON}}
	got, err = ReadFilesSQL(jsonSrc, nil, []string{"a.json"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM read_json_auto(['a.json'])`, got)

	parquet := &config.FileSource{Format: config.FormatConfig{Kind: config.FormatParquet}}
	got, err = ReadFilesSQL(parquet, nil, []string{"a.parquet"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM read_parquet(['a.parquet'])`, got)
}

func TestReadFilesSQLJSONWithColumns(t *testing.T) {
	src := &config.FileSource{Format: config.FormatConfig{Kind: config.FormatJSON}}
	got, err := ReadFilesSQL(src, []config.ColumnConfig{{Name: "id", Type: "BIGINT"}}, []string{"a.json"})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM read_json(['a.json'], columns = {'id': 'BIGINT'})`, got)
}

func TestReadFilesSQLNoPaths(t *testing.T) {
	src := &config.FileSource{Format: config.FormatConfig{Kind: config.FormatCSV}}
	_, err := ReadFilesSQL(src, nil, nil)
	require.Error(t, err)
}

func TestReadDatabaseTableSQL(t *testing.T) {
	got, err := ReadDatabaseTableSQL("src_x", "users", nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "src_x"."users"`, got)

	got, err = ReadDatabaseTableSQL("src_x", "users", []config.ColumnConfig{
		{Name: "id", Type: "BIGINT"}, {Name: "email", Type: "VARCHAR"},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "email" FROM "src_x"."users"`, got)

	_, err = ReadDatabaseTableSQL("src_x", "users; --", nil)
	require.Error(t, err)
}
