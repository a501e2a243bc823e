package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/featherbox/featherbox/internal/config"
)

func TestCreateTableAsSQL(t *testing.T) {
	got, err := CreateTableAsSQL("daily", "SELECT * FROM events")
	require.NoError(t, err)
	assert.Equal(t, `CREATE OR REPLACE TABLE "daily" AS (SELECT * FROM events)`, got)

	_, err = CreateTableAsSQL("daily; DROP TABLE x", "SELECT 1")
	require.Error(t, err)

	_, err = CreateTableAsSQL("daily", "  ")
	require.Error(t, err)
}

func TestInsertFromQuerySQL(t *testing.T) {
	got, err := InsertFromQuerySQL("events", "SELECT * FROM read_csv(['a.csv'])")
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "events" SELECT * FROM read_csv(['a.csv'])`, got)
}

func TestDropTableSQL(t *testing.T) {
	got, err := DropTableSQL("old_model")
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "old_model"`, got)

	_, err = DropTableSQL("")
	require.Error(t, err)
}

func TestAttachDuckLakeSQL(t *testing.T) {
	got, err := AttachDuckLakeSQL("lake", "/tmp/meta.db", "/tmp/data")
	require.NoError(t, err)
	assert.Equal(t, `ATTACH 'ducklake:sqlite:/tmp/meta.db' AS "lake" (DATA_PATH '/tmp/data')`, got)

	got, err = AttachDuckLakeSQL("lake", "/tmp/it's here/meta.db", "s3://bucket/prefix")
	require.NoError(t, err)
	assert.Contains(t, got, "'ducklake:sqlite:/tmp/it''s here/meta.db'")
	assert.Contains(t, got, "DATA_PATH 's3://bucket/prefix'")

	_, err = AttachDuckLakeSQL("lake", "", "/tmp/data")
	require.Error(t, err)
	_, err = AttachDuckLakeSQL("lake", "/tmp/meta.db", "")
	require.Error(t, err)
}

func TestCreateS3SecretSQL(t *testing.T) {
	got, err := CreateS3SecretSQL("warehouse", config.ConnectionConfig{
		Type:            config.ConnectionS3,
		AccessKeyID:     "AKIA",
		SecretAccessKey: "s3cr3t",
		Endpoint:        "minio.local:9000",
		Region:          "us-east-1",
		PathStyle:       true,
	})
	require.NoError(t, err)
	assert.Equal(t, `CREATE OR REPLACE SECRET "warehouse" (TYPE S3, KEY_ID 'AKIA', SECRET 's3cr3t', ENDPOINT 'minio.local:9000', REGION 'us-east-1', URL_STYLE 'path')`, got)

	got, err = CreateS3SecretSQL("aws", config.ConnectionConfig{Type: config.ConnectionS3})
	require.NoError(t, err)
	assert.Equal(t, `CREATE OR REPLACE SECRET "aws" (TYPE S3)`, got)
}

func TestAttachDatabaseSQL(t *testing.T) {
	got, err := AttachSQLiteSQL("src_a1b2", "/data/app.db")
	require.NoError(t, err)
	assert.Equal(t, `ATTACH '/data/app.db' AS "src_a1b2" (TYPE sqlite, READ_ONLY)`, got)

	got, err = AttachMySQLSQL("src_m", config.ConnectionConfig{
		Type: config.ConnectionMySQL, Host: "db.local", Database: "app",
		User: "reader", Password: "pw",
	})
	require.NoError(t, err)
	assert.Equal(t, `ATTACH 'host=db.local port=3306 database=app user=reader passwd=pw' AS "src_m" (TYPE mysql, READ_ONLY)`, got)

	_, err = AttachMySQLSQL("src_m", config.ConnectionConfig{Type: config.ConnectionMySQL})
	require.Error(t, err)

	got, err = DetachSQL("src_a1b2")
	require.NoError(t, err)
	assert.Equal(t, `DETACH "src_a1b2"`, got)
}
