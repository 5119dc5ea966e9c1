package migrate

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func sqliteDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func tableMigration(table string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(
		"-- +goose Up\nCREATE TABLE " + table + " (id integer PRIMARY KEY);\n\n" +
			"-- +goose Down\nDROP TABLE " + table + ";\n",
	)}
}

func TestRunnerWalksVersions(t *testing.T) {
	ctx := context.Background()
	source := fstest.MapFS{
		"20260101000000_a.sql": tableMigration("a"),
		"20260102000000_b.sql": tableMigration("b"),
		"20260103000000_c.sql": tableMigration("c"),
	}
	runner, err := newRunner(goose.DialectSQLite3, sqliteDB(t), source)
	require.NoError(t, err)

	moved, err := runner.To(ctx, 20260102000000)
	require.NoError(t, err)
	assert.Equal(t, []int64{20260101000000, 20260102000000}, moved)

	applied, err := runner.Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20260103000000}, applied)

	rolled, err := runner.Down(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20260103000000, rolled)

	moved, err = runner.To(ctx, 20260101000000)
	require.NoError(t, err)
	assert.Equal(t, []int64{20260102000000}, moved)

	version, err := runner.Version(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 20260101000000, version)

	var out bytes.Buffer
	require.NoError(t, runner.Status(ctx, &out))
	assert.Contains(t, out.String(), "20260102000000_b.sql")
	assert.Contains(t, out.String(), "applied")
	assert.Contains(t, out.String(), "pending")
}

func TestNewRunnerRequiresDB(t *testing.T) {
	_, err := NewRunner(nil, fstest.MapFS{})
	assert.EqualError(t, err, "db is required")
}

func TestSource(t *testing.T) {
	_, err := Source("", false)
	assert.Error(t, err)

	embedded, err := Source("", true)
	require.NoError(t, err)
	assert.NotNil(t, embedded)
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20260301090500")
	require.NoError(t, err)
	assert.EqualValues(t, 20260301090500, v)

	_, err = ParseVersion("latest")
	assert.Error(t, err)
}
