package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&testModel{}))
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := NewFromConn(db)

	ctx := context.Background()
	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}))

	var count int64
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	require.NoError(t, db.Model(&testModel{}).Count(&count).Error)
	require.EqualValues(t, 1, count, "rollback should leave a single record")
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&testModel{Name: "dup"}).Error)
	err := db.Create(&testModel{Name: "dup"}).Error
	require.Error(t, err)
	require.True(t, IsUniqueViolation(err, ""))
	require.False(t, IsUniqueViolation(errors.New("connection reset"), ""))
	require.False(t, IsUniqueViolation(nil, ""))
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	require.True(t, IsUniqueViolation(err, ""))
	require.True(t, IsUniqueViolation(err, "users_email_key"))
	require.False(t, IsUniqueViolation(err, "products_pkey"))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}, ""))
}

func TestPingUsesUnderlyingPool(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	conn, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{DisableAutomaticPing: true})
	require.NoError(t, err)

	mock.ExpectPing()
	require.NoError(t, NewFromConn(conn).Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("db down"))
	require.Error(t, NewFromConn(conn).Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{DSN: "x", Driver: "mysql"}, nil)
	require.Error(t, err)
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf, Format: logger.FormatJSON})
	ql := newQueryLogger(logg, 10*time.Millisecond)
	stmt := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	ql.Trace(ctx, time.Now(), stmt, nil)
	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	require.Empty(t, buf.String())

	ql.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	require.Contains(t, buf.String(), `"message":"db.slow_query"`)
	require.Contains(t, buf.String(), `"sql":"SELECT 1"`)

	buf.Reset()
	ql.Trace(ctx, time.Now(), stmt, errors.New("syntax error"))
	require.Contains(t, buf.String(), `"message":"db.query_failed"`)

	buf.Reset()
	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("quiet"))
	require.Empty(t, buf.String())
}
