package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/migrate"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/migrate/migrations"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected exactly one %s migration, found %d", suffix, len(matches))
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestMigrationsContainExpectedSchema(t *testing.T) {
	cases := map[string][]string{
		"create_users": {
			"CREATE TYPE user_role AS ENUM ('user', 'admin')",
			"CONSTRAINT users_email_key UNIQUE (email)",
			"DROP TABLE IF EXISTS users",
		},
		"create_products": {
			"CREATE TYPE product_category AS ENUM ('cake', 'decoration', 'gift')",
			"CHECK (price >= 0)",
			"DROP TABLE IF EXISTS products",
		},
		"create_orders": {
			"CREATE TYPE order_status AS ENUM ('pending', 'confirmed', 'completed', 'cancelled')",
			"user_mobile_no text NOT NULL",
			"CHECK (location_lat BETWEEN -90 AND 90)",
			"DROP TABLE IF EXISTS orders",
		},
		"create_support_tickets": {
			"CREATE TYPE ticket_status AS ENUM ('open', 'resolved')",
			"CREATE TABLE IF NOT EXISTS support_tickets",
		},
		"create_notifications": {
			"read boolean NOT NULL DEFAULT false",
		},
		"create_outbox": {
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
			"'support_ticket_status_changed'",
		},
	}

	for suffix, checks := range cases {
		content := readMigration(t, suffix)
		for _, sub := range checks {
			if !strings.Contains(content, sub) {
				t.Errorf("%s: missing expected statement %q", suffix, sub)
			}
		}
	}
}

func TestValidateDirAcceptsRepositoryMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("expected migrations to validate: %v", err)
	}
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	embedded, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob embedded: %v", err)
	}
	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	if err != nil {
		t.Fatalf("glob disk: %v", err)
	}
	if len(embedded) != len(onDisk) || len(embedded) == 0 {
		t.Fatalf("embedded=%d disk=%d", len(embedded), len(onDisk))
	}
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Booking Index!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_booking_index.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("created migration should validate: %v", err)
	}
}
