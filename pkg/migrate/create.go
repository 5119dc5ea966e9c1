package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const versionLayout = "20060102150405"

var clock = time.Now

const migrationTemplate = upMarker + `
-- +goose StatementBegin
-- up: %[1]s
-- +goose StatementEnd

` + downMarker + `
-- +goose StatementBegin
-- down: %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty goose migration named
// <dir>/<YYYYMMDDHHMMSS>_<slug>.sql. The version is bumped past the newest
// existing file so two creates in the same second still sort correctly.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	version := nextVersion(clock().UTC(), latestVersion(os.DirFS(dir)))
	target := filepath.Join(dir, fmt.Sprintf("%d_%s.sql", version, slug))

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := fmt.Fprintf(f, migrationTemplate, slug); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", target, err)
	}
	return target, nil
}

func nextVersion(now time.Time, latest int64) int64 {
	candidate, _ := strconv.ParseInt(now.Format(versionLayout), 10, 64)
	for candidate <= latest {
		now = now.Add(time.Second)
		candidate, _ = strconv.ParseInt(now.Format(versionLayout), 10, 64)
	}
	return candidate
}

// slugify lowercases name and collapses every run of other characters to "_".
func slugify(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	return b.String()
}
