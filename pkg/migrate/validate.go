package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

var migrationFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

// migrationFile is a parsed goose filename.
type migrationFile struct {
	version int64
	name    string
}

func parseMigrationName(filename string) (migrationFile, bool) {
	m := migrationFileRe.FindStringSubmatch(filename)
	if m == nil {
		return migrationFile{}, false
	}
	v, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return migrationFile{}, false
	}
	return migrationFile{version: v, name: m[2]}, true
}

// ValidateDir checks the migrations directory on disk.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return ValidateFS(os.DirFS(dir))
}

// ValidateFS reports every problem found among the .sql files at the root of
// fsys: malformed names, reused versions and files without both goose sections.
func ValidateFS(fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}

	var problems error
	owners := make(map[int64]string, len(files))
	for _, filename := range files {
		parsed, ok := parseMigrationName(path.Base(filename))
		if !ok {
			problems = multierr.Append(problems, fmt.Errorf("%s: expected YYYYMMDDHHMMSS_name.sql", filename))
			continue
		}
		if other, dup := owners[parsed.version]; dup {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %d already used by %s", filename, parsed.version, other))
			continue
		}
		owners[parsed.version] = filename

		body, err := fs.ReadFile(fsys, filename)
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", filename, err))
			continue
		}
		for _, marker := range []string{upMarker, downMarker} {
			if !strings.Contains(string(body), marker) {
				problems = multierr.Append(problems, fmt.Errorf("%s: missing %q", filename, marker))
			}
		}
	}
	return problems
}

// latestVersion returns the highest version present in fsys, or 0.
func latestVersion(fsys fs.FS) int64 {
	files, _ := fs.Glob(fsys, "*.sql")
	var latest int64
	for _, filename := range files {
		if parsed, ok := parseMigrationName(path.Base(filename)); ok && parsed.version > latest {
			latest = parsed.version
		}
	}
	return latest
}
