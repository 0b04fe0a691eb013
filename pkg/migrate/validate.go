package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/pressly/goose/v3"
)

const versionLayout = "20060102150405"

var migrationFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks an on-disk migration directory.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	_, err := validateFS(os.DirFS(dir), dir)
	return err
}

// ValidateEmbedded checks both compiled-in sets and that they ship the same
// file names, since dev runs on sqlite and production on postgres.
func ValidateEmbedded() error {
	var names [2][]string
	for i, dialect := range []goose.Dialect{goose.DialectPostgres, goose.DialectSQLite3} {
		fsys, err := Embedded(dialect)
		if err != nil {
			return err
		}
		if names[i], err = validateFS(fsys, string(dialect)); err != nil {
			return err
		}
	}
	if !slices.Equal(names[0], names[1]) {
		return fmt.Errorf("postgres migrations %v do not match sqlite migrations %v", names[0], names[1])
	}
	return nil
}

// validateFS enforces YYYYMMDDHHMMSS_name.sql file names, unique versions
// and the goose Up/Down annotations. It returns the sorted file names.
func validateFS(fsys fs.FS, label string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations %q: %w", label, err)
	}

	versions := make(map[string]string)
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(name)
		if match == nil {
			return nil, fmt.Errorf("%s: invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", label, name)
		}
		if prev, dup := versions[match[1]]; dup {
			return nil, fmt.Errorf("%s: version %s used by both %q and %q", label, match[1], prev, name)
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%s: read %q: %w", label, name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				return nil, fmt.Errorf("%s: migration %q missing %q", label, name, marker)
			}
		}
		names = append(names, name)
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("no migrations found in %q", label)
	}
	slices.Sort(names)
	return names, nil
}
