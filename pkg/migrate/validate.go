package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

// ValidateDir checks every .sql file in dir: the name must be
// <YYYYMMDDHHMMSS>_<slug>.sql with a unique version, and the body must carry
// goose Up and Down sections with balanced statement blocks. All problems are
// reported together.
func ValidateDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", dir, err)
	}

	var problems error
	versions := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: name must look like YYYYMMDDHHMMSS_slug.sql", name))
			continue
		}
		if other, taken := versions[m[1]]; taken {
			problems = multierr.Append(problems, fmt.Errorf("%s: version %s already used by %s", name, m[1], other))
		}
		versions[m[1]] = name

		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			problems = multierr.Append(problems, fmt.Errorf("%s: %w", name, err))
			continue
		}
		problems = multierr.Append(problems, checkAnnotations(name, string(body)))
	}
	return problems
}

func checkAnnotations(name, body string) error {
	var problems error
	up := strings.Index(body, "-- +goose Up")
	down := strings.Index(body, "-- +goose Down")
	switch {
	case up < 0:
		problems = multierr.Append(problems, fmt.Errorf("%s: missing -- +goose Up", name))
	case down < 0:
		problems = multierr.Append(problems, fmt.Errorf("%s: missing -- +goose Down", name))
	case down < up:
		problems = multierr.Append(problems, fmt.Errorf("%s: Down section comes before Up", name))
	}
	begins := strings.Count(body, "-- +goose StatementBegin")
	ends := strings.Count(body, "-- +goose StatementEnd")
	if begins != ends {
		problems = multierr.Append(problems, fmt.Errorf("%s: %d StatementBegin but %d StatementEnd", name, begins, ends))
	}
	return problems
}
