// Package migrations exposes the embedded grant-request schema to
// persistence clients, one migration source per SQL dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"strings"

	access "github.com/goliatone/go-access"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const embeddedRoot = "data/sql/migrations"

// Source is one dialect's migration filesystem, rooted so that the
// *.up.sql / *.down.sql pairs sit at its top level.
type Source struct {
	Dialect string
	Root    string
	FS      fs.FS
}

// ApplyFunc receives one migration source. Implementations typically call
// the persistence client's RegisterSQLMigrations with src.FS.
type ApplyFunc func(ctx context.Context, src Source) error

// Sources returns the embedded migration filesystems for every supported
// dialect. The postgres variant lives at the root of the embed tree, the
// sqlite variant in its sqlite/ subdirectory.
func Sources() ([]Source, error) {
	base, err := fs.Sub(access.GetMigrationsFS(), embeddedRoot)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve embedded root: %w", err)
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite subtree: %w", err)
	}

	sources := []Source{
		{Dialect: DialectPostgres, Root: embeddedRoot, FS: base},
		{Dialect: DialectSQLite, Root: path.Join(embeddedRoot, "sqlite"), FS: sqliteFS},
	}
	for _, src := range sources {
		matches, globErr := fs.Glob(src.FS, "*.up.sql")
		if globErr != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", src.Root, globErr)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s source %q has no *.up.sql files", src.Dialect, src.Root)
		}
	}
	return sources, nil
}

// Register feeds the embedded sources for the requested dialects to apply.
// With no dialects given, every supported dialect is registered.
func Register(ctx context.Context, apply ApplyFunc, dialects ...string) error {
	if apply == nil {
		return fmt.Errorf("migrations: apply function is required")
	}

	wanted := make(map[string]bool, len(dialects))
	for _, dialect := range dialects {
		normalized := strings.TrimSpace(strings.ToLower(dialect))
		if normalized == "" {
			continue
		}
		wanted[normalized] = true
	}

	sources, err := Sources()
	if err != nil {
		return err
	}

	applied := 0
	for _, src := range sources {
		if len(wanted) > 0 && !wanted[src.Dialect] {
			continue
		}
		if err := apply(ctx, src); err != nil {
			return fmt.Errorf("migrations: register %s (%s): %w", src.Dialect, src.Root, err)
		}
		applied++
	}
	if applied == 0 {
		return fmt.Errorf("migrations: no sources matched dialects %v", dialects)
	}
	return nil
}
