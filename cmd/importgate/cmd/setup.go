package cmd

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/importgate/internal/core/db"
	"github.com/solatis/importgate/internal/rules"
	"github.com/solatis/importgate/internal/ruleset"
)

// buildRegistry loads the embedded rule sets (when builtin) followed by files.
func buildRegistry(builtin bool, files []string) (*rules.Registry, error) {
	registry := rules.NewRegistry()
	if builtin {
		if err := ruleset.ApplyBuiltin(registry); err != nil {
			return nil, fmt.Errorf("failed to load builtin rules: %w", err)
		}
	}
	for _, path := range files {
		f, err := ruleset.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(registry); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		slog.Debug("rule set loaded", "path", path, "entity_type", f.EntityType)
	}
	return registry, nil
}

// openStore opens and migrates the audit database.
func openStore(url string) (*db.Store, *sqlx.DB, error) {
	if url == "" {
		return nil, nil, fmt.Errorf("--db-url or store.database_url required")
	}
	database, err := db.Open(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.MigrateUp(database); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	store, err := db.NewStore(database, slog.Default())
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return store, database, nil
}
