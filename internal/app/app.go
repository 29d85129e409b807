// Package app wires configuration, storage, repositories and services into
// one value shared by the HTTP server and the ledgerctl CLI.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/attendance-ledger-api/internal/config"
	"github.com/attendance-ledger-api/internal/database"
	"github.com/attendance-ledger-api/internal/policy"
	"github.com/attendance-ledger-api/internal/repository"
	"github.com/attendance-ledger-api/internal/service"
)

// App holds the wired application
type App struct {
	Config   *config.Config
	Log      zerolog.Logger
	Policy   *policy.Table
	Repos    *repository.Repositories
	Services *service.Services

	db *database.DB
}

// New opens the configured storage backend, makes sure every table exists
// and builds the services on top of it.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, opts ...service.Option) (*App, error) {
	table, err := policy.Load(cfg.Policy.File)
	if err != nil {
		return nil, err
	}

	store, db, err := OpenStore(cfg, log)
	if err != nil {
		return nil, err
	}

	repos := repository.New(store, TablesFrom(cfg.Storage))
	if err := repos.EnsureSchema(ctx); err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	log.Info().
		Str("backend", cfg.Storage.Backend).
		Int("centers", len(table.Centers())).
		Bool("key_includes_submitter", cfg.Ledger.KeyIncludesSubmitter).
		Str("timezone", cfg.Ledger.Timezone).
		Msg("Storage ready")

	return &App{
		Config:   cfg,
		Log:      log,
		Policy:   table,
		Repos:    repos,
		Services: service.NewServices(repos, table, cfg, log, opts...),
		db:       db,
	}, nil
}

// OpenStore returns the TableStore selected by STORAGE_BACKEND. The
// postgres backend also returns its connection, with migrations applied.
func OpenStore(cfg *config.Config, log zerolog.Logger) (repository.TableStore, *database.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := database.New(&cfg.Database, log)
		if err != nil {
			return nil, nil, err
		}
		if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repository.NewPostgresStore(db), db, nil

	case config.BackendXLSX, "":
		if dir := filepath.Dir(cfg.Storage.XLSXPath); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, nil, fmt.Errorf("failed to create workbook directory: %w", err)
			}
		}
		log.Info().Str("path", cfg.Storage.XLSXPath).Msg("Using XLSX workbook storage")
		return repository.NewXLSXStore(cfg.Storage.XLSXPath), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// TablesFrom maps the configured table names
func TablesFrom(cfg config.StorageConfig) repository.Tables {
	tables := repository.DefaultTables
	if cfg.LedgerTable != "" {
		tables.Ledger = cfg.LedgerTable
	}
	if cfg.RosterTable != "" {
		tables.Roster = cfg.RosterTable
	}
	if cfg.ImportsTable != "" {
		tables.Imports = cfg.ImportsTable
	}
	if cfg.ImportErrorsTable != "" {
		tables.ImportErrors = cfg.ImportErrorsTable
	}
	return tables
}

// HealthCheck reports whether storage is reachable
func (a *App) HealthCheck(ctx context.Context) error {
	if a.db != nil {
		return a.db.HealthCheck(ctx)
	}
	_, err := a.Repos.Store.ReadAllRows(ctx, TablesFrom(a.Config.Storage).Ledger)
	return err
}

// Close releases the database connection, if any
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	stats := a.db.Stats()
	a.Log.Debug().
		Int("open_connections", stats.OpenConnections).
		Int64("wait_count", stats.WaitCount).
		Dur("wait_duration", stats.WaitDuration).
		Msg("Closing database")
	return a.db.Close()
}
