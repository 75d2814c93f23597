package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bcnelson/recon-tracker/internal/config"
	"github.com/bcnelson/recon-tracker/internal/observability"
	"github.com/bcnelson/recon-tracker/internal/service"
	"github.com/bcnelson/recon-tracker/internal/storage"
	"github.com/bcnelson/recon-tracker/internal/storage/memory"
	"github.com/bcnelson/recon-tracker/internal/storage/sql"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Storage
	svc    *service.Service
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "recon-tracker",
		Short:         "Track reconnaissance findings for security engagements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "serve" || cmd.Name() == "recon-tracker" {
				return a.open(os.Stdout, false)
			}
			// One-shot commands print their document to stdout.
			return a.open(cmd.ErrOrStderr(), true)
		},
	}

	serve := newServeCmd(a)
	root.RunE = serve.RunE
	root.AddCommand(serve, newExportCmd(a), newStatsCmd(a))
	return root
}

// open loads configuration, builds a logger writing to logOut and opens the
// store. A quiet logger only passes warnings and errors.
func (a *app) open(logOut io.Writer, quiet bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Log, logOut)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	if quiet {
		logger = logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	}

	store, err := openStore(cfg.Database, logger)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.store = store
	a.svc = service.New(store, logger, cfg.Aggregate.Concurrency)
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	_ = a.logger.Sync()
	a.store = nil
	return err
}

func openStore(cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	if cfg.Driver == "memory" {
		logger.Info("using in-memory storage, data is lost on exit")
		return memory.New(), nil
	}

	// Create data directory if needed (for SQLite)
	if cfg.Driver == "sqlite3" {
		if dir := sqliteDir(cfg.DSN); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
	}

	store, err := sql.New(cfg.Driver, cfg.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}

// sqliteDir returns the directory holding the database file named by dsn,
// or "" for in-memory databases and the working directory.
func sqliteDir(dsn string) string {
	path, _, _ := strings.Cut(dsn, "?")
	path = strings.TrimPrefix(path, "file:")
	if path == "" || path == ":memory:" {
		return ""
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return ""
	}
	return dir
}
