package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/provledger/internal/config"
	"github.com/roach88/provledger/internal/ledger"
	"github.com/roach88/provledger/internal/store"
	"github.com/roach88/provledger/internal/zkp"
)

// app is everything a ledger command needs, opened from config.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store
	engine *zkp.Engine
	ledger *ledger.Ledger
}

// loadConfig reads the config and applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(config.Options{File: opts.ConfigFile})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Ledger.DBPath = opts.Database
	}
	if opts.ArtifactsDir != "" {
		cfg.Proof.ArtifactsDir = opts.ArtifactsDir
	}
	return cfg, nil
}

// newLogger builds the process logger. --verbose forces debug.
func newLogger(opts *RootOptions, cfg *config.Config, w io.Writer) *slog.Logger {
	level := cfg.Log.SlogLevel()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return slog.New(handler)
}

// openApp loads config, opens the store and wires the ledger.
// The caller must Close the returned app.
func openApp(opts *RootOptions, cmd *cobra.Command, extra ...ledger.Option) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(opts, cfg, cmd.ErrOrStderr())

	if dir := filepath.Dir(cfg.Ledger.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, WrapExitError(ExitFailure, "failed to create database directory", err)
		}
	}

	logger.Debug("opening database", "path", cfg.Ledger.DBPath)
	st, err := store.Open(cfg.Ledger.DBPath)
	if err != nil {
		return nil, WrapLedgerError("failed to open database", err)
	}

	engine := zkp.NewEngine(cfg.Proof.ArtifactsDir, logger)
	if cfg.Proof.Eager {
		if err := engine.Load(); err != nil {
			st.Close()
			return nil, WrapExitError(ExitFailure, "failed to load proof artifacts", err)
		}
	}

	ledgerOpts := append([]ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithProofTimeout(cfg.Proof.Timeout),
	}, extra...)

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		engine: engine,
		ledger: ledger.New(st, engine, ledgerOpts...),
	}, nil
}

// Close releases the store, logging rather than failing the command.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// proofSummary renders a proof for text output.
func proofSummary(kind, reason string) string {
	if reason == "" {
		return kind
	}
	return fmt.Sprintf("%s (%s)", kind, reason)
}

// openVerifier wires a ledger that can only verify proofs. It never
// touches the database and reads only the manifest and verifying key.
func openVerifier(opts *RootOptions, cmd *cobra.Command) (*ledger.Ledger, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(opts, cfg, cmd.ErrOrStderr())
	verifier := zkp.NewVerifier(cfg.Proof.ArtifactsDir, logger)
	return ledger.New(nil, verifier, ledger.WithLogger(logger)), nil
}
