package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/notamwatch/internal/config"
	"github.com/hazyhaar/notamwatch/runlog"
	"github.com/hazyhaar/notamwatch/store"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	envFile    string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "notamwatch",
		Short:         "Scrape and serve Israeli NOTAMs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.init(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", os.Getenv("NOTAMWATCH_CONFIG"), "path to notamwatch.yaml")
	f.StringVar(&a.envFile, "env-file", ".env", "dotenv file with NOTAMWATCH_* overrides (ignored if missing)")
	f.StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		newFetchCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newStatsCmd(a),
		newListCmd(a),
		newExportCmd(a),
		newRunsCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.logger = slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: parseLevel(a.logLevel)}))
	slog.SetDefault(a.logger)

	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (a *app) openStore() *store.Store {
	return store.Open(store.Config{
		Path:       a.cfg.Store.Path,
		BackupDir:  a.cfg.Store.BackupDir,
		MaxBackups: a.cfg.Store.MaxBackups,
	}, a.logger)
}

// openLedger returns nil when the run ledger is disabled.
func (a *app) openLedger() (*runlog.Ledger, error) {
	if a.cfg.RunLog.Path == "" {
		return nil, nil
	}
	l, err := runlog.Open(a.cfg.RunLog.Path, a.logger)
	if err != nil {
		return nil, fmt.Errorf("open run ledger: %w", err)
	}
	return l, nil
}
