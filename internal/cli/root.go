// Package cli implements the slurmgo command line.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/me/slurmgo/internal/config"
	"github.com/me/slurmgo/internal/engine"
	"github.com/me/slurmgo/internal/executor"
	"github.com/me/slurmgo/internal/logging"
	"github.com/me/slurmgo/internal/store"
	"github.com/me/slurmgo/pkg/model"
)

var (
	flagConfig    string
	flagDB        string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	cfg    config.Config
	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the slurmgo CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "slurmgo",
		Short: "Generate, submit and track SLURM batch jobs",
		Long: `slurmgo renders a bash command into a SLURM batch script, submits it with
sbatch (optionally several times, each retry depending on the previous attempt
failing) and tracks the result. Jobs can also run as local background
processes with the same status and cancel commands.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			cfg = loaded

			flags := cmd.Flags()
			if flags.Changed("db") {
				cfg.DBPath = flagDB
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = flagLogLevel
			}
			if flags.Changed("log-format") {
				cfg.LogFormat = flagLogFormat
			}
			if flagDebug {
				cfg.LogLevel = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger = logging.NewLoggerWithWriter(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default ~/.slurmgo/config.yaml if present)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "Ledger database path, or \"off\" (or SLURMGO_DB env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newScriptCmd(),
		newStatusCmd(),
		newQueryCmd(),
		newCancelCmd(),
		newJobsCmd(),
		newWaitCmd(),
	)

	return root
}

// session bundles the engine and the ledger for one command invocation.
type session struct {
	engine *engine.Engine
	ledger store.Store
}

// openSession wires executors, the ledger and the engine from cfg. The
// ledger is skipped when withLedger is false or it is disabled.
func openSession(ctx context.Context, withLedger bool) (*session, error) {
	var ledger store.Store
	if withLedger {
		path, err := cfg.ResolveDBPath()
		if err != nil {
			return nil, err
		}
		if path != "" {
			st, err := store.NewSQLiteStore(path, logger)
			if err != nil {
				return nil, err
			}
			if err := st.Migrate(ctx); err != nil {
				st.Close()
				return nil, fmt.Errorf("migrate ledger: %w", err)
			}
			logger.Debug("ledger ready", "path", path)
			ledger = st
		}
	}

	eng, err := engine.New(engine.Config{
		Tries:       cfg.Tries,
		Template:    cfg.Template,
		CheckSyntax: cfg.CheckSyntax,
	},
		executor.NewSlurmExecutor(cfg.Commands.SlurmCommands, logger),
		executor.NewLocalExecutor(cfg.Commands.Shell, logger),
		ledger, logger)
	if err != nil {
		if ledger != nil {
			ledger.Close()
		}
		return nil, err
	}
	return &session{engine: eng, ledger: ledger}, nil
}

// recordedName returns the ledger name for h, or "" when the ledger is off
// or has no entry.
func (s *session) recordedName(ctx context.Context, h model.JobHandle) string {
	if s.ledger == nil {
		return ""
	}
	sub, err := s.ledger.FindByHandle(ctx, h)
	if err != nil {
		logger.Debug("ledger lookup failed", "handle", h.String(), "error", err)
		return ""
	}
	if sub == nil {
		return ""
	}
	return sub.Name
}

func (s *session) Close() {
	if err := s.engine.Close(); err != nil {
		logger.Warn("remove temp scripts", "error", err)
	}
	if s.ledger != nil {
		s.ledger.Close()
	}
}
