// Package cli holds what the npl-* commands share: persistent flags, config
// and logger bootstrap, optional backends and the mapping of errors to exit
// codes.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/npleval/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/npleval/pkg/logger"
)

// Options are the flags every command accepts.
type Options struct {
	ConfigPath    string
	LogLevel      string
	LogFormat     string
	QueriesFile   string
	JudgmentsFile string
	OutDir        string
}

// Bind registers the shared flags as persistent flags of cmd and makes flag
// and argument errors usage errors.
func (o *Options) Bind(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.ConfigPath, "config", os.Getenv("NPLEVAL_CONFIG"), "Path to YAML configuration file")
	f.StringVar(&o.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVar(&o.LogFormat, "log-format", "", "Log format (text, json)")
	f.StringVar(&o.QueriesFile, "queries-file", "", "Query collection file (default from config)")
	f.StringVar(&o.JudgmentsFile, "judgments-file", "", "Relevance judgments file (default from config)")
	f.StringVar(&o.OutDir, "out-dir", "", "Directory for result tables (default from config)")

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.Usagef("%v", err)
	})
}

// Load reads the configuration, applies flag overrides on top of it and
// sets up the default logger.
func (o *Options) Load() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, apperrors.Usagef("%v", err)
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}
	if o.QueriesFile != "" {
		cfg.Eval.QueriesPath = o.QueriesFile
	}
	if o.JudgmentsFile != "" {
		cfg.Eval.JudgmentsPath = o.JudgmentsFile
	}
	if o.OutDir != "" {
		cfg.Eval.OutputDir = o.OutDir
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

// ExactArgs is cobra.ExactArgs returning a usage error.
func ExactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return apperrors.Usagef("%s expects %d arguments, got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

// Execute runs cmd until it returns or the process is interrupted and
// returns the exit code for its error. Usage errors print the usage text.
func Execute(cmd *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return apperrors.ExitOK
	}
	code := apperrors.ExitCode(err)
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	if code == apperrors.ExitUsage {
		fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
	}
	slog.Debug("command failed", "command", cmd.Name(), "exit_code", code, "error", err)
	return code
}
