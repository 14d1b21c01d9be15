package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/labgen/internal/application"
	"github.com/JonMunkholm/labgen/internal/config"
	"github.com/JonMunkholm/labgen/internal/core"
	"github.com/JonMunkholm/labgen/internal/logging"
)

// cliOptions are the flags shared by every subcommand.
type cliOptions struct {
	logLevel  string
	logFormat string
	configDir string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "labgen",
		Short: "Generate synthetic lab test datasets",
		Long: `labgen produces synthetic lab datasets: one row per sampled
subject, lab category and lab test, plus any custom columns.

Category/test pairs come from a configuration CSV (header Category,Test),
a saved configuration, the default configuration file or a random
configuration when none is available.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json (overrides LOG_FORMAT)")
	flags.StringVar(&opts.configDir, "config-dir", "", "directory of saved configurations (overrides CONFIG_DIR)")

	root.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// load reads the environment configuration, applies the persistent flags
// and sets up logging on the command's stderr.
func (o *cliOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Logging.Format = o.logFormat
	}
	if o.configDir != "" {
		cfg.Store.Dir = o.configDir
	}
	logger := logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return cfg, logger, nil
}

// build creates the generator components for one-shot commands. Metrics and
// the file watcher only make sense for the long-running server.
func (o *cliOptions) build(cmd *cobra.Command) (*application.Components, error) {
	cfg, logger, err := o.load(cmd)
	if err != nil {
		return nil, err
	}
	cfg.Metrics.Enabled = false
	return application.Build(cfg, logger), nil
}

// userError annotates err with its user-facing code and suggested action.
func userError(err error) error {
	msg := core.MapError(err)
	return fmt.Errorf("%w (Code: %s). %s", err, msg.Code, msg.Action)
}
