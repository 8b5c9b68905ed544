package cli

import (
	"github.com/spf13/cobra"

	"github.com/soyeahso/ai4cs/internal/config"
	"github.com/soyeahso/ai4cs/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths    config.Paths
	cfg      config.Config
	cfgErr   error
	log      *logging.Logger
	closeLog = func() error { return nil }
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ai4cs",
		Short: "ai4cs: AI-powered business strategy consultations",
		Long:  "ai4cs runs a guided business strategy interview against an LLM, over HTTP, WebSocket or the terminal.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}

			// Config errors are reported by the commands that need a
			// config; "config set" must still work on a broken file.
			cfg, cfgErr = config.Load(paths.Config)
			if cfgErr != nil {
				cfg = config.Defaults()
			}

			level := logLevel
			if level == "" {
				level = cfg.Logging.Level
			}
			log, closeLog, err = logging.Open(logging.Options{
				Level: level,
				Style: cfg.Logging.ConsoleStyle,
				File:  cfg.Logging.File,
			})
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeLog()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.ai4cs/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConsultCmd())
	cmd.AddCommand(newJournalCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// loadedConfig returns the config parsed by the root command, or the error
// that prevented parsing it.
func loadedConfig() (config.Config, error) {
	return cfg, cfgErr
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
