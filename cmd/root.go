// Package cmd provides the obsquery command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"obsquery/bootstrap"
	"obsquery/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// CLI output formatters
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// Global flags
var (
	noColor bool
	quiet   bool
	verbose bool
)

const defaultTimeout = 5 * time.Minute // Default context timeout for CLI operations

// NewRootCmd creates the obsquery command. Without a subcommand it runs serve.
func NewRootCmd(serve func() error) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "obsquery",
		Short: "Query threat-intelligence events by observable",
		Long: `obsquery serves time-bounded searches over imported threat-intelligence events,
filtered by IPv4 address or domain name.

Run without a subcommand to start the HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log at the configured level instead of warnings only")

	rootCmd.AddCommand(newQueryCmd())
	rootCmd.AddCommand(newLoadCmd())

	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute(serve func() error) int {
	if err := NewRootCmd(serve).Execute(); err != nil {
		errorColor.Fprintf(os.Stderr, "✗ Error: %v\n", err)
		return 1
	}
	return 0
}

// session holds what a one-shot command needs: configuration, logging and
// open storage backends.
type session struct {
	cfg        *config.Config
	logger     *zap.Logger
	sugar      *zap.SugaredLogger
	components *bootstrap.Components
}

// openSession loads configuration and opens the storage backends.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := bootstrap.InitConfig()
	if err != nil {
		return nil, err
	}

	if !verbose {
		cfg.Logging.Level = "warn"
	}
	logger, sugar, err := bootstrap.InitLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	components, err := bootstrap.InitComponents(ctx, cfg, sugar)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}

	return &session{cfg: cfg, logger: logger, sugar: sugar, components: components}, nil
}

// Close releases the backends and flushes the logger.
func (s *session) Close() {
	if err := s.components.Close(); err != nil {
		s.sugar.Warnw("Failed to close storage backends during cleanup", "error", err)
	}
	if err := s.logger.Sync(); err != nil {
		// Sync errors on stderr are common and can be ignored
		s.sugar.Debugw("Failed to sync logger during cleanup", "error", err)
	}
}
