// Package main provides the cloudscope CLI entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/matsen/cloudscope/internal/config"
	"github.com/matsen/cloudscope/internal/ctxlog"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool

	configPath string
	logLevel   string
	logFormat  string

	// cfg is loaded before any subcommand runs.
	cfg = config.Default()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		reportError(err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "cloudscope",
	Short: "Generate and explore synthetic cloud topologies",
	Long: `cloudscope generates random cloud-infrastructure topologies and renders
them as interactive graphs.

Small graphs are generated in one shot. Large graphs are generated in
node-range chunks under a locality window and streamed to the viewer, which
merges each chunk into a growing, always-consistent snapshot.

All commands output JSON by default; pass --human for readable output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: $XDG_CONFIG_HOME/cloudscope/config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.Version = Version
}

// errConfig marks failures to load or validate configuration.
var errConfig = errors.New("configuration error")

// setup loads .env, the config file and flag overrides, then installs the
// logger on the command context.
func setup(cmd *cobra.Command, _ []string) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	c, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	cfg = c

	logger := ctxlog.New(c.Log.Level, c.Log.Format, os.Stderr)
	cmd.SetContext(ctxlog.WithLogger(cmd.Context(), logger))
	return nil
}
