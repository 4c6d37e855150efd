package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/config"
	"github.com/zero-day-ai/cortex/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "cortex",
	Short: "Cortex - knowledge graph reasoning assistant",
	Long: `Cortex answers questions from a knowledge graph of remembered events,
ideas and concepts. Each answer is planned, broken into chain-of-thought
sub-questions that are resolved concurrently, and streamed back together
with Mermaid diagrams of the reasoning.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// cfg and logger are set by loadConfig before any subcommand runs.
var (
	cfg         *config.Config
	logger      = slog.Default()
	closeLogger = func() error { return nil }
)

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	defer func() { _ = closeLogger() }()

	return rootCmd.ExecuteContext(ctx)
}

// skipsConfig reports commands that must work without a valid config.
func skipsConfig(name string) bool {
	switch name {
	case "version", "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	return false
}

// loadConfig is called before any command runs to load configuration
func loadConfig(cmd *cobra.Command, args []string) error {
	flags, err := ParseGlobalFlags()
	if err != nil {
		return err
	}
	if skipsConfig(cmd.Name()) {
		return nil
	}

	cfg, err = readConfig(flags)
	if err != nil {
		return internal.WrapError(internal.ExitConfigError, "failed to load configuration", err)
	}

	switch {
	case flags.Verbose:
		cfg.Logging.Level = "debug"
	case flags.Quiet:
		cfg.Logging.Level = "error"
	}
	logger, closeLogger, err = observability.NewLogger(cfg.Logging)
	if err != nil {
		return internal.WrapError(internal.ExitConfigError, "failed to configure logging", err)
	}
	slog.SetDefault(logger)

	for _, ref := range config.UnresolvedRefs(cfg) {
		logger.Warn("configuration " + ref)
	}
	return nil
}

// readConfig loads the config file named by --config, or the optional
// default under the cortex home directory.
func readConfig(flags *GlobalFlags) (*config.Config, error) {
	loader := config.NewConfigLoader(config.NewValidator(), config.WithEnvFiles(flags.EnvFile))
	if flags.ConfigFile != "" {
		return loader.Load(flags.ConfigFile)
	}
	return loader.LoadWithDefaults(configPath(flags))
}

// configPath is --config, or config.yaml under --home, $CORTEX_HOME or ~/.cortex.
func configPath(flags *GlobalFlags) string {
	if flags.ConfigFile != "" {
		return flags.ConfigFile
	}
	homeDir := flags.HomeDir
	if homeDir == "" {
		homeDir = os.Getenv("CORTEX_HOME")
	}
	if homeDir == "" {
		homeDir = config.DefaultHomeDir()
	}
	return config.DefaultConfigPath(homeDir)
}

func init() {
	RegisterGlobalFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(conversationCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(indexCmd)
}

func formatter(cmd *cobra.Command) internal.Formatter {
	return internal.NewFormatter(globalFlags.GetOutputFormat(), cmd.OutOrStdout())
}
