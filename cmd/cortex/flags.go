package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
)

// GlobalFlags holds global flags available to all commands
type GlobalFlags struct {
	Verbose      bool
	Quiet        bool
	OutputFormat string
	ConfigFile   string
	HomeDir      string
	EnvFile      string
}

var globalFlags = &GlobalFlags{}

// RegisterGlobalFlags registers persistent flags on the root command
func RegisterGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVarP(&globalFlags.Quiet, "quiet", "q", false, "Only log errors")
	cmd.PersistentFlags().StringVarP(&globalFlags.OutputFormat, "output", "o", "text", "Output format (text|json)")
	cmd.PersistentFlags().StringVar(&globalFlags.ConfigFile, "config", "", "Path to config file (default: $CORTEX_HOME/config.yaml)")
	cmd.PersistentFlags().StringVar(&globalFlags.HomeDir, "home", "", "Cortex home directory (default: ~/.cortex)")
	cmd.PersistentFlags().StringVar(&globalFlags.EnvFile, "env-file", ".env", "Dotenv file read before the config")
}

// ParseGlobalFlags validates global flags
func ParseGlobalFlags() (*GlobalFlags, error) {
	format := globalFlags.OutputFormat
	if format != string(internal.FormatText) && format != string(internal.FormatJSON) {
		return nil, internal.NewCLIError(internal.ExitConfigError, fmt.Sprintf("unknown output format %q", format))
	}
	if globalFlags.Verbose && globalFlags.Quiet {
		return nil, internal.NewCLIError(internal.ExitConfigError, "--verbose and --quiet cannot be used together")
	}
	return globalFlags, nil
}

// GetOutputFormat returns the parsed OutputFormat enum
func (f *GlobalFlags) GetOutputFormat() internal.OutputFormat {
	if f.OutputFormat == string(internal.FormatJSON) {
		return internal.FormatJSON
	}
	return internal.FormatText
}
