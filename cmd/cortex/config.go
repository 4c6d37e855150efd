package main

import (
	"fmt"
	"net/url"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect cortex configuration",
	Long: `The config command shows and validates the effective configuration:
built-in defaults, overridden by the config file, overridden by CORTEX_
environment variables.

Configuration is stored in YAML format at ~/.cortex/config.yaml by default.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display the effective configuration",
	Long: `Display the effective configuration with credentials masked.

Output is YAML unless -o json is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		masked := maskSecrets(cfg)
		if globalFlags.GetOutputFormat() == internal.FormatJSON {
			return formatter(cmd).PrintJSON(masked)
		}
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(masked); err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		return enc.Close()
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Validate the configuration. Loading already rejects invalid settings;
this command also reports ${VAR} references that no environment variable
resolved.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := formatter(cmd)
		for _, ref := range config.UnresolvedRefs(cfg) {
			if err := f.PrintWarning(ref); err != nil {
				return err
			}
		}
		return f.PrintSuccess("configuration is valid")
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), configPath(globalFlags))
		return err
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configValidateCmd, configPathCmd)
}

const maskedValue = "********"

// maskSecrets returns a copy of c with credentials replaced.
func maskSecrets(c *config.Config) config.Config {
	out := *c
	out.Neo4j.Password = mask(out.Neo4j.Password)
	out.Embedder.APIKey = mask(out.Embedder.APIKey)
	if u, err := url.Parse(out.Cache.RedisURL); err == nil && out.Cache.RedisURL != "" {
		out.Cache.RedisURL = u.Redacted()
	}
	out.LLM.Providers = slices.Clone(c.LLM.Providers)
	for i := range out.LLM.Providers {
		out.LLM.Providers[i].APIKey = mask(out.LLM.Providers[i].APIKey)
	}
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return maskedValue
}
