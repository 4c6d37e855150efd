package main

import (
	"context"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/types"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the graph, embedder and LLM providers",
	Long: `Connect to every configured backend and report its health.

Exits with status 5 when any component is unhealthy.`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	healthCmd.Flags().Duration("timeout", 10*time.Second, "Time allowed for all checks")
}

func runHealth(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	overall, components := a.checkHealth(ctx)
	if err := printHealth(formatter(cmd), overall, components); err != nil {
		return err
	}
	if overall.State == types.HealthStateUnhealthy {
		return internal.NewCLIError(internal.ExitUnhealthy, overall.Message)
	}
	return nil
}

func printHealth(f internal.Formatter, overall types.HealthStatus, components map[string]types.HealthStatus) error {
	if globalFlags.GetOutputFormat() == internal.FormatJSON {
		return f.PrintJSON(map[string]any{"status": overall, "components": components})
	}

	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		st := components[name]
		rows = append(rows, []string{name, string(st.State), st.Message})
	}
	if err := f.PrintTable([]string{"COMPONENT", "STATE", "MESSAGE"}, rows); err != nil {
		return err
	}
	switch overall.State {
	case types.HealthStateHealthy:
		return f.PrintSuccess("all components healthy")
	case types.HealthStateDegraded:
		return f.PrintWarning(overall.Message)
	}
	return nil
}
