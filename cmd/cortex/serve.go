package main

import (
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the question API over HTTP",
	Long: `Start the HTTP server. Answers to POST /api/ask stream back as
server-sent events; conversations are managed under /api/conversations
and dependency health is reported at /healthz.

The server runs until interrupted and then drains in-flight requests.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srvCfg := cfg.Server
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		srvCfg.Addr = addr
	}

	opts := []server.Option{server.WithLogger(logger.With("component", "server"))}
	for name, check := range a.healthChecks() {
		opts = append(opts, server.WithHealthCheck(name, check))
	}

	if err := server.New(srvCfg, a.handler, a.store, opts...).Run(ctx); err != nil {
		return internal.WrapError(internal.ExitError, "server failed", err)
	}
	return nil
}
