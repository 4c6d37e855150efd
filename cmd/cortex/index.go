package main

import (
	"github.com/spf13/cobra"

	"github.com/zero-day-ai/cortex/cmd/cortex/internal"
	"github.com/zero-day-ai/cortex/internal/embedder"
	"github.com/zero-day-ai/cortex/internal/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the graph's vector indexes",
}

var indexEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Create any missing vector index",
	Long: `Create the vector indexes the retrieval queries rely on: one each for
events, claims, concepts and chunks, plus one per reference label.

The dimension defaults to embedder.dimensions. When that is unset the
embedder is probed once to learn it. Existing indexes are left as they are.`,
	Args: cobra.NoArgs,
	RunE: runIndexEnsure,
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the vector indexes retrieval expects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printIndexes(formatter(cmd), retrieval.VectorIndexes(cfg.Retrieval))
	},
}

func init() {
	indexEnsureCmd.Flags().Int("dimensions", 0, "Vector dimensions (overrides embedder.dimensions)")
	indexCmd.AddCommand(indexEnsureCmd, indexListCmd)
}

func runIndexEnsure(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	dims, _ := cmd.Flags().GetInt("dimensions")
	if dims == 0 {
		dims = cfg.Embedder.Dimensions
	}
	if dims == 0 {
		emb, err := embedder.New(cfg.Embedder)
		if err != nil {
			return internal.WrapError(internal.ExitProviderError, "failed to initialize embedder", err)
		}
		vec, err := emb.Embed(ctx, "dimension probe")
		if err != nil {
			return internal.WrapError(internal.ExitProviderError, "failed to probe embedding dimensions", err)
		}
		dims = len(vec)
	}

	client, err := connectGraph(ctx, cfg.Neo4j)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	indexes, err := retrieval.EnsureIndexes(ctx, client, cfg.Retrieval, dims)
	if err != nil {
		return internal.WrapError(internal.ExitGraphError, "failed to create vector indexes", err)
	}
	if err := printIndexes(formatter(cmd), indexes); err != nil {
		return err
	}
	logger.Info("vector indexes ensured", "count", len(indexes), "dimensions", dims)
	return nil
}

func printIndexes(f internal.Formatter, indexes []retrieval.VectorIndex) error {
	rows := make([][]string, 0, len(indexes))
	for _, idx := range indexes {
		rows = append(rows, []string{idx.Name, idx.Label})
	}
	return f.PrintTable([]string{"INDEX", "LABEL"}, rows)
}
