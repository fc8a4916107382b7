package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/manthysbr/vita/internal/adapters/duckdb"
	"github.com/manthysbr/vita/internal/core/domain"
)

var ingestCollection string

// ingestCmd loads knowledge passages from a JSONL file.
var ingestCmd = &cobra.Command{
	Use:   "ingest <file.jsonl>",
	Short: "Load knowledge passages into a collection",
	Long: `Each line of the file is a JSON object with "title" and "content"
(and optionally "source"). The passages become searchable by the Head Coach's
search_nutrition or search_research actions.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch ingestCollection {
		case domain.CollectionNutrition, domain.CollectionResearch:
		default:
			return fmt.Errorf("unknown collection %q (want %s or %s)",
				ingestCollection, domain.CollectionNutrition, domain.CollectionResearch)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		logger := newLogger()

		repo, settings, err := openStore(ctx, logger)
		if err != nil {
			return err
		}
		defer repo.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		kb := duckdb.NewKnowledgeBase(repo, settings.GetConfig().Knowledge.TopK)
		n, err := kb.IngestJSONL(ctx, ingestCollection, f)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", args[0], err)
		}

		logger.Info("knowledge ingested", "collection", ingestCollection, "docs", n, "file", args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "ingested %d passage(s) into %s\n", n, ingestCollection)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestCollection, "collection", domain.CollectionNutrition, "nutrition or research")
}
