package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/osvquery/vulncontext-mcp/internal/config"
	"github.com/osvquery/vulncontext-mcp/internal/embedder"
	"github.com/osvquery/vulncontext-mcp/internal/ingest"
	"github.com/osvquery/vulncontext-mcp/internal/storage"
)

var ingestEcosystem string

var ingestCmd = &cobra.Command{
	Use:   "ingest <directory>",
	Short: "Ingest OSV JSON advisories from a directory into the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return fmt.Errorf("not a readable directory: %s", dir)
		}

		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		store, err := storage.Open(cfg.Database.Path, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		ctx := cmd.Context()
		emb, err := embedder.New(ctx, log, embedder.Config{
			Provider:    cfg.Embedding.Provider,
			OpenAIKey:   os.Getenv(config.EnvOpenAIKey),
			OllamaURL:   cfg.Embedding.OllamaURL,
			OllamaModel: cfg.Embedding.OllamaModel,
			CacheSize:   cfg.Embedding.CacheSize,
		})
		if err != nil {
			return err
		}
		defer func() { _ = emb.Close() }()

		pipeline := ingest.NewPipeline(store, emb, log)
		stats, err := pipeline.IngestDirectory(ctx, dir, ingestEcosystem)
		if err != nil {
			return err
		}

		fmt.Printf("Loaded:   %d\n", stats.Loaded)
		fmt.Printf("Upserted: %d\n", stats.Upserted)
		fmt.Printf("Skipped:  %d\n", stats.Skipped)
		fmt.Printf("Failed:   %d\n", stats.Failed)
		fmt.Printf("Duration: %s\n", stats.Duration)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestEcosystem, "ecosystem", "", "ecosystem tag for documents that do not declare one")
}
