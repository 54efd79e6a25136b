// Package main provides the ingestion and store maintenance CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ademar/ragcore/internal/config"
	"github.com/ademar/ragcore/internal/document"
	"github.com/ademar/ragcore/internal/embedding"
	"github.com/ademar/ragcore/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "rag-index",
	Short: "Vector store ingestion and maintenance",
	Long: `Build and maintain the vector store backing the rag CLI.

Environment variables:
  OPENAI_API_KEY      API key for OpenAI embeddings (openai provider)
  EMBEDDING_BASE_URL  optional mirror for the embedding endpoint`,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Scan the document directory and rebuild the vector store",
	Long: `Rebuilds the vector store from the configured document directory.

This command:
1. Recursively scans the document directory for txt/md/pdf/docx/csv files
2. Embeds each document with the configured embedding provider
3. Replaces the vector store contents

When the directory holds no documents a small synthetic corpus is ingested
instead, so the store is never left empty.`,
	RunE: runIngest,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show store location and document count",
	RunE:  runInfo,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the vector store without destroying it",
	RunE:  runClear,
}

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Remove the persisted vector store entirely",
	RunE:  runDestroy,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.AddCommand(ingestCmd, infoCmd, clearCmd, destroyCmd)
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildManager(ctx context.Context, cfg *config.Config) (*storage.Manager, error) {
	var provider embedding.Provider
	var err error
	switch cfg.Embedding.Provider {
	case "openai":
		provider, err = embedding.NewOpenAIProvider(ctx, cfg.Embedding.Model, cfg.Embedding.BatchSize)
	default:
		provider, err = embedding.NewOllamaProvider(ctx, cfg.Embedding.Model, cfg.Embedding.BaseURL)
	}
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	var opener storage.Opener
	if cfg.Store.Backend == "qdrant" {
		opener = storage.QdrantOpener{
			Host:       cfg.Store.Qdrant.Host,
			Port:       cfg.Store.Qdrant.Port,
			Collection: cfg.Store.Qdrant.Collection,
		}
	} else {
		opener = storage.LocalOpener{Dir: cfg.Store.Path}
	}
	return storage.NewManager(opener, provider, slog.Default()), nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	fmt.Printf("Scanning %s...\n", cfg.DocumentsDir)
	loader := document.NewLoader(cfg.DocumentsDir, slog.Default())
	docs, err := loader.LoadAll()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No documents found, ingesting synthetic corpus")
		docs = document.SyntheticDocuments()
	}

	stats := document.Stats(docs)
	fmt.Printf("Loaded %v documents (%v words)\n", stats["document_count"], stats["total_words"])

	manager, err := buildManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer manager.Close()

	fmt.Println("Embedding and storing...")
	if err := manager.Create(ctx, docs); err != nil {
		return err
	}

	count, err := manager.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nIngest complete: %d items in %s\n", count, time.Since(start).Round(time.Second))
	return nil
}

func loadedManager(ctx context.Context) (*storage.Manager, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	manager, err := buildManager(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := manager.Load(ctx); err != nil {
		return nil, err
	}
	return manager, nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	manager, err := loadedManager(ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	info, err := manager.Info(ctx)
	if err != nil {
		return err
	}
	for key, value := range info {
		fmt.Printf("%-20s %s\n", key, value)
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	manager, err := loadedManager(ctx)
	if err != nil {
		return err
	}
	defer manager.Close()

	if err := manager.Clear(ctx); err != nil {
		return err
	}
	fmt.Println("Store cleared")
	return nil
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	manager, err := loadedManager(ctx)
	if err != nil {
		return err
	}

	if err := manager.Delete(ctx); err != nil {
		return err
	}
	fmt.Println("Store destroyed")
	return nil
}
