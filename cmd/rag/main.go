// Package main provides the query CLI for the RAG pipeline.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ademar/ragcore/internal/config"
	"github.com/ademar/ragcore/internal/rag"
)

var (
	configPath string
	mode       string
	topK       int
)

var rootCmd = &cobra.Command{
	Use:   "rag",
	Short: "Retrieval-augmented generation over a local document corpus",
	Long: `Query a document corpus with retrieval-augmented generation.

Environment variables:
  DEEPSEEK_API_KEY    API key for the DeepSeek generation provider
  OPENAI_API_KEY      API key for OpenAI embeddings/generation
  EMBEDDING_BASE_URL  optional mirror for the embedding endpoint`,
}

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Run one retrieve-and-generate query",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var batchCmd = &cobra.Command{
	Use:   "batch [file]",
	Short: "Run queries from a file, one question per line",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show active configuration and store contents",
	RunE:  runStats,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	queryCmd.Flags().StringVar(&mode, "mode", "both", "retrieval | complete | both")
	queryCmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of documents to retrieve (0 = config default)")
	batchCmd.Flags().StringVar(&mode, "mode", "both", "retrieval | complete | both")
	rootCmd.AddCommand(queryCmd, batchCmd, statsCmd)
}

func main() {
	// Load .env if present (local development), ignore if missing.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildSystem(ctx context.Context) (*rag.System, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	var opts []rag.Option
	if mode == "retrieval" {
		opts = append(opts, rag.WithoutGeneration())
	}
	return rag.New(ctx, cfg, opts...)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := validateMode(); err != nil {
		return err
	}
	ctx := context.Background()

	system, err := buildSystem(ctx)
	if err != nil {
		return err
	}
	defer system.Close()

	result, err := system.Query(ctx, args[0], topK)
	if err != nil {
		return err
	}
	printResult(result)
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	if err := validateMode(); err != nil {
		return err
	}
	ctx := context.Background()

	questions, err := readQuestions(args[0])
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("no questions in %s", args[0])
	}

	system, err := buildSystem(ctx)
	if err != nil {
		return err
	}
	defer system.Close()

	results, err := system.BatchQuery(ctx, questions)
	if err != nil {
		return err
	}
	for i, result := range results {
		fmt.Printf("\n[%d/%d]\n", i+1, len(results))
		printResult(result)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	system, err := buildSystem(ctx)
	if err != nil {
		return err
	}
	defer system.Close()

	for key, value := range system.Stats() {
		fmt.Printf("%-20s %s\n", key, value)
	}
	info, err := system.Store().Info(ctx)
	if err != nil {
		return err
	}
	for key, value := range info {
		fmt.Printf("%-20s %s\n", key, value)
	}
	return nil
}

func validateMode() error {
	switch mode {
	case "retrieval", "complete", "both":
		return nil
	}
	return fmt.Errorf("invalid mode %q: want retrieval, complete or both", mode)
}

func readQuestions(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var questions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			questions = append(questions, line)
		}
	}
	return questions, scanner.Err()
}

func printResult(result *rag.Result) {
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()

	fmt.Printf("%s %s\n", boldCyan("Question:"), result.Query)

	if mode != "retrieval" {
		fmt.Printf("\n%s %s\n", boldGreen("Answer:"), result.Answer)
	}

	if mode != "complete" {
		fmt.Printf("\n%s\n", boldCyan(fmt.Sprintf("Sources (%d):", len(result.Sources))))
		for i, src := range result.Sources {
			content := src.Content
			if len(content) > 120 {
				content = content[:120] + "..."
			}
			fmt.Printf("  [%d] similarity %.3f  %v\n      %s\n", i+1, src.Similarity, src.Metadata["source"], content)
		}
	}

	fmt.Printf("\nretrieval %s | generation %s | total %s\n",
		result.RetrievalTime.Round(time.Millisecond),
		result.GenerationTime.Round(time.Millisecond),
		result.TotalTime.Round(time.Millisecond),
	)
}
