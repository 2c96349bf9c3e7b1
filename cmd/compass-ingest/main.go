// compass-ingest loads a JSON dump of problem statements into the vector
// store and runs a smoke query to verify the collection is searchable.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/anurag-bit/sih-tj/chromadb"
	"github.com/anurag-bit/sih-tj/config"
	"github.com/anurag-bit/sih-tj/embedder"
	"github.com/anurag-bit/sih-tj/ingest"
)

var (
	flagFile       string
	flagChromaHost string
	flagChromaPort int
	flagCollection string
	flagEmbedder   string
	flagBatchSize  int
)

var rootCmd = &cobra.Command{
	Use:   "compass-ingest",
	Short: "Ingest problem statements into the vector store",
	Long: `Reads a JSON array of problem statements, normalizes each record
(IDs, categories, tech stack, difficulty), embeds the documents, and
writes them to ChromaDB. Finishes with a count check and a smoke query.

Flags override values from the config file and environment.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.Flags().StringVarP(&flagFile, "file", "f", "", "path to the JSON dump (required)")
	rootCmd.Flags().StringVar(&flagChromaHost, "chroma-host", "", "ChromaDB host")
	rootCmd.Flags().IntVar(&flagChromaPort, "chroma-port", 0, "ChromaDB port")
	rootCmd.Flags().StringVar(&flagCollection, "collection", "", "collection name")
	rootCmd.Flags().StringVar(&flagEmbedder, "embedder-url", "", "embedding server base URL")
	rootCmd.Flags().IntVar(&flagBatchSize, "batch-size", 0, "embedding batch size")
	rootCmd.MarkFlagRequired("file")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagChromaHost != "" {
		cfg.Chroma.Host = flagChromaHost
	}
	if flagChromaPort > 0 {
		cfg.Chroma.Port = flagChromaPort
	}
	if flagCollection != "" {
		cfg.Chroma.Collection = flagCollection
	}
	if flagEmbedder != "" {
		cfg.Embedder.Endpoint = flagEmbedder
	}
	if flagBatchSize > 0 {
		cfg.Embedder.BatchSize = flagBatchSize
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	store := chromadb.New(chromadb.Config{
		Host:       cfg.Chroma.Host,
		Port:       cfg.Chroma.Port,
		Collection: cfg.Chroma.Collection,
		Timeout:    cfg.Chroma.Timeout,
		Logger:     logger,
	})
	emb := embedder.New(embedder.Config{
		Endpoint:  cfg.Embedder.Endpoint,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		BatchSize: cfg.Embedder.BatchSize,
		Timeout:   cfg.Embedder.Timeout,
		Logger:    logger,
	})

	pipeline := ingest.New(ingest.Config{
		Store:     store,
		Embedder:  emb,
		BatchSize: cfg.Embedder.BatchSize,
		Progress:  true,
		Logger:    logger,
	})

	report, err := pipeline.Run(cmd.Context(), flagFile)
	if err != nil {
		return err
	}

	fmt.Printf("records:    %d\n", report.Total)
	fmt.Printf("ingested:   %d\n", report.Ingested)
	fmt.Printf("skipped:    %d\n", report.Skipped)
	fmt.Printf("collection: %d documents\n", report.CollectionCount)
	fmt.Printf("smoke hits: %d\n", report.SmokeResults)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
