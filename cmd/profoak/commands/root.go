// Package commands wires the profoak CLI: the catalog sync job and the
// MCP tool server share one configured set of adapters.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/profoak/profoak-api/internal/config"
	"github.com/profoak/profoak-api/internal/infrastructure/embedding"
	"github.com/profoak/profoak-api/internal/infrastructure/qdrant"
	"github.com/profoak/profoak-api/internal/infrastructure/tcgdex"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profoak",
		Short: "Semantic card retrieval for the Professor Oak deck-building assistant",
		Long: `profoak indexes Pokémon TCG Pocket cards into a vector database and
serves semantic search, similarity and recommendation-validation tools
to the conversational assistant over MCP.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

// backends holds the configured infrastructure adapters shared by the
// commands.
type backends struct {
	cfg      *config.Config
	source   *tcgdex.Client
	embedder *embedding.GeminiClient
	index    *qdrant.Index
}

func (b *backends) close() {
	if b.embedder != nil {
		if err := b.embedder.Close(); err != nil {
			fmt.Printf("Warning: failed to close embedding client: %v\n", err)
		}
	}
	if b.index != nil {
		if err := b.index.Close(); err != nil {
			fmt.Printf("Warning: failed to close Qdrant client: %v\n", err)
		}
	}
}

func buildBackends(ctx context.Context) (*backends, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	index, err := qdrant.New(qdrant.Options{
		Host:         cfg.QdrantHost,
		Port:         cfg.QdrantPort,
		APIKey:       cfg.QdrantAPIKey,
		Collection:   cfg.QdrantCollection,
		Dimension:    cfg.EmbeddingDimension,
		PollInterval: time.Duration(cfg.ReadyPollIntervalSec) * time.Second,
		MaxAttempts:  cfg.ReadyMaxAttempts,
	})
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	return &backends{
		cfg:      cfg,
		source:   tcgdex.NewClient(cfg.TCGdexBaseURL, cfg.Language, cfg.LogLevel),
		embedder: embedder,
		index:    index,
	}, nil
}
