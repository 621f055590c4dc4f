package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/profoak/profoak-api/internal/infrastructure/resilience"
	"github.com/profoak/profoak-api/internal/usecase/sync"
)

// embedBreakerThreshold opens the circuit after this many consecutive
// embedding failures within one run.
const (
	embedBreakerThreshold = 3
	embedBreakerTimeout   = 30 * time.Second
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync [setID...]",
		Short: "Index new card sets into the vector database",
		Long: `Fetches card sets from the TCGdex catalog, projects each card into
descriptive text, embeds the projections and upserts them into Qdrant.

Without arguments, new sets are auto-detected by diffing the catalog
against sync markers stored in the index. With explicit set ids, exactly
those sets are re-synced and no markers are written.`,
		Example: `  # Index all sets not yet marked as synced
  profoak sync

  # Force a re-sync of two specific sets
  profoak sync A1 A2`,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	b, err := buildBackends(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	engine := sync.New(
		b.source,
		b.embedder,
		b.index,
		resilience.NewCircuitBreaker(embedBreakerThreshold, embedBreakerTimeout),
		sync.Options{
			SetPrefix:       b.cfg.SetPrefix,
			CardFetchDelay:  time.Duration(b.cfg.CardFetchDelayMS) * time.Millisecond,
			UpsertBatchSize: b.cfg.UpsertBatchSize,
			Dimension:       b.cfg.EmbeddingDimension,
		},
	)

	added, err := engine.Sync(ctx, args)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("Sync complete: %d cards added\n", added)
	return nil
}
