package commands

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/profoak/profoak-api/internal/infrastructure/resilience"
	"github.com/profoak/profoak-api/internal/tools"
	"github.com/profoak/profoak-api/internal/usecase/query"
)

// limiterSweepInterval is how often expired rate-limit windows are
// evicted from memory.
const limiterSweepInterval = 5 * time.Minute

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP tool server on stdio",
		Long: `Serves the card tools (search_cards, get_similar_cards,
get_card_context, recommend_cards) to the conversational assistant over
the Model Context Protocol on stdio.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := buildBackends(ctx)
	if err != nil {
		return err
	}
	defer b.close()

	retriever := query.NewRetriever(b.embedder, b.index)
	resolver := query.NewResolver(retriever, b.cfg.MatchThreshold, b.cfg.MaxQuantity)
	limiter := resilience.NewRateLimiter(
		resilience.NewMemoryStore(),
		b.cfg.RateLimitRequests,
		time.Duration(b.cfg.RateLimitWindowSec)*time.Second,
	)

	server := mcpserver.NewMCPServer("Professor Oak Card Tools", "1.0.0")
	tools.Register(server, tools.NewHandlers(retriever, resolver, limiter))

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		limiter.Janitor(groupCtx, limiterSweepInterval)
		return nil
	})

	group.Go(func() error {
		// Unblocks the janitor when the transport closes (stdin EOF).
		defer stop()
		log.Println("[Serve] MCP server starting on stdio...")
		return mcpserver.ServeStdio(server, mcpserver.WithStdioContextFunc(
			func(context.Context) context.Context { return groupCtx },
		))
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Println("[Serve] Shut down.")
	return nil
}
