// Package repository declares the ports consumed by the sync engine and
// the retrieval service. Infrastructure adapters implement them.
package repository

import (
	"context"

	"github.com/profoak/profoak-api/internal/domain/model"
)

// CardSource is the upstream card-catalog API.
type CardSource interface {
	// ListSets returns the full current set listing.
	ListSets(ctx context.Context) ([]model.SetInfo, error)
	// GetSet returns a set with its abbreviated card list.
	GetSet(ctx context.Context, setID string) (*model.SetDetail, error)
	// GetCard returns full card detail, or faults.ErrNotFound.
	GetCard(ctx context.Context, cardID string) (*model.Card, error)
}

// EmbeddingClient generates fixed-dimension embeddings from text.
// No caching, no local retry: retry policy belongs to the caller.
type EmbeddingClient interface {
	// EmbedDocuments embeds a batch of document texts, order-preserving.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query text.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Name() string
}

// VectorIndex is the remote similarity index. Entries are overwritten
// by id and never deleted.
type VectorIndex interface {
	// EnsureReady creates the index if absent and blocks, with a bounded
	// poll, until it reports ready.
	EnsureReady(ctx context.Context) error
	// Upsert writes one bounded batch of entries. Callers chunk; a single
	// call must not exceed the provider payload limit.
	Upsert(ctx context.Context, entries []model.Entry) error
	// Query runs a similarity search. filter, when non-nil, restricts
	// matches to entries whose payload fields equal the given values.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]model.Match, error)
}
