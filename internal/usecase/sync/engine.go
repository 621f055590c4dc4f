// Package sync brings the vector index up to date with newly released
// card sets, tracking progress through marker entries in the index itself.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/profoak/profoak-api/internal/domain/faults"
	"github.com/profoak/profoak-api/internal/domain/model"
	"github.com/profoak/profoak-api/internal/domain/repository"
	"github.com/profoak/profoak-api/internal/infrastructure/resilience"
	"github.com/profoak/profoak-api/internal/projector"
)

// markerQueryLimit bounds the marker listing query. The mobile game
// ships a handful of sets per year, so this is generous.
const markerQueryLimit = 256

// Options tunes one sync engine instance.
type Options struct {
	// SetPrefix selects which catalog sets this deployment indexes.
	SetPrefix string
	// CardFetchDelay is the politeness pause between per-card detail
	// fetches. Not a correctness requirement.
	CardFetchDelay time.Duration
	// UpsertBatchSize caps entries per upsert call (provider limit 100).
	UpsertBatchSize int
	// Dimension is the embedding dimension, needed for marker vectors.
	Dimension int
	// Now is the clock used for marker timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Engine is the catalog sync engine. One run processes sets strictly in
// target-list order and degrades to partial success: a failing card or
// set is logged and skipped, never aborting sibling work.
type Engine struct {
	source   repository.CardSource
	embedder repository.EmbeddingClient
	index    repository.VectorIndex
	breaker  *resilience.CircuitBreaker
	opts     Options
}

// New creates a sync engine. breaker may be nil to disable the circuit
// breaker around embedding calls.
func New(source repository.CardSource, embedder repository.EmbeddingClient, index repository.VectorIndex, breaker *resilience.CircuitBreaker, opts Options) *Engine {
	if opts.UpsertBatchSize <= 0 || opts.UpsertBatchSize > 100 {
		opts.UpsertBatchSize = 100
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		source:   source,
		embedder: embedder,
		index:    index,
		breaker:  breaker,
		opts:     opts,
	}
}

// Sync indexes all sets that are not yet marked as synced and returns
// the total number of cards added.
//
// With explicit set ids the engine re-syncs exactly those sets and does
// NOT write markers: a forced resync is not authoritative for the
// bookkeeping. Without arguments it diffs the catalog's set listing
// against the markers already in the index.
func (e *Engine) Sync(ctx context.Context, explicitSetIDs []string) (int, error) {
	if err := e.index.EnsureReady(ctx); err != nil {
		return 0, fmt.Errorf("index setup failed: %w", err)
	}

	writeMarkers := len(explicitSetIDs) == 0

	targets := explicitSetIDs
	if writeMarkers {
		var err error
		targets, err = e.newSets(ctx)
		if err != nil {
			return 0, err
		}
		if len(targets) == 0 {
			log.Println("[Sync] No new sets to index.")
			return 0, nil
		}
	}

	log.Printf("[Sync] Processing %d set(s): %v", len(targets), targets)

	total := 0
	for _, setID := range targets {
		added, err := e.syncSet(ctx, setID)
		if err != nil {
			// Auth failures poison every remaining set; give up early
			// so the operator sees one clear error.
			if faults.IsAuth(err) {
				return total, err
			}
			log.Printf("[Sync] Error processing set %s: %v (will retry on next run)", setID, err)
			continue
		}

		total += added
		log.Printf("[Sync] Set %s complete: %d cards added", setID, added)

		if writeMarkers {
			if err := e.writeMarker(ctx, setID); err != nil {
				// No marker means the set stays eligible for re-sync;
				// upsert-by-id makes the repeat harmless.
				log.Printf("[Sync] Warning: failed to write marker for set %s: %v", setID, err)
			}
		}
	}

	return total, nil
}

// newSets diffs the catalog's current set listing against the markers
// already present in the index.
func (e *Engine) newSets(ctx context.Context) ([]string, error) {
	sets, err := e.source.ListSets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog sets: %w", err)
	}

	synced, err := e.listMarkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync markers: %w", err)
	}

	var targets []string
	for _, set := range sets {
		if !strings.HasPrefix(set.ID, e.opts.SetPrefix) {
			continue
		}
		if _, ok := synced[set.ID]; ok {
			continue
		}
		targets = append(targets, set.ID)
	}
	return targets, nil
}

// syncSet fetches, projects, embeds and upserts one set. Individual
// card failures are logged and skipped; only a whole-set failure is
// returned to the caller.
func (e *Engine) syncSet(ctx context.Context, setID string) (int, error) {
	detail, err := e.source.GetSet(ctx, setID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch set %s: %w", setID, err)
	}

	log.Printf("[Sync] Set %s has %d cards", setID, len(detail.Cards))

	cards := make([]*model.Card, 0, len(detail.Cards))
	for i, brief := range detail.Cards {
		if i > 0 && e.opts.CardFetchDelay > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(e.opts.CardFetchDelay):
			}
		}

		card, err := e.source.GetCard(ctx, brief.ID)
		if err != nil {
			log.Printf("[Sync] Warning: skipping card %s: %v", brief.ID, err)
			continue
		}
		if card.SetName == "" {
			card.SetName = detail.Name
		}
		if card.SetID == "" {
			card.SetID = detail.ID
		}
		cards = append(cards, card)
	}

	if len(cards) == 0 {
		return 0, nil
	}

	texts := make([]string, len(cards))
	for i, card := range cards {
		texts[i] = projector.Project(card)
	}

	vectors, err := e.embedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed set %s: %w", setID, err)
	}

	entries := make([]model.Entry, len(cards))
	for i, card := range cards {
		entries[i] = model.Entry{
			ID:      card.ID,
			Vector:  vectors[i],
			Payload: cardPayload(card, texts[i]),
		}
	}

	for start := 0; start < len(entries); start += e.opts.UpsertBatchSize {
		end := min(start+e.opts.UpsertBatchSize, len(entries))
		if err := e.index.Upsert(ctx, entries[start:end]); err != nil {
			return 0, fmt.Errorf("failed to upsert set %s: %w", setID, err)
		}
	}

	return len(cards), nil
}

func (e *Engine) embedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if e.breaker == nil {
		return e.embedder.EmbedDocuments(ctx, texts)
	}
	var vectors [][]float32
	err := e.breaker.Execute(func() error {
		var embedErr error
		vectors, embedErr = e.embedder.EmbedDocuments(ctx, texts)
		return embedErr
	})
	return vectors, err
}

// listMarkers returns the set ids that already carry a sync marker.
// Markers share one constant vector, so querying with that vector plus
// the type filter retrieves them all.
func (e *Engine) listMarkers(ctx context.Context) (map[string]model.Marker, error) {
	matches, err := e.index.Query(ctx, markerVector(e.opts.Dimension), markerQueryLimit,
		map[string]string{"type": model.EntryTypeMarker})
	if err != nil {
		return nil, err
	}

	markers := make(map[string]model.Marker, len(matches))
	for _, match := range matches {
		setID, _ := match.Payload["setId"].(string)
		if setID == "" {
			continue
		}
		syncedAt, _ := match.Payload["syncedAt"].(string)
		markers[setID] = model.Marker{SetID: setID, SyncedAt: syncedAt}
	}
	return markers, nil
}

// writeMarker records that setID has been fully indexed. Upserting by
// the derived marker id keeps the marker unique per set.
func (e *Engine) writeMarker(ctx context.Context, setID string) error {
	entry := model.Entry{
		ID:     markerID(setID),
		Vector: markerVector(e.opts.Dimension),
		Payload: map[string]any{
			"type":     model.EntryTypeMarker,
			"setId":    setID,
			"syncedAt": e.opts.Now().UTC().Format(time.RFC3339),
		},
	}
	return e.index.Upsert(ctx, []model.Entry{entry})
}

// markerID derives the marker's entry id from the set id, outside the
// card id namespace.
func markerID(setID string) string {
	return "set-sync:" + setID
}

// markerVector is the constant non-zero vector shared by all markers.
// It carries no meaning; it only makes markers retrievable through the
// same index.
func markerVector(dimension int) []float32 {
	v := make([]float32, dimension)
	for i := range v {
		v[i] = 0.001
	}
	return v
}

// cardPayload flattens a card into the string-or-number payload stored
// next to its vector. List fields are JSON-encoded; text is the exact
// projection the embedding was computed from.
func cardPayload(card *model.Card, text string) map[string]any {
	payload := map[string]any{
		"type":        model.EntryTypeCard,
		"cardId":      card.ID,
		"cardName":    card.Name,
		"image":       card.Image,
		"category":    card.Category,
		"cardType":    primaryType(card),
		"hp":          card.HP,
		"stage":       card.Stage,
		"setId":       card.SetID,
		"setName":     card.SetName,
		"description": card.Description,
		"attacks":     encodeList(card.Attacks),
		"abilities":   encodeList(card.Abilities),
		"weaknesses":  encodeList(card.Weaknesses),
		"evolveFrom":  card.EvolveFrom,
		"retreat":     card.Retreat,
		"trainerType": card.TrainerType,
		"effect":      card.Effect,
		"text":        text,
	}
	return payload
}

// primaryType returns the first listed type; the mobile game uses
// single typings.
func primaryType(card *model.Card) string {
	if len(card.Types) > 0 {
		return card.Types[0]
	}
	return ""
}

// encodeList JSON-encodes a slice payload field, or returns the empty
// string when there is nothing to encode.
func encodeList[T any](list []T) string {
	if len(list) == 0 {
		return ""
	}
	data, err := json.Marshal(list)
	if err != nil {
		return ""
	}
	return string(data)
}
