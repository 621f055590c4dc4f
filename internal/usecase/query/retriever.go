// Package query implements the read side: semantic card search, the
// similar-cards two-hop, batched context lookup and resolution of
// free-text card proposals against the index.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/profoak/profoak-api/internal/domain/model"
	"github.com/profoak/profoak-api/internal/domain/repository"
)

// cardFilter keeps sync markers out of every card-facing query.
var cardFilter = map[string]string{"type": model.EntryTypeCard}

// contextPhrasings are the fixed reformulations tried per card name.
// Embedding similarity is noisy on bare names; keeping the best score
// across a few phrasings raises recall cheaply.
var contextPhrasings = []string{"%s", "%s card", "%s Pokémon"}

// Retriever answers card queries against the vector index.
type Retriever struct {
	embedder repository.EmbeddingClient
	index    repository.VectorIndex
}

func NewRetriever(embedder repository.EmbeddingClient, index repository.VectorIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// SearchCards embeds the query and returns up to limit card views,
// ranked by descending similarity. The query is sanitized and validated
// before any network call.
func (r *Retriever) SearchCards(ctx context.Context, rawQuery string, limit int) ([]model.CardView, error) {
	query := SanitizeQuery(rawQuery)
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}
	if err := ValidateLimit(limit); err != nil {
		return nil, err
	}
	return r.search(ctx, query, limit)
}

// SearchCardsByAttribute composes an attribute query ("type Fire",
// "hp 120") and delegates to SearchCards.
func (r *Retriever) SearchCardsByAttribute(ctx context.Context, attribute, value string, limit int) ([]model.CardView, error) {
	return r.SearchCards(ctx, attribute+" "+value, limit)
}

// GetSimilarCards finds cards similar to the named one. Two hops: the
// name resolves to its best-matching indexed card, whose own projection
// text becomes the second query. An unresolvable name yields an empty
// list, not an error.
func (r *Retriever) GetSimilarCards(ctx context.Context, cardName string, limit int) ([]model.CardView, error) {
	name := SanitizeQuery(cardName)
	if err := ValidateQuery(name); err != nil {
		return nil, err
	}
	if err := ValidateLimit(limit); err != nil {
		return nil, err
	}

	anchors, err := r.search(ctx, name, 1)
	if err != nil {
		return nil, err
	}
	if len(anchors) == 0 {
		return nil, nil
	}

	// The anchor's own text bypasses sanitization: it is index-owned
	// content, not user input, and truncating it would skew the vector.
	return r.search(ctx, anchors[0].Content, limit)
}

// GetCardContext returns one paragraph of grounding text per input
// name, joined by blank lines in input order. Each name is tried with
// every phrasing and the highest-scoring single match wins; a name
// without any match gets a placeholder paragraph rather than silence.
func (r *Retriever) GetCardContext(ctx context.Context, cardNames []string) (string, error) {
	paragraphs := make([]string, 0, len(cardNames))
	for _, cardName := range cardNames {
		var best *model.CardView
		for _, phrasing := range contextPhrasings {
			views, err := r.search(ctx, fmt.Sprintf(phrasing, cardName), 1)
			if err != nil {
				return "", err
			}
			if len(views) > 0 && (best == nil || views[0].Score > best.Score) {
				view := views[0]
				best = &view
			}
		}

		if best != nil && best.Content != "" {
			paragraphs = append(paragraphs, best.Content)
		} else {
			paragraphs = append(paragraphs, "No detailed information found for "+cardName)
		}
	}
	return strings.Join(paragraphs, "\n\n"), nil
}

// search is the raw embed-and-query path shared by every operation.
func (r *Retriever) search(ctx context.Context, text string, limit int) ([]model.CardView, error) {
	vector, err := r.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := r.index.Query(ctx, vector, limit, cardFilter)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	views := make([]model.CardView, len(matches))
	for i, match := range matches {
		views[i] = mapView(match)
	}
	return views, nil
}

// mapView turns a raw match payload back into a typed view. Missing or
// malformed fields degrade to zero values, never to an error.
func mapView(match model.Match) model.CardView {
	p := match.Payload
	return model.CardView{
		CardID:      stringField(p, "cardId", "Unknown"),
		CardName:    stringField(p, "cardName", "Unknown"),
		Image:       stringField(p, "image", ""),
		CardType:    stringField(p, "cardType", ""),
		HP:          intField(p, "hp"),
		Stage:       stringField(p, "stage", ""),
		SetName:     stringField(p, "setName", ""),
		Description: stringField(p, "description", ""),
		Attacks:     parseList[model.Attack](p, "attacks"),
		Abilities:   parseList[model.Ability](p, "abilities"),
		Weaknesses:  parseList[model.Weakness](p, "weaknesses"),
		EvolveFrom:  stringField(p, "evolveFrom", ""),
		Retreat:     intField(p, "retreat"),
		Content:     stringField(p, "text", ""),
		Score:       match.Score,
	}
}

func stringField(payload map[string]any, key, fallback string) string {
	if s, ok := payload[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// intField tolerates the numeric widths different payload decoders
// produce for the same stored value.
func intField(payload map[string]any, key string) int {
	switch n := payload[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// parseList decodes a JSON-encoded list payload field; anything that
// does not decode cleanly is nil.
func parseList[T any](payload map[string]any, key string) []T {
	raw, ok := payload[key].(string)
	if !ok || raw == "" {
		return nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
