package query

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/profoak/profoak-api/internal/domain/model"
)

const (
	// variantTopK is how many matches each search-term variant
	// contributes to the scoring pass.
	variantTopK = 3

	// DefaultMatchThreshold is the similarity floor for accepting a
	// substring match as the intended card.
	DefaultMatchThreshold = 0.85

	// DefaultMaxQuantity caps how many copies of one card a single
	// recommendation may suggest.
	DefaultMaxQuantity = 2
)

var specialChars = regexp.MustCompile(`[^a-zA-Z0-9\s]`)

// Resolver validates assistant-proposed card names against the index.
// Every emitted recommendation corresponds to a real indexed card;
// proposals that cannot be matched with confidence are dropped, never
// guessed at.
type Resolver struct {
	retriever   *Retriever
	threshold   float32
	maxQuantity int
}

func NewResolver(retriever *Retriever, threshold float32, maxQuantity int) *Resolver {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	if maxQuantity <= 0 {
		maxQuantity = DefaultMaxQuantity
	}
	return &Resolver{retriever: retriever, threshold: threshold, maxQuantity: maxQuantity}
}

// Resolve maps each proposal to a canonical indexed card, preserving
// input order minus dropped entries. alreadyRecommended is the session's
// at-most-once set, keyed by card id; Resolve mutates it. The dropped
// count covers both unmatched and duplicate proposals so the caller can
// surface a "not all cards were found" warning.
func (r *Resolver) Resolve(ctx context.Context, proposals []model.Proposal, alreadyRecommended map[string]struct{}) ([]model.Recommendation, int, error) {
	validated := make([]model.Recommendation, 0, len(proposals))

	for _, proposal := range proposals {
		found := r.findCard(ctx, proposal.CardName)
		if found == nil {
			log.Printf("[Resolver] Card not found in index: %q - rejecting recommendation", proposal.CardName)
			continue
		}

		if _, dup := alreadyRecommended[found.CardID]; dup {
			log.Printf("[Resolver] Skipping duplicate recommendation: %s (%s)", found.CardName, found.CardID)
			continue
		}
		alreadyRecommended[found.CardID] = struct{}{}

		validated = append(validated, model.Recommendation{
			CardID:   found.CardID,
			CardName: found.CardName,
			Image:    found.Image,
			Reason:   proposal.Reason,
			Priority: proposal.Priority,
			Quantity: clamp(proposal.Quantity, 1, r.maxQuantity),
		})
	}

	return validated, len(proposals) - len(validated), nil
}

// findCard runs every search-term variant and keeps the best-scoring
// match that also passes the name check. A search failure on one
// variant is logged and the remaining variants still run.
func (r *Resolver) findCard(ctx context.Context, proposedName string) *model.CardView {
	var found *model.CardView
	var bestScore float32

	for _, term := range searchVariants(proposedName) {
		views, err := r.retriever.search(ctx, term, variantTopK)
		if err != nil {
			log.Printf("[Resolver] Search failed for variant %q of %q: %v", term, proposedName, err)
			continue
		}

		for i := range views {
			view := &views[i]
			if view.CardName == "" || view.CardName == "Unknown" || view.Score <= bestScore {
				continue
			}
			if r.acceptable(view, proposedName) {
				found = view
				bestScore = view.Score
			}
		}
	}
	return found
}

// acceptable is the precision-over-recall gate: exact name equality
// always passes; a bidirectional substring match passes only above the
// confidence threshold. A higher raw score never overrides the gate.
func (r *Resolver) acceptable(view *model.CardView, proposedName string) bool {
	indexed := strings.ToLower(view.CardName)
	proposed := strings.ToLower(proposedName)

	if indexed == proposed {
		return true
	}
	partial := strings.Contains(indexed, proposed) || strings.Contains(proposed, indexed)
	return partial && view.Score > r.threshold
}

// searchVariants derives the fixed set of search terms tried for one
// proposed name: as-is, lowercased, special-characters-stripped, first
// word, last word.
func searchVariants(name string) []string {
	variants := []string{
		name,
		strings.ToLower(name),
		specialChars.ReplaceAllString(name, ""),
	}
	if words := strings.Fields(name); len(words) > 0 {
		variants = append(variants, words[0], words[len(words)-1])
	}

	out := variants[:0]
	for _, v := range variants {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func clamp(n, low, high int) int {
	if n < low {
		return low
	}
	if n > high {
		return high
	}
	return n
}
