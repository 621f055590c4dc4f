package query

import (
	"context"
	"strings"
	"testing"

	"github.com/profoak/profoak-api/internal/domain/faults"
	"github.com/profoak/profoak-api/internal/domain/model"
)

// script couples a fake embedder and index: the embedder records the
// text it was asked to embed and the index answers from a per-text
// result table. Operations are sequential, so the pairing is exact.
type script struct {
	results map[string][]model.Match
	queries []string
	filters []map[string]string
	pending string
	embErr  error
}

func newScript() *script {
	return &script{results: map[string][]model.Match{}}
}

func (s *script) on(text string, matches ...model.Match) {
	s.results[text] = matches
}

type scriptEmbedder struct{ s *script }

func (e scriptEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, nil
}

func (e scriptEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if e.s.embErr != nil {
		return nil, e.s.embErr
	}
	e.s.pending = text
	return []float32{1}, nil
}

func (e scriptEmbedder) Name() string { return "script" }

type scriptIndex struct{ s *script }

func (i scriptIndex) EnsureReady(ctx context.Context) error { return nil }

func (i scriptIndex) Upsert(ctx context.Context, entries []model.Entry) error { return nil }

func (i scriptIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]model.Match, error) {
	i.s.queries = append(i.s.queries, i.s.pending)
	i.s.filters = append(i.s.filters, filter)
	matches := i.s.results[i.s.pending]
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func newScriptRetriever(s *script) *Retriever {
	return NewRetriever(scriptEmbedder{s}, scriptIndex{s})
}

func cardMatch(id, name string, score float32, extra map[string]any) model.Match {
	payload := map[string]any{
		"type":     model.EntryTypeCard,
		"cardId":   id,
		"cardName": name,
		"text":     name + " projection text",
	}
	for k, v := range extra {
		payload[k] = v
	}
	return model.Match{ID: id, Score: score, Payload: payload}
}

func TestSearchCardsSanitizesAndFilters(t *testing.T) {
	s := newScript()
	s.on("fire type", cardMatch("A1-004", "Charmander", 0.91, nil))
	retriever := newScriptRetriever(s)

	views, err := retriever.SearchCards(context.Background(), "  Fire <TYPE>  ", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(views) != 1 || views[0].CardName != "Charmander" {
		t.Fatalf("unexpected views: %+v", views)
	}
	if s.queries[0] != "fire type" {
		t.Errorf("query was not sanitized before embedding: %q", s.queries[0])
	}
	if s.filters[0]["type"] != model.EntryTypeCard {
		t.Errorf("marker entries must be filtered out, got filter %v", s.filters[0])
	}
}

func TestSearchCardsRejectsBadInput(t *testing.T) {
	retriever := newScriptRetriever(newScript())

	if _, err := retriever.SearchCards(context.Background(), "   ", 5); !faults.IsValidation(err) {
		t.Errorf("expected validation error for empty query, got %v", err)
	}
	if _, err := retriever.SearchCards(context.Background(), "pikachu", 0); !faults.IsValidation(err) {
		t.Errorf("expected validation error for bad limit, got %v", err)
	}
}

func TestMapViewParsesStructuredFields(t *testing.T) {
	match := cardMatch("A1-004", "Charmander", 0.9, map[string]any{
		"attacks":    `[{"name":"Ember","damage":"30"}]`,
		"abilities":  "not json",
		"weaknesses": "",
		"hp":         int64(60),
		"retreat":    float64(1),
		"image":      "https://img.example/A1-004.png",
	})

	view := mapView(match)
	if len(view.Attacks) != 1 || view.Attacks[0].Name != "Ember" {
		t.Errorf("attacks not parsed: %+v", view.Attacks)
	}
	if view.Abilities != nil {
		t.Errorf("malformed JSON must yield nil, got %+v", view.Abilities)
	}
	if view.Weaknesses != nil {
		t.Errorf("empty field must yield nil, got %+v", view.Weaknesses)
	}
	if view.HP != 60 || view.Retreat != 1 {
		t.Errorf("numeric widths not normalized: hp=%d retreat=%d", view.HP, view.Retreat)
	}
	if view.Image != "https://img.example/A1-004.png" {
		t.Errorf("image not mapped: %q", view.Image)
	}
}

func TestMapViewMissingIdentity(t *testing.T) {
	view := mapView(model.Match{Payload: map[string]any{}})
	if view.CardID != "Unknown" || view.CardName != "Unknown" {
		t.Errorf("missing identity fields should read Unknown, got %+v", view)
	}
}

func TestGetSimilarCardsTwoHop(t *testing.T) {
	s := newScript()
	anchor := cardMatch("A1-001", "Bulbasaur", 0.95, nil)
	s.on("bulbasaur", anchor)
	s.on("Bulbasaur projection text",
		cardMatch("A1-001", "Bulbasaur", 1.0, nil),
		cardMatch("A2-001", "Turtwig", 0.88, nil),
	)
	retriever := newScriptRetriever(s)

	views, err := retriever.GetSimilarCards(context.Background(), "Bulbasaur", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(s.queries) != 2 {
		t.Fatalf("expected two hops, got queries %v", s.queries)
	}
	if s.queries[1] != "Bulbasaur projection text" {
		t.Errorf("second hop must use the anchor card's own text, got %q", s.queries[1])
	}
	if len(views) != 2 || views[1].CardName != "Turtwig" {
		t.Errorf("unexpected similar cards: %+v", views)
	}
}

func TestGetSimilarCardsNoAnchor(t *testing.T) {
	s := newScript()
	retriever := newScriptRetriever(s)

	views, err := retriever.GetSimilarCards(context.Background(), "MissingNo", 5)
	if err != nil {
		t.Fatalf("expected empty result, got error: %v", err)
	}
	if views != nil {
		t.Errorf("similar-to-nothing must be empty, got %+v", views)
	}
	if len(s.queries) != 1 {
		t.Errorf("no second hop without an anchor, got queries %v", s.queries)
	}
}

func TestGetCardContextKeepsBestPhrasing(t *testing.T) {
	s := newScript()
	s.on("Pikachu", cardMatch("A1-094", "Pikachu", 0.70, nil))
	s.on("Pikachu card", cardMatch("A1-096", "Pikachu ex", 0.92, map[string]any{
		"text": "Pikachu ex projection text",
	}))
	s.on("Pikachu Pokémon", cardMatch("A1-094", "Pikachu", 0.80, nil))
	retriever := newScriptRetriever(s)

	got, err := retriever.GetCardContext(context.Background(), []string{"Pikachu", "Mewthree"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	paragraphs := strings.Split(got, "\n\n")
	if len(paragraphs) != 2 {
		t.Fatalf("expected one paragraph per name, got %q", got)
	}
	if paragraphs[0] != "Pikachu ex projection text" {
		t.Errorf("highest-scoring phrasing must win, got %q", paragraphs[0])
	}
	if paragraphs[1] != "No detailed information found for Mewthree" {
		t.Errorf("unresolvable name must get a placeholder, got %q", paragraphs[1])
	}
}

func TestGetCardContextEmptyInput(t *testing.T) {
	retriever := newScriptRetriever(newScript())
	got, err := retriever.GetCardContext(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty context, got %q", got)
	}
}

func TestSearchCardsByAttribute(t *testing.T) {
	s := newScript()
	s.on("type fire", cardMatch("A1-004", "Charmander", 0.9, nil))
	retriever := newScriptRetriever(s)

	views, err := retriever.SearchCardsByAttribute(context.Background(), "type", "Fire", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("unexpected views: %+v", views)
	}
	if s.queries[0] != "type fire" {
		t.Errorf("expected composed attribute query, got %q", s.queries[0])
	}
}
