package sync

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/profoak/profoak-api/internal/domain/faults"
	"github.com/profoak/profoak-api/internal/domain/model"
)

// fakeSource implements repository.CardSource in memory.
type fakeSource struct {
	sets     []model.SetInfo
	details  map[string]*model.SetDetail
	cards    map[string]*model.Card
	errSets  error
	errSet   map[string]error
	errCard  map[string]error
	fetchLog []string
}

func (f *fakeSource) ListSets(ctx context.Context) ([]model.SetInfo, error) {
	if f.errSets != nil {
		return nil, f.errSets
	}
	return f.sets, nil
}

func (f *fakeSource) GetSet(ctx context.Context, setID string) (*model.SetDetail, error) {
	if err := f.errSet[setID]; err != nil {
		return nil, err
	}
	detail, ok := f.details[setID]
	if !ok {
		return nil, fmt.Errorf("set %s: %w", setID, faults.ErrNotFound)
	}
	return detail, nil
}

func (f *fakeSource) GetCard(ctx context.Context, cardID string) (*model.Card, error) {
	f.fetchLog = append(f.fetchLog, cardID)
	if err := f.errCard[cardID]; err != nil {
		return nil, err
	}
	card, ok := f.cards[cardID]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", cardID, faults.ErrNotFound)
	}
	copied := *card
	return &copied, nil
}

// fakeEmbedder returns a constant-dimension vector per text.
type fakeEmbedder struct {
	dim   int
	err   error
	calls int
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dim)
		out[i][0] = float32(len(texts[i]))
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	v := make([]float32, f.dim)
	v[0] = float32(len(text))
	return v, nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

// fakeIndex stores entries by id and answers marker-filtered queries.
type fakeIndex struct {
	entries  map[string]model.Entry
	upserts  [][]model.Entry
	readyErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[string]model.Entry)}
}

func (f *fakeIndex) EnsureReady(ctx context.Context) error { return f.readyErr }

func (f *fakeIndex) Upsert(ctx context.Context, entries []model.Entry) error {
	if len(entries) > 100 {
		return fmt.Errorf("batch too large: %d", len(entries))
	}
	batch := make([]model.Entry, len(entries))
	copy(batch, entries)
	f.upserts = append(f.upserts, batch)
	for _, entry := range entries {
		f.entries[entry.ID] = entry
	}
	return nil
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]model.Match, error) {
	var matches []model.Match
	for id, entry := range f.entries {
		ok := true
		for field, want := range filter {
			if got, _ := entry.Payload[field].(string); got != want {
				ok = false
				break
			}
		}
		if ok {
			matches = append(matches, model.Match{ID: id, Score: 1, Payload: entry.Payload})
		}
	}
	return matches, nil
}

func (f *fakeIndex) markerCount() int {
	n := 0
	for _, entry := range f.entries {
		if t, _ := entry.Payload["type"].(string); t == model.EntryTypeMarker {
			n++
		}
	}
	return n
}

func twoSetCatalog() *fakeSource {
	return &fakeSource{
		sets: []model.SetInfo{
			{ID: "A1", Name: "Genetic Apex"},
			{ID: "A2", Name: "Space-Time Smackdown"},
			{ID: "P-A", Name: "Promo"},
			{ID: "swsh1", Name: "Other Game"},
		},
		details: map[string]*model.SetDetail{
			"A1": {ID: "A1", Name: "Genetic Apex", Cards: []model.CardBrief{
				{ID: "A1-001", Name: "Bulbasaur"},
				{ID: "A1-004", Name: "Charmander"},
			}},
			"A2": {ID: "A2", Name: "Space-Time Smackdown", Cards: []model.CardBrief{
				{ID: "A2-001", Name: "Turtwig"},
			}},
		},
		cards: map[string]*model.Card{
			"A1-001": {ID: "A1-001", Name: "Bulbasaur", Category: model.CategoryPokemon, Types: []string{"Grass"}, HP: 70},
			"A1-004": {ID: "A1-004", Name: "Charmander", Category: model.CategoryPokemon, Types: []string{"Fire"}, HP: 60},
			"A2-001": {ID: "A2-001", Name: "Turtwig", Category: model.CategoryPokemon, Types: []string{"Grass"}, HP: 70},
		},
		errSet:  map[string]error{},
		errCard: map[string]error{},
	}
}

func newTestEngine(source *fakeSource, index *fakeIndex) *Engine {
	return New(source, &fakeEmbedder{dim: 4}, index, nil, Options{
		SetPrefix: "A",
		Dimension: 4,
	})
}

func TestSyncFromEmptyState(t *testing.T) {
	source := twoSetCatalog()
	index := newFakeIndex()
	engine := newTestEngine(source, index)

	added, err := engine.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if added != 3 {
		t.Errorf("expected 3 cards added, got %d", added)
	}
	if index.markerCount() != 2 {
		t.Errorf("expected 2 markers, got %d", index.markerCount())
	}
	// "P-A" matches neither target (prefix "A" only selects A* ids);
	// "swsh1" belongs to another game entirely.
	if _, ok := index.entries[markerID("swsh1")]; ok {
		t.Error("sets outside the prefix must not be synced")
	}

	// Cards are fetched in catalog order, sets in listing order.
	wantOrder := []string{"A1-001", "A1-004", "A2-001"}
	if len(source.fetchLog) != len(wantOrder) {
		t.Fatalf("unexpected fetch log: %v", source.fetchLog)
	}
	for i, id := range wantOrder {
		if source.fetchLog[i] != id {
			t.Errorf("fetch %d: expected %s, got %s", i, id, source.fetchLog[i])
		}
	}
}

func TestSyncIdempotent(t *testing.T) {
	source := twoSetCatalog()
	index := newFakeIndex()
	engine := newTestEngine(source, index)

	if _, err := engine.Sync(context.Background(), nil); err != nil {
		t.Fatalf("first sync failed: %v", err)
	}
	markersAfterFirst := index.markerCount()

	added, err := engine.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if added != 0 {
		t.Errorf("expected no-op second sync, got %d cards added", added)
	}
	if index.markerCount() != markersAfterFirst {
		t.Errorf("marker set changed on no-op sync: %d != %d", index.markerCount(), markersAfterFirst)
	}
}

func TestSyncPartialCardFailure(t *testing.T) {
	source := twoSetCatalog()
	source.sets = source.sets[:1] // A1 only
	source.details["A1"].Cards = append(source.details["A1"].Cards, model.CardBrief{ID: "A1-007", Name: "Squirtle"})
	source.errCard["A1-004"] = fmt.Errorf("card A1-004: %w", faults.ErrNotFound)
	source.cards["A1-007"] = &model.Card{ID: "A1-007", Name: "Squirtle", Category: model.CategoryPokemon, Types: []string{"Water"}}

	index := newFakeIndex()
	engine := newTestEngine(source, index)

	added, err := engine.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if added != 2 {
		t.Errorf("expected 2 cards added despite one failure, got %d", added)
	}
	// The set still counts as processed: its marker is written.
	if _, ok := index.entries[markerID("A1")]; !ok {
		t.Error("expected marker for partially failed set")
	}
	if _, ok := index.entries["A1-004"]; ok {
		t.Error("failed card must not be indexed")
	}
}

func TestSyncSetFailureDoesNotAbortSiblings(t *testing.T) {
	source := twoSetCatalog()
	source.errSet["A1"] = errors.New("upstream timeout")

	index := newFakeIndex()
	engine := newTestEngine(source, index)

	added, err := engine.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if added != 1 {
		t.Errorf("expected A2's single card, got %d", added)
	}
	if _, ok := index.entries[markerID("A1")]; ok {
		t.Error("failed set must not get a marker (retry-by-omission)")
	}
	if _, ok := index.entries[markerID("A2")]; !ok {
		t.Error("healthy sibling set should be marked")
	}
}

func TestSyncExplicitModeWritesNoMarkers(t *testing.T) {
	source := twoSetCatalog()
	index := newFakeIndex()
	engine := newTestEngine(source, index)

	added, err := engine.Sync(context.Background(), []string{"A1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if added != 2 {
		t.Errorf("expected 2 cards from explicit set, got %d", added)
	}
	if index.markerCount() != 0 {
		t.Errorf("explicit resync must not write markers, found %d", index.markerCount())
	}
}

func TestSyncMarkerExclusivityAfterResync(t *testing.T) {
	source := twoSetCatalog()
	index := newFakeIndex()
	engine := newTestEngine(source, index)

	if _, err := engine.Sync(context.Background(), nil); err != nil {
		t.Fatalf("auto sync failed: %v", err)
	}
	if _, err := engine.Sync(context.Background(), []string{"A1"}); err != nil {
		t.Fatalf("explicit resync failed: %v", err)
	}

	if index.markerCount() != 2 {
		t.Errorf("expected exactly one marker per set, got %d total", index.markerCount())
	}
}

func TestSyncUpsertChunking(t *testing.T) {
	source := twoSetCatalog()
	source.sets = source.sets[:1]
	source.details["A1"].Cards = nil
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("A1-%03d", i+1)
		source.details["A1"].Cards = append(source.details["A1"].Cards, model.CardBrief{ID: id})
		source.cards[id] = &model.Card{ID: id, Name: fmt.Sprintf("Mon %d", i+1), Category: model.CategoryPokemon}
	}

	index := newFakeIndex()
	engine := New(source, &fakeEmbedder{dim: 4}, index, nil, Options{
		SetPrefix:       "A",
		Dimension:       4,
		UpsertBatchSize: 2,
	})

	if _, err := engine.Sync(context.Background(), []string{"A1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sizes []int
	for _, batch := range index.upserts {
		sizes = append(sizes, len(batch))
	}
	want := []int{2, 2, 1}
	if len(sizes) != len(want) {
		t.Fatalf("unexpected upsert batches: %v", sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("batch %d: expected size %d, got %d", i, want[i], sizes[i])
		}
	}
}

func TestSyncIndexSetupFailureIsFatal(t *testing.T) {
	index := newFakeIndex()
	index.readyErr = errors.New("collection never became ready")
	engine := newTestEngine(twoSetCatalog(), index)

	if _, err := engine.Sync(context.Background(), nil); err == nil {
		t.Fatal("expected fatal error when index setup fails")
	}
}

func TestSyncAuthFailureAbortsRun(t *testing.T) {
	source := twoSetCatalog()
	index := newFakeIndex()
	embedder := &fakeEmbedder{dim: 4, err: faults.Authf("batch embedding", errors.New("bad key"))}
	engine := New(source, embedder, index, nil, Options{SetPrefix: "A", Dimension: 4})

	_, err := engine.Sync(context.Background(), nil)
	if err == nil {
		t.Fatal("expected auth error to abort the run")
	}
	if !faults.IsAuth(err) {
		t.Errorf("expected auth error, got %v", err)
	}
	if embedder.calls != 1 {
		t.Errorf("expected no further sets after auth failure, embedder called %d times", embedder.calls)
	}
}

func TestCardPayloadFlattening(t *testing.T) {
	card := &model.Card{
		ID:       "A1-004",
		Name:     "Charmander",
		Category: model.CategoryPokemon,
		Types:    []string{"Fire", "Dragon"},
		HP:       60,
		SetID:    "A1",
		SetName:  "Genetic Apex",
		Attacks:  []model.Attack{{Name: "Ember", Damage: "30"}},
	}
	payload := cardPayload(card, "some projection")

	if payload["type"] != model.EntryTypeCard {
		t.Errorf("expected card entry type, got %v", payload["type"])
	}
	if payload["cardType"] != "Fire" {
		t.Errorf("expected primary type Fire, got %v", payload["cardType"])
	}
	if payload["text"] != "some projection" {
		t.Errorf("projection text not stored: %v", payload["text"])
	}
	if payload["attacks"] != `[{"name":"Ember","damage":"30"}]` {
		t.Errorf("attacks not JSON-encoded: %v", payload["attacks"])
	}
	if payload["abilities"] != "" {
		t.Errorf("absent list should encode to empty string, got %v", payload["abilities"])
	}
}

func TestMarkerIDOutsideCardNamespace(t *testing.T) {
	if markerID("A1") == "A1" {
		t.Error("marker id must not collide with a card or set id")
	}
	if markerID("A1") != markerID("A1") {
		t.Error("marker id must be deterministic")
	}
}
