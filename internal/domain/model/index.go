package model

// Payload entry types stored alongside every vector.
const (
	EntryTypeCard   = "card"
	EntryTypeMarker = "marker"
)

// Entry is one vector plus its flattened payload, keyed by a stable
// catalog-level id. Overwriting the same id replaces the entry.
type Entry struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Match is a single similarity-query hit, ordered by descending score.
type Match struct {
	ID      string
	Score   float32
	Payload map[string]any
}

// Marker records that a set has been fully indexed. It lives in the
// vector index itself (payload-only, constant vector) so that sync
// progress needs no side-channel store.
type Marker struct {
	SetID    string
	SyncedAt string
}
