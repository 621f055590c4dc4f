// Package qdrant implements the repository.VectorIndex port using the
// official Qdrant Go SDK.
package qdrant

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/sethvargo/go-retry"
	"google.golang.org/grpc"

	"github.com/profoak/profoak-api/internal/domain/faults"
	"github.com/profoak/profoak-api/internal/domain/model"
	"github.com/profoak/profoak-api/internal/domain/repository"
)

// Compile-time interface check
var _ repository.VectorIndex = (*Index)(nil)

// maxUpsertBatch is the provider payload limit per upsert call.
// Callers chunk; the adapter only enforces.
const maxUpsertBatch = 100

// idKey is the payload field carrying the caller's entry id. Qdrant
// point ids must be UUIDs, so the catalog id round-trips through the
// payload instead.
const idKey = "id"

// Index wraps a Qdrant collection of card and marker entries.
type Index struct {
	client       *pb.Client
	collection   string
	dimension    int
	pollInterval time.Duration
	maxAttempts  int
}

// Options configures the connection and readiness polling.
type Options struct {
	Host         string
	Port         int
	APIKey       string
	Collection   string
	Dimension    int
	PollInterval time.Duration
	MaxAttempts  int
}

// New connects to Qdrant. The collection is created lazily by
// EnsureReady, not here, so read-only consumers can start even while a
// sync is still shaping the index.
func New(opts Options) (*Index, error) {
	client, err := pb.NewClient(&pb.Config{
		Host:   opts.Host,
		Port:   opts.Port,
		APIKey: opts.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithUserAgent("profoak/1.0"),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", opts.Host, opts.Port, err)
	}

	pollInterval := opts.PollInterval
	if pollInterval == 0 {
		pollInterval = 2 * time.Second
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 60
	}

	log.Printf("[Qdrant] Connected to %s:%d, collection=%s", opts.Host, opts.Port, opts.Collection)
	return &Index{
		client:       client,
		collection:   opts.Collection,
		dimension:    opts.Dimension,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
	}, nil
}

// EnsureReady creates the collection if it does not exist, then polls
// until it reports green. The poll is bounded: a collection that never
// becomes ready fails the call instead of hanging forever.
func (x *Index) EnsureReady(ctx context.Context) error {
	exists, err := x.client.CollectionExists(ctx, x.collection)
	if err != nil {
		return faults.Transientf("collection check", err)
	}

	if !exists {
		err = x.client.CreateCollection(ctx, &pb.CreateCollection{
			CollectionName: x.collection,
			VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
				Size:     uint64(x.dimension),
				Distance: pb.Distance_Cosine,
			}),
		})
		if err != nil {
			return faults.Transientf("collection create", err)
		}
		log.Printf("[Qdrant] Created collection %q (dim=%d, cosine)", x.collection, x.dimension)
	}

	backoff := retry.WithMaxRetries(uint64(x.maxAttempts), retry.NewConstant(x.pollInterval))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		info, err := x.client.GetCollectionInfo(ctx, x.collection)
		if err != nil {
			return retry.RetryableError(err)
		}
		if info.GetStatus() != pb.CollectionStatus_Green {
			return retry.RetryableError(fmt.Errorf("collection status %s", info.GetStatus()))
		}
		return nil
	})
	if err != nil {
		return faults.Transientf("collection readiness", err)
	}

	log.Printf("[Qdrant] Collection %q is ready", x.collection)
	return nil
}

// Upsert writes one batch of entries with overwrite-by-id semantics.
func (x *Index) Upsert(ctx context.Context, entries []model.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if len(entries) > maxUpsertBatch {
		return fmt.Errorf("upsert batch of %d exceeds limit of %d", len(entries), maxUpsertBatch)
	}

	points := make([]*pb.PointStruct, 0, len(entries))
	for i, entry := range entries {
		if entry.ID == "" {
			return fmt.Errorf("entry %d: missing id", i)
		}
		payload := map[string]any{idKey: entry.ID}
		for k, v := range entry.Payload {
			payload[k] = v
		}
		points = append(points, &pb.PointStruct{
			Id:      pb.NewID(pointID(entry.ID)),
			Vectors: pb.NewVectors(entry.Vector...),
			Payload: pb.NewValueMap(payload),
		})
	}

	_, err := x.client.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: x.collection,
		Points:         points,
		Wait:           pb.PtrOf(true),
	})
	if err != nil {
		return faults.Transientf("upsert", err)
	}

	log.Printf("[Qdrant] Upserted %d points", len(points))
	return nil
}

// Query runs an approximate nearest-neighbor search, optionally
// restricted to entries whose payload matches the equality filter.
// Matches come back ordered by descending score.
func (x *Index) Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]model.Match, error) {
	points, err := x.client.Query(ctx, &pb.QueryPoints{
		CollectionName: x.collection,
		Query:          pb.NewQuery(vector...),
		Limit:          pb.PtrOf(uint64(topK)),
		Filter:         buildFilter(filter),
		WithPayload:    pb.NewWithPayload(true),
	})
	if err != nil {
		return nil, faults.Transientf("query", err)
	}

	matches := make([]model.Match, 0, len(points))
	for _, point := range points {
		payload := payloadToMap(point.GetPayload())
		id, _ := payload[idKey].(string)
		delete(payload, idKey)
		matches = append(matches, model.Match{
			ID:      id,
			Score:   point.GetScore(),
			Payload: payload,
		})
	}
	return matches, nil
}

// Close closes the underlying gRPC connection.
func (x *Index) Close() error {
	return x.client.Close()
}

// pointID derives a deterministic UUID from a catalog-level id, so that
// re-upserting the same card overwrites rather than duplicates.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}

func buildFilter(filter map[string]string) *pb.Filter {
	if len(filter) == 0 {
		return nil
	}
	conditions := make([]*pb.Condition, 0, len(filter))
	for field, value := range filter {
		conditions = append(conditions, pb.NewMatch(field, value))
	}
	return &pb.Filter{Must: conditions}
}

// payloadToMap converts a Qdrant payload back into plain Go values.
// Only strings, numbers and bools are stored, so the conversion is total.
func payloadToMap(payload map[string]*pb.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for key, value := range payload {
		switch kind := value.GetKind().(type) {
		case *pb.Value_StringValue:
			out[key] = kind.StringValue
		case *pb.Value_IntegerValue:
			out[key] = kind.IntegerValue
		case *pb.Value_DoubleValue:
			out[key] = kind.DoubleValue
		case *pb.Value_BoolValue:
			out[key] = kind.BoolValue
		}
	}
	return out
}
