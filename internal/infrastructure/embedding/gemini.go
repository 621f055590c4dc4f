// Package embedding wraps the Gemini embedding API behind the
// repository.EmbeddingClient port.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/profoak/profoak-api/internal/domain/faults"
	"github.com/profoak/profoak-api/internal/domain/repository"
)

// Compile-time interface check
var _ repository.EmbeddingClient = (*GeminiClient)(nil)

// GeminiClient generates embeddings with a Gemini embedding model.
// Every call recomputes; there is no local cache and no local retry.
type GeminiClient struct {
	client     *genai.Client
	docModel   *genai.EmbeddingModel
	queryModel *genai.EmbeddingModel
	model      string
	dimension  int
}

// NewGeminiClient creates a Gemini embedding client for the given model
// and expected vector dimension.
func NewGeminiClient(ctx context.Context, apiKey, model string, dimension int) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, faults.Authf("embedding init", errors.New("API key must not be empty"))
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	docModel := client.EmbeddingModel(model)
	docModel.TaskType = genai.TaskTypeRetrievalDocument

	queryModel := client.EmbeddingModel(model)
	queryModel.TaskType = genai.TaskTypeRetrievalQuery

	return &GeminiClient{
		client:     client,
		docModel:   docModel,
		queryModel: queryModel,
		model:      model,
		dimension:  dimension,
	}, nil
}

// EmbedDocuments embeds a batch of document texts, order-preserving.
func (c *GeminiClient) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batch := c.docModel.NewBatch()
	for _, text := range texts {
		batch.AddContent(genai.Text(text))
	}

	resp, err := c.docModel.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, classify("batch embedding", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("batch embedding: expected %d vectors, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if err := c.checkDimension(emb.Values); err != nil {
			return nil, err
		}
		vectors[i] = emb.Values
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text.
func (c *GeminiClient) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.queryModel.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classify("query embedding", err)
	}
	if resp.Embedding == nil {
		return nil, faults.Transientf("query embedding", errors.New("no embedding returned"))
	}
	if err := c.checkDimension(resp.Embedding.Values); err != nil {
		return nil, err
	}
	return resp.Embedding.Values, nil
}

func (c *GeminiClient) Name() string {
	return fmt.Sprintf("Gemini (%s)", c.model)
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func (c *GeminiClient) checkDimension(vector []float32) error {
	if len(vector) != c.dimension {
		return fmt.Errorf("embedding dimension mismatch: expected %d, got %d", c.dimension, len(vector))
	}
	return nil
}

// classify sorts a provider error into the auth/transient taxonomy.
func classify(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 401 || apiErr.Code == 403) {
		return faults.Authf(op, err)
	}
	return faults.Transientf(op, err)
}
