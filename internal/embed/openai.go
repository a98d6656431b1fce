package embed

import (
	"context"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// OpenAIEmbedder calls the OpenAI embeddings API, or any endpoint that
// speaks the same protocol when a base URL is set.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// NewOpenAI creates an embedder for the given model. baseURL may be
// empty for the public API.
func NewOpenAI(apiKey, model, baseURL string, dimensions int) *OpenAIEmbedder {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIEmbedder{
		client:     openai.NewClient(opts...),
		model:      model,
		dimensions: dimensions,
	}
}

// Embed returns the embedding for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
	})
	if err != nil {
		return nil, bankerrors.Wrap(bankerrors.CodeProviderError, "embedding request failed", err)
	}
	if len(resp.Data) == 0 {
		return nil, bankerrors.New(bankerrors.CodeProviderError, "embedding response carried no data")
	}

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dimensions returns the configured vector width.
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }
