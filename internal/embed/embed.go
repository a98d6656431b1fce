package embed

import (
	"context"

	"github.com/membank-oss/membank/internal/config"
	bankerrors "github.com/membank-oss/membank/internal/errors"
)

// Embedder turns text into a vector. Implementations are safe for
// concurrent use.
type Embedder interface {
	// Embed returns the embedding for one text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the vector width this embedder produces.
	Dimensions() int
}

// NewFromConfig builds the configured embedder. Provider "off" returns
// nil with no error; the caller runs without semantic sync.
func NewFromConfig(cfg config.EmbeddingConfig) (Embedder, error) {
	switch cfg.Provider {
	case "off", "":
		return nil, nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, bankerrors.New(bankerrors.CodeAPIKeyMissing,
				"openai embedding provider requires an API key").
				WithSuggestion("set embedding.api_key or the OPENAI_API_KEY environment variable")
		}
		return NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimensions), nil
	case "local":
		return NewLocal(cfg.BaseURL, cfg.Model, cfg.Dimensions), nil
	default:
		return nil, bankerrors.Newf(bankerrors.CodeConfigInvalid,
			"unknown embedding provider %q", cfg.Provider)
	}
}
