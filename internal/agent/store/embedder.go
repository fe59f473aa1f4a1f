package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/ollama"
	"github.com/cloudwego/eino/components/embedding"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tickertalk/server/internal/agent/model"
	logx "github.com/tickertalk/server/pkg/logger"
)

const defaultCacheSize = 512

// CachedEmbedder memoises single-text embeddings keyed by the exact text.
type CachedEmbedder struct {
	inner embedding.Embedder
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(inner embedding.Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// NewOllamaEmbedder builds the Ollama-backed embedder wrapped in an LRU cache.
func NewOllamaEmbedder(ctx context.Context, cfg model.EmbeddingConfig) (*CachedEmbedder, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	emb, err := ollama.NewEmbedder(ctx, &ollama.EmbeddingConfig{
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: timeout,
	})
	if err != nil {
		logx.Error().Err(err).Str("model", cfg.Model).Msg("Error creating Ollama embedder")
		return nil, fmt.Errorf("error creating Ollama embedder: %w", err)
	}
	return NewCachedEmbedder(emb, cfg.CacheSize)
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return v, nil
	}

	out, err := e.inner.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(out) != 1 || len(out[0]) == 0 {
		return nil, fmt.Errorf("embed query: expected one vector, got %d", len(out))
	}

	vec := make([]float32, len(out[0]))
	for i, f := range out[0] {
		vec[i] = float32(f)
	}
	e.cache.Add(text, vec)
	return vec, nil
}

func (e *CachedEmbedder) Len() int { return e.cache.Len() }
