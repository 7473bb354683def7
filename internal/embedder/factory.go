package embedder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/osvquery/vulncontext-mcp/pkg/types"
)

// Environment variables consulted by NewFromEnv
const (
	EnvProvider      = "VULNCONTEXT_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOllamaBaseURL = "OLLAMA_BASE_URL"
)

// Config holds embedder configuration
type Config struct {
	Provider    string // explicit provider; empty means auto-select
	OpenAIKey   string
	OllamaURL   string
	OllamaModel string
	CacheSize   int
}

// Candidate is one backend the selection algorithm may choose. Build
// constructs the provider; the candidate is accepted only if a cheap live
// probe call succeeds.
type Candidate struct {
	Name  string
	Build func() (Embedder, error)
}

// probeText is the throwaway input used to verify a backend is reachable.
const probeText = "connectivity probe"

// Select tries candidates in order, probing each with a live embedding
// call, and returns the first that answers. The decision is made once;
// callers cache the returned embedder for the process lifetime. Exhausting
// all candidates returns ErrNoEmbeddingBackend with the probe failures
// attached.
func Select(ctx context.Context, log *logrus.Entry, candidates []Candidate) (Embedder, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates configured", types.ErrNoEmbeddingBackend)
	}

	var failures []string
	for _, cand := range candidates {
		emb, err := cand.Build()
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", cand.Name, err))
			continue
		}

		if _, err := emb.GenerateEmbedding(ctx, EmbeddingRequest{Text: probeText}); err != nil {
			failures = append(failures, fmt.Sprintf("%s: probe failed: %v", cand.Name, err))
			_ = emb.Close()
			continue
		}

		log.WithFields(logrus.Fields{
			"provider":  emb.Provider(),
			"model":     emb.Model(),
			"dimension": emb.Dimension(),
		}).Info("embedding backend selected")
		return emb, nil
	}

	return nil, fmt.Errorf("%w: %s", types.ErrNoEmbeddingBackend, strings.Join(failures, "; "))
}

// Candidates builds the ordered candidate list for a configuration: the
// hosted provider first when a key is present, then the local model
// family. An explicit Provider narrows the list to that single backend.
func Candidates(cfg Config) []Candidate {
	cache := NewCache(cfg.CacheSize)

	openai := Candidate{
		Name:  ProviderOpenAI,
		Build: func() (Embedder, error) { return NewOpenAIProvider(cfg.OpenAIKey, cache) },
	}
	ollama := Candidate{
		Name:  ProviderOllama,
		Build: func() (Embedder, error) { return NewOllamaProvider(cfg.OllamaURL, cfg.OllamaModel, cache) },
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return []Candidate{openai}
	case ProviderOllama:
		return []Candidate{ollama}
	}

	var out []Candidate
	if cfg.OpenAIKey != "" {
		out = append(out, openai)
	}
	out = append(out, ollama)
	return out
}

// New selects and probes a backend for the given configuration, then wraps
// it so every vector leaving the package is dimension-checked and free of
// non-finite values.
func New(ctx context.Context, log *logrus.Entry, cfg Config) (Embedder, error) {
	emb, err := Select(ctx, log, Candidates(cfg))
	if err != nil {
		return nil, err
	}
	return newSanitizingEmbedder(emb, log), nil
}

// NewFromEnv creates an embedder from environment variables.
func NewFromEnv(ctx context.Context, log *logrus.Entry) (Embedder, error) {
	return New(ctx, log, Config{
		Provider:  os.Getenv(EnvProvider),
		OpenAIKey: os.Getenv(EnvOpenAIAPIKey),
		OllamaURL: os.Getenv(EnvOllamaBaseURL),
	})
}
