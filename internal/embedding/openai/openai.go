// Package openai provides an embedding provider for OpenAI-compatible
// /embeddings endpoints.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ragingest/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
	DefaultTimeout   = 30 * time.Second
	DefaultBatchSize = 32
)

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	// Dimension is the declared model output size. Zero means probe on load.
	Dimension         int
	BatchSize         int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// Provider loads OpenAI-compatible embedding models.
type Provider struct {
	baseURL   string
	apiKeyEnv string
	dimension int
	batchSize int
	client    *http.Client
	limiter   *rate.Limiter
}

// NewProvider creates a provider using the provided configuration.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	p := &Provider{
		baseURL:   cfg.BaseURL,
		apiKeyEnv: cfg.APIKeyEnv,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return p
}

// Load resolves the API key and, when no dimension was declared, probes the
// endpoint once to learn it.
func (p *Provider) Load(ctx context.Context, modelID string) (domain.EmbeddingModel, error) {
	key := os.Getenv(p.apiKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrModelLoad, p.apiKeyEnv)
	}
	if modelID == "" {
		return nil, fmt.Errorf("%w: model identifier is required", domain.ErrModelLoad)
	}
	m := &Model{provider: p, apiKey: key, model: modelID, dimension: p.dimension}
	if m.dimension == 0 {
		v, err := m.request(ctx, []string{"dimension probe"})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrModelLoad, err)
		}
		m.dimension = len(v[0])
	}
	return m, nil
}

// Model is a loaded remote embedding model.
type Model struct {
	provider  *Provider
	apiKey    string
	model     string
	dimension int
}

// Name returns the remote model identifier.
func (m *Model) Name() string { return m.model }

// Dimension returns the dimensionality of the produced embedding vectors.
func (m *Model) Dimension() int { return m.dimension }

// Encode embeds texts in batches of the configured size. Any failed request
// aborts the whole call. Blank texts are rejected by the API, so they are
// left out of the requests and get a zero vector.
func (m *Model) Encode(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	out := make([]domain.Embedding, len(texts))
	var pending []int
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make(domain.Embedding, m.dimension)
			continue
		}
		pending = append(pending, i)
	}
	for start := 0; start < len(pending); start += m.provider.batchSize {
		idx := pending[start:min(start+m.provider.batchSize, len(pending))]
		batch := make([]string, len(idx))
		for j, i := range idx {
			batch[j] = texts[i]
		}
		vecs, err := m.request(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %w", domain.ErrEncode, idx[0], idx[len(idx)-1]+1, err)
		}
		for j, i := range idx {
			out[i] = vecs[j]
		}
	}
	return out, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (m *Model) request(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if m.provider.limiter != nil {
		if err := m.provider.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	data, err := json.Marshal(embeddingsRequest{Input: texts, Model: m.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.provider.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.provider.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("openai embeddings failed: %s: %s", resp.Status, bytes.TrimSpace(body))
	}

	var out embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(out.Data), len(texts))
	}
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vecs := make([]domain.Embedding, len(out.Data))
	for i, d := range out.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", d.Index)
		}
		vecs[i] = d.Embedding
	}
	return vecs, nil
}
