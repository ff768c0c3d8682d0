// Package ollama provides an embedding provider backed by a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ragingest/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "all-minilm"
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for the Ollama embedding provider.
type Config struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Dimension is the declared embedding size. Zero means probe on load.
	Dimension int

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// RequestsPerSecond throttles embedding calls. Zero disables throttling.
	RequestsPerSecond float64
}

// Provider loads models served by Ollama.
type Provider struct {
	client    *http.Client
	baseURL   string
	dimension int
	limiter   *rate.Limiter
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewProvider creates a new Ollama embedding provider.
func NewProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	p := &Provider{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		dimension: cfg.Dimension,
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return p
}

// Load checks that the server is reachable and resolves the model dimension.
func (p *Provider) Load(ctx context.Context, modelID string) (domain.EmbeddingModel, error) {
	if modelID == "" {
		modelID = DefaultModel
	}
	if err := p.ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelLoad, err)
	}
	m := &Model{provider: p, model: modelID, dimension: p.dimension}
	if m.dimension == 0 {
		v, err := m.embed(ctx, "dimension probe")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrModelLoad, err)
		}
		m.dimension = len(v)
	}
	return m, nil
}

// ping validates the server by checking the /api/tags endpoint.
func (p *Provider) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Model is a model served by Ollama.
type Model struct {
	provider  *Provider
	model     string
	dimension int
}

// Name returns the model name.
func (m *Model) Name() string { return m.model }

// Dimension returns the embedding vector size.
func (m *Model) Dimension() int { return m.dimension }

// Encode embeds each text in order. Ollama has no batch endpoint for this
// API, so texts are sent one request at a time. Blank texts are not sent:
// Ollama answers them with an empty vector, so they get a zero vector.
func (m *Model) Encode(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	out := make([]domain.Embedding, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			out[i] = make(domain.Embedding, m.dimension)
			continue
		}
		v, err := m.embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: text %d: %w", domain.ErrEncode, i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (m *Model) embed(ctx context.Context, text string) (domain.Embedding, error) {
	if m.provider.limiter != nil {
		if err := m.provider.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	jsonBody, err := json.Marshal(embedRequest{Model: m.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.provider.baseURL+"/api/embeddings", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.provider.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}

	// Convert float64 to float32
	embedding := make(domain.Embedding, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		embedding[i] = float32(v)
	}
	return embedding, nil
}
