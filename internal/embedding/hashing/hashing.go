// Package hashing provides a local TF-IDF embedder that projects terms into
// a fixed number of buckets, so its output dimension does not depend on the
// vocabulary of the batch.
package hashing

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"ragingest/internal/domain"
)

// DefaultDimension matches the output size of common MiniLM sentence models.
const DefaultDimension = 384

// Provider loads hashing models of a fixed dimension.
type Provider struct {
	dimension int
}

// NewProvider creates a provider whose models emit dimension-length vectors.
func NewProvider(dimension int) *Provider {
	return &Provider{dimension: dimension}
}

// Load returns a model named modelID. Loading is local and never touches the network.
func (p *Provider) Load(ctx context.Context, modelID string) (domain.EmbeddingModel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.dimension <= 0 {
		return nil, fmt.Errorf("%w: hashing dimension must be positive, got %d", domain.ErrModelLoad, p.dimension)
	}
	if modelID == "" {
		modelID = "hashing"
	}
	return &Model{
		name:         modelID,
		dimension:    p.dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}, nil
}

// Model is a TF-IDF vectorizer over hashed term buckets. IDF is computed
// over the batch passed to Encode.
type Model struct {
	name         string
	dimension    int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// Name returns the model identifier.
func (m *Model) Name() string { return m.name }

// Dimension returns the length of every produced vector.
func (m *Model) Dimension() int { return m.dimension }

// Encode embeds every text of the batch. Texts without terms map to the zero vector.
func (m *Model) Encode(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return []domain.Embedding{}, nil
	}
	buckets := make([][]int, len(texts))
	df := make([]int, m.dimension)
	for i, text := range texts {
		if !utf8.ValidString(text) {
			return nil, fmt.Errorf("%w: segment %d is not valid UTF-8", domain.ErrEncode, i)
		}
		buckets[i] = m.bucketize(text)
		seen := make(map[int]struct{}, len(buckets[i]))
		for _, b := range buckets[i] {
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			df[b]++
		}
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	// Smoothed IDF
	n := float64(len(texts))
	idf := make([]float64, m.dimension)
	for b, count := range df {
		idf[b] = math.Log((1+n)/(1+float64(count))) + 1.0
	}

	out := make([]domain.Embedding, len(texts))
	for i, bs := range buckets {
		out[i] = m.vector(bs, idf)
	}
	return out, nil
}

func (m *Model) vector(buckets []int, idf []float64) domain.Embedding {
	vec := make(domain.Embedding, m.dimension)
	if len(buckets) == 0 {
		return vec
	}
	tf := make(map[int]int, len(buckets))
	for _, b := range buckets {
		tf[b]++
	}
	weights := make([]float64, m.dimension)
	norm := 0.0
	total := float64(len(buckets))
	for b, count := range tf {
		w := float64(count) / total * idf[b]
		weights[b] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for b, w := range weights {
		vec[b] = float32(w / norm)
	}
	return vec
}

func (m *Model) bucketize(text string) []int {
	tokens := m.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if _, isStop := m.stopwords[tok]; isStop {
			continue
		}
		out = append(out, bucket(tok, m.dimension))
	}
	return out
}

func bucket(token string, dimension int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return int(h.Sum32() % uint32(dimension))
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
