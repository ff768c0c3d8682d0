// Package qdrant is a REST client for the Qdrant vector database.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ragingest/internal/domain"
)

// Storage is a connection handle to a Qdrant instance. It holds no mutable
// state and is safe for concurrent use.
type Storage struct {
	url    string
	apiKey string
	client *http.Client
}

// Config holds connection details.
type Config struct {
	Endpoint   string
	Credential string
	Timeout    time.Duration
}

var _ domain.VectorStore = (*Storage)(nil)

// Connect validates the endpoint and builds a handle. No request is sent;
// authentication failures surface on the first call as domain.ErrConnection.
func Connect(cfg Config) (*Storage, error) {
	u, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint: %w", domain.ErrConnection, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q must be an http(s) URL", domain.ErrConnection, cfg.Endpoint)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:    strings.TrimRight(u.String(), "/"),
		apiKey: cfg.Credential,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// envelope is the common Qdrant response wrapper. Time is in seconds.
type envelope[T any] struct {
	Result T               `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

func (e envelope[T]) duration() time.Duration {
	return time.Duration(e.Time * float64(time.Second))
}

// ListCollections returns the names of all collections.
func (s *Storage) ListCollections(ctx context.Context) (domain.ListResult, error) {
	var resp envelope[struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	}]
	if err := s.do(ctx, http.MethodGet, "/collections", nil, &resp); err != nil {
		return domain.ListResult{}, err
	}
	out := domain.ListResult{Duration: resp.duration()}
	for _, c := range resp.Result.Collections {
		out.Collections = append(out.Collections, domain.CollectionInfo{Name: c.Name})
	}
	return out, nil
}

// CollectionExists reports whether name exists.
func (s *Storage) CollectionExists(ctx context.Context, name string) (bool, error) {
	var resp envelope[struct {
		Exists bool `json:"exists"`
	}]
	if err := s.do(ctx, http.MethodGet, collectionPath(name)+"/exists", nil, &resp); err != nil {
		return false, err
	}
	return resp.Result.Exists, nil
}

// CreateCollection creates a collection with only size and distance set;
// every other parameter is left to the server defaults.
func (s *Storage) CreateCollection(ctx context.Context, desc domain.CollectionDescriptor) (domain.CreateResult, error) {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     desc.Dimension,
			"distance": desc.Distance.String(),
		},
	}
	var resp envelope[bool]
	if err := s.do(ctx, http.MethodPut, collectionPath(desc.Name), body, &resp); err != nil {
		return domain.CreateResult{}, err
	}
	return domain.CreateResult{Created: resp.Result, Duration: resp.duration()}, nil
}

type point struct {
	ID      uint64         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Upsert writes points in a single request. With wait set the server
// replies once the write is applied.
func (s *Storage) Upsert(ctx context.Context, collection string, points []domain.Point, wait bool) (domain.UpsertResult, error) {
	body := struct {
		Points []point `json:"points"`
	}{Points: make([]point, len(points))}
	for i, p := range points {
		body.Points[i] = point{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	var resp envelope[struct {
		OperationID uint64 `json:"operation_id"`
		Status      string `json:"status"`
	}]
	path := fmt.Sprintf("%s/points?wait=%t", collectionPath(collection), wait)
	if err := s.do(ctx, http.MethodPut, path, body, &resp); err != nil {
		return domain.UpsertResult{}, err
	}
	return domain.UpsertResult{Status: parseStatus(resp.Result.Status), Duration: resp.duration()}, nil
}

// Count returns the exact number of points in collection.
func (s *Storage) Count(ctx context.Context, collection string) (uint64, error) {
	var resp envelope[struct {
		Count uint64 `json:"count"`
	}]
	body := map[string]any{"exact": true}
	if err := s.do(ctx, http.MethodPost, collectionPath(collection)+"/points/count", body, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// Close releases idle connections.
func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func (s *Storage) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: qdrant %s %s: %s", domain.ErrConnection, method, path, resp.Status)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("qdrant %s %s failed: %s: %s", method, path, resp.Status, bytes.TrimSpace(msg))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("qdrant %s %s: decode response: %w", method, path, err)
	}
	return nil
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}

func parseStatus(s string) domain.WriteStatus {
	switch s {
	case "completed":
		return domain.StatusCompleted
	case "acknowledged":
		return domain.StatusAcknowledged
	default:
		return domain.StatusFailed
	}
}
