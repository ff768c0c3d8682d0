package domain

import (
	"context"
	"time"
)

// Document represents a single text resource loaded for ingestion.
type Document struct {
	Source  string
	Content string
}

// Segment is one retrievable unit of a document.
type Segment struct {
	Ordinal int
	Text    string
}

// Embedding is a fixed-length vector representing a segment.
type Embedding []float32

// PayloadKey is the payload field holding the original segment text.
const PayloadKey = "context"

// Point is the unit written to a collection.
type Point struct {
	ID      uint64
	Vector  Embedding
	Payload map[string]any
}

// CollectionDescriptor declares the vector geometry of a named collection.
type CollectionDescriptor struct {
	Name      string
	Dimension uint64
	Distance  Distance
}

// CollectionInfo describes a collection reported by the store.
type CollectionInfo struct {
	Name string
}

// ListResult is the answer to a list-collections call.
type ListResult struct {
	Collections []CollectionInfo
	Duration    time.Duration
}

// CreateResult is the answer to a create-collection call.
type CreateResult struct {
	Created  bool
	Duration time.Duration
}

// UpsertResult is the answer to an upsert call.
type UpsertResult struct {
	Status   WriteStatus
	Duration time.Duration
}

// ProvisionResult reports whether provisioning created the collection.
type ProvisionResult struct {
	Created  bool
	Duration time.Duration
}

// WriteStatus is the store-reported state of an upsert.
type WriteStatus string

const (
	StatusAcknowledged WriteStatus = "acknowledged"
	StatusCompleted    WriteStatus = "completed"
	StatusFailed       WriteStatus = "failed"
)

// WriteOutcome says whether a write reached the store at all.
type WriteOutcome string

const (
	OutcomeWritten           WriteOutcome = "written"
	OutcomeCollectionMissing WriteOutcome = "collection_missing"
)

// WriteResult is the structured outcome of an ingestion write.
type WriteResult struct {
	Outcome  WriteOutcome
	Status   WriteStatus
	Points   int
	Duration time.Duration
}

// DataPoint groups everything one ingestion run needs after setup.
// It lives only for the duration of the run.
type DataPoint struct {
	CollectionName string
	Store          VectorStore
	Segments       []Segment
	Embeddings     []Embedding
}

// Segmenter splits a document into ordered segments.
type Segmenter interface {
	Segment(document Document) ([]Segment, error)
}

// EmbeddingModel encodes text batches into fixed-length vectors.
type EmbeddingModel interface {
	Name() string
	Dimension() int
	Encode(ctx context.Context, texts []string) ([]Embedding, error)
}

// EmbeddingProvider loads embedding models by identifier.
type EmbeddingProvider interface {
	Load(ctx context.Context, modelID string) (EmbeddingModel, error)
}

// VectorStore is the connection handle to a vector-indexing store.
// Every method is a remote call that may fail with a transport error.
type VectorStore interface {
	ListCollections(ctx context.Context) (ListResult, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, desc CollectionDescriptor) (CreateResult, error)
	Upsert(ctx context.Context, collection string, points []Point, wait bool) (UpsertResult, error)
	Count(ctx context.Context, collection string) (uint64, error)
	Close() error
}
