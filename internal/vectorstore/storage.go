// Package vectorstore connects to the configured vector store backend.
package vectorstore

import (
	"fmt"
	"time"

	"ragingest/internal/domain"
	"ragingest/internal/vectorstore/memory"
	"ragingest/internal/vectorstore/qdrant"
	"ragingest/internal/vectorstore/sqlite"
)

// Backend names.
const (
	TypeQdrant = "qdrant"
	TypeMemory = "memory"
	TypeSQLite = "sqlite"
)

// Config selects a backend and carries its connection details.
type Config struct {
	Type       string
	Endpoint   string
	Credential string
	Timeout    time.Duration
	SQLitePath string
}

// Connect returns a store handle for cfg. Failures wrap domain.ErrConnection.
func Connect(cfg Config) (domain.VectorStore, error) {
	switch cfg.Type {
	case TypeQdrant, "":
		s, err := qdrant.Connect(qdrant.Config{
			Endpoint:   cfg.Endpoint,
			Credential: cfg.Credential,
			Timeout:    cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case TypeMemory:
		return memory.NewStorage(), nil
	case TypeSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrConnection, cfg.Type)
	}
}
