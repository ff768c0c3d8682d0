package vectorstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragingest/internal/domain"
	"ragingest/internal/vectorstore/memory"
	"ragingest/internal/vectorstore/qdrant"
	"ragingest/internal/vectorstore/sqlite"
)

func TestConnect(t *testing.T) {
	s, err := Connect(Config{Endpoint: "http://localhost:6333"})
	require.NoError(t, err)
	assert.IsType(t, &qdrant.Storage{}, s)

	s, err = Connect(Config{Type: TypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, s)

	s, err = Connect(Config{Type: TypeSQLite, SQLitePath: filepath.Join(t.TempDir(), "v.db")})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, s)
	require.NoError(t, s.Close())
}

func TestConnect_Errors(t *testing.T) {
	s, err := Connect(Config{Type: "pinecone"})
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Nil(t, s)

	s, err = Connect(Config{Type: TypeQdrant, Endpoint: "not a url"})
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Nil(t, s)
}
