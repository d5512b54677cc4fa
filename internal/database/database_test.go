package database

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/store"
)

func TestOpenStoreMemory(t *testing.T) {
	st, err := OpenStore(config.DatabaseConfig{Driver: "memory"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &store.MemoryStore{}, st)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := OpenStore(config.DatabaseConfig{Driver: "mongo"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestGormWriterTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	w := gormWriter{log: zerolog.New(&buf).With().Str("component", "DB").Logger()}
	w.Printf("slow query %s", "SELECT 1")

	assert.Contains(t, buf.String(), `"component":"DB"`)
	assert.Contains(t, buf.String(), "slow query SELECT 1")
}
