package tokenstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStorage records durable reads so tests can assert the lazy-read
// contract.
type countingStorage struct {
	MemoryStorage
	reads   int
	readErr error
}

func (c *countingStorage) ReadToken(ctx context.Context) (string, error) {
	c.reads++
	if c.readErr != nil {
		return "", c.readErr
	}
	return c.MemoryStorage.ReadToken(ctx)
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestGet_LazyHydrationReadsDurableOnce(t *testing.T) {
	ctx := context.Background()
	storage := &countingStorage{}
	require.NoError(t, storage.WriteToken(ctx, "persisted-token"))

	store := New(storage, testLogger())

	tok, ok := store.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "persisted-token", tok)
	assert.Equal(t, 1, storage.reads)

	// Second get is served from memory.
	tok, ok = store.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "persisted-token", tok)
	assert.Equal(t, 1, storage.reads)
}

func TestGet_AbsentToken(t *testing.T) {
	ctx := context.Background()
	storage := &countingStorage{}
	store := New(storage, testLogger())

	_, ok := store.Get(ctx)
	assert.False(t, ok)

	// Absence is cached too; durable storage is not re-queried.
	_, ok = store.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, storage.reads)
}

func TestGet_ReadErrorTreatedAsAbsent(t *testing.T) {
	ctx := context.Background()
	storage := &countingStorage{readErr: errors.New("disk error")}
	store := New(storage, testLogger())

	_, ok := store.Get(ctx)
	assert.False(t, ok)

	_, ok = store.Get(ctx)
	assert.False(t, ok)
	assert.Equal(t, 1, storage.reads)
}

func TestSet_WritesThroughAndServesFromMemory(t *testing.T) {
	ctx := context.Background()
	storage := &countingStorage{}
	store := New(storage, testLogger())

	require.NoError(t, store.Set(ctx, "fresh-token"))

	tok, ok := store.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "fresh-token", tok)
	// Set counts as hydration; no durable read should have happened.
	assert.Equal(t, 0, storage.reads)

	persisted, err := storage.MemoryStorage.ReadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", persisted)
}

func TestClear_RemovesMemoryAndDurable(t *testing.T) {
	ctx := context.Background()
	storage := &countingStorage{}
	store := New(storage, testLogger())

	require.NoError(t, store.Set(ctx, "tok"))
	require.NoError(t, store.Clear(ctx))

	_, ok := store.Get(ctx)
	assert.False(t, ok)

	_, err := storage.MemoryStorage.ReadToken(ctx)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

type failingStorage struct {
	MemoryStorage
	writeErr error
}

func (f *failingStorage) WriteToken(ctx context.Context, token string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.MemoryStorage.WriteToken(ctx, token)
}

func TestSet_DurableFailureLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{}
	store := New(storage, testLogger())
	require.NoError(t, store.Set(ctx, "original"))

	storage.writeErr = errors.New("disk full")
	err := store.Set(ctx, "replacement")
	require.Error(t, err)

	tok, ok := store.Get(ctx)
	assert.True(t, ok)
	assert.Equal(t, "original", tok)
}

func TestMemoryStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStorage()

	_, err := m.ReadToken(ctx)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, m.WriteToken(ctx, "tok"))
	tok, err := m.ReadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	require.NoError(t, m.ClearToken(ctx))
	_, err = m.ReadToken(ctx)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "tokens.db")

	storage, err := NewSQLiteStorage(dbPath, testLogger())
	require.NoError(t, err)
	defer storage.Close()

	_, err = storage.ReadToken(ctx)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, storage.WriteToken(ctx, "first"))
	tok, err := storage.ReadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "first", tok)

	// Replacement keeps a single current value.
	require.NoError(t, storage.WriteToken(ctx, "second"))
	tok, err = storage.ReadToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", tok)

	require.NoError(t, storage.ClearToken(ctx))
	_, err = storage.ReadToken(ctx)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	assert.NoError(t, storage.Ping(ctx))
}
