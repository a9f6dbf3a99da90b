// ABOUTME: Tests for session resolution and mapping record persistence.
// ABOUTME: Covers new-thread allocation, resume round-trips, and lost-log degradation.

package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, *Store, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewStore(dir)
	return NewResolver(store, dir, nil), store, dir
}

func TestResolve_NoPriorRecord(t *testing.T) {
	r, _, dir := newTestResolver(t)

	res, err := r.Resolve("42")
	require.NoError(t, err)

	assert.True(t, res.IsNew)
	assert.NotEmpty(t, res.LogPath)
	assert.Equal(t, "logs", filepath.Dir(res.LogPath))

	// The logs directory exists so the driver can append immediately.
	_, err = os.Stat(filepath.Join(dir, "logs"))
	assert.NoError(t, err)
}

func TestResolve_FreshPathsAreUnique(t *testing.T) {
	r, _, _ := newTestResolver(t)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		res, err := r.Resolve("42")
		require.NoError(t, err)
		assert.False(t, seen[res.LogPath], "log path %s allocated twice", res.LogPath)
		seen[res.LogPath] = true
	}
}

func TestResolve_RoundTrip(t *testing.T) {
	r, store, dir := newTestResolver(t)

	res, err := r.Resolve("7")
	require.NoError(t, err)
	require.True(t, res.IsNew)

	// Simulate a completed turn: log written, mapping persisted.
	require.NoError(t, os.WriteFile(filepath.Join(dir, res.LogPath), []byte("{}\n"), 0644))
	require.NoError(t, store.Put(&Record{
		ThreadID:  "7",
		LogPath:   res.LogPath,
		UpdatedAt: time.Now(),
	}))

	again, err := r.Resolve("7")
	require.NoError(t, err)
	assert.False(t, again.IsNew)
	assert.Equal(t, res.LogPath, again.LogPath)
}

func TestResolve_MappedLogDeleted(t *testing.T) {
	r, store, _ := newTestResolver(t)

	require.NoError(t, store.Put(&Record{
		ThreadID:  "7",
		LogPath:   "logs/vanished.jsonl",
		UpdatedAt: time.Now(),
	}))

	res, err := r.Resolve("7")
	require.NoError(t, err)
	assert.True(t, res.IsNew, "lost log must resolve like no mapping at all")
	assert.NotEqual(t, "logs/vanished.jsonl", res.LogPath)
}

func TestResolve_CorruptRecordDegrades(t *testing.T) {
	r, store, dir := newTestResolver(t)

	path := filepath.Join(dir, store.RecordPath("7"))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("{{{{not toml"), 0644))

	res, err := r.Resolve("7")
	require.NoError(t, err)
	assert.True(t, res.IsNew)
}

func TestStore_GetNotFound(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Get("999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Put(&Record{ThreadID: "7", LogPath: "logs/a.jsonl", UpdatedAt: time.Now()}))
	require.NoError(t, store.Put(&Record{ThreadID: "7", LogPath: "logs/b.jsonl", UpdatedAt: time.Now()}))

	rec, err := store.Get("7")
	require.NoError(t, err)
	assert.Equal(t, "logs/b.jsonl", rec.LogPath)
}

func TestStore_SanitizesThreadID(t *testing.T) {
	store := NewStore(t.TempDir())

	require.NoError(t, store.Put(&Record{ThreadID: "../../etc/passwd", LogPath: "logs/x.jsonl", UpdatedAt: time.Now()}))

	path := store.RecordPath("../../etc/passwd")
	assert.NotContains(t, path, "..")

	rec, err := store.Get("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "logs/x.jsonl", rec.LogPath)
}
