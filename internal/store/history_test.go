package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistoryStoreLoadMissingFileReturnsEmptySlice(t *testing.T) {
	h := &HistoryStore{Path: filepath.Join(t.TempDir(), "missing")}
	entries, err := h.Load()
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestHistoryStoreSaveThenLoadRoundTrips(t *testing.T) {
	h := &HistoryStore{Path: filepath.Join(t.TempDir(), "sub", "history")}

	require.NoError(t, h.Save([]string{"first", "second", "  ", "third"}))

	entries, err := h.Load()
	require.NoError(t, err)
	require.Equal(t, []string{"first", "second", "third"}, entries)
}

func TestHistoryStoreSaveWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history")
	h := &HistoryStore{Path: path}

	require.NoError(t, h.Save([]string{"a"}))

	_, err := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err), "temp file should be renamed away")
}

func TestRecorderAppendTrimsToMaxEntries(t *testing.T) {
	r := NewRecorder(nil)
	for i := 0; i < maxRecorderEntries+10; i++ {
		r.Append("entry")
	}
	require.Len(t, r.Entries(), maxRecorderEntries)
}

func TestRecorderAppendIgnoresBlankLines(t *testing.T) {
	r := NewRecorder(nil)
	r.Append("   ")
	require.Empty(t, r.Entries())
}

func TestRecorderRecallNavigatesOlderThenNewer(t *testing.T) {
	r := NewRecorder([]string{"one", "two", "three"})

	value, ok := r.Recall(-1, "draft text")
	require.True(t, ok)
	require.Equal(t, "three", value)

	value, ok = r.Recall(-1, "draft text")
	require.True(t, ok)
	require.Equal(t, "two", value)

	value, ok = r.Recall(1, "")
	require.True(t, ok)
	require.Equal(t, "three", value)

	value, ok = r.Recall(1, "")
	require.True(t, ok)
	require.Equal(t, "draft text", value)
}

func TestRecorderRecallOutOfRangeReturnsFalse(t *testing.T) {
	r := NewRecorder([]string{"one"})
	_, ok := r.Recall(1, "")
	require.False(t, ok)
}

func TestRecorderRecallEmptyHistoryReturnsFalse(t *testing.T) {
	r := NewRecorder(nil)
	_, ok := r.Recall(-1, "draft")
	require.False(t, ok)
}

func TestRecorderAppendResetsRecallCursor(t *testing.T) {
	r := NewRecorder([]string{"one", "two"})
	r.Recall(-1, "")

	r.Append("three")

	_, ok := r.Recall(1, "")
	require.False(t, ok, "cursor should be back at the end after append")
}
