package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chapterqa/internal/chunkstore/storetest"
	"chapterqa/internal/domain"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStorage_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.ChunkStore { return newTestStorage(t) })
}

func TestStorage_ReadsBareArrayRecords(t *testing.T) {
	s := newTestStorage(t)
	id := domain.DocumentIdentity("bucketa_physics_ch3.pdf-0123456789abcdef")
	require.NoError(t, os.WriteFile(s.Path(id), []byte(`["page one text","page two text"]`), 0o644))

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"page one text", "page two text"}, got.Texts())
	assert.Equal(t, 1, got.Chunks[1].Index)
}

func TestStorage_CorruptRecordIsStoreUnavailable(t *testing.T) {
	s := newTestStorage(t)
	id := domain.DocumentIdentity("broken-ffff")
	require.NoError(t, os.WriteFile(s.Path(id), []byte(`{"identity": "broken-ffff", "chunks": [`), 0o644))

	_, err := s.Get(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestStorage_PutLeavesNoTempFiles(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Put(context.Background(), storetest.Set("doc-x", "a", "b")))

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc-x_chunks.json", entries[0].Name())
	assert.Equal(t, filepath.Join(s.dir, "doc-x_chunks.json"), s.Path("doc-x"))
}
