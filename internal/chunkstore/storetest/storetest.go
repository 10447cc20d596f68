// Package storetest is a conformance suite run against every chunk store
// backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chapterqa/internal/domain"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) domain.ChunkStore

// Set builds a chunk set with the given texts.
func Set(id string, texts ...string) *domain.ChunkSet {
	set := &domain.ChunkSet{
		Identity:    domain.DocumentIdentity(id),
		Fingerprint: "fp-" + id,
		CreatedAt:   time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Chunks:      make([]domain.Chunk, len(texts)),
	}
	for i, t := range texts {
		set.Chunks[i] = domain.Chunk{Index: i, Text: t}
	}
	return set
}

// Run exercises the chunk store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetAbsent", func(t *testing.T) {
		s := open(t, newStore)
		got, err := s.Get(context.Background(), "missing-0000")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("PutThenGet", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		want := Set("bucketa_math_ch1.pdf-0011223344556677", "first chunk", "second\nchunk", "third")
		require.NoError(t, s.Put(ctx, want))

		got, err := s.Get(ctx, want.Identity)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, want.Identity, got.Identity)
		assert.Equal(t, want.Chunks, got.Chunks)
		assert.Equal(t, want.Fingerprint, got.Fingerprint)
		assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, want.CreatedAt)
	})

	t.Run("EmptySetIsStored", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, Set("blank-aaaa")))

		got, err := s.Get(ctx, "blank-aaaa")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 0, got.Len())
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		require.NoError(t, s.Put(ctx, Set("doc-1", "a", "b", "c")))
		require.NoError(t, s.Put(ctx, Set("doc-1", "x")))

		got, err := s.Get(ctx, "doc-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, []string{"x"}, got.Texts())
	})

	t.Run("StoredSetIsIsolatedFromCaller", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		set := Set("doc-2", "original")
		require.NoError(t, s.Put(ctx, set))
		set.Chunks[0].Text = "mutated"

		got, err := s.Get(ctx, "doc-2")
		require.NoError(t, err)
		assert.Equal(t, []string{"original"}, got.Texts())
		got.Chunks[0].Text = "mutated again"

		again, err := s.Get(ctx, "doc-2")
		require.NoError(t, err)
		assert.Equal(t, []string{"original"}, again.Texts())
	})

	t.Run("RejectsBadIdentity", func(t *testing.T) {
		s := open(t, newStore)
		assert.Error(t, s.Put(context.Background(), Set("")))
		assert.Error(t, s.Put(context.Background(), Set("../escape")))
		assert.Error(t, s.Put(context.Background(), nil))
	})

	t.Run("ConcurrentDistinctIdentities", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()
		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, 2*n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("doc-%02d", i)
				if err := s.Put(ctx, Set(id, id+"-a", id+"-b")); err != nil {
					errs <- err
					return
				}
				if _, err := s.Get(ctx, domain.DocumentIdentity(id)); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("doc-%02d", i)
			got, err := s.Get(ctx, domain.DocumentIdentity(id))
			require.NoError(t, err)
			require.NotNil(t, got, id)
			assert.Equal(t, []string{id + "-a", id + "-b"}, got.Texts())
		}
	})
}

func open(t *testing.T, newStore Factory) domain.ChunkStore {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}
