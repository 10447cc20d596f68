package chunker

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chapterqa/internal/domain"
)

type fakeExtractor struct {
	pages []string
	err   error
}

func (f fakeExtractor) Pages([]byte) ([]string, error) { return f.pages, f.err }

func words(from, to int) string {
	parts := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		parts = append(parts, fmt.Sprintf("w%d", i))
	}
	return strings.Join(parts, " ")
}

func TestWordChunker_SinglePageScenario(t *testing.T) {
	c := NewWordChunker(fakeExtractor{pages: []string{words(1, 2500)}}, 1000)

	chunks, err := c.Chunk([]byte("ignored"))
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, words(1, 1000), chunks[0].Text)
	assert.Equal(t, words(1001, 2000), chunks[1].Text)
	assert.Equal(t, words(2001, 2500), chunks[2].Text)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
	}
}

func TestWordChunker_PagesNeverShareChunks(t *testing.T) {
	c := NewWordChunker(nil, 3)
	chunks := c.ChunkPages([]string{"a b c d", "", "   \n\t", "e\nf  g h i j k"})

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	assert.Equal(t, []string{"a b c", "d", "e f g", "h i j", "k"}, texts)
}

func TestWordChunker_NoContentLoss(t *testing.T) {
	pages := []string{"The cell is the\nbasic unit   of life.", "", "Mitochondria\tproduce ATP via respiration."}
	c := NewWordChunker(nil, 2)

	var got []string
	for _, ch := range c.ChunkPages(pages) {
		got = append(got, strings.Fields(ch.Text)...)
	}
	var want []string
	for _, p := range pages {
		want = append(want, strings.Fields(p)...)
	}
	assert.Equal(t, want, got)
}

func TestWordChunker_Deterministic(t *testing.T) {
	c := NewWordChunker(fakeExtractor{pages: []string{words(1, 777), words(778, 1500)}}, 100)
	a, err := c.Chunk(nil)
	require.NoError(t, err)
	b, err := c.Chunk(nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWordChunker_BlankDocumentIsEmpty(t *testing.T) {
	c := NewWordChunker(fakeExtractor{pages: []string{"", "  "}}, 10)
	chunks, err := c.Chunk(nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestWordChunker_PropagatesExtractorError(t *testing.T) {
	boom := fmt.Errorf("%w: broken xref", domain.ErrUnreadableDocument)
	c := NewWordChunker(fakeExtractor{err: boom}, 10)
	_, err := c.Chunk(nil)
	assert.True(t, errors.Is(err, domain.ErrUnreadableDocument))
}

func TestNewWordChunker_DefaultWidth(t *testing.T) {
	assert.Equal(t, DefaultWidth, NewWordChunker(nil, 0).Width())
}

func TestPDFExtractor_RejectsNonPDF(t *testing.T) {
	_, err := NewPDFExtractor().Pages([]byte("this is definitely not a pdf"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)

	_, err = NewPDFExtractor().Pages(nil)
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}

func TestTextExtractor_SplitsOnFormFeed(t *testing.T) {
	pages, err := NewTextExtractor().Pages([]byte("page one\fpage two"))
	require.NoError(t, err)
	assert.Equal(t, []string{"page one", "page two"}, pages)

	_, err = NewTextExtractor().Pages([]byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(t, err, domain.ErrUnreadableDocument)
}
