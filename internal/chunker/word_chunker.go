package chunker

import (
	"strings"

	"chapterqa/internal/domain"
)

// DefaultWidth is the number of words per chunk.
const DefaultWidth = 1000

// PageExtractor pulls per-page plain text out of raw document bytes.
type PageExtractor interface {
	Pages(data []byte) ([]string, error)
}

// WordChunker splits each page into runs of width words. Chunks never
// span pages and never overlap.
type WordChunker struct {
	extractor PageExtractor
	width     int
}

func NewWordChunker(extractor PageExtractor, width int) *WordChunker {
	if width <= 0 {
		width = DefaultWidth
	}
	return &WordChunker{extractor: extractor, width: width}
}

// Width returns the configured words per chunk.
func (c *WordChunker) Width() int { return c.width }

// Chunk extracts the pages of data and chunks them in page order.
// A readable document without any text yields no chunks and no error.
func (c *WordChunker) Chunk(data []byte) ([]domain.Chunk, error) {
	pages, err := c.extractor.Pages(data)
	if err != nil {
		return nil, err
	}
	return c.ChunkPages(pages), nil
}

// ChunkPages chunks already-extracted page text.
func (c *WordChunker) ChunkPages(pages []string) []domain.Chunk {
	var chunks []domain.Chunk
	for _, page := range pages {
		words := strings.Fields(page)
		for i := 0; i < len(words); i += c.width {
			end := i + c.width
			if end > len(words) {
				end = len(words)
			}
			chunks = append(chunks, domain.Chunk{
				Index: len(chunks),
				Text:  strings.Join(words[i:end], " "),
			})
		}
	}
	return chunks
}
