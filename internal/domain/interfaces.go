package domain

import (
	"context"
	"time"
)

// Location names a source document in the object store.
type Location struct {
	Scheme    string
	Container string
	Path      string
}

func (l Location) String() string {
	scheme := l.Scheme
	if scheme == "" {
		scheme = "store"
	}
	return scheme + "://" + l.Container + "/" + l.Path
}

// DocumentIdentity is the normalized cache key of one source document.
type DocumentIdentity string

// Chunk is a contiguous slice of a document's extracted text.
// Index is its position within the document's chunk sequence.
type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ChunkSet is the full ordered chunk sequence of one document.
type ChunkSet struct {
	Identity    DocumentIdentity `json:"identity"`
	Chunks      []Chunk          `json:"chunks"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Len returns the number of chunks in the set.
func (cs *ChunkSet) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.Chunks)
}

// Texts returns the chunk texts in order.
func (cs *ChunkSet) Texts() []string {
	if cs == nil {
		return nil
	}
	out := make([]string, len(cs.Chunks))
	for i, c := range cs.Chunks {
		out[i] = c.Text
	}
	return out
}

// Clone returns a deep copy of the set.
func (cs *ChunkSet) Clone() *ChunkSet {
	if cs == nil {
		return nil
	}
	cp := *cs
	cp.Chunks = append([]Chunk(nil), cs.Chunks...)
	return &cp
}

// ScoredChunk is a chunk paired with its similarity to a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Chunker converts raw document bytes into an ordered chunk sequence.
type Chunker interface {
	Chunk(data []byte) ([]Chunk, error)
}

// ChunkStore caches chunk sets by document identity.
// Get returns (nil, nil) when nothing is stored for the identity.
type ChunkStore interface {
	Get(ctx context.Context, id DocumentIdentity) (*ChunkSet, error)
	Put(ctx context.Context, set *ChunkSet) error
	Close() error
}

// ObjectStore supplies raw document bytes.
type ObjectStore interface {
	Fetch(ctx context.Context, container, path string) ([]byte, error)
}

// Embedder converts free text into a numeric vector representation.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Generator produces a natural-language completion for a prompt.
type Generator interface {
	Name() string
	Complete(ctx context.Context, prompt Prompt) (string, error)
}
