package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"chapterqa/internal/chunkstore"
	"chapterqa/internal/domain"
)

const suffix = "_chunks.json"

// Storage writes one JSON record per document identity into a directory.
type Storage struct {
	dir string
}

type record struct {
	Identity    domain.DocumentIdentity `json:"identity"`
	Fingerprint string                  `json:"fingerprint,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	Chunks      []string                `json:"chunks"`
}

// NewStorage creates dir if needed.
func NewStorage(dir string) (*Storage, error) {
	if dir == "" {
		return nil, errors.New("chunk store directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", domain.ErrStoreUnavailable, dir, err)
	}
	return &Storage{dir: dir}, nil
}

// Path returns the record file for id.
func (s *Storage) Path(id domain.DocumentIdentity) string {
	return filepath.Join(s.dir, string(id)+suffix)
}

func (s *Storage) Get(_ context.Context, id domain.DocumentIdentity) (*domain.ChunkSet, error) {
	if err := chunkstore.ValidateIdentity(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	texts, rec, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	set := &domain.ChunkSet{Identity: id, Chunks: make([]domain.Chunk, len(texts))}
	if rec != nil {
		set.Fingerprint = rec.Fingerprint
		set.CreatedAt = rec.CreatedAt
	}
	for i, t := range texts {
		set.Chunks[i] = domain.Chunk{Index: i, Text: t}
	}
	return set, nil
}

// decode accepts the current record shape and the older bare array of
// chunk strings.
func decode(data []byte) ([]string, *record, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err == nil {
		if rec.Chunks == nil {
			return nil, nil, errors.New("record has no chunks field")
		}
		return rec.Chunks, &rec, nil
	}
	var texts []string
	if err := json.Unmarshal(data, &texts); err != nil {
		return nil, nil, err
	}
	return texts, nil, nil
}

// Put writes the record to a temp file and renames it into place, so a
// reader sees either the previous record or the new one.
func (s *Storage) Put(_ context.Context, set *domain.ChunkSet) error {
	if err := chunkstore.ValidateSet(set); err != nil {
		return err
	}
	rec := record{
		Identity:    set.Identity,
		Fingerprint: set.Fingerprint,
		CreatedAt:   set.CreatedAt,
		Chunks:      set.Texts(),
	}
	if rec.Chunks == nil {
		rec.Chunks = []string{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrStoreUnavailable, set.Identity, err)
	}
	tmp, err := os.CreateTemp(s.dir, "."+string(set.Identity)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", domain.ErrStoreUnavailable, set.Identity, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", domain.ErrStoreUnavailable, set.Identity, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", domain.ErrStoreUnavailable, set.Identity, err)
	}
	if err := os.Rename(tmp.Name(), s.Path(set.Identity)); err != nil {
		return fmt.Errorf("%w: rename %s: %v", domain.ErrStoreUnavailable, set.Identity, err)
	}
	return nil
}

func (s *Storage) Close() error { return nil }
