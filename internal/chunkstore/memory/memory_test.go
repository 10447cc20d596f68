package memory

import (
	"testing"

	"chapterqa/internal/chunkstore/storetest"
	"chapterqa/internal/domain"
)

func TestStorage_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.ChunkStore { return NewStorage() })
}
