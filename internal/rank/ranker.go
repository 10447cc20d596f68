// Package rank orders chunks by embedding similarity to a query.
package rank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"chapterqa/internal/domain"
)

// Policy decides what happens to chunks with non-positive scores.
type Policy string

const (
	// PolicyStrict returns the top k by score whatever their sign.
	PolicyStrict Policy = "strict"
	// PolicyFiltered drops non-positive scores and, when nothing is left,
	// falls back to the first k chunks in document order.
	PolicyFiltered Policy = "filtered"
)

// ParsePolicy maps a config value to a Policy; empty means filtered.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyFiltered:
		return PolicyFiltered, nil
	case PolicyStrict:
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown ranking policy %q", s)
	}
}

type Ranker struct {
	embedder domain.Embedder
	policy   Policy
	logger   *slog.Logger
}

func New(embedder domain.Embedder, policy Policy, logger *slog.Logger) *Ranker {
	if policy == "" {
		policy = PolicyFiltered
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ranker{embedder: embedder, policy: policy, logger: logger}
}

type loggerKey struct{}

// WithLogger returns a context whose Rank calls log through logger instead
// of the ranker's own, so warnings carry request attributes.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

func (r *Ranker) loggerFor(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return r.logger
}

// Policy returns the configured policy.
func (r *Ranker) Policy() Policy { return r.policy }

// Rank returns at most min(k, len(chunks)) chunks, most relevant first.
// Scores are raw dot products; ties keep document order. A chunk whose
// embedding fails is skipped; a query embedding failure is fatal.
func (r *Ranker) Rank(ctx context.Context, chunks []domain.Chunk, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 || len(chunks) == 0 {
		return nil, nil
	}
	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", domain.ErrEmbeddingUnavailable, err)
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cv, err := r.embedder.Embed(ctx, ch.Text)
		if err != nil {
			r.loggerFor(ctx).Warn("skipping chunk, embedding failed", "chunk", ch.Index, "err", err)
			continue
		}
		scored = append(scored, domain.ScoredChunk{Chunk: ch, Score: dot(qv, cv)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if r.policy == PolicyStrict {
		return head(scored, k), nil
	}

	positive := make([]domain.ScoredChunk, 0, len(scored))
	for _, s := range scored {
		if s.Score > 0 {
			positive = append(positive, s)
		}
	}
	if len(positive) > 0 {
		return head(positive, k), nil
	}
	r.loggerFor(ctx).Debug("no chunk scored above zero, using leading chunks", "k", k)
	return leading(chunks, scored, k), nil
}

// leading returns the first k chunks in document order with whatever score
// they were given.
func leading(chunks []domain.Chunk, scored []domain.ScoredChunk, k int) []domain.ScoredChunk {
	scores := make(map[int]float64, len(scored))
	for _, s := range scored {
		scores[s.Chunk.Index] = s.Score
	}
	n := min(k, len(chunks))
	out := make([]domain.ScoredChunk, n)
	for i := 0; i < n; i++ {
		out[i] = domain.ScoredChunk{Chunk: chunks[i], Score: scores[chunks[i].Index]}
	}
	return out
}

func head(s []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if k > len(s) {
		k = len(s)
	}
	return s[:k]
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
