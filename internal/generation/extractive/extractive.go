// Package extractive is an offline generation backend. It answers by
// quoting the context sentences that best match the question.
package extractive

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"chapterqa/internal/domain"
)

// DefaultMaxSentences is the answer length when none is configured.
const DefaultMaxSentences = 3

// NoMatchPrefix introduces an answer whose sentences share no terms with
// the question.
const NoMatchPrefix = "The context does not directly answer this question. The closest passages are:"

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]*`)

// Generator ranks context sentences by question-term overlap, breaking ties
// with normalized term frequency, and returns the best ones in their
// original order.
type Generator struct {
	maxSentences int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

func New(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Generator{
		maxSentences: maxSentences,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

func (g *Generator) Name() string { return "extractive" }

func (g *Generator) Complete(ctx context.Context, p domain.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
	}
	if p.Kind == domain.PromptQuiz {
		return "", fmt.Errorf("%w: extractive backend cannot write quizzes", domain.ErrGenerationUnavailable)
	}
	sentences := g.sentences(p.Context)
	if len(sentences) == 0 {
		return "", fmt.Errorf("%w: empty context", domain.ErrGenerationUnavailable)
	}

	query := map[string]struct{}{}
	for _, tok := range g.tokens(p.Question) {
		query[tok] = struct{}{}
	}

	// Compute word frequencies
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range g.tokens(sent) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx     int
		overlap int
		score   float64
	}
	scores := make([]scored, len(sentences))
	matched := false
	for i, sent := range sentences {
		toks := g.tokens(sent)
		s := scored{idx: i}
		seen := map[string]struct{}{}
		for _, tok := range toks {
			s.score += freq[tok]
			if _, ok := query[tok]; ok {
				if _, dup := seen[tok]; !dup {
					s.overlap++
					seen[tok] = struct{}{}
				}
			}
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(toks)); l > 0 {
			s.score /= math.Sqrt(l)
		}
		if s.overlap > 0 {
			matched = true
		}
		scores[i] = s
	}
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].overlap != scores[j].overlap {
			return scores[i].overlap > scores[j].overlap
		}
		return scores[i].score > scores[j].score
	})

	n := min(g.maxSentences, len(scores))
	if matched {
		for n > 1 && scores[n-1].overlap == 0 {
			n--
		}
	}
	// Keep original order among selected
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, n+1)
	if !matched {
		out = append(out, NoMatchPrefix)
	}
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

func (g *Generator) sentences(text string) []string {
	var out []string
	for _, s := range sentencePattern.FindAllString(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (g *Generator) tokens(text string) []string {
	raw := g.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := g.stopwords[t]; !isStop {
			out = append(out, t)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "whom", "how", "why", "when", "where", "does", "do", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
