package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"chapterqa/internal/domain"
	"chapterqa/internal/location"
	"chapterqa/internal/quiz"
	"chapterqa/internal/rank"
)

const (
	DefaultAnswerTopK = 3
	DefaultQuizTopK   = 10

	NoInformationAnswer      = "I couldn't find any relevant information in this document to answer that question."
	GenerationFallbackAnswer = "I encountered an error while generating an answer. Please try again."
)

// Stage names a step of the request pipeline in logs and wrapped errors.
type Stage string

const (
	StageResolveIdentity Stage = "resolve_identity"
	StageLoadOrBuild     Stage = "load_or_build_chunks"
	StageRank            Stage = "rank"
	StageAssembleContext Stage = "assemble_context"
	StageSynthesize      Stage = "synthesize"
)

// Ranker orders chunks by relevance to a query.
type Ranker interface {
	Rank(ctx context.Context, chunks []domain.Chunk, query string, k int) ([]domain.ScoredChunk, error)
}

// Deps are the collaborators the service is built from.
type Deps struct {
	Chunker   domain.Chunker
	Store     domain.ChunkStore
	Objects   domain.ObjectStore
	Ranker    Ranker
	Generator domain.Generator
	Logger    *slog.Logger
}

type Options struct {
	AnswerTopK int
	QuizTopK   int
	// Now stamps new chunk sets; defaults to time.Now.
	Now func() time.Time
}

type SubmitStatus string

const (
	StatusProcessed SubmitStatus = "processed"
	StatusCached    SubmitStatus = "cached"
)

type SubmitResult struct {
	Location   domain.Location
	Identity   domain.DocumentIdentity
	Status     SubmitStatus
	ChunkCount int
}

// Answer is the outcome of Ask. Context and Sources are empty when the
// document has no text.
type Answer struct {
	Text    string
	Context string
	Sources []domain.ScoredChunk
}

type QuizRequest struct {
	Location   string
	Topic      string
	Difficulty string
	Count      int
}

type RAGService struct {
	chunker   domain.Chunker
	store     domain.ChunkStore
	objects   domain.ObjectStore
	ranker    Ranker
	generator domain.Generator
	logger    *slog.Logger
	opts      Options

	builds singleflight.Group
}

func NewRAGService(deps Deps, opts Options) *RAGService {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.AnswerTopK <= 0 {
		opts.AnswerTopK = DefaultAnswerTopK
	}
	if opts.QuizTopK <= 0 {
		opts.QuizTopK = DefaultQuizTopK
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RAGService{
		chunker:   deps.Chunker,
		store:     deps.Store,
		objects:   deps.Objects,
		ranker:    deps.Ranker,
		generator: deps.Generator,
		logger:    deps.Logger,
		opts:      opts,
	}
}

// SubmitDocument makes sure the chunks of a document are cached. Only the
// first call for a document fetches and chunks it.
func (s *RAGService) SubmitDocument(ctx context.Context, raw string) (*SubmitResult, error) {
	return s.submit(ctx, raw, false)
}

// RefreshDocument fetches and chunks a document again, replacing whatever
// is cached for it.
func (s *RAGService) RefreshDocument(ctx context.Context, raw string) (*SubmitResult, error) {
	return s.submit(ctx, raw, true)
}

func (s *RAGService) submit(ctx context.Context, raw string, force bool) (*SubmitResult, error) {
	loc, id, err := s.resolve(raw)
	if err != nil {
		return nil, err
	}
	set, built, err := s.loadOrBuild(ctx, loc, id, force)
	if err != nil {
		return nil, s.fail(raw, StageLoadOrBuild, err)
	}
	res := &SubmitResult{Location: loc, Identity: id, Status: StatusCached, ChunkCount: set.Len()}
	if built {
		res.Status = StatusProcessed
	}
	return res, nil
}

// Ask answers a question from the most relevant chunks of a document.
// Generation failures are not returned: the answer carries
// GenerationFallbackAnswer instead.
func (s *RAGService) Ask(ctx context.Context, raw, question string) (*Answer, error) {
	loc, id, err := s.resolve(raw)
	if err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, s.fail(raw, StageResolveIdentity, fmt.Errorf("%w: question is empty", domain.ErrInvalidRequest))
	}
	set, _, err := s.loadOrBuild(ctx, loc, id, false)
	if err != nil {
		return nil, s.fail(raw, StageLoadOrBuild, err)
	}
	if set.Len() == 0 {
		s.logger.Info("document has no text", "location", raw, "identity", id)
		return &Answer{Text: NoInformationAnswer}, nil
	}

	rankCtx := rank.WithLogger(ctx, s.logger.With("location", raw, "stage", string(StageRank)))
	ranked, err := s.ranker.Rank(rankCtx, set.Chunks, question, s.opts.AnswerTopK)
	if err != nil {
		return nil, s.fail(raw, StageRank, err)
	}
	contextText := AssembleContext(ranked)
	if contextText == "" {
		s.logger.Warn("no context assembled", "location", raw, "stage", string(StageAssembleContext), "ranked", len(ranked))
		return &Answer{Text: NoInformationAnswer, Sources: ranked}, nil
	}

	ans := &Answer{Context: contextText, Sources: ranked}
	text, err := s.generator.Complete(ctx, AnswerPrompt(contextText, question))
	if err != nil {
		s.logger.Error("generation failed, returning fallback answer",
			"location", raw, "stage", string(StageSynthesize), "generator", s.generator.Name(), "err", err)
		ans.Text = GenerationFallbackAnswer
		return ans, nil
	}
	ans.Text = strings.TrimSpace(text)
	s.logger.Info("question answered", "location", raw, "identity", id, "chunks", len(ranked), "context_chars", len(contextText))
	return ans, nil
}

// GenerateQuiz writes multiple-choice questions from a broad selection of
// chunks. Without a topic the leading chunks of the document are used.
func (s *RAGService) GenerateQuiz(ctx context.Context, req QuizRequest) ([]quiz.Question, error) {
	difficulty, err := quiz.ParseDifficulty(req.Difficulty)
	if err != nil {
		return nil, s.fail(req.Location, StageResolveIdentity, err)
	}
	count := req.Count
	if count == 0 {
		count = quiz.DefaultCount
	}
	if count < 0 || count > quiz.MaxCount {
		return nil, s.fail(req.Location, StageResolveIdentity,
			fmt.Errorf("%w: count must be between 1 and %d", domain.ErrInvalidRequest, quiz.MaxCount))
	}
	loc, id, err := s.resolve(req.Location)
	if err != nil {
		return nil, err
	}
	set, _, err := s.loadOrBuild(ctx, loc, id, false)
	if err != nil {
		return nil, s.fail(req.Location, StageLoadOrBuild, err)
	}
	if set.Len() == 0 {
		return nil, s.fail(req.Location, StageLoadOrBuild, fmt.Errorf("%w: document has no text", domain.ErrNoValidQuestions))
	}

	var selected []domain.ScoredChunk
	if topic := strings.TrimSpace(req.Topic); topic != "" {
		rankCtx := rank.WithLogger(ctx, s.logger.With("location", req.Location, "stage", string(StageRank)))
		selected, err = s.ranker.Rank(rankCtx, set.Chunks, topic, s.opts.QuizTopK)
		if err != nil {
			return nil, s.fail(req.Location, StageRank, err)
		}
	} else {
		for _, ch := range set.Chunks[:min(s.opts.QuizTopK, set.Len())] {
			selected = append(selected, domain.ScoredChunk{Chunk: ch})
		}
	}
	contextText := AssembleContext(selected)

	completion, err := s.generator.Complete(ctx, quiz.Prompt(contextText, req.Topic, difficulty, count))
	if err != nil {
		if !errors.Is(err, domain.ErrGenerationUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrGenerationUnavailable, err)
		}
		return nil, s.fail(req.Location, StageSynthesize, err)
	}
	questions := quiz.Parse(completion)
	if len(questions) == 0 {
		return nil, s.fail(req.Location, StageSynthesize, domain.ErrNoValidQuestions)
	}
	if len(questions) > count {
		questions = questions[:count]
	}
	s.logger.Info("quiz generated", "location", req.Location, "identity", id, "difficulty", string(difficulty), "questions", len(questions))
	return questions, nil
}

// AssembleContext joins chunk texts with single spaces after replacing
// newlines with spaces.
func AssembleContext(chunks []domain.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, strings.ReplaceAll(c.Chunk.Text, "\n", " "))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// AnswerPrompt builds the question-answering prompt.
func AnswerPrompt(contextText, question string) domain.Prompt {
	return domain.Prompt{
		Kind:     domain.PromptAnswer,
		Role:     "You are an expert educational assistant. Provide detailed, structured answers to student questions.",
		Context:  contextText,
		Question: question,
		Instructions: "Format your answer with:\n" +
			"- Bold for key terms\n" +
			"- Italics for emphasis\n" +
			"- Lists for multiple items\n" +
			"- Tables for comparative data\n" +
			"- Headings for sections\n" +
			"- Clear explanations with examples where needed\n\n" +
			"Answer in detail, covering all relevant aspects from the context. " +
			"If the question can't be answered from the context, say so explicitly.",
	}
}

func (s *RAGService) resolve(raw string) (domain.Location, domain.DocumentIdentity, error) {
	loc, err := location.Parse(raw)
	if err != nil {
		return domain.Location{}, "", s.fail(raw, StageResolveIdentity, err)
	}
	return loc, location.Identity(loc), nil
}

// loadOrBuild returns the cached chunk set, building it when absent or when
// force is set. Concurrent builds of one identity share a single fetch.
func (s *RAGService) loadOrBuild(ctx context.Context, loc domain.Location, id domain.DocumentIdentity, force bool) (*domain.ChunkSet, bool, error) {
	if !force {
		set, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if set != nil {
			return set, false, nil
		}
	}
	// The shared build outlives any one caller; each caller still stops
	// waiting when its own context ends.
	buildCtx := context.WithoutCancel(ctx)
	results := s.builds.DoChan(string(id), func() (any, error) {
		return s.build(buildCtx, loc, id)
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-results:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*domain.ChunkSet).Clone(), true, nil
	}
}

func (s *RAGService) build(ctx context.Context, loc domain.Location, id domain.DocumentIdentity) (*domain.ChunkSet, error) {
	data, path, err := s.fetch(ctx, loc)
	if err != nil {
		return nil, err
	}
	chunks, err := s.chunker.Chunk(data)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", loc, err)
	}
	sum := sha256.Sum256(data)
	set := &domain.ChunkSet{
		Identity:    id,
		Chunks:      chunks,
		Fingerprint: hex.EncodeToString(sum[:]),
		CreatedAt:   s.opts.Now().UTC(),
	}
	if err := s.store.Put(ctx, set); err != nil {
		return nil, err
	}
	s.logger.Info("document chunked", "location", loc.String(), "object", path, "identity", id, "bytes", len(data), "chunks", len(chunks))
	return set, nil
}

// fetch tries each spelling of the path in order and stops at the first hit.
// Only not-found misses move on to the next spelling.
func (s *RAGService) fetch(ctx context.Context, loc domain.Location) ([]byte, string, error) {
	variants := location.Variants(loc.Path)
	for _, v := range variants {
		data, err := s.objects.Fetch(ctx, loc.Container, v)
		if err == nil {
			return data, v, nil
		}
		if !errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, "", fmt.Errorf("fetch %s/%s: %w", loc.Container, v, err)
		}
		s.logger.Debug("object missing, trying next spelling", "container", loc.Container, "path", v)
	}
	return nil, "", fmt.Errorf("%w: %s (tried %s)", domain.ErrDocumentNotFound, loc, strings.Join(variants, ", "))
}

// fail logs a failed request with its stage and wraps err with the stage name.
func (s *RAGService) fail(raw string, stage Stage, err error) error {
	level := slog.LevelError
	if isCallerError(err) {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, "request failed", "location", raw, "stage", string(stage), "err", err)
	return fmt.Errorf("%s: %w", stage, err)
}

func isCallerError(err error) bool {
	return errors.Is(err, domain.ErrInvalidLocation) ||
		errors.Is(err, domain.ErrInvalidRequest) ||
		errors.Is(err, domain.ErrDocumentNotFound)
}
