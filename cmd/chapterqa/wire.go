package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"chapterqa/internal/chunker"
	"chapterqa/internal/chunkstore/file"
	"chapterqa/internal/chunkstore/memory"
	"chapterqa/internal/chunkstore/sqlite"
	"chapterqa/internal/config"
	"chapterqa/internal/domain"
	"chapterqa/internal/embedding"
	"chapterqa/internal/embedding/hashing"
	embopenai "chapterqa/internal/embedding/openai"
	"chapterqa/internal/generation/extractive"
	genopenai "chapterqa/internal/generation/openai"
	"chapterqa/internal/objectstore/fs"
	"chapterqa/internal/objectstore/gcs"
	"chapterqa/internal/rank"
	"chapterqa/internal/service"
)

// app is the assembled pipeline plus what must be closed on exit.
type app struct {
	svc   *service.RAGService
	store domain.ChunkStore
}

func (a *app) Close() error { return a.store.Close() }

func newLogger(cfg config.LogConfig, override string) (*slog.Logger, error) {
	levelName := cfg.Level
	if override != "" {
		levelName = override
	}
	level, err := config.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

func buildApp(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var extractor chunker.PageExtractor
	switch cfg.Chunker.Format {
	case "pdf", "":
		extractor = chunker.NewPDFExtractor()
	case "text":
		extractor = chunker.NewTextExtractor()
	default:
		return nil, fmt.Errorf("unknown chunker format: %s", cfg.Chunker.Format)
	}
	ch := chunker.NewWordChunker(extractor, cfg.Chunker.Width)

	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "hashing", "":
		emb = hashing.NewEmbedder(cfg.Embedder.Dimension)
	case "openai":
		o := cfg.Embedder.OpenAI
		if o == nil {
			o = &config.OpenAIEmbedderConfig{APIKeyEnv: "OPENAI_API_KEY"}
		}
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:           o.BaseURL,
			APIKeyEnv:         o.APIKeyEnv,
			Model:             o.Model,
			Timeout:           time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries:        o.MaxRetries,
			RequestsPerSecond: o.RequestsPerSecond,
			Dimensions:        o.Dimensions,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		emb = client
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
	if cfg.Embedder.CacheEntries > 0 {
		emb = embedding.NewCache(emb, cfg.Embedder.CacheEntries)
	}

	policy, err := rank.ParsePolicy(cfg.Ranker.Policy)
	if err != nil {
		return nil, err
	}
	ranker := rank.New(emb, policy, logger.With("component", "ranker"))

	var gen domain.Generator
	switch cfg.Generator.Type {
	case "extractive":
		gen = extractive.New(cfg.Generator.MaxSentences)
	case "openai", "":
		o := cfg.Generator.OpenAI
		if o == nil {
			o = &config.OpenAIGeneratorConfig{APIKeyEnv: "OPENAI_API_KEY"}
		}
		client, err := genopenai.NewClient(genopenai.Config{
			BaseURL:     o.BaseURL,
			APIKeyEnv:   o.APIKeyEnv,
			Model:       o.Model,
			Timeout:     time.Duration(o.TimeoutSecs) * time.Second,
			MaxRetries:  o.MaxRetries,
			Temperature: o.Temperature,
			MaxTokens:   o.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("openai generator init failed: %w", err)
		}
		gen = client
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}

	var objects domain.ObjectStore
	switch cfg.ObjectStore.Type {
	case "fs":
		st, err := fs.NewStorage(cfg.ObjectStore.Root)
		if err != nil {
			return nil, err
		}
		objects = st
	case "gcs", "":
		g := cfg.ObjectStore.GCS
		if g == nil {
			g = &config.GCSConfig{}
		}
		st, err := gcs.NewStorage(ctx, gcs.Config{
			CredentialsFile: g.CredentialsFile,
			Endpoint:        g.Endpoint,
			Anonymous:       g.Anonymous,
			MaxBytes:        g.MaxBytes,
		}, logger.With("component", "gcs"))
		if err != nil {
			return nil, fmt.Errorf("gcs init failed: %w", err)
		}
		objects = st
	default:
		return nil, fmt.Errorf("unknown object store: %s", cfg.ObjectStore.Type)
	}

	var store domain.ChunkStore
	switch cfg.ChunkStore.Type {
	case "file", "":
		st, err := file.NewStorage(cfg.ChunkStore.Dir)
		if err != nil {
			return nil, err
		}
		store = st
	case "sqlite":
		st, err := sqlite.NewStorage(cfg.ChunkStore.Path, logger.With("component", "sqlite"))
		if err != nil {
			return nil, err
		}
		store = st
	case "memory":
		store = memory.NewStorage()
	default:
		return nil, fmt.Errorf("unknown chunk store: %s", cfg.ChunkStore.Type)
	}

	svc := service.NewRAGService(service.Deps{
		Chunker:   ch,
		Store:     store,
		Objects:   objects,
		Ranker:    ranker,
		Generator: gen,
		Logger:    logger.With("component", "service"),
	}, service.Options{
		AnswerTopK: cfg.Ranker.AnswerTopK,
		QuizTopK:   cfg.Ranker.QuizTopK,
	})
	logger.Debug("pipeline assembled",
		"chunker", cfg.Chunker.Format, "embedder", emb.Name(), "policy", string(policy),
		"generator", gen.Name(), "objects", cfg.ObjectStore.Type, "store", cfg.ChunkStore.Type)
	return &app{svc: svc, store: store}, nil
}
