// Package server exposes the question-answering pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chapterqa/internal/quiz"
	"chapterqa/internal/service"
)

// Pipeline is the part of the service the HTTP layer calls.
type Pipeline interface {
	SubmitDocument(ctx context.Context, raw string) (*service.SubmitResult, error)
	RefreshDocument(ctx context.Context, raw string) (*service.SubmitResult, error)
	Ask(ctx context.Context, raw, question string) (*service.Answer, error)
	GenerateQuiz(ctx context.Context, req service.QuizRequest) ([]quiz.Question, error)
}

type Config struct {
	Addr         string
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Server struct {
	cfg      Config
	pipeline Pipeline
	logger   *slog.Logger
	router   *gin.Engine
}

func New(cfg Config, pipeline Pipeline, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	switch cfg.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{cfg: cfg, pipeline: pipeline, logger: logger, router: gin.New()}
	s.router.Use(gin.Recovery(), requestIDMiddleware(), accessLogMiddleware(logger))
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	api := s.router.Group("/api")
	api.POST("/chat/submit-path", s.submitPath)
	api.POST("/chat/ask", s.ask)
	api.POST("/quiz", s.generateQuiz)
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
