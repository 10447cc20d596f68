// Package gcs fetches documents from Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"chapterqa/internal/domain"
)

const defaultMaxBytes = 64 << 20

type Config struct {
	CredentialsFile string
	// Endpoint overrides the JSON API base path (emulators, tests).
	Endpoint  string
	Anonymous bool
	MaxBytes  int64
}

type Storage struct {
	svc      *storage.Service
	maxBytes int64
	logger   *slog.Logger
}

func NewStorage(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Anonymous {
		opts = append(opts, option.WithoutAuthentication())
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	return &Storage{svc: svc, maxBytes: cfg.MaxBytes, logger: logger}, nil
}

func (s *Storage) Fetch(ctx context.Context, container, path string) ([]byte, error) {
	resp, err := s.svc.Objects.Get(container, path).Context(ctx).Download()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: gs://%s/%s", domain.ErrDocumentNotFound, container, path)
		}
		return nil, fmt.Errorf("download gs://%s/%s: %w", container, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", container, path, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: gs://%s/%s is larger than %d bytes", domain.ErrUnreadableDocument, container, path, s.maxBytes)
	}
	s.logger.Debug("object downloaded", "bucket", container, "object", path, "bytes", len(data))
	return data, nil
}
