package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"chapterqa/internal/chunkstore"
	"chapterqa/internal/domain"
)

// Storage persists chunk sets in a SQLite database.
type Storage struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStorage opens (and migrates) the database at dbPath.
func NewStorage(dbPath string, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create database directory %s: %v", domain.ErrStoreUnavailable, dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", domain.ErrStoreUnavailable, err)
	}
	// single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Storage{db: db, path: dbPath, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: migrate: %v", domain.ErrStoreUnavailable, err)
	}
	return s, nil
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunk_sets (
		identity    TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL DEFAULT '',
		chunk_count INTEGER NOT NULL,
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		identity TEXT NOT NULL REFERENCES chunk_sets(identity) ON DELETE CASCADE,
		idx      INTEGER NOT NULL,
		text     TEXT NOT NULL,
		PRIMARY KEY (identity, idx)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Storage) Path() string { return s.path }

func (s *Storage) Get(ctx context.Context, id domain.DocumentIdentity) (*domain.ChunkSet, error) {
	var (
		set       = &domain.ChunkSet{Identity: id}
		count     int
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT fingerprint, chunk_count, created_at FROM chunk_sets WHERE identity = ?`, string(id),
	).Scan(&set.Fingerprint, &count, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	if createdAt != "" {
		if set.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("%w: %s created_at: %v", domain.ErrStoreUnavailable, id, err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, text FROM chunks WHERE identity = ? ORDER BY idx`, string(id))
	if err != nil {
		return nil, fmt.Errorf("%w: read chunks %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	defer rows.Close()
	set.Chunks = make([]domain.Chunk, 0, count)
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.Index, &c.Text); err != nil {
			return nil, fmt.Errorf("%w: scan chunk %s: %v", domain.ErrStoreUnavailable, id, err)
		}
		if c.Index != len(set.Chunks) {
			return nil, fmt.Errorf("%w: %s chunk %d out of sequence", domain.ErrStoreUnavailable, id, c.Index)
		}
		set.Chunks = append(set.Chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read chunks %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	if len(set.Chunks) != count {
		return nil, fmt.Errorf("%w: %s has %d chunks, expected %d", domain.ErrStoreUnavailable, id, len(set.Chunks), count)
	}
	return set, nil
}

// Put replaces the stored set in one transaction.
func (s *Storage) Put(ctx context.Context, set *domain.ChunkSet) (err error) {
	if err := chunkstore.ValidateSet(set); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrStoreUnavailable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id := string(set.Identity)
	if _, err = tx.ExecContext(ctx, `DELETE FROM chunks WHERE identity = ?`, id); err != nil {
		return fmt.Errorf("%w: clear %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chunk_sets (identity, fingerprint, chunk_count, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(identity) DO UPDATE SET fingerprint = excluded.fingerprint,
		   chunk_count = excluded.chunk_count, created_at = excluded.created_at`,
		id, set.Fingerprint, len(set.Chunks), set.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (identity, idx, text) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrStoreUnavailable, err)
	}
	defer stmt.Close()
	for i, c := range set.Chunks {
		if _, err = stmt.ExecContext(ctx, id, i, c.Text); err != nil {
			return fmt.Errorf("%w: insert %s[%d]: %v", domain.ErrStoreUnavailable, id, i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit %s: %v", domain.ErrStoreUnavailable, id, err)
	}
	s.logger.Debug("chunk set stored", "identity", id, "chunks", len(set.Chunks))
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}
