// Package sqlite stores the topology and its checkpoint history in SQLite.
package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"usbmap/internal/codec"
	"usbmap/internal/domain"
	"usbmap/internal/logger"
	"usbmap/internal/repository"

	_ "modernc.org/sqlite"
)

// DefaultHistory is how many superseded checkpoints are kept when the caller
// does not say.
const DefaultHistory = 20

// Repository implements repository.HistoryStore using SQLite
type Repository struct {
	db      *sql.DB
	lock    *repository.SessionLock
	codec   codec.Codec
	history int
	log     zerolog.Logger
}

// Option configures a Repository
type Option func(*Repository)

// WithHistory sets how many superseded checkpoints to keep. Zero keeps none.
func WithHistory(n int) Option {
	return func(r *Repository) {
		if n >= 0 {
			r.history = n
		}
	}
}

// New opens the database at dbPath, taking the session lock unless the
// database is in memory.
func New(dbPath string, opts ...Option) (*Repository, error) {
	var lock *repository.SessionLock
	if dbPath != ":memory:" {
		var err error
		lock, err = repository.AcquireLock(dbPath)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		_ = lock.Release()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps an in-memory database alive and serialises writes.
	db.SetMaxOpenConns(1)

	repo := &Repository{
		db:      db,
		lock:    lock,
		codec:   codec.NewJSONCodec(),
		history: DefaultHistory,
		log:     logger.WithComponent("store.sqlite"),
	}
	for _, opt := range opts {
		opt(repo)
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		_ = lock.Release()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	return "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		digest TEXT NOT NULL,
		document BLOB NOT NULL,
		controllers INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS head (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		checkpoint_id TEXT NOT NULL REFERENCES checkpoints(id)
	);

	CREATE INDEX IF NOT EXISTS idx_checkpoints_created ON checkpoints(created_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Load returns the current checkpoint, or an empty topology
func (r *Repository) Load(ctx context.Context) (*domain.Topology, error) {
	var document []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT c.document
		FROM head h
		JOIN checkpoints c ON c.id = h.checkpoint_id
		WHERE h.slot = 1
	`).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewTopology(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query current checkpoint: %w", err)
	}

	return r.decode(document)
}

// Save records t as a new checkpoint and makes it current. Saving a topology
// identical to the current one is a no-op.
func (r *Repository) Save(ctx context.Context, t *domain.Topology) error {
	var buf bytes.Buffer
	if err := r.codec.Export(t, &buf); err != nil {
		return err
	}
	document := buf.Bytes()
	digest := repository.Digest(document)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentDigest string
	err = tx.QueryRowContext(ctx, `
		SELECT c.digest FROM head h JOIN checkpoints c ON c.id = h.checkpoint_id
	`).Scan(&currentDigest)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to read current digest: %w", err)
	}
	if currentDigest == digest {
		r.log.Debug().Msg("topology unchanged, skipping checkpoint")
		return nil
	}

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO checkpoints (id, digest, document, controllers, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, digest, document, len(t.Controllers), formatTime(time.Now())); err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO head (slot, checkpoint_id) VALUES (1, ?)
		ON CONFLICT(slot) DO UPDATE SET checkpoint_id = excluded.checkpoint_id
	`, id); err != nil {
		return fmt.Errorf("failed to update current checkpoint: %w", err)
	}

	if err := r.prune(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	r.log.Debug().Str("checkpoint", id).Int("controllers", len(t.Controllers)).Msg("checkpoint written")
	return nil
}

// prune keeps the current checkpoint plus the newest r.history others.
func (r *Repository) prune(ctx context.Context, tx *sql.Tx, current string) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM checkpoints
		WHERE id != ?
		AND id NOT IN (
			SELECT id FROM checkpoints WHERE id != ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?
		)
	`, current, current, r.history)
	if err != nil {
		return fmt.Errorf("failed to prune checkpoints: %w", err)
	}
	return nil
}

// Delete removes the current topology and its history
func (r *Repository) Delete(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM head`); err != nil {
		return fmt.Errorf("failed to clear current checkpoint: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM checkpoints`); err != nil {
		return fmt.Errorf("failed to delete checkpoints: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	r.log.Info().Msg("topology deleted")
	return nil
}

// History lists checkpoints newest first. A limit of zero lists all.
func (r *Repository) History(ctx context.Context, limit int) ([]repository.Checkpoint, error) {
	query := `
		SELECT c.id, c.digest, c.controllers, c.created_at, h.checkpoint_id IS NOT NULL
		FROM checkpoints c
		LEFT JOIN head h ON h.checkpoint_id = c.id
		ORDER BY c.created_at DESC, c.rowid DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var out []repository.Checkpoint
	for rows.Next() {
		var (
			cp      repository.Checkpoint
			created string
		)
		if err := rows.Scan(&cp.ID, &cp.Digest, &cp.Controllers, &created, &cp.Current); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
		}
		cp.CreatedAt = parseTime(created)
		out = append(out, cp)
	}
	return out, rows.Err()
}

// Restore makes an earlier checkpoint current and returns its topology
func (r *Repository) Restore(ctx context.Context, id string) (*domain.Topology, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var document []byte
	err = tx.QueryRowContext(ctx, `SELECT document FROM checkpoints WHERE id = ?`, id).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoint: %w", err)
	}

	t, err := r.decode(document)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO head (slot, checkpoint_id) VALUES (1, ?)
		ON CONFLICT(slot) DO UPDATE SET checkpoint_id = excluded.checkpoint_id
	`, id); err != nil {
		return nil, fmt.Errorf("failed to update current checkpoint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit restore: %w", err)
	}

	r.log.Info().Str("checkpoint", id).Msg("checkpoint restored")
	return t, nil
}

// Close closes the database and releases the session lock
func (r *Repository) Close() error {
	err := r.db.Close()
	if lerr := r.lock.Release(); err == nil {
		err = lerr
	}
	return err
}

func (r *Repository) decode(document []byte) (*domain.Topology, error) {
	t, err := r.codec.Parse(bytes.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return t, nil
}
