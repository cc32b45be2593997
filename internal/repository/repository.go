package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"golang.org/x/crypto/blake2b"

	"usbmap/internal/domain"
)

var (
	// ErrLocked means another session holds the store.
	ErrLocked = errors.New("topology store is in use by another session")
	// ErrNotFound means a requested checkpoint does not exist.
	ErrNotFound = errors.New("checkpoint not found")
)

// Store persists the topology document
type Store interface {
	// Load returns the stored topology, or an empty one if nothing is stored.
	Load(ctx context.Context) (*domain.Topology, error)
	// Save replaces the stored topology atomically.
	Save(ctx context.Context, t *domain.Topology) error
	// Delete removes the stored topology entirely.
	Delete(ctx context.Context) error
	// Close releases the session lock
	Close() error
}

// Checkpoint describes one saved version of the topology
type Checkpoint struct {
	ID          string    `json:"id"`
	Digest      string    `json:"digest"`
	Controllers int       `json:"controllers"`
	CreatedAt   time.Time `json:"created_at"`
	Current     bool      `json:"current"`
}

// HistoryStore is a Store that keeps superseded checkpoints
type HistoryStore interface {
	Store
	History(ctx context.Context, limit int) ([]Checkpoint, error)
	Restore(ctx context.Context, id string) (*domain.Topology, error)
}

// Digest fingerprints an encoded document so unchanged checkpoints can be
// skipped.
func Digest(document []byte) string {
	sum := blake2b.Sum256(document)
	return hex.EncodeToString(sum[:])
}
