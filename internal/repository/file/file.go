// Package file stores the topology as a single JSON document.
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"usbmap/internal/codec"
	"usbmap/internal/domain"
	"usbmap/internal/logger"
	"usbmap/internal/repository"
)

// Store implements repository.Store on a JSON file
type Store struct {
	path   string
	lock   *repository.SessionLock
	codec  codec.Codec
	digest string
	log    zerolog.Logger
}

// New opens the store at path and takes the session lock
func New(path string) (*Store, error) {
	lock, err := repository.AcquireLock(path)
	if err != nil {
		return nil, err
	}
	return &Store{
		path:  path,
		lock:  lock,
		codec: codec.NewJSONCodec(),
		log:   logger.WithComponent("store.file"),
	}, nil
}

// Path returns the document location
func (s *Store) Path() string {
	return s.path
}

// Load reads the document, returning an empty topology if it does not exist
func (s *Store) Load(ctx context.Context) (*domain.Topology, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Debug().Str("path", s.path).Msg("no stored topology, starting empty")
		return domain.NewTopology(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.NewTopology(), nil
	}

	t, err := s.codec.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	s.digest = repository.Digest(data)
	return t, nil
}

// Save writes the document to a temporary file and renames it over the old one
func (s *Store) Save(ctx context.Context, t *domain.Topology) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := s.codec.Export(t, &buf); err != nil {
		return err
	}
	digest := repository.Digest(buf.Bytes())
	if digest == s.digest {
		s.log.Debug().Msg("topology unchanged, skipping checkpoint")
		return nil
	}

	if err := writeAtomic(s.path, buf.Bytes()); err != nil {
		return fmt.Errorf("save topology: %w", err)
	}
	s.digest = digest
	s.log.Debug().Str("path", s.path).Int("controllers", len(t.Controllers)).Msg("checkpoint written")
	return nil
}

// Delete removes the document
func (s *Store) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete topology: %w", err)
	}
	s.digest = ""
	s.log.Info().Str("path", s.path).Msg("topology deleted")
	return nil
}

// Close releases the session lock
func (s *Store) Close() error {
	return s.lock.Release()
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return err
	}

	// Persist the rename itself.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}
