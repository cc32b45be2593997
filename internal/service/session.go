package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"usbmap/internal/adapter"
	"usbmap/internal/codec"
	"usbmap/internal/config"
	"usbmap/internal/core/merge"
	"usbmap/internal/domain"
	"usbmap/internal/logger"
	"usbmap/internal/repository"
)

// ErrHistoryUnsupported is returned by History and Restore when the store
// keeps no checkpoints.
var ErrHistoryUnsupported = errors.New("the configured store keeps no checkpoint history")

// Session is one operator session over the persisted topology
type Session struct {
	store     repository.Store
	settings  config.Settings
	outputDir string
	topo      *domain.Topology
	// defaulted is set once unset selections have been filled in.
	defaulted bool
	events    *EventBus
	log       zerolog.Logger
}

// Open loads the stored topology. The store is expected to hold the
// session lock already; Close releases it.
func Open(ctx context.Context, store repository.Store, cfg *config.Config) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	t, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load topology: %w", err)
	}

	s := &Session{
		store:     store,
		settings:  cfg.Settings,
		outputDir: cfg.Output.Dir,
		topo:      t,
		events:    NewEventBus(),
		log:       logger.WithComponent("session"),
	}
	s.log.Debug().Int("controllers", len(t.Controllers)).Msg("session opened")
	return s, nil
}

// Close releases the store
func (s *Session) Close() error {
	return s.store.Close()
}

// Events returns the session's event bus
func (s *Session) Events() *EventBus {
	return s.events
}

// Settings returns the operator settings in effect
func (s *Session) Settings() config.Settings {
	return s.settings
}

// Topology returns the session's topology. Callers must not modify it.
func (s *Session) Topology() *domain.Topology {
	return s.topo
}

// ApplySnapshot folds a fresh snapshot into the topology. On a merge
// violation the topology is left exactly as it was.
func (s *Session) ApplySnapshot(fresh *domain.Topology) error {
	next := s.topo.Clone()
	if err := merge.Merge(next, fresh); err != nil {
		return err
	}

	before := len(s.topo.Controllers)
	s.topo = next
	s.defaulted = false

	s.log.Info().
		Int("controllers", len(next.Controllers)).
		Int("new_controllers", len(next.Controllers)-before).
		Msg("snapshot merged")
	s.events.Publish(Event{
		Type:    EventSnapshotMerged,
		Payload: map[string]int{"controllers": len(next.Controllers)},
	})
	return nil
}

// Discover collects one snapshot, merges it and checkpoints the result.
func (s *Session) Discover(ctx context.Context, c adapter.Collector) error {
	fresh, err := c.Collect(ctx)
	if err != nil {
		return err
	}
	if err := s.ApplySnapshot(fresh); err != nil {
		return err
	}
	return s.Checkpoint(ctx)
}

// Checkpoint writes the whole topology back to the store
func (s *Session) Checkpoint(ctx context.Context) error {
	if err := s.store.Save(ctx, s.topo); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	s.events.Publish(Event{Type: EventCheckpointSaved})
	return nil
}

// Reset deletes the persisted topology and starts over empty
func (s *Session) Reset(ctx context.Context) error {
	if err := s.store.Delete(ctx); err != nil {
		return fmt.Errorf("reset topology: %w", err)
	}
	s.topo = domain.NewTopology()
	s.defaulted = false

	s.log.Warn().Msg("topology reset")
	s.events.Publish(Event{Type: EventTopologyReset})
	return nil
}

// Export writes the topology in the given format ("json" or "yaml").
func (s *Session) Export(w io.Writer, format string) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	return c.Export(s.topo, w)
}

// History lists stored checkpoints, newest first
func (s *Session) History(ctx context.Context, limit int) ([]repository.Checkpoint, error) {
	hs, ok := s.store.(repository.HistoryStore)
	if !ok {
		return nil, ErrHistoryUnsupported
	}
	return hs.History(ctx, limit)
}

// Restore makes an earlier checkpoint the session's topology
func (s *Session) Restore(ctx context.Context, id string) error {
	hs, ok := s.store.(repository.HistoryStore)
	if !ok {
		return ErrHistoryUnsupported
	}
	t, err := hs.Restore(ctx, id)
	if err != nil {
		return err
	}
	s.topo = t
	s.defaulted = false

	s.events.Publish(Event{Type: EventTopologyRestored, Payload: map[string]string{"checkpoint": id}})
	return nil
}
