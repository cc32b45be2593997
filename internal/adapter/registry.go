package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"usbmap/internal/config"
	"usbmap/internal/domain"
	"usbmap/internal/logger"
)

// ErrUnknownCollector is returned when a collector name is not registered.
var ErrUnknownCollector = errors.New("unknown collector")

// Registry holds the configured collectors by name, each wrapped in retry
type Registry struct {
	mu         sync.RWMutex
	collectors map[string]Collector
	policy     RetryPolicy
	log        zerolog.Logger
}

// NewRegistry creates an empty registry that wraps registrations with policy
func NewRegistry(policy RetryPolicy) *Registry {
	return &Registry{
		collectors: make(map[string]Collector),
		policy:     policy,
		log:        logger.WithComponent("collector.registry"),
	}
}

// Register adds a collector. Names must be unique.
func (r *Registry) Register(c Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.collectors[name]; exists {
		return fmt.Errorf("collector %s already registered", name)
	}
	if _, wrapped := c.(*Retrying); !wrapped {
		c = WithRetry(c, r.policy)
	}
	r.collectors[name] = c

	r.log.Debug().
		Str("collector", name).
		Uint("max_tries", r.policy.MaxTries).
		Dur("backoff", r.policy.Backoff).
		Msg("registered collector")
	return nil
}

// Get returns the retrying collector registered under name
func (r *Registry) Get(name string) (Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.collectors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollector, name)
	}
	return c, nil
}

// Names lists registered collectors in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Collect runs the named collector
func (r *Registry) Collect(ctx context.Context, name string) (*domain.Topology, error) {
	c, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return c.Collect(ctx)
}

// FromConfig builds a registry holding the collector cfg selects and returns
// it together with that collector's name.
func FromConfig(cfg config.CollectorConfig) (*Registry, string, error) {
	reg := NewRegistry(RetryPolicy{
		MaxTries: uint(max(cfg.MaxTries, 0)),
		Backoff:  cfg.Backoff.Duration(),
	})

	var c Collector
	switch cfg.Kind {
	case config.CollectorCommand:
		if len(cfg.Command) == 0 {
			return nil, "", errors.New("collector.command is empty")
		}
		c = NewCommandCollector(cfg.Command, cfg.Timeout.Duration())
	default:
		if cfg.Path == "" {
			return nil, "", errors.New("collector.path is required for the file collector")
		}
		c = NewFileCollector(cfg.Path)
	}

	if err := reg.Register(c); err != nil {
		return nil, "", err
	}
	return reg, c.Name(), nil
}
