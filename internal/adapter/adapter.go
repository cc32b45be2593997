package adapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"usbmap/internal/domain"
)

// Collector produces one snapshot of the host's USB topology
type Collector interface {
	// Name returns the unique identifier for this collector
	Name() string

	// Collect gathers a fresh snapshot
	Collect(ctx context.Context) (*domain.Topology, error)
}

// normalize fills display fields a dump left blank. Lookups that come back
// empty leave the field as it was.
func normalize(t *domain.Topology, log zerolog.Logger) {
	for ci := range t.Controllers {
		c := &t.Controllers[ci]
		if c.Name == "" {
			name, err := lookupString(c.Properties, "name", "product", "device_name")
			if err != nil {
				log.Debug().Err(err).Int("controller", ci).Msg("controller has no name")
			}
			c.Name = name
		}
		if c.Name == "" {
			c.Name = fmt.Sprintf("Controller %d", ci+1)
		}
		for pi := range c.Ports {
			p := &c.Ports[pi]
			if p.Name == "" {
				p.Name = fmt.Sprintf("Port %d", p.Index)
			}
		}
	}
}

// lookupString returns the first non-empty string property among keys.
func lookupString(props map[string]any, keys ...string) (string, error) {
	for _, k := range keys {
		if v, ok := props[k].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), nil
		}
	}
	return "", fmt.Errorf("%s: %w", strings.Join(keys, "/"), domain.ErrLookupMiss)
}
