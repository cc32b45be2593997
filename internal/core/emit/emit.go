// Package emit turns a curated topology into the driver-loader configuration.
//
// Build is all or nothing: if any controller that would be emitted has no
// usable matching key, no configuration is returned.
package emit

import (
	"errors"
	"fmt"
	"strconv"

	"usbmap/internal/core/encoding"
	"usbmap/internal/core/matchkey"
	"usbmap/internal/domain"
)

// EmptyPolicy says what to do with controllers that have no selected port.
type EmptyPolicy string

const (
	// EmptyIgnore leaves such controllers out of the configuration.
	EmptyIgnore EmptyPolicy = "ignore"
	// EmptyDisable emits them with no ports, disabling every port.
	EmptyDisable EmptyPolicy = "disable"
)

// Valid reports whether p is a known policy.
func (p EmptyPolicy) Valid() bool {
	return p == EmptyIgnore || p == EmptyDisable
}

// Mode selects the personality flavour.
type Mode int

const (
	ModeToolBox Mode = iota
	ModeNative
	ModeNativeLegacy
)

// BundleName is the kext directory name written for the mode.
func (m Mode) BundleName() string {
	switch m {
	case ModeNative:
		return "USBMap.kext"
	case ModeNativeLegacy:
		return "USBMapLegacy.kext"
	default:
		return "UTBMap.kext"
	}
}

// Options mirror the operator's output settings.
type Options struct {
	Native           bool
	LegacyNative     bool
	ModelIdentifier  string // required in native modes
	AddComments      bool
	EmptyControllers EmptyPolicy
}

// Mode resolves the flags into a Mode. LegacyNative only applies together
// with Native.
func (o Options) Mode() Mode {
	switch {
	case o.Native && o.LegacyNative:
		return ModeNativeLegacy
	case o.Native:
		return ModeNative
	default:
		return ModeToolBox
	}
}

// PortEntry is one mapped port.
type PortEntry struct {
	Name      string
	Index     int
	Port      []byte
	Connector domain.ConnectorType
	Comment   string
}

// Personality is the configuration entry for one controller.
type Personality struct {
	Name       string
	Controller string
	Key        matchkey.Key
	Ports      []PortEntry
	PortCount  []byte
}

// Config is a complete emission result.
type Config struct {
	Mode            Mode
	ModelIdentifier string
	AddComments     bool
	Personalities   []Personality
}

// BundleName returns the kext directory name for the configuration.
func (c *Config) BundleName() string {
	return c.Mode.BundleName()
}

var errMissingModel = errors.New("native mode needs a model identifier")

// Build encodes the selected ports of t.
func Build(t *domain.Topology, opts Options) (*Config, error) {
	mode := opts.Mode()
	if mode != ModeToolBox && opts.ModelIdentifier == "" {
		return nil, errMissingModel
	}
	policy := opts.EmptyControllers
	if policy == "" {
		policy = EmptyIgnore
	}

	cfg := &Config{Mode: mode, ModelIdentifier: opts.ModelIdentifier, AddComments: opts.AddComments}
	names := make(map[string]int)

	for i := range t.Controllers {
		c := &t.Controllers[i]
		selected := c.SelectedPorts()
		if len(selected) == 0 && policy == EmptyIgnore {
			continue
		}

		key, err := matchkey.Choose(c, t.Controllers, matchkey.Options{Native: mode != ModeToolBox})
		if err != nil {
			return nil, err
		}

		ports, err := portEntries(c, selected)
		if err != nil {
			return nil, err
		}

		highest := -1
		for _, p := range selected {
			if p.Index > highest {
				highest = p.Index
			}
		}

		count, err := encoding.Index(highest + 1)
		if err != nil {
			return nil, fmt.Errorf("controller %q port count: %w", c.Name, err)
		}

		cfg.Personalities = append(cfg.Personalities, Personality{
			Name:       uniqueName(names, personalityName(c, t.Controllers)),
			Controller: c.Name,
			Key:        key,
			Ports:      ports,
			PortCount:  encoding.Uint32(count),
		})
	}
	return cfg, nil
}

func portEntries(c *domain.Controller, selected []*domain.Port) ([]PortEntry, error) {
	counters := make(map[string]int)
	entries := make([]PortEntry, 0, len(selected))
	for _, p := range selected {
		connector, ok := p.Connector()
		if !ok {
			return nil, fmt.Errorf("controller %q port %q has no connector type", c.Name, p.Name)
		}
		index, err := encoding.Index(p.Index)
		if err != nil {
			return nil, fmt.Errorf("controller %q port %q index: %w", c.Name, p.Name, err)
		}

		prefix := portPrefix(c.Class, p.Class)
		counters[prefix]++

		e := PortEntry{
			Name:      encoding.PaddedName(prefix, counters[prefix], 4),
			Index:     p.Index,
			Port:      encoding.Uint32(index),
			Connector: connector,
		}
		if p.Comment != nil {
			e.Comment = *p.Comment
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func portPrefix(class domain.ControllerClass, speed domain.Speed) string {
	if class == domain.ControllerXHCI {
		switch {
		case speed.IsSuperSpeed():
			return "SS"
		case speed == domain.SpeedHigh:
			return "HS"
		}
	}
	return "PRT"
}

// personalityName prefers the unique ACPI leaf, then the full ACPI path, the
// BDF and finally the display name.
func personalityName(c *domain.Controller, all []domain.Controller) string {
	ids := c.Identifiers
	switch {
	case ids.ACPIPath != "":
		if matchkey.Unique(c, all, matchkey.ACPILeafField) {
			return ids.ACPILeaf()
		}
		if ids.ACPIPath[0] == '\\' {
			return ids.ACPIPath[1:]
		}
		return ids.ACPIPath
	case len(ids.BDF) > 0:
		return matchkey.BDFString(ids.BDF)
	default:
		return c.Name
	}
}

// uniqueName appends -2, -3 and so on to names already handed out.
func uniqueName(seen map[string]int, name string) string {
	if name == "" {
		name = "Controller"
	}
	seen[name]++
	if seen[name] == 1 {
		return name
	}
	for n := seen[name]; ; n++ {
		candidate := name + "-" + strconv.Itoa(n)
		if seen[candidate] == 0 {
			seen[candidate] = 1
			return candidate
		}
	}
}
