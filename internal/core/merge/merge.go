// Package merge folds fresh collector snapshots into the persisted topology.
//
// Merging is idempotent: folding the same snapshot twice leaves the topology
// as it was after the first pass. Curated port fields survive because
// collectors never populate them, and a nil fresh value never replaces an
// existing one.
package merge

import (
	"fmt"
	"sort"

	"usbmap/internal/core/identity"
	"usbmap/internal/domain"
)

// Merge folds fresh into historical in place.
func Merge(historical, fresh *domain.Topology) error {
	if historical == nil {
		return fmt.Errorf("merge into nil topology")
	}
	if fresh == nil {
		return nil
	}
	if historical.Version == 0 {
		historical.Version = domain.TopologyVersion
	}

	pairs, err := mergeControllers(historical, fresh)
	if err != nil {
		return err
	}
	// Resolve pointers only after phase one; appends may move the backing array.
	for _, p := range pairs {
		if err := mergePorts(&historical.Controllers[p.historical], p.fresh); err != nil {
			return err
		}
	}
	return nil
}

type controllerPair struct {
	historical int
	fresh      *domain.Controller
}

// mergeControllers is the first phase. It returns the controllers that
// already existed so their ports can be merged once every controller has
// been placed.
func mergeControllers(historical, fresh *domain.Topology) ([]controllerPair, error) {
	var pairs []controllerPair
	for i := range fresh.Controllers {
		fc := &fresh.Controllers[i]
		idx := identity.Find(fc, historical.Controllers)
		if idx < 0 {
			historical.Controllers = append(historical.Controllers, newController(fc))
			continue
		}
		if err := Properties(&historical.Controllers[idx], fc); err != nil {
			return nil, fmt.Errorf("controller %q: %w", historical.Controllers[idx].Name, err)
		}
		pairs = append(pairs, controllerPair{historical: idx, fresh: fc})
	}
	return pairs, nil
}

func newController(fc *domain.Controller) domain.Controller {
	c := fc.Clone()
	for i := range c.Ports {
		c.Ports[i].Devices = mergeDevices(nil, c.Ports[i].Devices)
	}
	sortPorts(c.Ports)
	return c
}

func sortPorts(ports []domain.Port) {
	sort.SliceStable(ports, func(a, b int) bool {
		return ports[a].Index < ports[b].Index
	})
}

// mergePorts is the second phase. Ports are matched by index only.
func mergePorts(historical, fresh *domain.Controller) error {
	for i := range fresh.Ports {
		fp := &fresh.Ports[i]
		hp := historical.Port(fp.Index)
		if hp == nil {
			np := fp.Clone()
			np.Devices = mergeDevices(nil, np.Devices)
			historical.Ports = append(historical.Ports, np)
			continue
		}
		if err := Properties(hp, fp); err != nil {
			return fmt.Errorf("controller %q port %d: %w", historical.Name, fp.Index, err)
		}
		hp.Devices = mergeDevices(hp.Devices, fp.Devices)
	}
	sortPorts(historical.Ports)
	return nil
}

// mergeDevices is the third phase, applied recursively to hub children.
func mergeDevices(historical, fresh []domain.Device) []domain.Device {
	out := make([]domain.Device, 0, len(historical)+len(fresh))
	for _, d := range historical {
		out = append(out, d.Clone())
	}

	for _, fd := range fresh {
		if fd.IsFault() || fd.IsZero() || containsDevice(out, fd) {
			continue
		}
		if i := findByName(out, fd.Name); i >= 0 {
			out[i].Devices = mergeDevices(out[i].Devices, fd.Devices)
			if fd.Speed != 0 {
				out[i].Speed = fd.Speed
			}
			if fd.InstanceID != "" {
				out[i].InstanceID = fd.InstanceID
			}
			continue
		}
		out = append(out, fd.Clone())
	}

	return prune(out)
}

// prune drops fault markers and empty entries left over from older merges.
func prune(devices []domain.Device) []domain.Device {
	kept := devices[:0]
	for _, d := range devices {
		if d.IsFault() || d.IsZero() {
			continue
		}
		d.Devices = prune(d.Devices)
		kept = append(kept, d)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

func containsDevice(list []domain.Device, d domain.Device) bool {
	for _, e := range list {
		if e.Equal(d) {
			return true
		}
	}
	return false
}

func findByName(list []domain.Device, name string) int {
	if name == "" {
		return -1
	}
	for i := range list {
		if !list[i].IsFault() && list[i].Name == name {
			return i
		}
	}
	return -1
}
