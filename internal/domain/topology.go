package domain

// TopologyVersion is the document version written by this package.
const TopologyVersion = 1

// Topology is the persisted record of every controller sighted on the host.
type Topology struct {
	Version     int          `json:"version" yaml:"version"`
	Controllers []Controller `json:"controllers" yaml:"controllers"`
}

// NewTopology creates an empty topology.
func NewTopology() *Topology {
	return &Topology{
		Version:     TopologyVersion,
		Controllers: make([]Controller, 0),
	}
}

// IsEmpty reports whether no controller has been recorded.
func (t *Topology) IsEmpty() bool {
	return t == nil || len(t.Controllers) == 0
}

// Clone returns a deep copy of the topology.
func (t *Topology) Clone() *Topology {
	if t == nil {
		return nil
	}
	out := &Topology{Version: t.Version, Controllers: make([]Controller, len(t.Controllers))}
	for i, c := range t.Controllers {
		out.Controllers[i] = c.Clone()
	}
	return out
}

// PortRef addresses one port within a topology together with its 1-based
// selection index.
type PortRef struct {
	SelectionIndex int
	Controller     *Controller
	Port           *Port
}

// Ports enumerates every port in controller order, numbering them from 1.
// The returned pointers stay valid until controllers or ports are appended.
func (t *Topology) Ports() []PortRef {
	var refs []PortRef
	n := 1
	for ci := range t.Controllers {
		c := &t.Controllers[ci]
		for pi := range c.Ports {
			refs = append(refs, PortRef{SelectionIndex: n, Controller: c, Port: &c.Ports[pi]})
			n++
		}
	}
	return refs
}

// ControllerByHub returns the controller whose root hub has the given name.
func (t *Topology) ControllerByHub(hub string) *Controller {
	if hub == "" {
		return nil
	}
	for i := range t.Controllers {
		if t.Controllers[i].HubName == hub {
			return &t.Controllers[i]
		}
	}
	return nil
}

// Companion resolves a port's companion within this topology. Resolution is
// best effort: hub names are not stable on every collector, so an unresolved
// companion yields nil rather than an error.
func (t *Topology) Companion(p *Port) *Port {
	if p == nil || !p.CompanionInfo.Resolvable() {
		return nil
	}
	c := t.ControllerByHub(p.CompanionInfo.Hub)
	if c == nil {
		return nil
	}
	return c.Port(p.CompanionInfo.Port)
}
