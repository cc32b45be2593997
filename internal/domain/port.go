package domain

import "fmt"

// CompanionInfo points at the port exposing the same physical connector at
// another USB generation. Hub is the companion root hub's symbolic name.
type CompanionInfo struct {
	Hub                string `json:"hub,omitempty" yaml:"hub,omitempty"`
	Port               int    `json:"port,omitempty" yaml:"port,omitempty"`
	MultipleCompanions bool   `json:"multiple_companions,omitempty" yaml:"multiple_companions,omitempty"`
}

// Resolvable reports whether both the hub and the port are populated.
func (c *CompanionInfo) Resolvable() bool {
	return c != nil && c.Hub != "" && c.Port != 0
}

// Port is an indexed connection point on a controller.
type Port struct {
	// Index is assigned by the collector and is stable across snapshots.
	Index int    `json:"index" yaml:"index"`
	Name  string `json:"name" yaml:"name"`
	Class Speed  `json:"class" yaml:"class"`
	// Status is the last connection status the collector saw.
	Status          string         `json:"status,omitempty" yaml:"status,omitempty"`
	Guessed         *ConnectorType `json:"guessed" yaml:"guessed"`
	CompanionInfo   *CompanionInfo `json:"companion_info,omitempty" yaml:"companion_info,omitempty"`
	TypeC           bool           `json:"type_c,omitempty" yaml:"type_c,omitempty"`
	UserConnectable bool           `json:"user_connectable,omitempty" yaml:"user_connectable,omitempty"`

	// Curated by the operator; collectors leave these nil.
	Type     *ConnectorType `json:"type" yaml:"type"`
	Comment  *string        `json:"comment" yaml:"comment"`
	Selected *bool          `json:"selected,omitempty" yaml:"selected,omitempty"`

	Devices []Device `json:"devices" yaml:"devices" merge:"-"`
}

// IsSelected reports whether the operator selected the port.
func (p *Port) IsSelected() bool {
	return p.Selected != nil && *p.Selected
}

// SetSelected records an operator selection.
func (p *Port) SetSelected(selected bool) {
	p.Selected = &selected
}

// Connector returns the explicit type, falling back to the guessed type.
func (p *Port) Connector() (ConnectorType, bool) {
	if p.Type != nil {
		return *p.Type, true
	}
	if p.Guessed != nil {
		return *p.Guessed, true
	}
	return 0, false
}

// HasDevices reports whether anything other than fault markers is attached.
func (p *Port) HasDevices() bool {
	for _, d := range p.Devices {
		if !d.IsFault() && !d.IsZero() {
			return true
		}
	}
	return false
}

// Label renders the port the way the operator sees it in listings.
func (p *Port) Label(friendly bool) string {
	var kind string
	switch {
	case p.Type != nil:
		kind = connectorLabel(*p.Type, friendly)
	case p.Guessed != nil:
		kind = connectorLabel(*p.Guessed, friendly) + " (guessed)"
	default:
		kind = "Unknown"
	}
	if !friendly {
		kind = "Type " + kind
	}
	return fmt.Sprintf("%s | %s | %s", p.Name, p.Class, kind)
}

func connectorLabel(c ConnectorType, friendly bool) string {
	if friendly {
		return c.String()
	}
	return fmt.Sprintf("%d", int(c))
}

// Clone returns a deep copy of the port.
func (p Port) Clone() Port {
	out := p
	if p.Guessed != nil {
		v := *p.Guessed
		out.Guessed = &v
	}
	if p.Type != nil {
		v := *p.Type
		out.Type = &v
	}
	if p.Comment != nil {
		v := *p.Comment
		out.Comment = &v
	}
	if p.Selected != nil {
		v := *p.Selected
		out.Selected = &v
	}
	if p.CompanionInfo != nil {
		v := *p.CompanionInfo
		out.CompanionInfo = &v
	}
	out.Devices = cloneDevices(p.Devices)
	return out
}
