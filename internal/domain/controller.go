package domain

// IdentifierKind names one kind of controller identifier.
type IdentifierKind string

const (
	KindBDF           IdentifierKind = "bdf"
	KindPCIID         IdentifierKind = "pci_id"
	KindPCIRevision   IdentifierKind = "pci_revision"
	KindACPIPath      IdentifierKind = "acpi_path"
	KindInstanceID    IdentifierKind = "instance_id"
	KindLocationID    IdentifierKind = "location_id"
	KindPath          IdentifierKind = "path"
	KindBusNumber     IdentifierKind = "bus_number"
	KindDriverKey     IdentifierKind = "driver_key"
	KindLocationPaths IdentifierKind = "location_paths"
)

// identifierKinds is the fixed evaluation order used by Kinds.
var identifierKinds = []IdentifierKind{
	KindBDF, KindPCIID, KindPCIRevision, KindACPIPath, KindInstanceID,
	KindLocationID, KindPath, KindBusNumber, KindDriverKey, KindLocationPaths,
}

// Identifiers is the sparse set of values a collector could read for a
// controller. A zero value (empty string, nil slice, nil pointer) means the
// collector did not report that kind.
type Identifiers struct {
	// BDF is the PCI bus/device/function triplet.
	BDF []int `json:"bdf,omitempty" yaml:"bdf,omitempty"`
	// PCIID is vendor, device and optionally subsystem vendor and subsystem
	// device, as lower-case hex words without a 0x prefix.
	PCIID       []string `json:"pci_id,omitempty" yaml:"pci_id,omitempty"`
	PCIRevision *int     `json:"pci_revision,omitempty" yaml:"pci_revision,omitempty"`
	// ACPIPath is the firmware path, e.g. \_SB.PCI0.XHC1
	ACPIPath   string `json:"acpi_path,omitempty" yaml:"acpi_path,omitempty"`
	InstanceID string `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`
	LocationID *int64 `json:"location_id,omitempty" yaml:"location_id,omitempty"`
	// Path is the OS registry path of the controller.
	Path          string   `json:"path,omitempty" yaml:"path,omitempty"`
	BusNumber     *uint32  `json:"bus_number,omitempty" yaml:"bus_number,omitempty"`
	DriverKey     string   `json:"driver_key,omitempty" yaml:"driver_key,omitempty"`
	LocationPaths []string `json:"location_paths,omitempty" yaml:"location_paths,omitempty"`
}

// Value returns the identifier of the given kind and whether it is present.
func (i Identifiers) Value(kind IdentifierKind) (any, bool) {
	switch kind {
	case KindBDF:
		return i.BDF, len(i.BDF) > 0
	case KindPCIID:
		return i.PCIID, len(i.PCIID) > 0
	case KindPCIRevision:
		if i.PCIRevision == nil {
			return nil, false
		}
		return *i.PCIRevision, true
	case KindACPIPath:
		return i.ACPIPath, i.ACPIPath != ""
	case KindInstanceID:
		return i.InstanceID, i.InstanceID != ""
	case KindLocationID:
		if i.LocationID == nil {
			return nil, false
		}
		return *i.LocationID, true
	case KindPath:
		return i.Path, i.Path != ""
	case KindBusNumber:
		if i.BusNumber == nil {
			return nil, false
		}
		return *i.BusNumber, true
	case KindDriverKey:
		return i.DriverKey, i.DriverKey != ""
	case KindLocationPaths:
		return i.LocationPaths, len(i.LocationPaths) > 0
	}
	return nil, false
}

// Kinds returns the kinds present, in a fixed order.
func (i Identifiers) Kinds() []IdentifierKind {
	var kinds []IdentifierKind
	for _, k := range identifierKinds {
		if _, ok := i.Value(k); ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// ACPILeaf returns the last dot-delimited component of the ACPI path.
func (i Identifiers) ACPILeaf() string {
	for n := len(i.ACPIPath) - 1; n >= 0; n-- {
		if i.ACPIPath[n] == '.' {
			return i.ACPIPath[n+1:]
		}
	}
	return i.ACPIPath
}

// Controller is a USB host controller and the ports it exposes.
type Controller struct {
	Name        string          `json:"name" yaml:"name"`
	Identifiers Identifiers     `json:"identifiers" yaml:"identifiers"`
	Class       ControllerClass `json:"class" yaml:"class"`
	// HubName is the root hub's symbolic name; companion_info refers to it.
	HubName string `json:"hub_name,omitempty" yaml:"hub_name,omitempty"`
	// PortCount is the number of ports the root hub descriptor reports.
	PortCount int `json:"port_count,omitempty" yaml:"port_count,omitempty"`
	// Properties holds collector-specific extras with no typed home.
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty"`

	Ports []Port `json:"ports" yaml:"ports" merge:"-"`
}

// Port returns the port with the given index, or nil.
func (c *Controller) Port(index int) *Port {
	for i := range c.Ports {
		if c.Ports[i].Index == index {
			return &c.Ports[i]
		}
	}
	return nil
}

// SelectedPorts returns pointers to the ports the operator selected.
func (c *Controller) SelectedPorts() []*Port {
	var ports []*Port
	for i := range c.Ports {
		if c.Ports[i].IsSelected() {
			ports = append(ports, &c.Ports[i])
		}
	}
	return ports
}

// Clone returns a deep copy of the controller.
func (c Controller) Clone() Controller {
	out := c
	out.Identifiers = c.Identifiers.clone()
	out.Properties = cloneProperties(c.Properties)
	if c.Ports != nil {
		out.Ports = make([]Port, len(c.Ports))
		for i, p := range c.Ports {
			out.Ports[i] = p.Clone()
		}
	}
	return out
}

func (i Identifiers) clone() Identifiers {
	out := i
	if i.BDF != nil {
		out.BDF = append([]int(nil), i.BDF...)
	}
	if i.PCIID != nil {
		out.PCIID = append([]string(nil), i.PCIID...)
	}
	if i.LocationPaths != nil {
		out.LocationPaths = append([]string(nil), i.LocationPaths...)
	}
	if i.PCIRevision != nil {
		v := *i.PCIRevision
		out.PCIRevision = &v
	}
	if i.LocationID != nil {
		v := *i.LocationID
		out.LocationID = &v
	}
	if i.BusNumber != nil {
		v := *i.BusNumber
		out.BusNumber = &v
	}
	return out
}

func cloneProperties(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneAny(v)
	}
	return out
}

func cloneAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneProperties(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneAny(e)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case []int:
		return append([]int(nil), val...)
	default:
		return v
	}
}
