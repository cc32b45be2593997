package domain

import "strings"

// DefaultFault is the fault text used when a collector only knows that the
// port errored.
const DefaultFault = "Device connected to port errored."

// EntryKind tags the two variants a port's device list can hold.
type EntryKind int

const (
	EntryDevice EntryKind = iota
	EntryFault
)

// Device is either a connected device (optionally a hub with nested Devices)
// or, when Fault is set, a marker for a port error that is not a device.
type Device struct {
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Speed      Speed    `json:"speed,omitempty" yaml:"speed,omitempty"`
	InstanceID string   `json:"instance_id,omitempty" yaml:"instance_id,omitempty"`
	Devices    []Device `json:"devices,omitempty" yaml:"devices,omitempty"`
	Fault      string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewFaultMarker returns a fault marker entry. An empty reason uses DefaultFault.
func NewFaultMarker(reason string) Device {
	if reason == "" {
		reason = DefaultFault
	}
	return Device{Fault: reason}
}

// Kind reports which variant d holds.
func (d Device) Kind() EntryKind {
	if d.Fault != "" {
		return EntryFault
	}
	return EntryDevice
}

// IsFault reports whether d is a fault marker.
func (d Device) IsFault() bool {
	return d.Kind() == EntryFault
}

// IsZero reports whether d carries no information at all.
func (d Device) IsZero() bool {
	return d.Name == "" && d.Speed == 0 && d.InstanceID == "" && len(d.Devices) == 0 && d.Fault == ""
}

// Equal reports whether two entries are identical, treating nil and empty
// child lists alike.
func (d Device) Equal(o Device) bool {
	if d.Name != o.Name || d.Speed != o.Speed || d.InstanceID != o.InstanceID || d.Fault != o.Fault {
		return false
	}
	if len(d.Devices) != len(o.Devices) {
		return false
	}
	for i := range d.Devices {
		if !d.Devices[i].Equal(o.Devices[i]) {
			return false
		}
	}
	return true
}

// Describe renders the entry for operator listings.
func (d Device) Describe() string {
	if d.IsFault() {
		return d.Fault + " Please unplug or connect a different device."
	}
	return strings.TrimSpace(d.Name) + " - operating at " + d.Speed.String()
}

// Clone returns a deep copy of the device tree.
func (d Device) Clone() Device {
	out := d
	out.Devices = cloneDevices(d.Devices)
	return out
}

func cloneDevices(devices []Device) []Device {
	if devices == nil {
		return nil
	}
	out := make([]Device, len(devices))
	for i, d := range devices {
		out[i] = d.Clone()
	}
	return out
}
