package domain

import "fmt"

// ControllerClass is the host controller generation, using the PCI
// programming interface values where they exist.
type ControllerClass int

const (
	ControllerUHCI    ControllerClass = 0x00
	ControllerOHCI    ControllerClass = 0x10
	ControllerEHCI    ControllerClass = 0x20
	ControllerXHCI    ControllerClass = 0x30
	ControllerUnknown ControllerClass = 9999
)

func (c ControllerClass) String() string {
	switch c {
	case ControllerUHCI:
		return "USB 1.1 (UHCI)"
	case ControllerOHCI:
		return "USB 1.1 (OHCI)"
	case ControllerEHCI:
		return "USB 2.0 (EHCI)"
	case ControllerXHCI:
		return "USB 3.0 (XHCI)"
	default:
		return "Unknown"
	}
}

// Speed is a negotiated or supported USB link speed.
type Speed int

const (
	SpeedLow       Speed = 0
	SpeedFull      Speed = 1
	SpeedHigh      Speed = 2
	SpeedSuper     Speed = 3
	SpeedSuperPlus Speed = 4 // only reported by some collectors
	SpeedUnknown   Speed = 9999
)

// String returns the short protocol name shown to operators.
func (s Speed) String() string {
	switch s {
	case SpeedLow, SpeedFull:
		return "USB 1.1"
	case SpeedHigh:
		return "USB 2.0"
	case SpeedSuper:
		return "USB 3.0"
	case SpeedSuperPlus:
		return "USB 3.1 Gen 2"
	default:
		return "Unknown"
	}
}

// FullName returns the long protocol name including the marketing aliases.
func (s Speed) FullName() string {
	switch s {
	case SpeedLow:
		return "USB 1.1 (Low Speed)"
	case SpeedFull:
		return "USB 1.1 (Full Speed)"
	case SpeedHigh:
		return "USB 2.0 (High Speed)"
	case SpeedSuper:
		return "USB 3.0/USB 3.1 Gen 1/USB 3.2 Gen 1x1 (SuperSpeed)"
	case SpeedSuperPlus:
		return "USB 3.1 Gen 2/USB 3.2 Gen 2×1 (SuperSpeed+)"
	default:
		return "Unknown"
	}
}

// IsSuperSpeed reports whether the speed is SuperSpeed or faster.
func (s Speed) IsSuperSpeed() bool {
	return s == SpeedSuper || s == SpeedSuperPlus
}

// ConnectorType is the physical connector value written into the emitted
// configuration (the driver's UsbConnector property).
type ConnectorType int

const (
	ConnectorTypeA              ConnectorType = 0
	ConnectorMiniAB             ConnectorType = 1
	ConnectorExpressCard        ConnectorType = 2
	ConnectorUSB3TypeA          ConnectorType = 3
	ConnectorUSB3TypeB          ConnectorType = 4
	ConnectorUSB3MicroB         ConnectorType = 5
	ConnectorUSB3MicroAB        ConnectorType = 6
	ConnectorUSB3PowerB         ConnectorType = 7
	ConnectorTypeCUSB2Only      ConnectorType = 8
	ConnectorTypeCWithSwitch    ConnectorType = 9
	ConnectorTypeCWithoutSwitch ConnectorType = 10
	ConnectorInternal           ConnectorType = 255
)

var connectorNames = map[ConnectorType]string{
	ConnectorTypeA:              "Type A",
	ConnectorMiniAB:             "Type Mini-AB",
	ConnectorExpressCard:        "ExpressCard",
	ConnectorUSB3TypeA:          "USB 3 Type A",
	ConnectorUSB3TypeB:          "USB 3 Type B",
	ConnectorUSB3MicroB:         "USB 3 Type Micro-B",
	ConnectorUSB3MicroAB:        "USB 3 Type Micro-AB",
	ConnectorUSB3PowerB:         "USB 3 Type Power-B",
	ConnectorTypeCUSB2Only:      "Type C - USB 2 only",
	ConnectorTypeCWithSwitch:    "Type C - with switch",
	ConnectorTypeCWithoutSwitch: "Type C - without switch",
	ConnectorInternal:           "Internal",
}

func (c ConnectorType) String() string {
	if name, ok := connectorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Type %d", int(c))
}

// Valid reports whether c is one of the known connector values.
func (c ConnectorType) Valid() bool {
	_, ok := connectorNames[c]
	return ok
}

// ParseConnectorType converts a numeric connector value into a ConnectorType.
func ParseConnectorType(v int) (ConnectorType, error) {
	ct := ConnectorType(v)
	if !ct.Valid() {
		return 0, fmt.Errorf("%d is not a known connector type", v)
	}
	return ct, nil
}

// ConnectorTypes returns every known connector type in ascending order.
func ConnectorTypes() []ConnectorType {
	return []ConnectorType{
		ConnectorTypeA, ConnectorMiniAB, ConnectorExpressCard,
		ConnectorUSB3TypeA, ConnectorUSB3TypeB, ConnectorUSB3MicroB,
		ConnectorUSB3MicroAB, ConnectorUSB3PowerB, ConnectorTypeCUSB2Only,
		ConnectorTypeCWithSwitch, ConnectorTypeCWithoutSwitch, ConnectorInternal,
	}
}
