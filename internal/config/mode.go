package config

// StoreDriver selects the topology store implementation
type StoreDriver string

const (
	StoreFile   StoreDriver = "file"   // single JSON document
	StoreSQLite StoreDriver = "sqlite" // document plus checkpoint history
)

// ParseStoreDriver converts a string to StoreDriver, defaulting to StoreFile
func ParseStoreDriver(s string) StoreDriver {
	switch s {
	case "sqlite":
		return StoreSQLite
	default:
		return StoreFile
	}
}

// DefaultPath returns the store location used when none is configured
func (d StoreDriver) DefaultPath() string {
	if d == StoreSQLite {
		return "./usbmap.db"
	}
	return "./usb.json"
}

// CollectorKind selects how snapshots are gathered
type CollectorKind string

const (
	CollectorFile    CollectorKind = "file"    // read a dump document
	CollectorCommand CollectorKind = "command" // run a dump tool, read its stdout
)

// ParseCollectorKind converts a string to CollectorKind, defaulting to CollectorFile
func ParseCollectorKind(s string) CollectorKind {
	switch s {
	case "command":
		return CollectorCommand
	default:
		return CollectorFile
	}
}

// Empty-controller policies accepted in settings.
const (
	EmptyIgnore  = "ignore"
	EmptyDisable = "disable"
)
