// Package domain defines the core types for the usbmap USB topology model.
//
// This package contains the entities that describe a host machine's USB
// hierarchy as reported by platform collectors and curated by an operator.
//
// # Core Types
//
// Controller is a USB host controller identified by a sparse set of
// Identifiers (bus/device/function, PCI ids, ACPI path, registry path, ...).
//
// Port is an indexed connection point on a controller. Port.Index is the only
// structural key used to line up ports across snapshots.
//
// Device is an entry connected to a port: either a real device (possibly a hub
// with nested devices) or a fault marker standing in for a port error.
//
// Topology is the persisted document holding every controller ever sighted.
//
// # Curated and Volatile Fields
//
// Selected, Comment and Type on a Port are curated: only the operator-facing
// session sets them. Collectors leave them nil so that merging a fresh
// snapshot never overwrites them. Everything else is volatile and refreshed on
// every merge.
//
// # Design Principles
//
// - No I/O and no external dependencies
// - Nullable fields are pointers, absent identifiers are zero values
// - Typed errors for every failure class the engine reports
package domain
