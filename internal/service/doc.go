// Package service implements the operator session for usbmap.
//
// A Session owns the persisted topology for its lifetime: it loads it from a
// repository.Store, folds collector snapshots into it, applies the operator's
// curation, validates the selection and emits the driver-loader bundle.
//
// # Session
//
// Open takes the store's exclusive lock through the store itself, so only one
// session mutates a topology at a time. Nothing inside a Session is shared
// with other goroutines except the EventBus.
//
// # Curation
//
// Ports are addressed by their 1-based selection index, counted across all
// controllers in stored order. Every curation operation checks all of its
// indices before changing anything. With companion binding on, toggling or
// typing a port applies the same change to its companion once.
//
// # Events
//
// Merges, selection changes, checkpoints, resets and builds are published on
// the session's EventBus for watch mode and other observers.
package service
