// Package repository defines where the persisted topology lives.
//
// The topology is one document, loaded at session start and fully rewritten
// at every checkpoint. Implementations replace it atomically so an abrupt
// exit leaves either the previous or the new document, never a mix.
//
// # Implementations
//
// The file subpackage keeps a single JSON document next to a lock file. The
// sqlite subpackage keeps the current document plus a bounded history of
// superseded checkpoints that can be listed and restored.
//
// # Sessions
//
// Both stores take an exclusive advisory lock when opened. A second session
// against the same store fails with ErrLocked instead of interleaving writes.
package repository
