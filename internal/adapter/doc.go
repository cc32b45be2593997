// Package adapter is the collector boundary: it turns platform dumps into
// topology snapshots for the merge engine.
//
// # Collectors
//
// FileCollector reads a dump document (JSON or YAML) written by a platform
// tool. CommandCollector runs such a tool and decodes its JSON stdout. Both
// produce a normalized *domain.Topology; neither merges anything.
//
// # Retries
//
// Platform queries fail transiently (a device mid-enumeration, a dump file
// being rewritten). Retrying wraps a collector with a constant backoff and a
// bounded number of tries, and reports exhaustion as a *domain.CollectionError.
//
// # Registry
//
// Registry holds the configured collectors by name so the session and the
// CLI can trigger a collection without knowing which kind is in use.
package adapter
