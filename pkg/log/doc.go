// Package log provides structured event logging for pairing conformance
// runs. Events capture connection and pairing milestones from either
// endpoint role and are encoded as compact CBOR records with integer keys,
// suitable for post-run analysis tooling.
//
// The Logger interface decouples event producers from sinks: pass
// NoopLogger to disable logging or FileLogger to persist a run.
package log
