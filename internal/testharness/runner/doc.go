// Package runner is the pairing conformance harness core: it enumerates
// the scenario matrix, establishes a link between the DUT and the REF
// endpoint in the configured direction, drives the pairing negotiation to
// a terminal state on both sides, and verifies the outcome against the
// expected-state table. Transient timing failures are retried with
// classified backoff; protocol and assertion failures surface immediately.
package runner
