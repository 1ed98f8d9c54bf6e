// Package pairing models the reference endpoint's pairing policy: the
// delegate that surfaces confirmation prompts to test logic and feeds
// answers back to the stack, and the per-link pairing configuration.
package pairing
