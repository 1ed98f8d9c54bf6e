// Package discovery advertises and locates lepair endpoint-controller
// agents on the local network via mDNS/DNS-SD. An agent exposes a remote
// radio (a reference endpoint or an instrumented device under test) that a
// harness process can drive; the TXT record carries the agent's role and
// supported transports.
package discovery
