// Package bt defines the core Bluetooth Low Energy domain types shared by
// the pairing conformance harness: device addresses, transports, bond
// states, IO capabilities, key-distribution masks and pairing methods.
//
// The values mirror the numeric assignments of the Bluetooth Core
// Specification (SMP IO capabilities, key-distribution bits) and the
// Android Bluetooth API (bond states, pairing variants) so that logs and
// reports line up with what real endpoints emit.
package bt
