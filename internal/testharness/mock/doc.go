// Package mock provides an in-memory simulation of a complete test bench:
// a shared radio medium ("air") joining a reference endpoint and a device
// under test. The simulation is faithful enough to exercise the full
// orchestration surface: advertising and scan reports, connection events,
// IO-capability-driven method selection, double confirmation, asymmetric
// rejection, disconnect-during-pairing cancellation and key distribution.
package mock
