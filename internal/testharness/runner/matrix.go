package runner

import (
	"fmt"
	"strings"

	"github.com/lepair-project/lepair-go/pkg/bt"
)

// TestVariant is the action taken once both sides report the pairing
// method.
type TestVariant int

const (
	// VariantAccept confirms on both sides.
	VariantAccept TestVariant = iota + 1
	// VariantReject rejects on the DUT while the REF answers as accepting.
	VariantReject
	// VariantRejected confirms on the DUT while the REF answer is forced
	// to a rejection.
	VariantRejected
	// VariantDisconnected tears the link down before any confirmation.
	VariantDisconnected
)

func (v TestVariant) String() string {
	switch v {
	case VariantAccept:
		return "accept"
	case VariantReject:
		return "reject"
	case VariantRejected:
		return "rejected"
	case VariantDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("test_variant(%d)", int(v))
	}
}

// ScenarioCase is one unit of the test matrix: immutable, independent of
// every other case.
type ScenarioCase struct {
	Variant             TestVariant
	ConnectionDirection bt.Direction
	PairingDirection    bt.Direction
	RefIOCapability     bt.IOCapability
	RefAddressType      bt.AddressType
	KeyDistribution     bt.KeyDistribution
}

// Name returns a stable identifier for reports and logs.
func (c ScenarioCase) Name() string {
	return strings.Join([]string{
		c.Variant.String(),
		"conn_" + c.ConnectionDirection.String(),
		"pair_" + c.PairingDirection.String(),
		c.RefIOCapability.String(),
		c.RefAddressType.String(),
		strings.ReplaceAll(c.KeyDistribution.String(), "+", "_"),
	}, "-")
}

// DoubleConfirmation reports whether the case produces two DUT prompts:
// the DUT both connected to REF and is being paired by it, so it first
// consents to the security request before the method prompt arrives.
func (c ScenarioCase) DoubleConfirmation() bool {
	return c.ConnectionDirection == bt.DirectionOutgoing &&
		c.PairingDirection == bt.DirectionIncoming
}

// RefInitiatesPairing reports whether REF drives the negotiation and so
// holds an outstanding pairing task whose settlement the harness checks.
func (c ScenarioCase) RefInitiatesPairing() bool {
	return c.PairingDirection == bt.DirectionIncoming
}

// MatrixParams spans the dimensions of the enumerated cross-product.
type MatrixParams struct {
	Variants         []TestVariant
	IOCapabilities   []bt.IOCapability
	AddressTypes     []bt.AddressType
	KeyDistributions []bt.KeyDistribution
}

// DefaultMatrixParams returns the full conformance run dimensions.
func DefaultMatrixParams() MatrixParams {
	return MatrixParams{
		Variants: []TestVariant{
			VariantAccept, VariantReject, VariantRejected, VariantDisconnected,
		},
		IOCapabilities: []bt.IOCapability{
			bt.IOCapNoInputNoOutput, bt.IOCapDisplayYesNo,
		},
		AddressTypes: []bt.AddressType{
			bt.AddressTypePublic, bt.AddressTypeRandom,
		},
		KeyDistributions: []bt.KeyDistribution{
			bt.KeyDistEncryption | bt.KeyDistIdentity,
			bt.KeyDistEncryption | bt.KeyDistIdentity | bt.KeyDistLink,
		},
	}
}

// EnumerateScenarios yields the cross-product of the parameter dimensions
// in deterministic order, minus the excluded combinations, so re-runs are
// reproducible.
func EnumerateScenarios(p MatrixParams) []ScenarioCase {
	var cases []ScenarioCase
	for _, variant := range p.Variants {
		for _, connDir := range bt.Directions() {
			for _, pairDir := range bt.Directions() {
				for _, ioCap := range p.IOCapabilities {
					for _, addrType := range p.AddressTypes {
						for _, keys := range p.KeyDistributions {
							c := ScenarioCase{
								Variant:             variant,
								ConnectionDirection: connDir,
								PairingDirection:    pairDir,
								RefIOCapability:     ioCap,
								RefAddressType:      addrType,
								KeyDistribution:     keys,
							}
							if Excluded(c) {
								continue
							}
							cases = append(cases, c)
						}
					}
				}
			}
		}
	}
	return cases
}

// Excluded reports whether a combination is infeasible on the endpoints.
func Excluded(c ScenarioCase) bool {
	return rejectWithNotificationOnly(c) || incomingConnectionOutgoingPairing(c)
}

// rejectWithNotificationOnly excludes REJECT when REF's capability forces a
// passkey-notification flow: the DUT only displays a value and has nothing
// to actively reject.
func rejectWithNotificationOnly(c ScenarioCase) bool {
	return c.Variant == VariantReject && c.RefIOCapability == bt.IOCapKeyboardOnly
}

// incomingConnectionOutgoingPairing excludes the combination where the DUT
// would have to issue the initial pairing request over a link it accepted,
// which the adapter API cannot express.
func incomingConnectionOutgoingPairing(c ScenarioCase) bool {
	return c.ConnectionDirection == bt.DirectionIncoming &&
		c.PairingDirection == bt.DirectionOutgoing
}
