package bt

import (
	"fmt"
	"strings"
)

// IOCapability is a peer's declared input/output affordance, as carried in
// the SMP Pairing Request/Response IO Capability field.
type IOCapability uint8

const (
	// IOCapDisplayOnly can show a passkey but take no input.
	IOCapDisplayOnly IOCapability = 0x00
	// IOCapDisplayYesNo can show a value and answer yes/no.
	IOCapDisplayYesNo IOCapability = 0x01
	// IOCapKeyboardOnly can enter a passkey but show nothing.
	IOCapKeyboardOnly IOCapability = 0x02
	// IOCapNoInputNoOutput has no user interaction affordances.
	IOCapNoInputNoOutput IOCapability = 0x03
	// IOCapKeyboardDisplay can both show and enter values.
	IOCapKeyboardDisplay IOCapability = 0x04
)

func (c IOCapability) String() string {
	switch c {
	case IOCapDisplayOnly:
		return "display_only"
	case IOCapDisplayYesNo:
		return "display_yes_no"
	case IOCapKeyboardOnly:
		return "keyboard_only"
	case IOCapNoInputNoOutput:
		return "no_input_no_output"
	case IOCapKeyboardDisplay:
		return "keyboard_display"
	default:
		return fmt.Sprintf("io_capability(%d)", uint8(c))
	}
}

// KeyDistribution is the SMP key-distribution bitmask indicating which keys
// a peer will exchange during pairing.
type KeyDistribution uint8

const (
	// KeyDistEncryption distributes the LTK (EncKey bit).
	KeyDistEncryption KeyDistribution = 1 << 0
	// KeyDistIdentity distributes the IRK (IdKey bit).
	KeyDistIdentity KeyDistribution = 1 << 1
	// KeyDistSignature distributes the CSRK (SignKey bit).
	KeyDistSignature KeyDistribution = 1 << 2
	// KeyDistLink derives a BR/EDR link key via CTKD (LinkKey bit).
	KeyDistLink KeyDistribution = 1 << 3
)

// DefaultKeyDistribution is the mask a peer offers when nothing more
// specific is configured.
const DefaultKeyDistribution = KeyDistEncryption | KeyDistIdentity

// Has reports whether all bits of mask are set.
func (k KeyDistribution) Has(mask KeyDistribution) bool {
	return k&mask == mask
}

func (k KeyDistribution) String() string {
	if k == 0 {
		return "none"
	}
	var parts []string
	if k.Has(KeyDistEncryption) {
		parts = append(parts, "enc")
	}
	if k.Has(KeyDistIdentity) {
		parts = append(parts, "id")
	}
	if k.Has(KeyDistSignature) {
		parts = append(parts, "sign")
	}
	if k.Has(KeyDistLink) {
		parts = append(parts, "link")
	}
	return strings.Join(parts, "+")
}

// PairingMethod is the confirmation method a reference-stack pairing
// delegate reports during negotiation.
type PairingMethod int

const (
	// MethodJustWorks requires a plain accept with no value.
	MethodJustWorks PairingMethod = iota + 1
	// MethodNumericComparison shows the same 6-digit value on both peers.
	MethodNumericComparison
	// MethodPasskeyEntryRequest asks this peer to type the peer's passkey.
	MethodPasskeyEntryRequest
	// MethodPinCodeRequest asks for a legacy PIN code.
	MethodPinCodeRequest
	// MethodPasskeyEntryNotification shows a passkey for the peer to type.
	MethodPasskeyEntryNotification
)

func (m PairingMethod) String() string {
	switch m {
	case MethodJustWorks:
		return "just_works"
	case MethodNumericComparison:
		return "numeric_comparison"
	case MethodPasskeyEntryRequest:
		return "passkey_entry_request"
	case MethodPinCodeRequest:
		return "pin_code_request"
	case MethodPasskeyEntryNotification:
		return "passkey_entry_notification"
	default:
		return fmt.Sprintf("pairing_method(%d)", int(m))
	}
}

// PairingVariant is the prompt variant the DUT adapter reports in its
// pairing-request callback. Values match the Android PAIRING_VARIANT_*
// constants.
type PairingVariant int

const (
	// VariantPin asks the user for a legacy PIN.
	VariantPin PairingVariant = 0
	// VariantPasskey asks the user to type a passkey.
	VariantPasskey PairingVariant = 1
	// VariantPasskeyConfirmation shows a 6-digit value to confirm.
	VariantPasskeyConfirmation PairingVariant = 2
	// VariantConsent asks for a plain yes/no consent.
	VariantConsent PairingVariant = 3
	// VariantDisplayPasskey shows a passkey for the peer to type.
	VariantDisplayPasskey PairingVariant = 4
)

func (v PairingVariant) String() string {
	switch v {
	case VariantPin:
		return "PIN"
	case VariantPasskey:
		return "PASSKEY"
	case VariantPasskeyConfirmation:
		return "PASSKEY_CONFIRMATION"
	case VariantConsent:
		return "CONSENT"
	case VariantDisplayPasskey:
		return "DISPLAY_PASSKEY"
	default:
		return fmt.Sprintf("pairing_variant(%d)", int(v))
	}
}
