package endpoint

import (
	"errors"
	"fmt"
)

// ErrPairingCancelled is observed by an outstanding Pair call when its link
// is torn down before the negotiation settles.
var ErrPairingCancelled = errors.New("pairing cancelled")

// SMP pairing-failed reason codes (Core spec Vol 3, Part H, 3.5.5).
const (
	ReasonPasskeyEntryFailed      uint8 = 0x01
	ReasonConfirmValueFailed      uint8 = 0x04
	ReasonPairingNotSupported     uint8 = 0x05
	ReasonUnspecified             uint8 = 0x08
	ReasonNumericComparisonFailed uint8 = 0x0C
)

// ProtocolError is a peer-reported pairing failure carrying the SMP reason
// code.
type ProtocolError struct {
	Reason uint8
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("pairing failed: %s (0x%02X)", reasonName(e.Reason), e.Reason)
}

// IsProtocolError reports whether err is (or wraps) a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

func reasonName(reason uint8) string {
	switch reason {
	case ReasonPasskeyEntryFailed:
		return "passkey entry failed"
	case ReasonConfirmValueFailed:
		return "confirm value failed"
	case ReasonPairingNotSupported:
		return "pairing not supported"
	case ReasonUnspecified:
		return "unspecified reason"
	case ReasonNumericComparisonFailed:
		return "numeric comparison failed"
	default:
		return "unknown reason"
	}
}
