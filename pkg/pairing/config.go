package pairing

import "github.com/lepair-project/lepair-go/pkg/bt"

// Config is the reference endpoint's per-link pairing configuration. It is
// created once per test case and immutable during a run.
type Config struct {
	// SecureConnections enables LE Secure Connections pairing.
	SecureConnections bool

	// MITM requests man-in-the-middle protection, which forces an
	// authenticated confirmation method when IO capabilities allow one.
	MITM bool

	// Bonding persists the exchanged keys.
	Bonding bool

	// IdentityAddressType selects which own address is distributed as the
	// identity address.
	IdentityAddressType bt.AddressType

	// Delegate supplies the IO capability, key-distribution masks and the
	// prompt/answer channels for this link.
	Delegate *Delegate
}

// DefaultConfig returns a secure-connections bonding configuration bound to
// the given delegate.
func DefaultConfig(delegate *Delegate) *Config {
	return &Config{
		SecureConnections:   true,
		MITM:                true,
		Bonding:             true,
		IdentityAddressType: bt.AddressTypePublic,
		Delegate:            delegate,
	}
}
