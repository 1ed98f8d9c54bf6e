package bt

import (
	"strings"
	"testing"
)

func TestNewRandomAddressForm(t *testing.T) {
	seen := make(map[Address]bool)
	for i := 0; i < 16; i++ {
		addr := NewRandomAddress()
		parts := strings.Split(string(addr), ":")
		if len(parts) != 6 {
			t.Fatalf("expected 6 octets, got %q", addr)
		}
		if addr != addr.Normalize() {
			t.Fatalf("address %q not in canonical form", addr)
		}
		// Random static addresses have the top two bits set.
		if parts[0][0] != 'C' && parts[0][0] != 'D' && parts[0][0] != 'E' && parts[0][0] != 'F' {
			t.Fatalf("address %q is not random static", addr)
		}
		if seen[addr] {
			t.Fatalf("duplicate random address %q", addr)
		}
		seen[addr] = true
	}
}

func TestBondStateTerminal(t *testing.T) {
	cases := []struct {
		state    BondState
		terminal bool
	}{
		{BondNone, true},
		{BondBonding, false},
		{BondBonded, true},
	}
	for _, tc := range cases {
		if got := tc.state.Terminal(); got != tc.terminal {
			t.Errorf("%s.Terminal() = %v, want %v", tc.state, got, tc.terminal)
		}
	}
}

func TestKeyDistributionString(t *testing.T) {
	if got := (KeyDistEncryption | KeyDistIdentity).String(); got != "enc+id" {
		t.Errorf("enc+id mask = %q", got)
	}
	if got := (KeyDistEncryption | KeyDistIdentity | KeyDistLink).String(); got != "enc+id+link" {
		t.Errorf("ctkd mask = %q", got)
	}
	if got := KeyDistribution(0).String(); got != "none" {
		t.Errorf("empty mask = %q", got)
	}
}

func TestKeyDistributionHas(t *testing.T) {
	mask := DefaultKeyDistribution
	if !mask.Has(KeyDistEncryption) || !mask.Has(KeyDistIdentity) {
		t.Fatal("default mask must include enc and id keys")
	}
	if mask.Has(KeyDistLink) {
		t.Fatal("default mask must not include the link key")
	}
}
