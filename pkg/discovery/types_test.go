package discovery

import (
	"reflect"
	"testing"
)

func TestTXTRoundTrip(t *testing.T) {
	info := AgentInfo{
		Instance:   "bench-ref-1",
		Role:       RoleRef,
		Transports: []string{"le", "classic"},
	}
	txt := EncodeTXT(info)

	role, transports, err := DecodeTXT(txt)
	if err != nil {
		t.Fatalf("DecodeTXT: %v", err)
	}
	if role != RoleRef {
		t.Errorf("role = %q", role)
	}
	if !reflect.DeepEqual(transports, []string{"le", "classic"}) {
		t.Errorf("transports = %v", transports)
	}
}

func TestDecodeTXTIgnoresUnknownKeys(t *testing.T) {
	role, transports, err := DecodeTXT([]string{"role=dut", "tp=le", "fw=1.2.3", "malformed"})
	if err != nil {
		t.Fatalf("DecodeTXT: %v", err)
	}
	if role != RoleDut || len(transports) != 1 || transports[0] != "le" {
		t.Fatalf("decoded = (%q, %v)", role, transports)
	}
}

func TestDecodeTXTRejectsMissingRole(t *testing.T) {
	if _, _, err := DecodeTXT([]string{"tp=le"}); err == nil {
		t.Fatal("expected error for missing role")
	}
}
