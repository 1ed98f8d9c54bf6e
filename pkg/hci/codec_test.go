package hci

import (
	"bytes"
	"testing"

	"github.com/lepair-project/lepair-go/pkg/bt"
)

var bondReportEvent = VendorEvent{
	Name:     "BondReport",
	Subevent: 0x21,
	Schema: Schema{
		{Name: "status", Codec: Uint8},
		{Name: "handle", Codec: Uint16},
		{Name: "peer", Codec: AddressType},
	},
}

func TestVendorEventRoundTrip(t *testing.T) {
	in := map[string]any{
		"status": uint8(0),
		"handle": uint16(0x0040),
		"peer": AddressWithType{
			Address: bt.Address("F0:F1:F2:F3:F4:F5"),
			Type:    bt.AddressTypeRandom,
		},
	}
	raw, err := bondReportEvent.Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Subevent, status, handle LE, address LSB-first, address type.
	want := []byte{0x21, 0x00, 0x40, 0x00, 0xF5, 0xF4, 0xF3, 0xF2, 0xF1, 0xF0, 0x01}
	if !bytes.Equal(raw, want) {
		t.Fatalf("Encode = % X, want % X", raw, want)
	}

	out, err := bondReportEvent.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	peer := out["peer"].(AddressWithType)
	if peer.Address != "F0:F1:F2:F3:F4:F5" || peer.Type != bt.AddressTypeRandom {
		t.Fatalf("peer = %+v", peer)
	}
	if out["handle"].(uint16) != 0x0040 {
		t.Fatalf("handle = %v", out["handle"])
	}
}

func TestVendorCommandFraming(t *testing.T) {
	cmd := VendorCommand{
		Name:   "SetBondPolicy",
		OpCode: 0xFC01,
		Schema: Schema{
			{Name: "policy", Codec: Uint8},
			{Name: "key", Codec: Bytes(4)},
		},
	}
	raw, err := cmd.Encode(map[string]any{"policy": uint8(2), "key": []byte{1, 2, 3, 4}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if raw[2] != 5 {
		t.Fatalf("parameter length = %d, want 5", raw[2])
	}
	out, err := cmd.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(out["key"].([]byte), []byte{1, 2, 3, 4}) {
		t.Fatalf("key = %v", out["key"])
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	raw, err := bondReportEvent.Encode(map[string]any{
		"status": uint8(1),
		"handle": uint16(1),
		"peer":   AddressWithType{Address: bt.NewRandomAddress(), Type: bt.AddressTypeRandom},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := bondReportEvent.Decode(append(raw, 0x00)); err == nil {
		t.Fatal("expected trailing-byte error")
	}
}

func TestEncodeMissingField(t *testing.T) {
	if _, err := bondReportEvent.Encode(map[string]any{"status": uint8(0)}); err == nil {
		t.Fatal("expected missing-field error")
	}
}
