package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lepair-project/lepair-go/pkg/bt"
)

func TestEncodeDecodeEvent(t *testing.T) {
	ev := NewPairingEvent("case-1", RoleRef, "AA:BB:CC:DD:EE:FF", "numeric_comparison", uint32Ptr(123456))

	data, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("EncodeEvent: %v", err)
	}
	out, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent: %v", err)
	}
	if out.CaseID != "case-1" || out.Role != RoleRef || out.Category != CategoryPairing {
		t.Fatalf("decoded header = %+v", out)
	}
	if out.Pairing == nil || out.Pairing.Method != "numeric_comparison" {
		t.Fatalf("decoded pairing payload = %+v", out.Pairing)
	}
	if out.Pairing.Value == nil || *out.Pairing.Value != 123456 {
		t.Fatalf("comparison value lost: %+v", out.Pairing)
	}
}

func TestFileLoggerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.plog")
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	l.Log(NewBondEvent("case-2", "AA:BB:CC:DD:EE:FF", bt.BondBonding))
	l.Log(NewBondEvent("case-2", "AA:BB:CC:DD:EE:FF", bt.BondBonded))
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Logging after close is a no-op, not a panic.
	l.Log(NewBondEvent("case-2", "AA:BB:CC:DD:EE:FF", bt.BondNone))

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	events, err := ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Bond.State != int(bt.BondBonding) || events[1].Bond.State != int(bt.BondBonded) {
		t.Fatalf("bond states = %d, %d", events[0].Bond.State, events[1].Bond.State)
	}
}

func TestMultiLoggerSkipsNil(t *testing.T) {
	var got []Event
	capture := loggerFunc(func(e Event) { got = append(got, e) })
	m := NewMultiLogger(nil, capture, NoopLogger{})
	m.Log(NewErrorEvent("case-3", RoleHarness, os.ErrClosed))
	if len(got) != 1 || got[0].Error == nil {
		t.Fatalf("captured = %+v", got)
	}
}

type loggerFunc func(Event)

func (f loggerFunc) Log(e Event) { f(e) }

func uint32Ptr(v uint32) *uint32 { return &v }
