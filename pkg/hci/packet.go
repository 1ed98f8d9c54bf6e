package hci

import (
	"encoding/binary"
	"fmt"
)

// VendorCommand describes a vendor-specific HCI command by opcode and
// parameter schema.
type VendorCommand struct {
	Name   string
	OpCode uint16
	Schema Schema
}

// Encode frames the command as opcode (LE), parameter length, parameters.
func (c VendorCommand) Encode(values map[string]any) ([]byte, error) {
	params, err := c.Schema.Encode(values)
	if err != nil {
		return nil, err
	}
	if len(params) > 0xFF {
		return nil, fmt.Errorf("hci: command %s parameters exceed 255 bytes", c.Name)
	}
	out := binary.LittleEndian.AppendUint16(nil, c.OpCode)
	out = append(out, byte(len(params)))
	return append(out, params...), nil
}

// Decode parses a framed command, validating opcode and length.
func (c VendorCommand) Decode(data []byte) (map[string]any, error) {
	if len(data) < 3 {
		return nil, fmt.Errorf("hci: command %s: short frame", c.Name)
	}
	if op := binary.LittleEndian.Uint16(data); op != c.OpCode {
		return nil, fmt.Errorf("hci: command %s: opcode 0x%04X, want 0x%04X", c.Name, op, c.OpCode)
	}
	if int(data[2]) != len(data)-3 {
		return nil, fmt.Errorf("hci: command %s: length mismatch", c.Name)
	}
	return c.Schema.Decode(data, 3)
}

// VendorEvent describes a vendor-specific HCI event. The first parameter
// byte is the subevent code; the schema covers the bytes after it.
type VendorEvent struct {
	Name     string
	Subevent uint8
	Schema   Schema
}

// Encode frames the event parameters with the subevent code prefix.
func (e VendorEvent) Encode(values map[string]any) ([]byte, error) {
	params, err := e.Schema.Encode(values)
	if err != nil {
		return nil, err
	}
	return append([]byte{e.Subevent}, params...), nil
}

// Decode parses event parameters, validating the subevent code.
func (e VendorEvent) Decode(data []byte) (map[string]any, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("hci: event %s: empty parameters", e.Name)
	}
	if data[0] != e.Subevent {
		return nil, fmt.Errorf("hci: event %s: subevent 0x%02X, want 0x%02X", e.Name, data[0], e.Subevent)
	}
	return e.Schema.Decode(data, 1)
}
