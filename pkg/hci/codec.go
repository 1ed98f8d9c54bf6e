package hci

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/lepair-project/lepair-go/pkg/bt"
)

// FieldCodec encodes and decodes one packet field. Multi-byte integers are
// little-endian per the HCI specification.
type FieldCodec interface {
	// Append serializes v onto dst.
	Append(dst []byte, v any) ([]byte, error)

	// Parse reads a value from data starting at off and returns it with
	// the new offset.
	Parse(data []byte, off int) (any, int, error)
}

// Field pairs a parameter name with its codec.
type Field struct {
	Name  string
	Codec FieldCodec
}

// Schema is the ordered field layout of a packet's parameter block.
type Schema []Field

// Encode serializes the named values in schema order.
func (s Schema) Encode(values map[string]any) ([]byte, error) {
	var out []byte
	for _, f := range s {
		v, ok := values[f.Name]
		if !ok {
			return nil, fmt.Errorf("hci: missing field %q", f.Name)
		}
		var err error
		out, err = f.Codec.Append(out, v)
		if err != nil {
			return nil, fmt.Errorf("hci: field %q: %w", f.Name, err)
		}
	}
	return out, nil
}

// Decode parses a parameter block into named values, starting at off.
// The whole remainder must be consumed.
func (s Schema) Decode(data []byte, off int) (map[string]any, error) {
	values := make(map[string]any, len(s))
	for _, f := range s {
		v, next, err := f.Codec.Parse(data, off)
		if err != nil {
			return nil, fmt.Errorf("hci: field %q: %w", f.Name, err)
		}
		values[f.Name] = v
		off = next
	}
	if off != len(data) {
		return nil, fmt.Errorf("hci: %d trailing bytes", len(data)-off)
	}
	return values, nil
}

// String renders the schema layout, useful in packet dumps.
func (s Schema) String() string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return strings.Join(names, ",")
}

type uint8Codec struct{}

func (uint8Codec) Append(dst []byte, v any) ([]byte, error) {
	n, ok := toUint64(v)
	if !ok || n > 0xFF {
		return nil, fmt.Errorf("not a uint8: %v", v)
	}
	return append(dst, byte(n)), nil
}

func (uint8Codec) Parse(data []byte, off int) (any, int, error) {
	if off+1 > len(data) {
		return nil, 0, fmt.Errorf("truncated uint8 at %d", off)
	}
	return data[off], off + 1, nil
}

type uint16Codec struct{}

func (uint16Codec) Append(dst []byte, v any) ([]byte, error) {
	n, ok := toUint64(v)
	if !ok || n > 0xFFFF {
		return nil, fmt.Errorf("not a uint16: %v", v)
	}
	return binary.LittleEndian.AppendUint16(dst, uint16(n)), nil
}

func (uint16Codec) Parse(data []byte, off int) (any, int, error) {
	if off+2 > len(data) {
		return nil, 0, fmt.Errorf("truncated uint16 at %d", off)
	}
	return binary.LittleEndian.Uint16(data[off:]), off + 2, nil
}

type bytesCodec struct{ n int }

func (c bytesCodec) Append(dst []byte, v any) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok || len(b) != c.n {
		return nil, fmt.Errorf("need %d bytes, got %v", c.n, v)
	}
	return append(dst, b...), nil
}

func (c bytesCodec) Parse(data []byte, off int) (any, int, error) {
	if off+c.n > len(data) {
		return nil, 0, fmt.Errorf("truncated %d-byte field at %d", c.n, off)
	}
	out := make([]byte, c.n)
	copy(out, data[off:off+c.n])
	return out, off + c.n, nil
}

// AddressWithType is a device address immediately followed by its address
// type, a layout several vendor events share.
type AddressWithType struct {
	Address bt.Address
	Type    bt.AddressType
}

type addressWithTypeCodec struct{}

func (addressWithTypeCodec) Append(dst []byte, v any) ([]byte, error) {
	at, ok := v.(AddressWithType)
	if !ok {
		return nil, fmt.Errorf("not an AddressWithType: %v", v)
	}
	octets := strings.Split(string(at.Address.Normalize()), ":")
	if len(octets) != 6 {
		return nil, fmt.Errorf("malformed address %q", at.Address)
	}
	// Addresses are transmitted least-significant octet first.
	for i := 5; i >= 0; i-- {
		var b byte
		if _, err := fmt.Sscanf(octets[i], "%02X", &b); err != nil {
			return nil, fmt.Errorf("malformed address %q: %w", at.Address, err)
		}
		dst = append(dst, b)
	}
	return append(dst, byte(at.Type)), nil
}

func (addressWithTypeCodec) Parse(data []byte, off int) (any, int, error) {
	if off+7 > len(data) {
		return nil, 0, fmt.Errorf("truncated address at %d", off)
	}
	parts := make([]string, 6)
	for i := 0; i < 6; i++ {
		parts[i] = fmt.Sprintf("%02X", data[off+5-i])
	}
	return AddressWithType{
		Address: bt.Address(strings.Join(parts, ":")),
		Type:    bt.AddressType(data[off+6]),
	}, off + 7, nil
}

// Exported codec singletons for schema declarations.
var (
	Uint8       FieldCodec = uint8Codec{}
	Uint16      FieldCodec = uint16Codec{}
	AddressType FieldCodec = addressWithTypeCodec{}
)

// Bytes returns a codec for a fixed-length byte field.
func Bytes(n int) FieldCodec { return bytesCodec{n: n} }

func toUint64(v any) (uint64, bool) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint32:
		return uint64(n), true
	case uint64:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	default:
		return 0, false
	}
}
