package mock

// Stack bundles a medium with one endpoint pair, the usual fixture for a
// single test case.
type Stack struct {
	Air *Air
	Ref *RefEndpoint
	Dut *DutEndpoint
}

// NewStack creates a fresh medium with a REF and a DUT attached to it.
func NewStack() *Stack {
	air := NewAir()
	return &Stack{
		Air: air,
		Ref: NewRefEndpoint(air),
		Dut: NewDutEndpoint(air),
	}
}
