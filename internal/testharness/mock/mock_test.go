package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/event"
	"github.com/lepair-project/lepair-go/pkg/pairing"
)

const testServiceUUID = "0c640b71-34b8-4a06-8622-3706d6b268cd"

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func dutQueues(d *DutEndpoint) (*event.Queue[endpoint.PairingRequest], *event.Queue[endpoint.BondStateChanged]) {
	prompts := event.NewQueue[endpoint.PairingRequest]()
	bonds := event.NewQueue[endpoint.BondStateChanged]()
	d.Events().On(endpoint.EventPairingRequest, func(args ...any) {
		prompts.Put(args[0].(endpoint.PairingRequest))
	})
	d.Events().On(endpoint.EventBondStateChanged, func(args ...any) {
		bonds.Put(args[0].(endpoint.BondStateChanged))
	})
	return prompts, bonds
}

func expectBondState(t *testing.T, ctx context.Context, bonds *event.Queue[endpoint.BondStateChanged], want bt.BondState) {
	t.Helper()
	change, err := bonds.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, want, change.State)
}

func refDelegate(ioCap bt.IOCapability) *pairing.Delegate {
	return pairing.NewDelegate(true, ioCap, bt.DefaultKeyDistribution, bt.DefaultKeyDistribution)
}

func TestScanReportsAdvertisement(t *testing.T) {
	ctx := testCtx(t)
	stack := NewStack()

	reports := event.NewQueue[endpoint.Advertisement]()
	stack.Ref.Events().On(endpoint.EventAdvertisement, func(args ...any) {
		reports.Put(args[0].(endpoint.Advertisement))
	})

	handle, err := stack.Dut.StartAdvertising(ctx, testServiceUUID)
	require.NoError(t, err)
	defer handle.Stop()

	require.NoError(t, stack.Ref.StartScanning(ctx))
	defer stack.Ref.StopScanning()

	report, err := reports.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, stack.Dut.Address(), report.Address)
	require.True(t, report.HasService(testServiceUUID))
}

func TestAdvertisementGoneAfterStop(t *testing.T) {
	ctx := testCtx(t)
	stack := NewStack()

	handle, err := stack.Dut.StartAdvertising(ctx, testServiceUUID)
	require.NoError(t, err)
	require.Equal(t, []string{testServiceUUID}, stack.Air.ActiveServiceUUIDs())

	handle.Stop()
	handle.Stop() // idempotent
	require.Empty(t, stack.Air.ActiveServiceUUIDs())
}

func TestOutgoingConnectionFiresRefEvent(t *testing.T) {
	ctx := testCtx(t)
	stack := NewStack()

	links := event.NewQueue[endpoint.Link]()
	stack.Ref.Events().On(endpoint.EventConnection, func(args ...any) {
		links.Put(args[0].(endpoint.Link))
	})

	require.NoError(t, stack.Ref.StartAdvertising(ctx, bt.AddressTypePublic))
	defer stack.Ref.StopAdvertising()

	client, err := stack.Dut.ConnectGATT(ctx, stack.Ref.Address(bt.AddressTypePublic), bt.AddressTypePublic, bt.TransportLE)
	require.NoError(t, err)
	defer client.Close()

	link, err := links.Get(ctx)
	require.NoError(t, err)
	require.True(t, link.Outgoing())
	require.Equal(t, stack.Dut.Address(), link.PeerAddress())
	require.NoError(t, link.ReadRemoteFeatures(ctx))
}

func TestCreateBondJustWorks(t *testing.T) {
	ctx := testCtx(t)
	stack := NewStack()
	delegate := refDelegate(bt.IOCapNoInputNoOutput)
	stack.Ref.SetPairingConfig(pairing.DefaultConfig(delegate))
	prompts, bonds := dutQueues(stack.Dut)

	require.NoError(t, stack.Ref.StartAdvertising(ctx, bt.AddressTypePublic))
	refAddr := stack.Ref.Address(bt.AddressTypePublic)

	require.True(t, stack.Dut.CreateBond(refAddr, bt.TransportLE, bt.AddressTypePublic))
	expectBondState(t, ctx, bonds, bt.BondBonding)

	prompt, err := prompts.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, bt.VariantConsent, prompt.Variant)
	require.Zero(t, prompt.Pin)
	require.True(t, stack.Dut.SetPairingConfirmation(refAddr, true))

	refPrompt, err := delegate.Events.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, bt.MethodJustWorks, refPrompt.Method)
	delegate.Answers.Put(pairing.Event{Accept: true})

	expectBondState(t, ctx, bonds, bt.BondBonded)
	require.Equal(t, bt.BondBonded, stack.Dut.BondState(refAddr))

	refBond, ok := stack.Ref.Bond(stack.Dut.Address())
	require.True(t, ok)
	dutBond, ok := stack.Dut.Bond(refAddr)
	require.True(t, ok)
	require.Equal(t, refBond.LTK, dutBond.LTK)
	require.Equal(t, bt.DefaultKeyDistribution, dutBond.Keys)
}

func TestNumericComparisonShowsSamePin(t *testing.T) {
	ctx := testCtx(t)
	stack := NewStack()
	delegate := refDelegate(bt.IOCapDisplayYesNo)
	stack.Ref.SetPairingConfig(pairing.DefaultConfig(delegate))
	prompts, bonds := dutQueues(stack.Dut)

	require.NoError(t, stack.Ref.StartAdvertising(ctx, bt.AddressTypePublic))
	refAddr := stack.Ref.Address(bt.AddressTypePublic)
	require.True(t, stack.Dut.CreateBond(refAddr, bt.TransportLE, bt.AddressTypePublic))

	prompt, err := prompts.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, bt.VariantPasskeyConfirmation, prompt.Variant)

	refPrompt, err := delegate.Events.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, bt.MethodNumericComparison, refPrompt.Method)
	require.NotNil(t, refPrompt.Value)
	require.Equal(t, *refPrompt.Value, prompt.Pin)
	require.Less(t, prompt.Pin, uint32(1000000))

	delegate.Answers.Put(pairing.Event{Accept: true})
	require.True(t, stack.Dut.SetPairingConfirmation(refAddr, true))

	expectBondState(t, ctx, bonds, bt.BondBonding)
	expectBondState(t, ctx, bonds, bt.BondBonded)
}

func TestDutRejectionFailsPairing(t *testing.T) {
	ctx := testCtx(t)
	stack := NewStack()
	delegate := refDelegate(bt.IOCapDisplayYesNo)
	stack.Ref.SetPairingConfig(pairing.DefaultConfig(delegate))
	prompts, bonds := dutQueues(stack.Dut)

	handle, err := stack.Dut.StartAdvertising(ctx, testServiceUUID)
	require.NoError(t, err)
	defer handle.Stop()

	link, err := stack.Ref.Connect(ctx, stack.Dut.Address(), bt.TransportLE, bt.AddressTypePublic)
	require.NoError(t, err)
	require.False(t, link.Outgoing())

	pairErr := make(chan error, 1)
	go func() { pairErr <- link.Pair(ctx) }()

	expectBondState(t, ctx, bonds, bt.BondBonding)

	prompt, err := prompts.Get(ctx)
	require.NoError(t, err)
	// REF accepts its side while the DUT rejects.
	refPrompt, err := delegate.Events.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, bt.MethodNumericComparison, refPrompt.Method)
	delegate.Answers.Put(pairing.Event{Accept: true})
	require.True(t, stack.Dut.SetPairingConfirmation(prompt.Address, false))

	err = <-pairErr
	var pe *endpoint.ProtocolError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, endpoint.ReasonNumericComparisonFailed, pe.Reason)

	expectBondState(t, ctx, bonds, bt.BondNone)
	require.Equal(t, bt.BondNone, stack.Dut.BondState(prompt.Address))
}

func TestDisconnectCancelsPairing(t *testing.T) {
	ctx := testCtx(t)
	stack := NewStack()
	delegate := refDelegate(bt.IOCapNoInputNoOutput)
	stack.Ref.SetPairingConfig(pairing.DefaultConfig(delegate))
	prompts, bonds := dutQueues(stack.Dut)

	handle, err := stack.Dut.StartAdvertising(ctx, testServiceUUID)
	require.NoError(t, err)
	defer handle.Stop()

	link, err := stack.Ref.Connect(ctx, stack.Dut.Address(), bt.TransportLE, bt.AddressTypePublic)
	require.NoError(t, err)

	pairErr := make(chan error, 1)
	go func() { pairErr <- link.Pair(context.Background()) }()

	expectBondState(t, ctx, bonds, bt.BondBonding)
	if _, err := prompts.Get(ctx); err != nil {
		t.Fatalf("waiting for prompt: %v", err)
	}

	require.NoError(t, link.Disconnect(ctx))

	err = <-pairErr
	require.ErrorIs(t, err, endpoint.ErrPairingCancelled)
	expectBondState(t, ctx, bonds, bt.BondNone)
}

func TestSecurityRequestDoubleConfirmation(t *testing.T) {
	ctx := testCtx(t)
	stack := NewStack()
	delegate := refDelegate(bt.IOCapDisplayYesNo)
	stack.Ref.SetPairingConfig(pairing.DefaultConfig(delegate))
	prompts, bonds := dutQueues(stack.Dut)

	links := event.NewQueue[endpoint.Link]()
	stack.Ref.Events().On(endpoint.EventConnection, func(args ...any) {
		links.Put(args[0].(endpoint.Link))
	})

	require.NoError(t, stack.Ref.StartAdvertising(ctx, bt.AddressTypePublic))
	refAddr := stack.Ref.Address(bt.AddressTypePublic)
	client, err := stack.Dut.ConnectGATT(ctx, refAddr, bt.AddressTypePublic, bt.TransportLE)
	require.NoError(t, err)
	defer client.Close()

	link, err := links.Get(ctx)
	require.NoError(t, err)
	require.NoError(t, link.RequestPairing())

	expectBondState(t, ctx, bonds, bt.BondBonding)

	consent, err := prompts.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, bt.VariantConsent, consent.Variant)
	require.Zero(t, consent.Pin)
	require.True(t, stack.Dut.SetPairingConfirmation(refAddr, true))

	confirm, err := prompts.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, bt.VariantPasskeyConfirmation, confirm.Variant)
	require.NotZero(t, confirm.Pin)
	require.True(t, stack.Dut.SetPairingConfirmation(refAddr, true))

	refPrompt, err := delegate.Events.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, *refPrompt.Value, confirm.Pin)
	delegate.Answers.Put(pairing.Event{Accept: true})

	expectBondState(t, ctx, bonds, bt.BondBonded)
	require.Zero(t, prompts.Len())
}

func TestDroppedConnectionTimesOut(t *testing.T) {
	stack := NewStack()
	ctx := testCtx(t)
	require.NoError(t, stack.Ref.StartAdvertising(ctx, bt.AddressTypePublic))
	refAddr := stack.Ref.Address(bt.AddressTypePublic)

	stack.Air.DropConnections(1)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := stack.Dut.ConnectGATT(short, refAddr, bt.AddressTypePublic, bt.TransportLE)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	client, err := stack.Dut.ConnectGATT(ctx, refAddr, bt.AddressTypePublic, bt.TransportLE)
	require.NoError(t, err)
	client.Close()
}

func TestConnectUnknownPeer(t *testing.T) {
	stack := NewStack()
	_, err := stack.Ref.Connect(testCtx(t), bt.NewRandomAddress(), bt.TransportLE, bt.AddressTypePublic)
	if !errors.Is(err, ErrPeerNotReachable) {
		t.Fatalf("expected ErrPeerNotReachable, got %v", err)
	}
}
