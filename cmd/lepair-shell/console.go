package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/internal/testharness/mock"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/event"
	"github.com/lepair-project/lepair-go/pkg/pairing"
)

// console drives one REF/DUT endpoint pair interactively.
type console struct {
	stack *mock.Stack
	rl    *readline.Instance

	mu         sync.Mutex
	delegate   *pairing.Delegate
	pumpCancel context.CancelFunc
	ioCap      bt.IOCapability
	autoAccept bool
	advType    bt.AddressType
	link       endpoint.Link
	gatt       io.Closer
	lastPrompt bt.Address
}

// newConsole sets up readline, event display and the initial pairing config.
func newConsole(stack *mock.Stack, ioCap bt.IOCapability, autoAccept bool) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lepair> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := &console{
		stack:      stack,
		rl:         rl,
		autoAccept: autoAccept,
		advType:    bt.AddressTypePublic,
	}
	c.watchEvents()
	c.setIOCapability(ioCap)
	return c, nil
}

// Run starts the interactive command loop.
func (c *console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()
	defer c.stopPromptPump()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "status", "st":
			c.cmdStatus()

		case "advertise", "adv":
			c.cmdAdvertise(ctx, args)

		case "stop-adv":
			c.cmdStopAdvertise()

		case "scan":
			c.cmdScan(ctx)

		case "stop-scan":
			c.cmdStopScan()

		case "connect", "c":
			c.cmdConnect(ctx, args)

		case "request", "req":
			c.cmdRequest()

		case "pair", "p":
			c.cmdPair(ctx)

		case "disconnect", "dc":
			c.cmdDisconnect(ctx)

		case "bond", "b":
			c.cmdBond(args)

		case "gatt":
			c.cmdGATT(ctx, args)

		case "confirm":
			c.cmdConfirm(args)

		case "answer", "a":
			c.cmdAnswer(args)

		case "io":
			c.cmdIO(args)

		case "bonds":
			c.cmdBonds()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
LE Pairing Shell Commands:
  REF radio:
    advertise [public|random] - Start connectable advertising
    stop-adv                  - Stop advertising
    scan                      - Start scanning (reports shown as they arrive)
    stop-scan                 - Stop scanning
    connect <addr> [public|random] - Connect out to a peer
    request                   - Send a security request on the current link
    pair                      - Initiate pairing on the current link
    disconnect                - Tear the current link down

  DUT adapter:
    bond [addr]               - CreateBond toward the peer (default: REF)
    gatt [addr]               - Plain connection without bonding
    confirm <yes|no> [addr]   - Answer the outstanding DUT pairing prompt

  REF prompts:
    answer <yes|no> [value]   - Answer the outstanding REF delegate prompt
    io <capability>           - Swap the REF IO capability (resets the delegate)

  Inspection:
    status                    - Show endpoint addresses and link state
    bonds                     - Show stored bonds on both sides

  General:
    help                      - Show this help
    quit                      - Exit shell`)
}

// watchEvents mirrors both endpoints' callback streams onto the console.
func (c *console) watchEvents() {
	w := event.NewWatcher()

	w.On(c.stack.Ref.Events(), endpoint.EventAdvertisement, func(args ...any) {
		adv := args[0].(endpoint.Advertisement)
		c.printf("[ref] scan report from %s services=%s\n", adv.Address, strings.Join(adv.ServiceUUIDs, ","))
	})
	w.On(c.stack.Ref.Events(), endpoint.EventConnection, func(args ...any) {
		link := args[0].(endpoint.Link)
		c.mu.Lock()
		c.link = link
		c.mu.Unlock()
		c.printf("[ref] connection from %s\n", link.PeerAddress())
	})
	w.On(c.stack.Ref.Events(), endpoint.EventDisconnection, func(args ...any) {
		link := args[0].(endpoint.Link)
		c.mu.Lock()
		if c.link == link {
			c.link = nil
		}
		c.mu.Unlock()
		c.printf("[ref] disconnected from %s\n", link.PeerAddress())
	})

	w.On(c.stack.Dut.Events(), endpoint.EventPairingRequest, func(args ...any) {
		req := args[0].(endpoint.PairingRequest)
		c.mu.Lock()
		c.lastPrompt = req.Address
		c.mu.Unlock()
		if req.Pin != 0 {
			c.printf("[dut] pairing prompt %s from %s pin=%06d (confirm yes|no)\n", req.Variant, req.Address, req.Pin)
		} else {
			c.printf("[dut] pairing prompt %s from %s (confirm yes|no)\n", req.Variant, req.Address)
		}
	})
	w.On(c.stack.Dut.Events(), endpoint.EventBondStateChanged, func(args ...any) {
		change := args[0].(endpoint.BondStateChanged)
		c.printf("[dut] bond state with %s: %s\n", change.Address, change.State)
	})
}

// setIOCapability installs a fresh delegate and restarts the prompt pump.
func (c *console) setIOCapability(ioCap bt.IOCapability) {
	c.stopPromptPump()

	delegate := pairing.NewDelegate(c.autoAccept, ioCap, bt.DefaultKeyDistribution, bt.DefaultKeyDistribution)
	c.stack.Ref.SetPairingConfig(pairing.DefaultConfig(delegate))

	pumpCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.delegate = delegate
	c.pumpCancel = cancel
	c.ioCap = ioCap
	c.mu.Unlock()

	go c.pumpPrompts(pumpCtx, delegate)
}

func (c *console) stopPromptPump() {
	c.mu.Lock()
	cancel := c.pumpCancel
	c.pumpCancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// pumpPrompts surfaces REF delegate prompts until the delegate is replaced.
func (c *console) pumpPrompts(ctx context.Context, delegate *pairing.Delegate) {
	for {
		prompt, err := delegate.Events.Get(ctx)
		if err != nil {
			return
		}
		if prompt.Value != nil {
			c.printf("[ref] prompt %s value=%06d (answer yes|no)\n", prompt.Method, *prompt.Value)
		} else {
			c.printf("[ref] prompt %s (answer yes|no)\n", prompt.Method)
		}
	}
}

// printf writes through readline so async output does not mangle the prompt.
func (c *console) printf(format string, args ...any) {
	fmt.Fprintf(c.rl.Stdout(), format, args...)
	c.rl.Refresh()
}

func (c *console) cmdStatus() {
	c.mu.Lock()
	link := c.link
	ioCap := c.ioCap
	advType := c.advType
	c.mu.Unlock()

	fmt.Fprintln(c.rl.Stdout(), "\nEndpoint Status")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	fmt.Fprintf(c.rl.Stdout(), "  REF public:    %s\n", c.stack.Ref.Address(bt.AddressTypePublic))
	fmt.Fprintf(c.rl.Stdout(), "  REF random:    %s\n", c.stack.Ref.Address(bt.AddressTypeRandom))
	fmt.Fprintf(c.rl.Stdout(), "  DUT address:   %s\n", c.stack.Dut.Address())
	fmt.Fprintf(c.rl.Stdout(), "  REF IO cap:    %s\n", ioCap)
	fmt.Fprintf(c.rl.Stdout(), "  Adv addr type: %s\n", advType)
	if link != nil {
		direction := "incoming"
		if link.Outgoing() {
			direction = "outgoing"
		}
		fmt.Fprintf(c.rl.Stdout(), "  Link:          %s (%s, %s)\n", link.PeerAddress(), link.Transport(), direction)
	} else {
		fmt.Fprintf(c.rl.Stdout(), "  Link:          none\n")
	}
	fmt.Fprintln(c.rl.Stdout())
}

func (c *console) cmdAdvertise(ctx context.Context, args []string) {
	advType := bt.AddressTypePublic
	if len(args) > 0 {
		t, err := parseAddressType(args[0])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "%v\n", err)
			return
		}
		advType = t
	}

	if err := c.stack.Ref.StartAdvertising(ctx, advType); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Advertise failed: %v\n", err)
		return
	}
	c.mu.Lock()
	c.advType = advType
	c.mu.Unlock()
	fmt.Fprintf(c.rl.Stdout(), "Advertising as %s\n", c.stack.Ref.Address(advType))
}

func (c *console) cmdStopAdvertise() {
	if err := c.stack.Ref.StopAdvertising(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Stop failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Advertising stopped")
}

func (c *console) cmdScan(ctx context.Context) {
	if err := c.stack.Ref.StartScanning(ctx); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Scan failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Scanning...")
}

func (c *console) cmdStopScan() {
	if err := c.stack.Ref.StopScanning(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Stop failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Scanning stopped")
}

func (c *console) cmdConnect(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: connect <addr> [public|random]")
		return
	}

	ownType := bt.AddressTypePublic
	if len(args) > 1 {
		t, err := parseAddressType(args[1])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "%v\n", err)
			return
		}
		ownType = t
	}

	link, err := c.stack.Ref.Connect(ctx, bt.Address(args[0]).Normalize(), bt.TransportLE, ownType)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}
	c.mu.Lock()
	c.link = link
	c.mu.Unlock()
	fmt.Fprintf(c.rl.Stdout(), "Connected to %s\n", link.PeerAddress())
}

func (c *console) cmdRequest() {
	link := c.currentLink()
	if link == nil {
		fmt.Fprintln(c.rl.Stdout(), "No link (connect or advertise first)")
		return
	}
	if err := link.RequestPairing(); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Security request failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Security request sent")
}

func (c *console) cmdPair(ctx context.Context) {
	link := c.currentLink()
	if link == nil {
		fmt.Fprintln(c.rl.Stdout(), "No link (connect or advertise first)")
		return
	}

	fmt.Fprintln(c.rl.Stdout(), "Pairing...")
	go func() {
		if err := link.Pair(ctx); err != nil {
			c.printf("[ref] pairing failed: %v\n", err)
			return
		}
		c.printf("[ref] pairing complete\n")
	}()
}

func (c *console) cmdDisconnect(ctx context.Context) {
	c.mu.Lock()
	link := c.link
	gatt := c.gatt
	c.link = nil
	c.gatt = nil
	c.mu.Unlock()

	if gatt != nil {
		_ = gatt.Close()
		fmt.Fprintln(c.rl.Stdout(), "Disconnected")
		return
	}
	if link == nil {
		fmt.Fprintln(c.rl.Stdout(), "No link")
		return
	}
	if err := link.Disconnect(ctx); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Disconnect failed: %v\n", err)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "Disconnected")
}

func (c *console) cmdBond(args []string) {
	addr := c.defaultRefAddress()
	if len(args) > 0 {
		addr = bt.Address(args[0]).Normalize()
	}

	if !c.stack.Dut.CreateBond(addr, bt.TransportLE, bt.AddressTypePublic) {
		fmt.Fprintf(c.rl.Stdout(), "CreateBond rejected for %s\n", addr)
		return
	}
	fmt.Fprintf(c.rl.Stdout(), "Bonding with %s...\n", addr)
}

func (c *console) cmdGATT(ctx context.Context, args []string) {
	addr := c.defaultRefAddress()
	if len(args) > 0 {
		addr = bt.Address(args[0]).Normalize()
	}

	client, err := c.stack.Dut.ConnectGATT(ctx, addr, bt.AddressTypePublic, bt.TransportLE)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Connect failed: %v\n", err)
		return
	}
	c.mu.Lock()
	c.gatt = client
	c.mu.Unlock()
	fmt.Fprintf(c.rl.Stdout(), "Connected to %s\n", addr)
}

func (c *console) cmdConfirm(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: confirm <yes|no> [addr]")
		return
	}
	accept, err := parseYesNo(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "%v\n", err)
		return
	}

	c.mu.Lock()
	addr := c.lastPrompt
	c.mu.Unlock()
	if len(args) > 1 {
		addr = bt.Address(args[1]).Normalize()
	}
	if addr == "" {
		fmt.Fprintln(c.rl.Stdout(), "No outstanding DUT prompt")
		return
	}

	if !c.stack.Dut.SetPairingConfirmation(addr, accept) {
		fmt.Fprintf(c.rl.Stdout(), "No pairing in progress with %s\n", addr)
		return
	}
	fmt.Fprintln(c.rl.Stdout(), "OK")
}

func (c *console) cmdAnswer(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: answer <yes|no> [value]")
		return
	}
	accept, err := parseYesNo(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "%v\n", err)
		return
	}

	answer := pairing.Event{Accept: accept}
	if len(args) > 1 {
		v, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid value: %v\n", err)
			return
		}
		answer.Value = pairing.Uint32(uint32(v))
	}

	c.mu.Lock()
	delegate := c.delegate
	c.mu.Unlock()
	delegate.Answers.Put(answer)
	fmt.Fprintln(c.rl.Stdout(), "OK")
}

func (c *console) cmdIO(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: io <capability>")
		fmt.Fprintln(c.rl.Stdout(), "  display_only, display_yes_no, keyboard_only, no_input_no_output, keyboard_display")
		return
	}
	ioCap, err := parseIOCapability(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "%v\n", err)
		return
	}
	c.setIOCapability(ioCap)
	fmt.Fprintf(c.rl.Stdout(), "REF IO capability set to %s\n", ioCap)
}

func (c *console) cmdBonds() {
	dutAddr := c.stack.Dut.Address()

	fmt.Fprintln(c.rl.Stdout(), "\nStored Bonds")
	fmt.Fprintln(c.rl.Stdout(), "-------------------------------------------")
	found := false
	for _, refAddr := range []bt.Address{
		c.stack.Ref.Address(bt.AddressTypePublic),
		c.stack.Ref.Address(bt.AddressTypeRandom),
	} {
		if rec, ok := c.stack.Dut.Bond(refAddr); ok {
			found = true
			fmt.Fprintf(c.rl.Stdout(), "  DUT -> %s: %s keys=%s\n", refAddr, rec.Method, rec.Keys)
		}
	}
	if rec, ok := c.stack.Ref.Bond(dutAddr); ok {
		found = true
		fmt.Fprintf(c.rl.Stdout(), "  REF -> %s: %s keys=%s\n", dutAddr, rec.Method, rec.Keys)
	}
	if !found {
		fmt.Fprintln(c.rl.Stdout(), "  none")
	}
	fmt.Fprintln(c.rl.Stdout())
}

func (c *console) currentLink() endpoint.Link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link
}

// defaultRefAddress is the address REF last advertised with.
func (c *console) defaultRefAddress() bt.Address {
	c.mu.Lock()
	advType := c.advType
	c.mu.Unlock()
	return c.stack.Ref.Address(advType)
}

func parseIOCapability(s string) (bt.IOCapability, error) {
	for _, ioCap := range []bt.IOCapability{
		bt.IOCapDisplayOnly,
		bt.IOCapDisplayYesNo,
		bt.IOCapKeyboardOnly,
		bt.IOCapNoInputNoOutput,
		bt.IOCapKeyboardDisplay,
	} {
		if strings.EqualFold(s, ioCap.String()) {
			return ioCap, nil
		}
	}
	return 0, fmt.Errorf("unknown io capability %q", s)
}

func parseAddressType(s string) (bt.AddressType, error) {
	switch strings.ToLower(s) {
	case "public":
		return bt.AddressTypePublic, nil
	case "random":
		return bt.AddressTypeRandom, nil
	}
	return 0, fmt.Errorf("unknown address type %q (public|random)", s)
}

func parseYesNo(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "true", "accept":
		return true, nil
	case "no", "n", "false", "reject":
		return false, nil
	}
	return false, fmt.Errorf("expected yes or no, got %q", s)
}
