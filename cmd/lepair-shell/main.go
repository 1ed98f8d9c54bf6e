// Command lepair-shell is an interactive console for driving a pairing
// endpoint pair by hand.
//
// The shell attaches a reference endpoint (REF) and a device under test
// (DUT) to an in-memory medium and exposes both control surfaces as
// commands: advertising, scanning, connecting, bonding and answering
// pairing prompts. It is the manual counterpart of lepair-test, useful for
// exploring a scenario step by step before encoding it in the matrix.
//
// Usage:
//
//	lepair-shell [flags]
//
// Flags:
//
//	-io string       REF IO capability: display_only, display_yes_no,
//	                 keyboard_only, no_input_no_output, keyboard_display
//	                 (default "display_yes_no")
//	-auto-accept     REF accepts incoming pairing without a consent prompt
//	-agent           Advertise this shell as a REF agent via mDNS
//	-agent-name string  mDNS instance name (default "lepair-shell")
//	-agent-port int  Agent control port advertised via mDNS (default 7331)
//
// Examples:
//
//	# Start with numeric comparison prompts on the REF side
//	lepair-shell -io display_yes_no
//
//	# Just-works pairing, no REF prompts at all
//	lepair-shell -io no_input_no_output -auto-accept
//
//	# Make the shell discoverable by lepair-test -discover
//	lepair-shell -agent -agent-name bench-3
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lepair-project/lepair-go/internal/testharness/mock"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/discovery"
)

var (
	ioCapName  = flag.String("io", "display_yes_no", "REF IO capability")
	autoAccept = flag.Bool("auto-accept", false, "REF accepts incoming pairing without a consent prompt")
	agent      = flag.Bool("agent", false, "Advertise this shell as a REF agent via mDNS")
	agentName  = flag.String("agent-name", "lepair-shell", "mDNS instance name")
	agentPort  = flag.Int("agent-port", discovery.DefaultPort, "Agent control port advertised via mDNS")
)

func main() {
	flag.Parse()

	ioCap, err := parseIOCapability(*ioCapName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if *agent {
		adv := discovery.NewAdvertiser()
		err := adv.Advertise(discovery.AgentInfo{
			Instance:   *agentName,
			Role:       discovery.RoleRef,
			Transports: []string{bt.TransportLE.String()},
			Port:       *agentPort,
		}, discovery.AdvertiserConfig{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer adv.Shutdown()
		fmt.Printf("Advertising as %q (%s) on port %d\n", *agentName, discovery.ServiceType, *agentPort)
	}

	console, err := newConsole(mock.NewStack(), ioCap, *autoAccept)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	console.Run(ctx, cancel)
}
