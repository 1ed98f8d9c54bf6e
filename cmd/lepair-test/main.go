// Command lepair-test runs the LE pairing conformance scenario matrix.
//
// This command executes pairing scenarios between a device under test (DUT)
// and a controlled reference endpoint (REF), validating bonding outcomes,
// prompt counts and failure classes for every combination of test variant,
// connection direction, pairing direction, IO capability, address type and
// key distribution.
//
// Usage:
//
//	lepair-test [flags]
//
// Flags:
//
//	-config string        Path to harness configuration (YAML)
//	-timeout duration     Overall run timeout (default 10m)
//	-verbose              Enable verbose output
//	-json                 Output results as JSON
//	-junit                Output results as JUnit XML
//	-protocol-log string  File path for protocol event logging (CBOR format)
//	-discover             List lepair controller agents on the network and exit
//	-discover-wait duration  How long to browse for agents (default 5s)
//
// Examples:
//
//	# Run the full default matrix against the in-memory stack
//	lepair-test
//
//	# Run a restricted matrix from a config file, JUnit output for CI
//	lepair-test -config harness.yaml -junit
//
//	# Record every connection/pairing/bond milestone to a CBOR log
//	lepair-test -protocol-log run.cbor -verbose
//
//	# Discover remote controller agents advertised via mDNS
//	lepair-test -discover
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/internal/testharness/mock"
	"github.com/lepair-project/lepair-go/internal/testharness/reporter"
	"github.com/lepair-project/lepair-go/internal/testharness/runner"
	"github.com/lepair-project/lepair-go/pkg/discovery"
	lepairlog "github.com/lepair-project/lepair-go/pkg/log"
)

var (
	configPath   = flag.String("config", "", "Path to harness configuration (YAML)")
	timeout      = flag.Duration("timeout", 10*time.Minute, "Overall run timeout")
	verbose      = flag.Bool("verbose", false, "Enable verbose output")
	jsonOut      = flag.Bool("json", false, "Output results as JSON")
	junitOut     = flag.Bool("junit", false, "Output results as JUnit XML")
	protocolLog  = flag.String("protocol-log", "", "File path for protocol event logging (CBOR format)")
	discover     = flag.Bool("discover", false, "List lepair controller agents on the network and exit")
	discoverWait = flag.Duration("discover-wait", 5*time.Second, "How long to browse for agents")
)

func main() {
	flag.Parse()

	if *discover {
		os.Exit(runDiscovery())
	}

	// Load configuration
	cfg := runner.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = runner.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	// Determine output format
	outputFormat := "text"
	if *jsonOut {
		outputFormat = "json"
	} else if *junitOut {
		outputFormat = "junit"
	}

	// Setup logging for text output
	if outputFormat == "text" {
		log.SetFlags(log.Ltime)
		if *verbose {
			log.SetFlags(log.Ltime | log.Lmicroseconds)
		}
		printBanner()
		if *configPath != "" {
			log.Printf("Config: %s", *configPath)
		}
		log.Printf("Step timeout: %s", cfg.StepTimeout.Std())
		log.Println()
	}

	// Set up protocol logging if requested
	var protocolLogger *lepairlog.FileLogger
	if *protocolLog != "" {
		var err error
		protocolLogger, err = lepairlog.NewFileLogger(*protocolLog)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create protocol logger: %v\n", err)
			os.Exit(1)
		}
		defer protocolLogger.Close()
		if outputFormat == "text" {
			log.Printf("Protocol logging to: %s", *protocolLog)
		}
	}

	factory := func() (endpoint.Ref, endpoint.Dut, func()) {
		stack := mock.NewStack()
		return stack.Ref, stack.Dut, nil
	}

	// Only pass the logger when non-nil to avoid the typed-nil interface issue.
	var eventLogger lepairlog.Logger
	if protocolLogger != nil {
		eventLogger = protocolLogger
	}

	r := runner.NewRunner(cfg, factory, eventLogger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	result, err := r.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	newReporter(outputFormat).ReportSuite(result)

	// Exit with appropriate code
	if result.FailCount > 0 {
		os.Exit(1)
	}
}

func newReporter(format string) reporter.Reporter {
	switch format {
	case "json":
		return reporter.NewJSONReporter(os.Stdout, true)
	case "junit":
		return reporter.NewJUnitReporter(os.Stdout)
	default:
		return reporter.NewTextReporter(os.Stdout, *verbose)
	}
}

// runDiscovery browses for controller agents and prints what it finds.
func runDiscovery() int {
	ctx, cancel := context.WithTimeout(context.Background(), *discoverWait)
	defer cancel()

	fmt.Printf("Browsing for %s agents (%s)...\n", discovery.ServiceType, *discoverWait)
	agents, err := discovery.BrowseAgents(ctx, *discoverWait)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if len(agents) == 0 {
		fmt.Println("No agents found")
		return 0
	}

	fmt.Printf("\nFound %d agent(s):\n", len(agents))
	for _, a := range agents {
		fmt.Printf("  %s\n", a.Instance)
		fmt.Printf("      Role:       %s\n", a.Role)
		fmt.Printf("      Transports: %s\n", strings.Join(a.Transports, ", "))
		fmt.Printf("      Host:       %s:%d\n", a.Host, a.Port)
		if len(a.Addresses) > 0 {
			fmt.Printf("      Addresses:  %s\n", strings.Join(a.Addresses, ", "))
		}
	}
	return 0
}

func printBanner() {
	fmt.Print(`
 _     _____ ____   _    ___ ____
| |   | ____|  _ \ / \  |_ _|  _ \
| |   |  _| | |_) / _ \  | || |_) |
| |___| |___|  __/ ___ \ | ||  _ <
|_____|_____|_| /_/   \_\___|_| \_\

LE Pairing Conformance Test Runner
`)
}
