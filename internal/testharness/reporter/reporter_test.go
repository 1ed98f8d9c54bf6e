package reporter_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lepair-project/lepair-go/internal/testharness/reporter"
	"github.com/lepair-project/lepair-go/internal/testharness/runner"
	"github.com/lepair-project/lepair-go/pkg/bt"
)

func sampleCase(variant runner.TestVariant) runner.ScenarioCase {
	return runner.ScenarioCase{
		Variant:             variant,
		ConnectionDirection: bt.DirectionOutgoing,
		PairingDirection:    bt.DirectionOutgoing,
		RefIOCapability:     bt.IOCapNoInputNoOutput,
		RefAddressType:      bt.AddressTypeRandom,
		KeyDistribution:     bt.DefaultKeyDistribution,
	}
}

func sampleSuite() *runner.SuiteResult {
	return &runner.SuiteResult{
		SuiteName: "le_pairing",
		Results: []*runner.CaseResult{
			{
				Case:     sampleCase(runner.VariantAccept),
				Passed:   true,
				Attempts: 1,
				Duration: 100 * time.Millisecond,
			},
			{
				Case:     sampleCase(runner.VariantReject),
				Passed:   false,
				Err:      errors.New("terminal dut bond state: expected NONE, got BONDED"),
				Attempts: 2,
				Duration: 250 * time.Millisecond,
			},
		},
		PassCount: 1,
		FailCount: 1,
		Duration:  350 * time.Millisecond,
	}
}

func TestTextReporterSuite(t *testing.T) {
	var buf bytes.Buffer
	r := reporter.NewTextReporter(&buf, false)
	r.ReportSuite(sampleSuite())

	out := buf.String()
	for _, want := range []string{
		"=== Suite: le_pairing ===",
		"[PASS] accept-conn_outgoing-pair_outgoing",
		"[FAIL] reject-conn_outgoing-pair_outgoing",
		"Error: terminal dut bond state",
		"Passed: 1",
		"Failed: 1",
		"Pass Rate: 50.0%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q:\n%s", want, out)
		}
	}
}

func TestTextReporterVerboseShowsAttempts(t *testing.T) {
	var buf bytes.Buffer
	r := reporter.NewTextReporter(&buf, true)
	r.ReportCase(sampleSuite().Results[1])

	if !strings.Contains(buf.String(), "Attempts: 2") {
		t.Errorf("verbose report missing attempt count:\n%s", buf.String())
	}
}

func TestJSONReporterSuite(t *testing.T) {
	var buf bytes.Buffer
	r := reporter.NewJSONReporter(&buf, false)
	r.ReportSuite(sampleSuite())

	var decoded reporter.JSONSuiteResult
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.Total != 2 || decoded.Passed != 1 || decoded.Failed != 1 {
		t.Errorf("unexpected counts: %+v", decoded)
	}
	if decoded.Cases[1].Status != "failed" || decoded.Cases[1].Error == "" {
		t.Errorf("failed case not reported: %+v", decoded.Cases[1])
	}
	if decoded.Cases[1].ErrorKind == "" {
		t.Errorf("error kind missing: %+v", decoded.Cases[1])
	}
}

func TestJUnitReporterSuite(t *testing.T) {
	var buf bytes.Buffer
	r := reporter.NewJUnitReporter(&buf)
	r.ReportSuite(sampleSuite())

	out := buf.String()
	for _, want := range []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<testsuite name="le_pairing" tests="2" failures="1"`,
		`<failure message="terminal dut bond state: expected NONE, got BONDED"/>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("junit report missing %q:\n%s", want, out)
		}
	}
}
