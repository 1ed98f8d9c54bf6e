// Package reporter formats suite results for humans and CI.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lepair-project/lepair-go/internal/testharness/runner"
)

// Reporter formats and outputs scenario results.
type Reporter interface {
	// ReportSuite reports results for a whole run.
	ReportSuite(result *runner.SuiteResult)

	// ReportCase reports results for a single scenario case.
	ReportCase(result *runner.CaseResult)
}

// TextReporter outputs human-readable text reports.
type TextReporter struct {
	writer  io.Writer
	verbose bool
}

// NewTextReporter creates a new text reporter.
func NewTextReporter(w io.Writer, verbose bool) *TextReporter {
	return &TextReporter{
		writer:  w,
		verbose: verbose,
	}
}

// ReportSuite reports suite results in text format.
func (r *TextReporter) ReportSuite(result *runner.SuiteResult) {
	fmt.Fprintf(r.writer, "\n=== Suite: %s ===\n", result.SuiteName)
	fmt.Fprintf(r.writer, "Duration: %s\n", result.Duration.Round(time.Millisecond))
	fmt.Fprintf(r.writer, "\n")

	for _, cr := range result.Results {
		r.ReportCase(cr)
	}

	// Summary
	fmt.Fprintf(r.writer, "\n--- Summary ---\n")
	fmt.Fprintf(r.writer, "Total:  %d\n", len(result.Results))
	fmt.Fprintf(r.writer, "Passed: %d\n", result.PassCount)
	fmt.Fprintf(r.writer, "Failed: %d\n", result.FailCount)

	total := result.PassCount + result.FailCount
	if total > 0 {
		rate := float64(result.PassCount) / float64(total) * 100
		fmt.Fprintf(r.writer, "Pass Rate: %.1f%%\n", rate)
	}
}

// ReportCase reports a single scenario result in text format.
func (r *TextReporter) ReportCase(result *runner.CaseResult) {
	status := "FAIL"
	if result.Passed {
		status = "PASS"
	}

	fmt.Fprintf(r.writer, "[%s] %s (%s)\n",
		status, result.Case.Name(), result.Duration.Round(time.Millisecond))

	if !result.Passed && result.Err != nil {
		fmt.Fprintf(r.writer, "       Error: %v\n", result.Err)
	}
	if r.verbose && result.Attempts > 1 {
		fmt.Fprintf(r.writer, "       Attempts: %d\n", result.Attempts)
	}
}

// JSONReporter outputs JSON-formatted reports.
type JSONReporter struct {
	writer io.Writer
	pretty bool
}

// NewJSONReporter creates a new JSON reporter.
func NewJSONReporter(w io.Writer, pretty bool) *JSONReporter {
	return &JSONReporter{
		writer: w,
		pretty: pretty,
	}
}

// JSONSuiteResult is the JSON representation of suite results.
type JSONSuiteResult struct {
	SuiteName string           `json:"suite_name"`
	Duration  string           `json:"duration"`
	Total     int              `json:"total"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	PassRate  float64          `json:"pass_rate"`
	Cases     []JSONCaseResult `json:"cases"`
}

// JSONCaseResult is the JSON representation of one scenario result.
type JSONCaseResult struct {
	Name      string `json:"name"`
	Variant   string `json:"variant"`
	Status    string `json:"status"`
	Duration  string `json:"duration"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// ReportSuite reports suite results in JSON format.
func (r *JSONReporter) ReportSuite(result *runner.SuiteResult) {
	total := result.PassCount + result.FailCount
	var passRate float64
	if total > 0 {
		passRate = float64(result.PassCount) / float64(total) * 100
	}

	jr := JSONSuiteResult{
		SuiteName: result.SuiteName,
		Duration:  result.Duration.Round(time.Millisecond).String(),
		Total:     len(result.Results),
		Passed:    result.PassCount,
		Failed:    result.FailCount,
		PassRate:  passRate,
		Cases:     make([]JSONCaseResult, 0, len(result.Results)),
	}

	for _, cr := range result.Results {
		jr.Cases = append(jr.Cases, caseToJSON(cr))
	}

	r.writeJSON(jr)
}

// ReportCase reports a single scenario result in JSON format.
func (r *JSONReporter) ReportCase(result *runner.CaseResult) {
	r.writeJSON(caseToJSON(result))
}

func caseToJSON(result *runner.CaseResult) JSONCaseResult {
	status := "failed"
	if result.Passed {
		status = "passed"
	}

	jr := JSONCaseResult{
		Name:     result.Case.Name(),
		Variant:  result.Case.Variant.String(),
		Status:   status,
		Duration: result.Duration.Round(time.Millisecond).String(),
		Attempts: result.Attempts,
	}
	if result.Err != nil {
		jr.Error = result.Err.Error()
		jr.ErrorKind = runner.Category(result.Err).String()
	}
	return jr
}

func (r *JSONReporter) writeJSON(v any) {
	var data []byte
	var err error

	if r.pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		fmt.Fprintf(r.writer, `{"error": "failed to marshal: %s"}`, err)
		return
	}

	fmt.Fprintln(r.writer, string(data))
}

// JUnitReporter outputs JUnit XML format for CI integration.
type JUnitReporter struct {
	writer io.Writer
}

// NewJUnitReporter creates a new JUnit reporter.
func NewJUnitReporter(w io.Writer) *JUnitReporter {
	return &JUnitReporter{writer: w}
}

// ReportSuite reports suite results in JUnit XML format.
func (r *JUnitReporter) ReportSuite(result *runner.SuiteResult) {
	var b strings.Builder

	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString("\n")

	fmt.Fprintf(&b, `<testsuite name="%s" tests="%d" failures="%d" time="%.3f">`,
		escapeXML(result.SuiteName),
		len(result.Results),
		result.FailCount,
		result.Duration.Seconds())
	b.WriteString("\n")

	for _, cr := range result.Results {
		fmt.Fprintf(&b, `  <testcase name="%s" classname="%s" time="%.3f">`,
			escapeXML(cr.Case.Name()),
			escapeXML(cr.Case.Variant.String()),
			cr.Duration.Seconds())
		b.WriteString("\n")

		if !cr.Passed && cr.Err != nil {
			fmt.Fprintf(&b, `    <failure message="%s"/>`, escapeXML(cr.Err.Error()))
			b.WriteString("\n")
		}

		b.WriteString("  </testcase>\n")
	}

	b.WriteString("</testsuite>\n")

	fmt.Fprint(r.writer, b.String())
}

// ReportCase reports a single case in JUnit format (wraps in a minimal
// testsuite).
func (r *JUnitReporter) ReportCase(result *runner.CaseResult) {
	suite := &runner.SuiteResult{
		SuiteName: "single_case",
		Results:   []*runner.CaseResult{result},
		Duration:  result.Duration,
	}
	if result.Passed {
		suite.PassCount = 1
	} else {
		suite.FailCount = 1
	}
	r.ReportSuite(suite)
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}
