package runner

import (
	"context"
	"time"

	"github.com/lepair-project/lepair-go/internal/testharness/endpoint"
	"github.com/lepair-project/lepair-go/pkg/bt"
	"github.com/lepair-project/lepair-go/pkg/log"
	"github.com/lepair-project/lepair-go/pkg/pairing"
)

// StackFactory builds the endpoint pair for one test case, plus a cleanup
// released when the case finishes. Called once per case: retry attempts
// within a case reuse the same endpoints.
type StackFactory func() (endpoint.Ref, endpoint.Dut, func())

// CaseResult is the outcome of one scenario case.
type CaseResult struct {
	Case     ScenarioCase
	Passed   bool
	Err      error
	Attempts int
	Duration time.Duration
}

// SuiteResult aggregates a sequential run over the scenario matrix.
type SuiteResult struct {
	SuiteName string
	Results   []*CaseResult
	PassCount int
	FailCount int
	Duration  time.Duration
}

// Runner executes scenario cases sequentially against endpoint pairs
// produced by its factory.
type Runner struct {
	cfg     *Config
	factory StackFactory
	logger  log.Logger
}

// NewRunner creates a runner. A nil logger disables protocol logging.
func NewRunner(cfg *Config, factory StackFactory, logger log.Logger) *Runner {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Runner{cfg: cfg, factory: factory, logger: logger}
}

// Run enumerates the configured matrix and executes every case.
func (r *Runner) Run(ctx context.Context) (*SuiteResult, error) {
	params, err := r.cfg.MatrixParams()
	if err != nil {
		return nil, err
	}
	return r.RunCases(ctx, EnumerateScenarios(params))
}

// RunCases executes the given cases in order. Cases are independent; a
// failure never stops the run, only context cancellation does.
func (r *Runner) RunCases(ctx context.Context, cases []ScenarioCase) (*SuiteResult, error) {
	suite := &SuiteResult{SuiteName: "le_pairing"}
	start := time.Now()
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			suite.Duration = time.Since(start)
			return suite, err
		}
		result := r.runCase(ctx, c)
		suite.Results = append(suite.Results, result)
		if result.Passed {
			suite.PassCount++
		} else {
			suite.FailCount++
		}
	}
	suite.Duration = time.Since(start)
	return suite, nil
}

// runCase executes one case with the outer flake-tolerance retry: only
// infrastructure-class failures are attempted again.
func (r *Runner) runCase(ctx context.Context, c ScenarioCase) *CaseResult {
	result := &CaseResult{Case: c}
	start := time.Now()

	ref, dut, cleanup := r.factory()
	if cleanup != nil {
		defer cleanup()
	}
	adapter := watchAdapter(dut)
	defer adapter.Close()

	err := retryWithBackoff(ctx, RetryConfig{
		MaxAttempts: r.cfg.ScenarioAttempts,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}, func() error {
		result.Attempts++
		return r.attempt(ctx, c, ref, dut, adapter)
	})

	result.Duration = time.Since(start)
	result.Err = err
	result.Passed = err == nil
	if err != nil {
		r.logger.Log(log.NewErrorEvent(c.Name(), log.RoleHarness, err))
	}
	return result
}

func (r *Runner) attempt(ctx context.Context, c ScenarioCase, ref endpoint.Ref, dut endpoint.Dut, adapter *adapterEvents) error {
	// Stale events from a failed previous attempt must not satisfy this
	// attempt's waits.
	adapter.Drain()

	delegate := pairing.NewDelegate(true, c.RefIOCapability, c.KeyDistribution, c.KeyDistribution)
	ref.SetPairingConfig(&pairing.Config{
		SecureConnections:   true,
		MITM:                true,
		Bonding:             true,
		IdentityAddressType: c.RefAddressType,
		Delegate:            delegate,
	})

	establisher := NewEstablisher(ref, dut, r.cfg)
	var link endpoint.Link
	var err error
	if c.ConnectionDirection == bt.DirectionOutgoing {
		initiateBond := c.PairingDirection == bt.DirectionOutgoing
		link, err = establisher.EstablishOutgoing(ctx, c.RefAddressType, initiateBond)
	} else {
		link, err = establisher.EstablishIncoming(ctx, c.RefAddressType)
	}
	if err != nil {
		return err
	}
	defer link.Disconnect(ctx)
	r.logger.Log(log.NewPairingEvent(c.Name(), log.RoleHarness, link.PeerAddress(), "link established", nil))

	orchestrator := NewOrchestrator(ref, dut, r.cfg)
	outcome, err := orchestrator.Pair(ctx, c, link, adapter, delegate)
	if err != nil {
		return err
	}
	r.logger.Log(log.NewBondEvent(c.Name(), link.PeerAddress(), outcome.BondState))

	return VerifyOutcome(c, outcome)
}
