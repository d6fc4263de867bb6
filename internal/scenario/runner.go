package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync/atomic"

	"github.com/p2eengineering/chim-vesting-contract/internal/token"
	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

// Clock is a vesting.Clock moved by the scenario steps.
type Clock struct {
	now atomic.Uint64
}

func NewClock(now uint64) *Clock {
	c := &Clock{}
	c.now.Store(now)
	return c
}

func (c *Clock) Now() (uint64, error) {
	return c.now.Load(), nil
}

func (c *Clock) Set(now uint64) {
	c.now.Store(now)
}

type StepResult struct {
	Index  int    `json:"index" yaml:"index"`
	Op     string `json:"op" yaml:"op"`
	At     uint64 `json:"at" yaml:"at"`
	Caller string `json:"caller,omitempty" yaml:"caller,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
	Result any    `json:"result,omitempty" yaml:"result,omitempty"`
}

type Report struct {
	Steps []StepResult           `json:"steps" yaml:"steps"`
	Plans []vesting.LockPlanView `json:"plans" yaml:"plans"`
	Stats vesting.StatsView      `json:"stats" yaml:"stats"`
	Token TokenSnapshot          `json:"token" yaml:"token"`
}

type TokenSnapshot struct {
	Symbol  string            `json:"symbol" yaml:"symbol"`
	Custody string            `json:"custody" yaml:"custody"`
	Holders map[string]string `json:"holders" yaml:"holders"`
}

// Runner replays a Scenario.
type Runner struct {
	store  vesting.Store
	logger *slog.Logger
	sink   vesting.EventSink
}

type RunnerOption func(*Runner)

func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithEventSink forwards ledger events, for example to a journal.
func WithEventSink(sink vesting.EventSink) RunnerOption {
	return func(r *Runner) {
		r.sink = sink
	}
}

func NewRunner(store vesting.Store, opts ...RunnerOption) *Runner {
	r := &Runner{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run replays every step. It stops at the first step that fails without
// expecting to, or that expected an error and succeeded; the report up to
// that step is returned with the error.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	tok := token.New("CHIM")
	if sc.CustodyBalance != "" {
		balance, ok := new(big.Int).SetString(sc.CustodyBalance, 10)
		if !ok {
			return nil, fmt.Errorf("invalid custody balance %q", sc.CustodyBalance)
		}
		if err := tok.Mint(sc.Custody, balance); err != nil {
			return nil, fmt.Errorf("mint custody balance: %w", err)
		}
	}

	clock := NewClock(sc.Start)
	opts := []vesting.Option{vesting.WithLogger(r.logger)}
	if r.sink != nil {
		opts = append(opts, vesting.WithEventSink(r.sink))
	}

	ledger, err := vesting.New(r.store, token.NewCustody(tok, sc.Custody), clock, vesting.Config{
		Owner:        sc.Owner,
		Custody:      sc.Custody,
		MaxLockPlans: sc.MaxLockPlans,
	}, opts...)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	holders := map[string]struct{}{}
	for i, step := range sc.Steps {
		if step.At != 0 {
			clock.Set(step.At)
		}
		now, _ := clock.Now()

		caller := step.Caller
		if caller == "" {
			caller = sc.Owner
			if step.Op == OpWithdraw {
				caller = step.Address
			}
		}
		if step.Address != "" {
			holders[vesting.CanonicalAddress(step.Address)] = struct{}{}
		}

		result, err := r.apply(ctx, ledger, step, caller, now)
		stepResult := StepResult{Index: i, Op: step.Op, At: now, Caller: caller, Result: result}
		if err != nil {
			stepResult.Error = err.Error()
		}
		report.Steps = append(report.Steps, stepResult)

		if err := checkExpectation(step, err); err != nil {
			return report, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	if err := r.summarize(ctx, ledger, tok, sc.Custody, holders, report); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) apply(ctx context.Context, ledger *vesting.Ledger, step Step, caller string, now uint64) (any, error) {
	switch step.Op {
	case OpAddLockPlan:
		maxPlanTotal, err := parseAmount(step.MaxPlanTotal)
		if err != nil {
			return nil, err
		}
		planID, err := ledger.AddLockPlan(ctx, caller, step.Name, maxPlanTotal,
			step.StartPercent, step.StartDelay, step.NextPercent, step.NextDelay)
		if err != nil {
			return nil, err
		}
		return map[string]uint64{"planId": planID}, nil

	case OpUpdateLockPlan:
		return nil, ledger.UpdateLockPlan(ctx, caller, step.Plan, step.Name,
			step.StartPercent, step.StartDelay, step.NextPercent, step.NextDelay)

	case OpLockTokens:
		amount, err := parseAmount(step.Amount)
		if err != nil {
			return nil, err
		}
		return nil, ledger.LockTokens(ctx, caller, step.Address, amount, step.Plan)

	case OpSetReleaseTime:
		return nil, ledger.SetReleaseTime(ctx, caller, step.ReleaseTime)

	case OpWithdraw:
		amount, err := ledger.Withdraw(ctx, caller, step.Plan)
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount": amount.String()}, nil

	case OpCheckLocks:
		info, err := ledger.CheckLocksAt(step.Address, step.Plan, now)
		if err != nil {
			return nil, err
		}
		return info.View(), nil

	case OpBalance:
		var (
			balance vesting.Balance
			err     error
		)
		if step.Plan == 0 {
			balance, err = ledger.GetTotalBalanceOf(step.Address)
		} else {
			balance, err = ledger.GetPlanBalanceOf(step.Address, step.Plan)
		}
		if err != nil {
			return nil, err
		}
		return balance.View(), nil

	case OpStats:
		stats, err := ledger.Stats(ctx)
		if err != nil {
			return nil, err
		}
		return stats.View(), nil

	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func (r *Runner) summarize(ctx context.Context, ledger *vesting.Ledger, tok *token.Token, custody string, holders map[string]struct{}, report *Report) error {
	plans, err := ledger.GetLockPlans()
	if err != nil {
		return err
	}
	for _, plan := range plans {
		report.Plans = append(report.Plans, plan.View())
	}

	stats, err := ledger.Stats(ctx)
	if err != nil {
		return err
	}
	report.Stats = stats.View()

	report.Token = TokenSnapshot{
		Symbol:  tok.Name(),
		Custody: tok.BalanceOf(custody).String(),
		Holders: make(map[string]string, len(holders)),
	}
	for holder := range holders {
		report.Token.Holders[holder] = tok.BalanceOf(holder).String()
	}
	return nil
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

var sentinels = []error{
	vesting.ErrNotOwner,
	vesting.ErrMaxPlansReached,
	vesting.ErrInvalidName,
	vesting.ErrInvalidMaxPlanTotal,
	vesting.ErrInvalidStartPercent,
	vesting.ErrInvalidNextPercent,
	vesting.ErrInvalidPlanParams,
	vesting.ErrPlanNotFound,
	vesting.ErrInvalidAddress,
	vesting.ErrInvalidAmount,
	vesting.ErrMaxPlanTotalLimitReached,
	vesting.ErrReleaseNotSet,
	vesting.ErrReleaseTimeAlreadySet,
	vesting.ErrInvalidReleaseTime,
	vesting.ErrReentrantCall,
	vesting.ErrTransferFailed,
}

func checkExpectation(step Step, err error) error {
	if step.ExpectError == "" {
		return err
	}
	if err == nil {
		return fmt.Errorf("expected %s, got success", step.ExpectError)
	}
	for _, sentinel := range sentinels {
		if sentinel.Error() == step.ExpectError && errors.Is(err, sentinel) {
			return nil
		}
	}
	return fmt.Errorf("expected %s, got: %w", step.ExpectError, err)
}
