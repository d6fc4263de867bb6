// Package scenario replays a YAML description of ledger calls against a
// vesting.Ledger with a controlled clock. vestingctl simulate is built on
// it.
package scenario

import (
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	OpAddLockPlan    = "addLockPlan"
	OpUpdateLockPlan = "updateLockPlan"
	OpLockTokens     = "lockTokens"
	OpSetReleaseTime = "setReleaseTime"
	OpWithdraw       = "withdraw"
	OpCheckLocks     = "checkLocks"
	OpBalance        = "balance"
	OpStats          = "stats"
)

type Scenario struct {
	// Owner and Custody may be left empty and filled in by the caller
	// before Run.
	Owner        string `yaml:"owner"`
	Custody      string `yaml:"custody"`
	MaxLockPlans uint64 `yaml:"maxLockPlans"`
	// CustodyBalance is minted to the custody account before the first step.
	CustodyBalance string `yaml:"custodyBalance" validate:"omitempty,number"`
	// Start is the clock, in unix seconds, before any step sets it.
	Start uint64 `yaml:"start" validate:"required"`
	Steps []Step `yaml:"steps" validate:"required,min=1,dive"`
}

type Step struct {
	// At moves the clock to this unix time before the step runs. Zero keeps
	// the current time.
	At     uint64 `yaml:"at"`
	Op     string `yaml:"op" validate:"required,oneof=addLockPlan updateLockPlan lockTokens setReleaseTime withdraw checkLocks balance stats"`
	Caller string `yaml:"caller"`

	Plan         uint64 `yaml:"plan"`
	Name         string `yaml:"name"`
	MaxPlanTotal string `yaml:"maxPlanTotal" validate:"omitempty,number"`
	StartPercent uint64 `yaml:"startPercent"`
	StartDelay   uint64 `yaml:"startDelay"`
	NextPercent  uint64 `yaml:"nextPercent"`
	NextDelay    uint64 `yaml:"nextDelay"`

	Address     string `yaml:"address"`
	Amount      string `yaml:"amount" validate:"omitempty,number"`
	ReleaseTime uint64 `yaml:"releaseTime"`

	// ExpectError names the error the step must fail with, such as
	// MaxPlanTotalLimitReached. An unexpected failure stops the run.
	ExpectError string `yaml:"expectError"`
}

var validate = validator.New()

func Parse(r io.Reader) (*Scenario, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var sc Scenario
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := validate.Struct(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &sc, nil
}

func Load(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()

	return Parse(f)
}
