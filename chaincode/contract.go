// Package chaincode exposes the vesting ledger as a Kalp chaincode. Every
// invocation builds a vesting.Ledger over the transaction's world state,
// runs one operation and lets the peer commit the write set.
package chaincode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"

	"github.com/p2eengineering/kalp-sdk-public/kalpsdk"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

const InitializedKey = "VestingInitialized"

// InitializedEvent is emitted by Initialize.
type InitializedEvent struct {
	TxID          string `json:"txId"`
	Owner         string `json:"owner"`
	TokenContract string `json:"tokenContract"`
	Custody       string `json:"custody"`
	MaxLockPlans  uint64 `json:"maxLockPlans"`
}

var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil)).With(slog.String("service", "vesting-chaincode"))

type SmartContract struct {
	kalpsdk.Contract
}

// Initialize makes the signer the owner. tokenContract is the token
// chaincode paying withdrawals and custody is this contract's address on
// that token. maxLockPlans of zero means vesting.DefaultMaxLockPlans.
func (s *SmartContract) Initialize(ctx kalpsdk.TransactionContextInterface, tokenContract, custody string, maxLockPlans uint64) error {
	return initialize(ctx, tokenContract, custody, maxLockPlans)
}

func (s *SmartContract) AddLockPlan(ctx kalpsdk.TransactionContextInterface, name, maxPlanTotal string, startPercent, startDelay, nextPercent, nextDelay uint64) (uint64, error) {
	return addLockPlan(ctx, name, maxPlanTotal, startPercent, startDelay, nextPercent, nextDelay)
}

func (s *SmartContract) UpdateLockPlan(ctx kalpsdk.TransactionContextInterface, planID uint64, name string, startPercent, startDelay, nextPercent, nextDelay uint64) error {
	return updateLockPlan(ctx, planID, name, startPercent, startDelay, nextPercent, nextDelay)
}

func (s *SmartContract) LockTokens(ctx kalpsdk.TransactionContextInterface, address, amount string, planID uint64) error {
	return lockTokens(ctx, address, amount, planID)
}

func (s *SmartContract) SetReleaseTime(ctx kalpsdk.TransactionContextInterface, releaseTime uint64) error {
	return setReleaseTime(ctx, releaseTime)
}

// Withdraw pays the signer's pending unlock under planID and returns the
// amount paid.
func (s *SmartContract) Withdraw(ctx kalpsdk.TransactionContextInterface, planID uint64) (string, error) {
	return withdraw(ctx, planID)
}

func (s *SmartContract) GetLockPlan(ctx kalpsdk.TransactionContextInterface, planID uint64) (vesting.LockPlanView, error) {
	return getLockPlan(ctx, planID)
}

func (s *SmartContract) GetLockPlanCount(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	return getLockPlanCount(ctx)
}

func (s *SmartContract) GetPlanBalanceOf(ctx kalpsdk.TransactionContextInterface, address string, planID uint64) (vesting.BalanceView, error) {
	return getPlanBalanceOf(ctx, address, planID)
}

func (s *SmartContract) GetTotalBalanceOf(ctx kalpsdk.TransactionContextInterface, address string) (vesting.BalanceView, error) {
	return getTotalBalanceOf(ctx, address)
}

func (s *SmartContract) CheckLocks(ctx kalpsdk.TransactionContextInterface, address string, planID uint64) (vesting.LockInfoView, error) {
	return checkLocks(ctx, address, planID)
}

func (s *SmartContract) Stats(ctx kalpsdk.TransactionContextInterface) (vesting.StatsView, error) {
	return stats(ctx)
}

func (s *SmartContract) Owner(ctx kalpsdk.TransactionContextInterface) (string, error) {
	cfg, err := requireContractConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.Owner, nil
}

func (s *SmartContract) TokenAddress(ctx kalpsdk.TransactionContextInterface) (string, error) {
	cfg, err := requireContractConfig(ctx)
	if err != nil {
		return "", err
	}
	return cfg.TokenContract, nil
}

func (s *SmartContract) MaxLockPlans(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	cfg, err := requireContractConfig(ctx)
	if err != nil {
		return 0, err
	}
	return cfg.MaxLockPlans, nil
}

func (s *SmartContract) ReleaseTime(ctx kalpsdk.TransactionContextInterface) (uint64, error) {
	return releaseTime(ctx)
}

func initialize(ctx transactionContext, tokenContract, custody string, maxLockPlans uint64) error {
	signer, err := GetUserId(ctx)
	if err != nil {
		return err
	}

	cfg, err := getContractConfig(ctx)
	if err != nil {
		return err
	}
	if cfg != nil {
		return vesting.NewCustomError(http.StatusConflict, "contract is already initialized", ErrAlreadyInitialized)
	}

	if !IsContractAddressValid(tokenContract) {
		return errInvalidContract("token contract", tokenContract)
	}
	if !IsContractAddressValid(custody) {
		return errInvalidContract("custody", custody)
	}
	if maxLockPlans == 0 {
		maxLockPlans = vesting.DefaultMaxLockPlans
	}

	cfg = &contractConfig{
		Owner:         signer,
		TokenContract: tokenContract,
		Custody:       custody,
		MaxLockPlans:  maxLockPlans,
	}
	if err := setContractConfig(ctx, cfg); err != nil {
		return err
	}

	eventAsBytes, err := json.Marshal(InitializedEvent{
		TxID:          ctx.GetTxID(),
		Owner:         cfg.Owner,
		TokenContract: cfg.TokenContract,
		Custody:       cfg.Custody,
		MaxLockPlans:  cfg.MaxLockPlans,
	})
	if err != nil {
		return fmt.Errorf("failed to obtain JSON encoding: %w", err)
	}
	if err := ctx.SetEvent(InitializedKey, eventAsBytes); err != nil {
		return fmt.Errorf("failed to set event %s: %w", InitializedKey, err)
	}

	return nil
}

// newLedger builds the ledger for one invocation.
func newLedger(ctx transactionContext) (*vesting.Ledger, error) {
	cfg, err := requireContractConfig(ctx)
	if err != nil {
		return nil, err
	}

	clock := vesting.ClockFunc(func() (uint64, error) {
		timestamp, err := ctx.GetTxTimestamp()
		if err != nil {
			return 0, fmt.Errorf("failed to get tx timestamp: %w", err)
		}
		if timestamp.GetSeconds() < 0 {
			return 0, fmt.Errorf("tx timestamp %d is before the epoch", timestamp.GetSeconds())
		}
		return uint64(timestamp.GetSeconds()), nil
	})

	return vesting.New(
		worldState{ctx: ctx},
		tokenContract{ctx: ctx, name: cfg.TokenContract},
		clock,
		vesting.Config{
			Owner:        cfg.Owner,
			Custody:      cfg.Custody,
			MaxLockPlans: cfg.MaxLockPlans,
		},
		vesting.WithEventSink(ctx),
		vesting.WithTxIDFunc(ctx.GetTxID),
		vesting.WithLogger(logger.With(slog.String("channel", ctx.GetChannelID()))),
	)
}

// signerLedger resolves the signer and the ledger for a mutating call.
func signerLedger(ctx transactionContext) (string, *vesting.Ledger, error) {
	signer, err := GetUserId(ctx)
	if err != nil {
		return "", nil, err
	}
	ledger, err := newLedger(ctx)
	if err != nil {
		return "", nil, err
	}
	return signer, ledger, nil
}

func parseAmount(amount string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return nil, errInvalidAmount(amount)
	}
	return value, nil
}

func addLockPlan(ctx transactionContext, name, maxPlanTotal string, startPercent, startDelay, nextPercent, nextDelay uint64) (uint64, error) {
	signer, ledger, err := signerLedger(ctx)
	if err != nil {
		return 0, err
	}
	maxTotal, ok := new(big.Int).SetString(maxPlanTotal, 10)
	if !ok {
		// let the ledger report the owner and capacity checks first
		maxTotal = nil
	}
	return ledger.AddLockPlan(context.Background(), signer, name, maxTotal, startPercent, startDelay, nextPercent, nextDelay)
}

func updateLockPlan(ctx transactionContext, planID uint64, name string, startPercent, startDelay, nextPercent, nextDelay uint64) error {
	signer, ledger, err := signerLedger(ctx)
	if err != nil {
		return err
	}
	return ledger.UpdateLockPlan(context.Background(), signer, planID, name, startPercent, startDelay, nextPercent, nextDelay)
}

func lockTokens(ctx transactionContext, address, amount string, planID uint64) error {
	signer, ledger, err := signerLedger(ctx)
	if err != nil {
		return err
	}
	if vesting.CanonicalAddress(signer) != ledger.Owner() {
		return ledger.LockTokens(context.Background(), signer, address, nil, planID)
	}

	if !isRecipientValid(address) {
		return invalidRecipient(address)
	}
	value, err := parseAmount(amount)
	if err != nil {
		return err
	}
	return ledger.LockTokens(context.Background(), signer, address, value, planID)
}

func setReleaseTime(ctx transactionContext, releaseTime uint64) error {
	signer, ledger, err := signerLedger(ctx)
	if err != nil {
		return err
	}
	return ledger.SetReleaseTime(context.Background(), signer, releaseTime)
}

func withdraw(ctx transactionContext, planID uint64) (string, error) {
	signer, ledger, err := signerLedger(ctx)
	if err != nil {
		return "0", err
	}
	amount, err := ledger.Withdraw(context.Background(), signer, planID)
	if err != nil {
		return "0", err
	}
	return amount.String(), nil
}

func getLockPlan(ctx transactionContext, planID uint64) (vesting.LockPlanView, error) {
	ledger, err := newLedger(ctx)
	if err != nil {
		return vesting.LockPlanView{}, err
	}
	plan, err := ledger.GetLockPlan(planID)
	if err != nil {
		return vesting.LockPlanView{}, err
	}
	return plan.View(), nil
}

func getLockPlanCount(ctx transactionContext) (uint64, error) {
	ledger, err := newLedger(ctx)
	if err != nil {
		return 0, err
	}
	return ledger.GetLockPlanCount()
}

func getPlanBalanceOf(ctx transactionContext, address string, planID uint64) (vesting.BalanceView, error) {
	ledger, err := newLedger(ctx)
	if err != nil {
		return vesting.BalanceView{}, err
	}
	balance, err := ledger.GetPlanBalanceOf(address, planID)
	if err != nil {
		return vesting.BalanceView{}, err
	}
	return balance.View(), nil
}

func getTotalBalanceOf(ctx transactionContext, address string) (vesting.BalanceView, error) {
	ledger, err := newLedger(ctx)
	if err != nil {
		return vesting.BalanceView{}, err
	}
	balance, err := ledger.GetTotalBalanceOf(address)
	if err != nil {
		return vesting.BalanceView{}, err
	}
	return balance.View(), nil
}

func checkLocks(ctx transactionContext, address string, planID uint64) (vesting.LockInfoView, error) {
	ledger, err := newLedger(ctx)
	if err != nil {
		return vesting.LockInfoView{}, err
	}
	info, err := ledger.CheckLocks(address, planID)
	if err != nil {
		return vesting.LockInfoView{}, err
	}
	return info.View(), nil
}

func stats(ctx transactionContext) (vesting.StatsView, error) {
	ledger, err := newLedger(ctx)
	if err != nil {
		return vesting.StatsView{}, err
	}
	result, err := ledger.Stats(context.Background())
	if err != nil {
		return vesting.StatsView{}, err
	}
	return result.View(), nil
}

func releaseTime(ctx transactionContext) (uint64, error) {
	ledger, err := newLedger(ctx)
	if err != nil {
		return 0, err
	}
	return ledger.ReleaseTime()
}
