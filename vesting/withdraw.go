package vesting

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
)

// Withdraw moves the caller's pending unlock under planID out of custody
// and returns the amount moved. A zero pending amount still succeeds and
// still issues a zero-value transfer.
//
// The lock and plan are updated before the transfer is issued. If the
// transfer fails the whole transaction is discarded.
func (l *Ledger) Withdraw(ctx context.Context, caller string, planID uint64) (*big.Int, error) {
	caller = CanonicalAddress(caller)
	amount := big.NewInt(0)
	transferred := false
	err := l.mutate(ctx, OpWithdraw, caller, func(txn Txn, txID string) ([]pendingEvent, error) {
		releaseTime, err := GetReleaseTime(txn)
		if err != nil {
			return nil, err
		}
		if releaseTime == 0 {
			return nil, NewCustomError(http.StatusPreconditionFailed, "release time is not set", ErrReleaseNotSet)
		}

		plan, err := l.existingPlan(txn, planID)
		if err != nil {
			return nil, err
		}

		lock, err := GetTokenLock(txn, caller, planID)
		if err != nil {
			return nil, err
		}
		if lock == nil {
			lock = zeroTokenLock()
		}

		now, err := l.clock.Now()
		if err != nil {
			return nil, NewCustomError(http.StatusInternalServerError, "failed to read current time", err)
		}

		pending := ComputeUnlock(plan, lock, releaseTime, now).PendingUnlock
		if pending.Sign() > 0 {
			lock.Withdrawn.Add(lock.Withdrawn, pending)
			plan.Withdrawn.Add(plan.Withdrawn, pending)
			plan.Locked.Sub(plan.Total, plan.Withdrawn)

			if err := SetTokenLock(txn, caller, planID, lock); err != nil {
				return nil, err
			}
			if err := SetLockPlan(txn, plan); err != nil {
				return nil, err
			}
		}

		if err := l.transfer(ctx, caller, pending); err != nil {
			return nil, NewCustomError(http.StatusBadGateway,
				fmt.Sprintf("failed to transfer %s to %s", pending, caller),
				fmt.Errorf("%w: %w", ErrTransferFailed, err))
		}

		amount = pending
		transferred = true
		return []pendingEvent{{
			name: WithdrawnKey,
			payload: WithdrawEvent{
				TxID:    txID,
				PlanID:  planID,
				Address: caller,
				Amount:  pending.String(),
			},
		}}, nil
	})
	if err != nil {
		if transferred {
			l.logger.Error("withdrawal paid but not recorded",
				slog.String("address", caller),
				slog.Uint64("plan_id", planID),
				slog.String("amount", amount.String()),
				slog.String("error", err.Error()),
			)
		}
		return nil, err
	}
	return amount, nil
}

// SetReleaseTime starts every plan's clock. It can succeed only once.
// The time is not checked against the current time.
func (l *Ledger) SetReleaseTime(ctx context.Context, caller string, releaseTime uint64) error {
	return l.mutate(ctx, OpSetReleaseTime, caller, func(txn Txn, txID string) ([]pendingEvent, error) {
		if err := l.checkOwner(caller); err != nil {
			return nil, err
		}

		current, err := GetReleaseTime(txn)
		if err != nil {
			return nil, err
		}
		if current != 0 {
			return nil, NewCustomError(http.StatusConflict,
				fmt.Sprintf("release time already set to %d", current), ErrReleaseTimeAlreadySet)
		}
		// zero is the "not set" marker
		if releaseTime == 0 {
			return nil, errInvalidParam(ErrInvalidReleaseTime, "release time must be positive")
		}

		if err := SetReleaseTime(txn, releaseTime); err != nil {
			return nil, err
		}

		return []pendingEvent{{
			name:    ReleaseTimeSetKey,
			payload: ReleaseTimeEvent{TxID: txID, ReleaseTime: releaseTime},
		}}, nil
	})
}

func (l *Ledger) ReleaseTime() (uint64, error) {
	var releaseTime uint64
	err := l.view(func(txn Txn) error {
		var err error
		releaseTime, err = GetReleaseTime(txn)
		return err
	})
	return releaseTime, err
}

// CheckLocks reports the unlock state of address under planID at the
// current time.
func (l *Ledger) CheckLocks(address string, planID uint64) (LockInfo, error) {
	now, err := l.clock.Now()
	if err != nil {
		return zeroLockInfo(), NewCustomError(http.StatusInternalServerError, "failed to read current time", err)
	}
	return l.CheckLocksAt(address, planID, now)
}

// CheckLocksAt is CheckLocks at an explicit time. Unknown plans and
// addresses yield zeros.
func (l *Ledger) CheckLocksAt(address string, planID uint64, now uint64) (LockInfo, error) {
	address = CanonicalAddress(address)
	info := zeroLockInfo()
	err := l.view(func(txn Txn) error {
		releaseTime, err := GetReleaseTime(txn)
		if err != nil {
			return err
		}
		plan, err := GetLockPlan(txn, planID)
		if err != nil {
			return err
		}
		lock, err := GetTokenLock(txn, address, planID)
		if err != nil {
			return err
		}
		info = ComputeUnlock(plan, lock, releaseTime, now)
		return nil
	})
	if err != nil {
		return zeroLockInfo(), err
	}
	return info, nil
}
