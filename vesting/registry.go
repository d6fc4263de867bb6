package vesting

import (
	"context"
	"math/big"
)

// AddLockPlan registers a new plan and returns its id. Ids are assigned
// sequentially from 1 and never reused.
func (l *Ledger) AddLockPlan(
	ctx context.Context,
	caller string,
	name string,
	maxPlanTotal *big.Int,
	startPercent,
	startDelay,
	nextPercent,
	nextDelay uint64,
) (uint64, error) {
	var planID uint64
	err := l.mutate(ctx, OpAddLockPlan, caller, func(txn Txn, txID string) ([]pendingEvent, error) {
		if err := l.checkOwner(caller); err != nil {
			return nil, err
		}

		count, err := GetLockPlanCount(txn)
		if err != nil {
			return nil, err
		}
		if count >= l.maxLockPlans {
			return nil, errMaxPlansReached(l.maxLockPlans)
		}

		if err := validateName(name); err != nil {
			return nil, err
		}
		if !isPositive(maxPlanTotal) {
			return nil, errInvalidParam(ErrInvalidMaxPlanTotal, "max plan total must be positive")
		}
		if err := validatePercents(startPercent, nextPercent, nextDelay); err != nil {
			return nil, err
		}

		plan := &LockPlan{
			ID:           count + 1,
			Name:         name,
			MaxPlanTotal: new(big.Int).Set(maxPlanTotal),
			Total:        big.NewInt(0),
			Withdrawn:    big.NewInt(0),
			StartPercent: startPercent,
			StartDelay:   startDelay,
			NextPercent:  nextPercent,
			NextDelay:    nextDelay,
		}
		if err := SetLockPlan(txn, plan); err != nil {
			return nil, err
		}
		if err := SetLockPlanCount(txn, plan.ID); err != nil {
			return nil, err
		}

		planID = plan.ID
		return []pendingEvent{{name: LockPlanAddedKey, payload: lockPlanEvent(txID, plan)}}, nil
	})
	if err != nil {
		return 0, err
	}
	return planID, nil
}

// UpdateLockPlan rewrites the name and schedule of an existing plan. The
// cap and the running totals are left untouched.
func (l *Ledger) UpdateLockPlan(
	ctx context.Context,
	caller string,
	planID uint64,
	name string,
	startPercent,
	startDelay,
	nextPercent,
	nextDelay uint64,
) error {
	return l.mutate(ctx, OpUpdateLockPlan, caller, func(txn Txn, txID string) ([]pendingEvent, error) {
		if err := l.checkOwner(caller); err != nil {
			return nil, err
		}

		plan, err := l.existingPlan(txn, planID)
		if err != nil {
			return nil, err
		}

		if err := validateSchedule(name, startPercent, nextPercent, nextDelay); err != nil {
			return nil, err
		}

		plan.Name = name
		plan.StartPercent = startPercent
		plan.StartDelay = startDelay
		plan.NextPercent = nextPercent
		plan.NextDelay = nextDelay
		if err := SetLockPlan(txn, plan); err != nil {
			return nil, err
		}

		return []pendingEvent{{name: LockPlanUpdatedKey, payload: lockPlanEvent(txID, plan)}}, nil
	})
}

// existingPlan loads planID, failing with PlanNotFound for 0, ids above the
// plan count and ids without a record.
func (l *Ledger) existingPlan(txn Txn, planID uint64) (*LockPlan, error) {
	count, err := GetLockPlanCount(txn)
	if err != nil {
		return nil, err
	}
	if planID == 0 || planID > count {
		return nil, errPlanNotFound(planID)
	}

	plan, err := GetLockPlan(txn, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, errPlanNotFound(planID)
	}
	return plan, nil
}

// GetLockPlan returns the plan stored under planID, or a zeroed plan when
// there is none. Unknown ids are not an error.
func (l *Ledger) GetLockPlan(planID uint64) (LockPlan, error) {
	result := zeroLockPlan()
	err := l.view(func(txn Txn) error {
		plan, err := GetLockPlan(txn, planID)
		if err != nil || plan == nil {
			return err
		}
		result = *plan
		return nil
	})
	if err != nil {
		return zeroLockPlan(), err
	}
	return result, nil
}

func (l *Ledger) GetLockPlanCount() (uint64, error) {
	var count uint64
	err := l.view(func(txn Txn) error {
		var err error
		count, err = GetLockPlanCount(txn)
		return err
	})
	return count, err
}

// GetLockPlans returns every plan in id order.
func (l *Ledger) GetLockPlans() ([]LockPlan, error) {
	var plans []LockPlan
	err := l.view(func(txn Txn) error {
		count, err := GetLockPlanCount(txn)
		if err != nil {
			return err
		}
		plans = make([]LockPlan, 0, count)
		for planID := uint64(1); planID <= count; planID++ {
			plan, err := GetLockPlan(txn, planID)
			if err != nil {
				return err
			}
			if plan != nil {
				plans = append(plans, *plan)
			}
		}
		return nil
	})
	return plans, err
}
