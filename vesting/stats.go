package vesting

import (
	"context"
	"math/big"
	"net/http"
)

// Stats aggregates every plan and reads the custody balance. Plan sums come
// from one snapshot; the balance is read after it.
func (l *Ledger) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		TotalBalance:   big.NewInt(0),
		MaxPlansTotal:  big.NewInt(0),
		Total:          big.NewInt(0),
		TotalLocked:    big.NewInt(0),
		TotalWithdrawn: big.NewInt(0),
	}

	err := l.view(func(txn Txn) error {
		count, err := GetLockPlanCount(txn)
		if err != nil {
			return err
		}
		for planID := uint64(1); planID <= count; planID++ {
			plan, err := GetLockPlan(txn, planID)
			if err != nil {
				return err
			}
			if plan == nil {
				continue
			}
			stats.MaxPlansTotal.Add(stats.MaxPlansTotal, plan.MaxPlanTotal)
			stats.Total.Add(stats.Total, plan.Total)
			stats.TotalWithdrawn.Add(stats.TotalWithdrawn, plan.Withdrawn)
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	stats.TotalLocked.Sub(stats.Total, stats.TotalWithdrawn)

	balance, err := l.token.BalanceOf(ctx, l.custody)
	if err != nil {
		return Stats{}, NewCustomError(http.StatusBadGateway, "failed to get custody balance", err)
	}
	if balance != nil {
		stats.TotalBalance.Set(balance)
	}

	return stats, nil
}
