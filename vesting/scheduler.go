package vesting

import (
	"math"
	"math/big"
)

// ComputeUnlock reports how much of lock is unlocked under plan at now.
//
// Before releaseTime (or while it is unset) every field is zero. After it,
// the plan starts at StartPercent and gains NextPercent every NextDelay
// seconds, the first step landing StartDelay seconds after release, until
// MaxPercent is reached. AfterReleaseTime is elapsed+1 so that the instant
// of release is distinguishable from "not released".
//
// A nil plan yields all zeros. A nil lock is treated as an empty allocation:
// amounts are zero but the schedule fields still reflect the plan.
func ComputeUnlock(plan *LockPlan, lock *TokenLock, releaseTime, now uint64) LockInfo {
	info := zeroLockInfo()
	if plan == nil || releaseTime == 0 || now < releaseTime {
		return info
	}

	elapsed := now - releaseTime
	info.AfterReleaseTime = elapsed + 1
	info.UnlockPercent, info.NextUnlockTime = unlockPercentAt(plan, elapsed)

	if lock == nil {
		return info
	}

	info.Total.Set(lock.Total)
	info.Withdrawn.Set(lock.Withdrawn)
	info.TotalUnlock.Mul(lock.Total, new(big.Int).SetUint64(info.UnlockPercent))
	info.TotalUnlock.Quo(info.TotalUnlock, new(big.Int).SetUint64(MaxPercent))
	if info.TotalUnlock.Cmp(lock.Withdrawn) > 0 {
		info.PendingUnlock.Sub(info.TotalUnlock, lock.Withdrawn)
	}

	return info
}

// unlockPercentAt is the closed form of stepping percent by NextPercent and
// the step time by NextDelay while the step time is <= elapsed and percent
// is below MaxPercent.
func unlockPercentAt(plan *LockPlan, elapsed uint64) (percent, nextUnlockTime uint64) {
	percent = plan.StartPercent
	nextUnlockTime = plan.StartDelay

	if plan.NextPercent > 0 && plan.NextDelay > 0 && percent < MaxPercent && nextUnlockTime <= elapsed {
		stepsByTime := (elapsed-plan.StartDelay)/plan.NextDelay + 1
		stepsToMax := (MaxPercent - percent + plan.NextPercent - 1) / plan.NextPercent
		steps := min(stepsByTime, stepsToMax)

		percent += steps * plan.NextPercent
		nextUnlockTime = saturatingAdd(plan.StartDelay, saturatingMul(steps, plan.NextDelay))
	}

	if percent >= MaxPercent {
		return MaxPercent, 0
	}
	return percent, nextUnlockTime
}

func saturatingMul(a, b uint64) uint64 {
	if a != 0 && b > math.MaxUint64/a {
		return math.MaxUint64
	}
	return a * b
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
