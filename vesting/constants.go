package vesting

const (
	// MaxPercent is 100% expressed in basis points.
	MaxPercent uint64 = 10000

	DefaultMaxLockPlans uint64 = 15

	NullAddress = "0x0000000000000000000000000000000000000000"

	lockPlanKeyPrefix  = "lockplan"
	tokenLockKeyPrefix = "tokenlock"
	lockPlanCountKey   = "lockplan_count"
	releaseTimeKey     = "release_time"

	// Events Keys
	LockPlanAddedKey   = "LockPlanAdded"
	LockPlanUpdatedKey = "LockPlanUpdated"
	TokensLockedKey    = "TokensLocked"
	ReleaseTimeSetKey  = "ReleaseTimeSet"
	WithdrawnKey       = "Withdrawn"
)

type Operation string

const (
	OpAddLockPlan    Operation = "addLockPlan"
	OpUpdateLockPlan Operation = "updateLockPlan"
	OpLockTokens     Operation = "lockTokens"
	OpSetReleaseTime Operation = "setReleaseTime"
	OpWithdraw       Operation = "withdraw"
)

func (o Operation) String() string {
	return string(o)
}
