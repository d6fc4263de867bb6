package vesting

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
)

// LockPlan is a named vesting schedule shared by every lock allocated
// against it. Locked is derived as Total - Withdrawn.
type LockPlan struct {
	ID           uint64   `json:"id"`
	Name         string   `json:"name"`
	MaxPlanTotal *big.Int `json:"maxPlanTotal"`
	Total        *big.Int `json:"total"`
	Locked       *big.Int `json:"locked"`
	Withdrawn    *big.Int `json:"withdrawn"`
	StartPercent uint64   `json:"startPercent"`
	StartDelay   uint64   `json:"startDelay"`
	NextPercent  uint64   `json:"nextPercent"`
	NextDelay    uint64   `json:"nextDelay"`
}

// TokenLock is one recipient's allocation against one plan.
type TokenLock struct {
	Total     *big.Int `json:"total"`
	Withdrawn *big.Int `json:"withdrawn"`
}

type LockInfo struct {
	AfterReleaseTime uint64   `json:"afterReleaseTime"`
	UnlockPercent    uint64   `json:"unlockPercent"`
	NextUnlockTime   uint64   `json:"nextUnlockTime"`
	Total            *big.Int `json:"total"`
	TotalUnlock      *big.Int `json:"totalUnlock"`
	Withdrawn        *big.Int `json:"withdrawn"`
	PendingUnlock    *big.Int `json:"pendingUnlock"`
}

type Balance struct {
	Total     *big.Int `json:"total"`
	Locked    *big.Int `json:"locked"`
	Withdrawn *big.Int `json:"withdrawn"`
}

type Stats struct {
	TotalBalance   *big.Int `json:"totalBalance"`
	MaxPlansTotal  *big.Int `json:"maxPlansTotal"`
	Total          *big.Int `json:"total"`
	TotalLocked    *big.Int `json:"totalLocked"`
	TotalWithdrawn *big.Int `json:"totalWithdrawn"`
}

type lockPlanRecord struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	MaxPlanTotal string `json:"maxPlanTotal"`
	Total        string `json:"total"`
	Withdrawn    string `json:"withdrawn"`
	StartPercent uint64 `json:"startPercent"`
	StartDelay   uint64 `json:"startDelay"`
	NextPercent  uint64 `json:"nextPercent"`
	NextDelay    uint64 `json:"nextDelay"`
}

type tokenLockRecord struct {
	Total     string `json:"total"`
	Withdrawn string `json:"withdrawn"`
}

func zeroLockPlan() LockPlan {
	return LockPlan{
		MaxPlanTotal: big.NewInt(0),
		Total:        big.NewInt(0),
		Locked:       big.NewInt(0),
		Withdrawn:    big.NewInt(0),
	}
}

func zeroTokenLock() *TokenLock {
	return &TokenLock{Total: big.NewInt(0), Withdrawn: big.NewInt(0)}
}

func zeroLockInfo() LockInfo {
	return LockInfo{
		Total:         big.NewInt(0),
		TotalUnlock:   big.NewInt(0),
		Withdrawn:     big.NewInt(0),
		PendingUnlock: big.NewInt(0),
	}
}

func zeroBalance() Balance {
	return Balance{Total: big.NewInt(0), Locked: big.NewInt(0), Withdrawn: big.NewInt(0)}
}

func (b *Balance) add(lock *TokenLock) {
	b.Total.Add(b.Total, lock.Total)
	b.Withdrawn.Add(b.Withdrawn, lock.Withdrawn)
	b.Locked.Sub(b.Total, b.Withdrawn)
}

func lockPlanKey(planID uint64) string {
	return fmt.Sprintf("%s_%d", lockPlanKeyPrefix, planID)
}

func tokenLockKey(address string, planID uint64) string {
	return fmt.Sprintf("%s_%s_%d", tokenLockKeyPrefix, address, planID)
}

func parseAmount(field, value string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to parse %s %q", field, value), nil)
	}
	return amount, nil
}

// GetLockPlan loads the plan stored under planID. It returns nil, nil when
// the plan does not exist.
func GetLockPlan(txn Txn, planID uint64) (*LockPlan, error) {
	key := lockPlanKey(planID)
	planAsBytes, err := txn.GetState(key)
	if err != nil {
		return nil, errStorage(fmt.Sprintf("failed to get lock plan with Key %s", key), err)
	}
	if planAsBytes == nil {
		return nil, nil
	}

	var record lockPlanRecord
	if err := json.Unmarshal(planAsBytes, &record); err != nil {
		return nil, errStorage("failed to unmarshal lock plan", err)
	}

	maxPlanTotal, err := parseAmount("maxPlanTotal", record.MaxPlanTotal)
	if err != nil {
		return nil, err
	}
	total, err := parseAmount("total", record.Total)
	if err != nil {
		return nil, err
	}
	withdrawn, err := parseAmount("withdrawn", record.Withdrawn)
	if err != nil {
		return nil, err
	}

	return &LockPlan{
		ID:           record.ID,
		Name:         record.Name,
		MaxPlanTotal: maxPlanTotal,
		Total:        total,
		Locked:       new(big.Int).Sub(total, withdrawn),
		Withdrawn:    withdrawn,
		StartPercent: record.StartPercent,
		StartDelay:   record.StartDelay,
		NextPercent:  record.NextPercent,
		NextDelay:    record.NextDelay,
	}, nil
}

func SetLockPlan(txn Txn, plan *LockPlan) error {
	record := lockPlanRecord{
		ID:           plan.ID,
		Name:         plan.Name,
		MaxPlanTotal: plan.MaxPlanTotal.String(),
		Total:        plan.Total.String(),
		Withdrawn:    plan.Withdrawn.String(),
		StartPercent: plan.StartPercent,
		StartDelay:   plan.StartDelay,
		NextPercent:  plan.NextPercent,
		NextDelay:    plan.NextDelay,
	}
	planAsBytes, err := json.Marshal(record)
	if err != nil {
		return errStorage("failed to marshal lock plan", err)
	}

	if err := txn.PutState(lockPlanKey(plan.ID), planAsBytes); err != nil {
		return errStorage(fmt.Sprintf("failed to set lock plan %d", plan.ID), err)
	}

	return nil
}

// GetTokenLock loads the lock of address under planID. It returns nil, nil
// when nothing was ever allocated to that pair.
func GetTokenLock(txn Txn, address string, planID uint64) (*TokenLock, error) {
	key := tokenLockKey(address, planID)
	lockAsBytes, err := txn.GetState(key)
	if err != nil {
		return nil, errStorage(fmt.Sprintf("failed to get token lock with Key %s", key), err)
	}
	if lockAsBytes == nil {
		return nil, nil
	}

	var record tokenLockRecord
	if err := json.Unmarshal(lockAsBytes, &record); err != nil {
		return nil, errStorage("failed to unmarshal token lock", err)
	}

	total, err := parseAmount("total", record.Total)
	if err != nil {
		return nil, err
	}
	withdrawn, err := parseAmount("withdrawn", record.Withdrawn)
	if err != nil {
		return nil, err
	}

	return &TokenLock{Total: total, Withdrawn: withdrawn}, nil
}

func SetTokenLock(txn Txn, address string, planID uint64, lock *TokenLock) error {
	lockAsBytes, err := json.Marshal(tokenLockRecord{
		Total:     lock.Total.String(),
		Withdrawn: lock.Withdrawn.String(),
	})
	if err != nil {
		return errStorage("failed to marshal token lock", err)
	}

	if err := txn.PutState(tokenLockKey(address, planID), lockAsBytes); err != nil {
		return errStorage(fmt.Sprintf("failed to set token lock for %s in plan %d", address, planID), err)
	}

	return nil
}

func getUint(txn Txn, key string) (uint64, error) {
	valueAsBytes, err := txn.GetState(key)
	if err != nil {
		return 0, errStorage(fmt.Sprintf("failed to get %s", key), err)
	}
	if valueAsBytes == nil {
		return 0, nil
	}

	value, err := strconv.ParseUint(string(valueAsBytes), 10, 64)
	if err != nil {
		return 0, errStorage(fmt.Sprintf("failed to parse %s", key), err)
	}
	return value, nil
}

func setUint(txn Txn, key string, value uint64) error {
	if err := txn.PutState(key, []byte(strconv.FormatUint(value, 10))); err != nil {
		return errStorage(fmt.Sprintf("failed to set %s", key), err)
	}
	return nil
}

func GetLockPlanCount(txn Txn) (uint64, error) {
	return getUint(txn, lockPlanCountKey)
}

func SetLockPlanCount(txn Txn, count uint64) error {
	return setUint(txn, lockPlanCountKey, count)
}

func GetReleaseTime(txn Txn) (uint64, error) {
	return getUint(txn, releaseTimeKey)
}

func SetReleaseTime(txn Txn, releaseTime uint64) error {
	return setUint(txn, releaseTimeKey, releaseTime)
}
