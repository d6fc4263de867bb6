package vesting

import (
	"encoding/json"
	"fmt"
)

// EventSink receives ledger events once the transaction that produced them
// has committed. The kalpsdk transaction context satisfies it directly.
type EventSink interface {
	SetEvent(name string, payload []byte) error
}

type LockPlanEvent struct {
	TxID         string `json:"txId"`
	PlanID       uint64 `json:"planId"`
	Name         string `json:"name"`
	MaxPlanTotal string `json:"maxPlanTotal"`
	StartPercent uint64 `json:"startPercent"`
	StartDelay   uint64 `json:"startDelay"`
	NextPercent  uint64 `json:"nextPercent"`
	NextDelay    uint64 `json:"nextDelay"`
}

type TokensLockedEvent struct {
	TxID    string `json:"txId"`
	PlanID  uint64 `json:"planId"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type ReleaseTimeEvent struct {
	TxID        string `json:"txId"`
	ReleaseTime uint64 `json:"releaseTime"`
}

type WithdrawEvent struct {
	TxID    string `json:"txId"`
	PlanID  uint64 `json:"planId"`
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type pendingEvent struct {
	name    string
	payload any
}

func emit(sink EventSink, name string, payload any) error {
	if sink == nil {
		return nil
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to obtain JSON encoding: %w", err)
	}

	if err := sink.SetEvent(name, payloadJSON); err != nil {
		return fmt.Errorf("failed to set event %s: %w", name, err)
	}

	return nil
}

func lockPlanEvent(txID string, plan *LockPlan) LockPlanEvent {
	return LockPlanEvent{
		TxID:         txID,
		PlanID:       plan.ID,
		Name:         plan.Name,
		MaxPlanTotal: plan.MaxPlanTotal.String(),
		StartPercent: plan.StartPercent,
		StartDelay:   plan.StartDelay,
		NextPercent:  plan.NextPercent,
		NextDelay:    plan.NextDelay,
	}
}
