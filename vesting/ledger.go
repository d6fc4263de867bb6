package vesting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
)

//go:generate mockgen -destination mocks/token.go -package mocks github.com/p2eengineering/chim-vesting-contract/vesting Token

// Token is the fungible token contract holding the custody balance. A
// transfer either moves the full amount or fails without moving anything.
//
// TransferTo runs inside the Withdraw transaction, before the Store
// commits. While it runs every Ledger read or mutation fails with
// ReentrantCall. If the commit fails after a successful transfer the
// tokens have left custody without bookkeeping; the Ledger logs that at
// Error level with the recipient and amount for reconciliation.
type Token interface {
	TransferTo(ctx context.Context, to string, amount *big.Int) error
	BalanceOf(ctx context.Context, account string) (*big.Int, error)
}

// Clock supplies the current time in unix seconds.
type Clock interface {
	Now() (uint64, error)
}

type ClockFunc func() (uint64, error)

func (f ClockFunc) Now() (uint64, error) {
	return f()
}

// SystemClock reads the wall clock.
func SystemClock() Clock {
	return ClockFunc(func() (uint64, error) {
		return uint64(time.Now().Unix()), nil
	})
}

type Config struct {
	// Owner is the only caller allowed to mutate plans, locks and the
	// release time.
	Owner string
	// Custody is the account whose token balance backs every lock.
	Custody string
	// MaxLockPlans caps the number of plans. Zero means DefaultMaxLockPlans.
	MaxLockPlans uint64
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) {
		l.events = sink
	}
}

// WithTxIDFunc replaces the generator of transaction ids attached to events
// and log lines.
func WithTxIDFunc(newTxID func() string) Option {
	return func(l *Ledger) {
		if newTxID != nil {
			l.newTxID = newTxID
		}
	}
}

// Ledger is the token-lock vesting ledger. Mutations are serialized through
// a single writer and each runs in one Store transaction; reads run in
// Store snapshots and never take the writer lock.
type Ledger struct {
	mu           sync.Mutex
	transferring atomic.Bool

	store        Store
	token        Token
	clock        Clock
	events       EventSink
	logger       *slog.Logger
	newTxID      func() string
	owner        string
	custody      string
	maxLockPlans uint64
}

func New(store Store, token Token, clock Clock, cfg Config, opts ...Option) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("vesting: store is required")
	}
	if token == nil {
		return nil, errors.New("vesting: token is required")
	}
	if clock == nil {
		return nil, errors.New("vesting: clock is required")
	}
	if !IsAddressValid(cfg.Owner) {
		return nil, fmt.Errorf("vesting: owner: %w", errInvalidAddress(cfg.Owner))
	}
	if !IsAddressValid(cfg.Custody) {
		return nil, fmt.Errorf("vesting: custody: %w", errInvalidAddress(cfg.Custody))
	}

	maxLockPlans := cfg.MaxLockPlans
	if maxLockPlans == 0 {
		maxLockPlans = DefaultMaxLockPlans
	}

	l := &Ledger{
		store:        store,
		token:        token,
		clock:        clock,
		logger:       slog.Default(),
		newTxID:      func() string { return xid.New().String() },
		owner:        CanonicalAddress(cfg.Owner),
		custody:      cfg.Custody,
		maxLockPlans: maxLockPlans,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l, nil
}

func (l *Ledger) Owner() string {
	return l.owner
}

func (l *Ledger) Custody() string {
	return l.custody
}

func (l *Ledger) MaxLockPlans() uint64 {
	return l.maxLockPlans
}

type mutation func(txn Txn, txID string) ([]pendingEvent, error)

// mutate runs fn as one serialized transaction. Events are emitted only
// after the transaction committed.
func (l *Ledger) mutate(ctx context.Context, op Operation, caller string, fn mutation) error {
	if err := l.checkReentry(ctx, op.String()); err != nil {
		observe(op, err, 0)
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	txID := l.newTxID()

	var events []pendingEvent
	err := l.store.Update(func(txn Txn) error {
		var err error
		events, err = fn(txn, txID)
		return err
	})
	observe(op, err, time.Since(start))

	logger := l.logger.With(
		slog.String("op", op.String()),
		slog.String("caller", caller),
		slog.String("tx_id", txID),
	)
	if err != nil {
		logger.Debug("vesting operation rejected", slog.String("error", err.Error()))
		return err
	}
	logger.Info("vesting operation committed", slog.Int("events", len(events)))

	for _, event := range events {
		if err := emit(l.events, event.name, event.payload); err != nil {
			logger.Warn("failed to emit event", slog.String("event", event.name), slog.String("error", err.Error()))
		}
	}

	return nil
}

// view reads committed state. It is refused mid-transfer, when the
// committed state does not yet reflect the withdrawal being paid.
func (l *Ledger) view(fn func(txn Txn) error) error {
	if err := l.checkReentry(context.Background(), "read"); err != nil {
		return err
	}
	return l.store.View(fn)
}

// LockTokens allocates amount to address under planID. It is bookkeeping
// only: the caller must make sure the custody balance covers the locks.
func (l *Ledger) LockTokens(ctx context.Context, caller, address string, amount *big.Int, planID uint64) error {
	address = CanonicalAddress(address)
	return l.mutate(ctx, OpLockTokens, caller, func(txn Txn, txID string) ([]pendingEvent, error) {
		if err := l.checkOwner(caller); err != nil {
			return nil, err
		}
		if !IsAddressValid(address) {
			return nil, errInvalidAddress(address)
		}
		if !isNonNegative(amount) {
			return nil, errInvalidAmount(amount)
		}

		plan, err := l.existingPlan(txn, planID)
		if err != nil {
			return nil, err
		}

		newPlanTotal := new(big.Int).Add(plan.Total, amount)
		if newPlanTotal.Cmp(plan.MaxPlanTotal) > 0 {
			return nil, errMaxPlanTotalLimitReached(planID, plan.Total, amount, plan.MaxPlanTotal)
		}

		lock, err := GetTokenLock(txn, address, planID)
		if err != nil {
			return nil, err
		}
		if lock == nil {
			lock = zeroTokenLock()
		}

		lock.Total.Add(lock.Total, amount)
		plan.Total = newPlanTotal

		if err := SetTokenLock(txn, address, planID, lock); err != nil {
			return nil, err
		}
		if err := SetLockPlan(txn, plan); err != nil {
			return nil, err
		}

		return []pendingEvent{{
			name: TokensLockedKey,
			payload: TokensLockedEvent{
				TxID:    txID,
				PlanID:  planID,
				Address: address,
				Amount:  amount.String(),
			},
		}}, nil
	})
}

// GetPlanBalanceOf never fails on unknown keys; it reports zeros instead.
func (l *Ledger) GetPlanBalanceOf(address string, planID uint64) (Balance, error) {
	address = CanonicalAddress(address)
	balance := zeroBalance()
	err := l.view(func(txn Txn) error {
		lock, err := GetTokenLock(txn, address, planID)
		if err != nil || lock == nil {
			return err
		}
		balance.add(lock)
		return nil
	})
	if err != nil {
		return zeroBalance(), err
	}
	return balance, nil
}

func (l *Ledger) GetTotalBalanceOf(address string) (Balance, error) {
	address = CanonicalAddress(address)
	balance := zeroBalance()
	err := l.view(func(txn Txn) error {
		count, err := GetLockPlanCount(txn)
		if err != nil {
			return err
		}
		for planID := uint64(1); planID <= count; planID++ {
			lock, err := GetTokenLock(txn, address, planID)
			if err != nil {
				return err
			}
			if lock != nil {
				balance.add(lock)
			}
		}
		return nil
	})
	if err != nil {
		return zeroBalance(), err
	}
	return balance, nil
}
