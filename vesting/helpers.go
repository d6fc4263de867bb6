package vesting

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
)

// CanonicalAddress is the form an address takes in state keys, events and
// owner checks. Callers may pass any case and surrounding whitespace.
func CanonicalAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsAddressValid rejects the empty address and the null address.
func IsAddressValid(address string) bool {
	address = CanonicalAddress(address)
	if address == "" {
		return false
	}
	return address != NullAddress
}

func isPositive(amount *big.Int) bool {
	return amount != nil && amount.Sign() > 0
}

func isNonNegative(amount *big.Int) bool {
	return amount != nil && amount.Sign() >= 0
}

func (l *Ledger) checkOwner(caller string) error {
	if CanonicalAddress(caller) != l.owner {
		return errNotOwner(caller)
	}
	return nil
}

type transferKey struct{}

// withTransfer marks ctx as belonging to an in-flight token transfer.
func withTransfer(ctx context.Context) context.Context {
	return context.WithValue(ctx, transferKey{}, true)
}

func inTransfer(ctx context.Context) bool {
	inFlight, _ := ctx.Value(transferKey{}).(bool)
	return inFlight
}

// transfer issues TransferTo with the ledger marked as mid-transfer. Any
// ledger call made before it returns fails with ReentrantCall, whatever
// context the token passes back.
func (l *Ledger) transfer(ctx context.Context, to string, amount *big.Int) error {
	l.transferring.Store(true)
	defer l.transferring.Store(false)
	return l.token.TransferTo(withTransfer(ctx), to, amount)
}

func (l *Ledger) checkReentry(ctx context.Context, op string) error {
	if inTransfer(ctx) || l.transferring.Load() {
		return NewCustomError(http.StatusConflict, fmt.Sprintf("%s called during a token transfer", op), ErrReentrantCall)
	}
	return nil
}
