// Package token is an in-process fungible token used by the vestingctl
// simulator in place of the token chaincode.
package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

var (
	ErrInsufficientBalance = errors.New("InsufficientBalance")
	ErrInvalidAmount       = errors.New("InvalidAmount")
	ErrInvalidAddress      = errors.New("InvalidAddress")
)

// Token keeps balances in memory. The zero value is not usable; use New.
type Token struct {
	mu       sync.RWMutex
	name     string
	balances map[string]*big.Int
	supply   *big.Int
}

func New(name string) *Token {
	return &Token{
		name:     name,
		balances: make(map[string]*big.Int),
		supply:   big.NewInt(0),
	}
}

func (t *Token) Name() string {
	return t.name
}

func (t *Token) Mint(account string, amount *big.Int) error {
	if !vesting.IsAddressValid(account) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, account)
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	balance := t.balance(account)
	balance.Add(balance, amount)
	t.supply.Add(t.supply, amount)
	return nil
}

// Transfer moves amount from one account to another. It moves everything
// or nothing. Zero-value transfers succeed.
func (t *Token) Transfer(from, to string, amount *big.Int) error {
	if !vesting.IsAddressValid(to) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, to)
	}
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	fromBalance := t.balance(from)
	if fromBalance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance, from, fromBalance, amount)
	}

	fromBalance.Sub(fromBalance, amount)
	toBalance := t.balance(to)
	toBalance.Add(toBalance, amount)
	return nil
}

func (t *Token) BalanceOf(account string) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if balance, ok := t.balances[account]; ok {
		return new(big.Int).Set(balance)
	}
	return big.NewInt(0)
}

func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.supply)
}

// balance must be called with mu held for writing.
func (t *Token) balance(account string) *big.Int {
	balance, ok := t.balances[account]
	if !ok {
		balance = big.NewInt(0)
		t.balances[account] = balance
	}
	return balance
}

// Custody pays out of one account of a Token. It is the vesting.Token the
// ledger uses outside of chaincode.
type Custody struct {
	token   *Token
	account string
}

var _ vesting.Token = (*Custody)(nil)

func NewCustody(token *Token, account string) *Custody {
	return &Custody{token: token, account: account}
}

func (c *Custody) Account() string {
	return c.account
}

func (c *Custody) TransferTo(_ context.Context, to string, amount *big.Int) error {
	return c.token.Transfer(c.account, to, amount)
}

func (c *Custody) BalanceOf(_ context.Context, account string) (*big.Int, error) {
	return c.token.BalanceOf(account), nil
}
