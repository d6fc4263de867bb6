package chaincode

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

const (
	tokenTransfer  = "Transfer"
	tokenBalanceOf = "BalanceOf"
)

// tokenContract reaches the token chaincode through InvokeChaincode on the
// current channel. The vesting contract's own address holds the custody
// balance, so Transfer always pays out of it.
type tokenContract struct {
	ctx  transactionContext
	name string
}

var _ vesting.Token = tokenContract{}

func (t tokenContract) TransferTo(_ context.Context, to string, amount *big.Int) error {
	args := [][]byte{[]byte(tokenTransfer), []byte(to), []byte(amount.String())}
	resp := t.ctx.InvokeChaincode(t.name, args, t.ctx.GetChannelID())
	if resp.Status != http.StatusOK {
		return vesting.NewCustomError(http.StatusBadGateway,
			fmt.Sprintf("%s on %s failed with status %d: %s", tokenTransfer, t.name, resp.Status, resp.Message), ErrTokenCallFailed)
	}
	if payload := strings.TrimSpace(string(resp.Payload)); payload != "" && payload != "true" {
		return vesting.NewCustomError(http.StatusBadGateway,
			fmt.Sprintf("%s on %s returned %s", tokenTransfer, t.name, payload), ErrTokenCallFailed)
	}
	return nil
}

func (t tokenContract) BalanceOf(_ context.Context, account string) (*big.Int, error) {
	args := [][]byte{[]byte(tokenBalanceOf), []byte(account)}
	resp := t.ctx.InvokeChaincode(t.name, args, t.ctx.GetChannelID())
	if resp.Status != http.StatusOK {
		return nil, vesting.NewCustomError(http.StatusBadGateway,
			fmt.Sprintf("%s on %s failed with status %d: %s", tokenBalanceOf, t.name, resp.Status, resp.Message), ErrTokenCallFailed)
	}

	raw := strings.Trim(strings.TrimSpace(string(resp.Payload)), `"`)
	balance, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, vesting.NewCustomError(http.StatusBadGateway,
			fmt.Sprintf("%s on %s returned %q", tokenBalanceOf, t.name, raw), ErrTokenCallFailed)
	}
	return balance, nil
}
