package chaincode

import (
	"errors"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

var errReadOnly = errors.New("world state is read-only in a query")

// worldState is a vesting.Store over the transaction's world state. Update
// stages writes and flushes them with PutStateWithoutKYC only when the
// mutation succeeded, so a rejected call leaves no writes in the
// transaction's write set.
type worldState struct {
	ctx transactionContext
}

var _ vesting.Store = worldState{}

func (w worldState) Update(fn func(txn vesting.Txn) error) error {
	txn := vesting.NewStagedTxn(w.ctx)
	if err := fn(txn); err != nil {
		txn.Discard()
		return err
	}
	return txn.Commit(w.ctx.PutStateWithoutKYC)
}

func (w worldState) View(fn func(txn vesting.Txn) error) error {
	return fn(readOnlyTxn{ctx: w.ctx})
}

type readOnlyTxn struct {
	ctx transactionContext
}

func (t readOnlyTxn) GetState(key string) ([]byte, error) {
	return t.ctx.GetState(key)
}

func (t readOnlyTxn) PutState(string, []byte) error {
	return errReadOnly
}
