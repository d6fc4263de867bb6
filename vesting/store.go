package vesting

import (
	"sort"
	"sync"
)

// Txn is the read-write view of ledger state inside one transaction.
// GetState returns nil, nil for keys that were never written.
type Txn interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
}

// Store runs functions inside transactions. Update commits the writes made
// by fn only when fn returns nil; View never commits.
type Store interface {
	Update(fn func(txn Txn) error) error
	View(fn func(txn Txn) error) error
}

// StateReader is the read half of a backing state, such as the chaincode
// world state.
type StateReader interface {
	GetState(key string) ([]byte, error)
}

// StagedTxn buffers writes over a StateReader so that reads observe the
// transaction's own writes before anything reaches the backing state.
// Nothing is written until Commit.
type StagedTxn struct {
	mu     sync.RWMutex
	base   StateReader
	writes map[string][]byte
}

func NewStagedTxn(base StateReader) *StagedTxn {
	return &StagedTxn{
		base:   base,
		writes: make(map[string][]byte),
	}
}

func (t *StagedTxn) GetState(key string) ([]byte, error) {
	t.mu.RLock()
	value, ok := t.writes[key]
	t.mu.RUnlock()
	if ok {
		return append([]byte(nil), value...), nil
	}
	return t.base.GetState(key)
}

func (t *StagedTxn) PutState(key string, value []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes[key] = append([]byte(nil), value...)
	return nil
}

// Pending returns the number of staged writes.
func (t *StagedTxn) Pending() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.writes)
}

// Commit hands every staged write to put in key order and clears the buffer.
func (t *StagedTxn) Commit(put func(key string, value []byte) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.writes))
	for key := range t.writes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := put(key, t.writes[key]); err != nil {
			return err
		}
	}
	t.writes = make(map[string][]byte)
	return nil
}

// Discard drops every staged write.
func (t *StagedTxn) Discard() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.writes = make(map[string][]byte)
}
