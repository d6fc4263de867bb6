package badgerstore_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/p2eengineering/chim-vesting-contract/internal/storage/badgerstore"
	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

func TestOpenInMemory(t *testing.T) {
	t.Parallel()

	store, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	err = store.Update(func(txn vesting.Txn) error {
		return txn.PutState("key", []byte("value"))
	})
	require.NoError(t, err)

	err = store.View(func(txn vesting.Txn) error {
		value, err := txn.GetState("key")
		require.NoError(t, err)
		require.Equal(t, []byte("value"), value)
		return nil
	})
	require.NoError(t, err)
}

func TestMissingKeyIsNil(t *testing.T) {
	t.Parallel()

	store, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	err = store.View(func(txn vesting.Txn) error {
		value, err := txn.GetState("missing")
		require.NoError(t, err)
		require.Nil(t, value)
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateDiscardsOnError(t *testing.T) {
	t.Parallel()

	store, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	errBoom := errors.New("boom")
	err = store.Update(func(txn vesting.Txn) error {
		require.NoError(t, txn.PutState("key", []byte("value")))

		// own writes are visible inside the transaction
		value, err := txn.GetState("key")
		require.NoError(t, err)
		require.Equal(t, []byte("value"), value)

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	err = store.View(func(txn vesting.Txn) error {
		value, err := txn.GetState("key")
		require.NoError(t, err)
		require.Nil(t, value)
		return nil
	})
	require.NoError(t, err)
}

func TestOpenWithPathPersists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	store, err := badgerstore.Open(badgerstore.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, store.Update(func(txn vesting.Txn) error {
		return txn.PutState("persistent-key", []byte("persistent-value"))
	}))
	require.NoError(t, store.Close())

	reopened, err := badgerstore.Open(badgerstore.DefaultConfig(dir))
	require.NoError(t, err)
	defer reopened.Close()

	err = reopened.View(func(txn vesting.Txn) error {
		value, err := txn.GetState("persistent-key")
		require.NoError(t, err)
		require.Equal(t, []byte("persistent-value"), value)
		return nil
	})
	require.NoError(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := badgerstore.Open(badgerstore.Config{})
	require.Error(t, err)
}
