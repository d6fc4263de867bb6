package chaincode

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

var (
	ErrAlreadyInitialized = errors.New("AlreadyInitialized")
	ErrNotInitialized     = errors.New("NotInitialized")
	ErrInvalidUserAddress = errors.New("InvalidUserAddress")
	ErrInvalidContract    = errors.New("InvalidContractAddress")
	ErrTokenCallFailed    = errors.New("TokenCallFailed")
)

func errInvalidUserAddress(address string) error {
	return vesting.NewCustomError(http.StatusBadRequest, fmt.Sprintf("invalid user address %q", address), ErrInvalidUserAddress)
}

func errInvalidContract(field, address string) error {
	return vesting.NewCustomError(http.StatusBadRequest, fmt.Sprintf("invalid %s %q", field, address), ErrInvalidContract)
}

func errInvalidAmount(amount string) error {
	return vesting.NewCustomError(http.StatusBadRequest, fmt.Sprintf("invalid amount %q", amount), vesting.ErrInvalidAmount)
}
