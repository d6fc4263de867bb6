package vesting

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotOwner                 = errors.New("NotOwner")
	ErrMaxPlansReached          = errors.New("MaxPlansReached")
	ErrInvalidName              = errors.New("InvalidName")
	ErrInvalidMaxPlanTotal      = errors.New("InvalidMaxPlanTotal")
	ErrInvalidStartPercent      = errors.New("InvalidStartPercent")
	ErrInvalidNextPercent       = errors.New("InvalidNextPercent")
	ErrInvalidPlanParams        = errors.New("InvalidPlanParams")
	ErrPlanNotFound             = errors.New("PlanNotFound")
	ErrInvalidAddress           = errors.New("InvalidAddress")
	ErrInvalidAmount            = errors.New("InvalidAmount")
	ErrMaxPlanTotalLimitReached = errors.New("MaxPlanTotalLimitReached")
	ErrReleaseNotSet            = errors.New("ReleaseNotSet")
	ErrReleaseTimeAlreadySet    = errors.New("ReleaseTimeAlreadySet")
	ErrInvalidReleaseTime       = errors.New("InvalidReleaseTime")
	ErrReentrantCall            = errors.New("ReentrantCall")
	ErrTransferFailed           = errors.New("TransferFailed")
)

type CustomError struct {
	Code    int
	Message string
	Err     error
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *CustomError) Unwrap() error {
	return e.Err
}

func NewCustomError(code int, message string, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// StatusCode returns the HTTP status carried by err, or 500 when err is not
// a *CustomError.
func StatusCode(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return http.StatusInternalServerError
}

func errNotOwner(caller string) error {
	return NewCustomError(http.StatusForbidden, fmt.Sprintf("caller %s is not the owner", caller), ErrNotOwner)
}

func errPlanNotFound(planID uint64) error {
	return NewCustomError(http.StatusNotFound, fmt.Sprintf("lock plan %d does not exist", planID), ErrPlanNotFound)
}

func errInvalidAddress(address string) error {
	return NewCustomError(http.StatusBadRequest, fmt.Sprintf("invalid address %q", address), ErrInvalidAddress)
}

func errInvalidAmount(amount fmt.Stringer) error {
	return NewCustomError(http.StatusBadRequest, fmt.Sprintf("invalid amount %v", amount), ErrInvalidAmount)
}

func errMaxPlanTotalLimitReached(planID uint64, total, amount, maxPlanTotal fmt.Stringer) error {
	return NewCustomError(http.StatusBadRequest,
		fmt.Sprintf("lock plan %d: total %s + amount %s exceeds max plan total %s", planID, total, amount, maxPlanTotal),
		ErrMaxPlanTotalLimitReached)
}

func errMaxPlansReached(maxLockPlans uint64) error {
	return NewCustomError(http.StatusConflict, fmt.Sprintf("max lock plans limit %d reached", maxLockPlans), ErrMaxPlansReached)
}

func errInvalidParam(sentinel error, message string) error {
	return NewCustomError(http.StatusBadRequest, message, sentinel)
}

func errStorage(message string, err error) error {
	return NewCustomError(http.StatusInternalServerError, message, err)
}
