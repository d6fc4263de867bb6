package vesting

import (
	"fmt"
	"strings"
)

// validateSchedule checks the fields shared by AddLockPlan and
// UpdateLockPlan, in the order callers observe failures.
func validateSchedule(name string, startPercent, nextPercent, nextDelay uint64) error {
	if err := validateName(name); err != nil {
		return err
	}
	return validatePercents(startPercent, nextPercent, nextDelay)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errInvalidParam(ErrInvalidName, "lock plan name cannot be empty")
	}
	return nil
}

func validatePercents(startPercent, nextPercent, nextDelay uint64) error {
	if startPercent > MaxPercent {
		return errInvalidParam(ErrInvalidStartPercent, fmt.Sprintf("start percent %d exceeds %d", startPercent, MaxPercent))
	}
	if nextPercent > MaxPercent {
		return errInvalidParam(ErrInvalidNextPercent, fmt.Sprintf("next percent %d exceeds %d", nextPercent, MaxPercent))
	}
	if startPercent != MaxPercent && (nextPercent == 0 || nextDelay == 0) {
		return errInvalidParam(ErrInvalidPlanParams,
			fmt.Sprintf("plan never reaches %d: start percent %d, next percent %d, next delay %d",
				MaxPercent, startPercent, nextPercent, nextDelay))
	}
	return nil
}

// ValidateSchedule reports whether a plan with these parameters could be
// stored. It does not check the plan count or the name.
func ValidateSchedule(startPercent, nextPercent, nextDelay uint64) error {
	return validatePercents(startPercent, nextPercent, nextDelay)
}
