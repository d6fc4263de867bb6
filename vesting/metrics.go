package vesting

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationsTotal counts mutations by operation and result
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vesting_operations_total",
		Help: "Total vesting mutations by operation and result",
	}, []string{"operation", "result"})

	// operationDuration tracks committed and rejected mutation latency
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vesting_operation_duration_seconds",
		Help:    "Vesting mutation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
	}, []string{"operation"})
)

// failureReasons maps sentinel errors to the result label they are counted
// under. Anything else is counted as "error".
var failureReasons = []struct {
	err    error
	reason string
}{
	{ErrNotOwner, "not_owner"},
	{ErrMaxPlansReached, "max_plans_reached"},
	{ErrInvalidName, "invalid_name"},
	{ErrInvalidMaxPlanTotal, "invalid_max_plan_total"},
	{ErrInvalidStartPercent, "invalid_start_percent"},
	{ErrInvalidNextPercent, "invalid_next_percent"},
	{ErrInvalidPlanParams, "invalid_plan_params"},
	{ErrPlanNotFound, "plan_not_found"},
	{ErrInvalidAddress, "invalid_address"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrMaxPlanTotalLimitReached, "max_plan_total_limit_reached"},
	{ErrReleaseNotSet, "release_not_set"},
	{ErrReleaseTimeAlreadySet, "release_time_already_set"},
	{ErrInvalidReleaseTime, "invalid_release_time"},
	{ErrReentrantCall, "reentrant_call"},
	{ErrTransferFailed, "transfer_failed"},
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	for _, failure := range failureReasons {
		if errors.Is(err, failure.err) {
			return failure.reason
		}
	}
	return "error"
}

func observe(op Operation, err error, elapsed time.Duration) {
	operationsTotal.WithLabelValues(op.String(), resultLabel(err)).Inc()
	if elapsed > 0 {
		operationDuration.WithLabelValues(op.String()).Observe(elapsed.Seconds())
	}
}
