package main

import (
	"fmt"
	"math"
	"math/big"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

type scheduleOptions struct {
	startPercent uint64
	startDelay   uint64
	nextPercent  uint64
	nextDelay    uint64
	total        string
}

func newScheduleCmd() *cobra.Command {
	opts := &scheduleOptions{}

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the unlock steps of a plan",
		Long: `Print every unlock step of a plan, relative to the release time, ` +
			`with the unlocked percent in basis points and the unlocked amount of --total.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSchedule(cmd, opts)
		},
	}

	cmd.Flags().Uint64Var(&opts.startPercent, "start-percent", 0, "percent unlocked at release, in basis points")
	cmd.Flags().Uint64Var(&opts.startDelay, "start-delay", 0, "seconds after release of the first increment")
	cmd.Flags().Uint64Var(&opts.nextPercent, "next-percent", 0, "basis points added per increment")
	cmd.Flags().Uint64Var(&opts.nextDelay, "next-delay", 0, "seconds between increments")
	cmd.Flags().StringVar(&opts.total, "total", "0", "locked amount to apply the schedule to")

	return cmd
}

func runSchedule(cmd *cobra.Command, opts *scheduleOptions) error {
	if err := vesting.ValidateSchedule(opts.startPercent, opts.nextPercent, opts.nextDelay); err != nil {
		return err
	}
	total, ok := new(big.Int).SetString(opts.total, 10)
	if !ok || total.Sign() < 0 {
		return fmt.Errorf("invalid total %q", opts.total)
	}

	plan := &vesting.LockPlan{
		StartPercent: opts.startPercent,
		StartDelay:   opts.startDelay,
		NextPercent:  opts.nextPercent,
		NextDelay:    opts.nextDelay,
	}
	lock := &vesting.TokenLock{Total: total, Withdrawn: big.NewInt(0)}

	// release at 1 so that offset 0 is already released
	const releaseTime = 1

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OFFSET\tPERCENT\tUNLOCKED")

	offset := uint64(0)
	for {
		info := vesting.ComputeUnlock(plan, lock, releaseTime, releaseTime+offset)
		fmt.Fprintf(w, "%d\t%d\t%s\n", offset, info.UnlockPercent, info.TotalUnlock)
		// NextUnlockTime saturates at MaxUint64 for far-off steps
		if info.NextUnlockTime == 0 || info.NextUnlockTime > math.MaxUint64-releaseTime {
			break
		}
		offset = info.NextUnlockTime
	}

	return w.Flush()
}
