package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/p2eengineering/chim-vesting-contract/internal/config"
	"github.com/p2eengineering/chim-vesting-contract/internal/logging"
)

type rootOptions struct {
	envFiles  []string
	logLevel  string
	logFormat string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "vestingctl",
		Short: "vestingctl replays and inspects token-lock vesting plans off-chain.",
		Long: `vestingctl runs the vesting ledger outside of chaincode. ` +
			`simulate replays a YAML scenario against a badger-backed ledger; ` +
			`schedule prints the unlock curve of a plan.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files to load (default ./.env when present)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format: text or json")

	rootCmd.AddCommand(newSimulateCmd(opts))
	rootCmd.AddCommand(newScheduleCmd())

	return rootCmd
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.envFiles...)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}

	logger, err := logging.New(cmd.ErrOrStderr(), logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "vestingctl",
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}

	o.cfg = cfg
	o.logger = logger
	return nil
}
