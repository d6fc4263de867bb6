package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/p2eengineering/chim-vesting-contract/internal/journal"
	"github.com/p2eengineering/chim-vesting-contract/internal/scenario"
	"github.com/p2eengineering/chim-vesting-contract/internal/storage/badgerstore"
)

type simulateOptions struct {
	file    string
	dataDir string
	journal string
	output  string
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a vesting scenario and print the resulting report",
		Long: `Replay every step of a YAML scenario against a fresh ledger and print a report ` +
			`with each step's outcome, the final plans, stats and token balances. ` +
			`Owner, custody and max lock plans fall back to VESTING_* settings when the scenario omits them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "scenario YAML file")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "badger directory (default VESTING_DATA_DIR, in-memory when empty)")
	cmd.Flags().StringVar(&opts.journal, "journal", "", "sqlite event journal (default VESTING_JOURNAL, disabled when empty)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "yaml", "report format: yaml or json")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSimulate(cmd *cobra.Command, root *rootOptions, opts *simulateOptions) (err error) {
	if opts.output != "yaml" && opts.output != "json" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	sc, err := scenario.Load(opts.file)
	if err != nil {
		return err
	}
	settings := root.cfg
	settings.Owner = firstNonEmpty(sc.Owner, root.cfg.Owner)
	settings.Custody = firstNonEmpty(sc.Custody, root.cfg.Custody)
	if sc.MaxLockPlans != 0 {
		settings.MaxLockPlans = sc.MaxLockPlans
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	ledgerCfg := settings.LedgerConfig()
	sc.Owner, sc.Custody, sc.MaxLockPlans = ledgerCfg.Owner, ledgerCfg.Custody, ledgerCfg.MaxLockPlans

	dataDir := firstNonEmpty(opts.dataDir, root.cfg.DataDir)
	storeCfg := badgerstore.InMemoryConfig()
	if dataDir != "" {
		storeCfg = badgerstore.DefaultConfig(dataDir)
	}
	storeCfg.Logger = root.logger.With(slog.String("component", "badger"))

	store, err := badgerstore.Open(storeCfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	runnerOpts := []scenario.RunnerOption{scenario.WithLogger(root.logger)}
	if journalPath := firstNonEmpty(opts.journal, root.cfg.Journal); journalPath != "" {
		j, openErr := journal.Open(journalPath)
		if openErr != nil {
			return openErr
		}
		defer func() {
			err = errors.Join(err, j.Close())
		}()
		runnerOpts = append(runnerOpts, scenario.WithEventSink(j))
	}

	report, runErr := scenario.NewRunner(store, runnerOpts...).Run(cmd.Context(), sc)
	if report != nil {
		if err := writeReport(cmd.OutOrStdout(), opts.output, report); err != nil {
			return err
		}
	}
	return runErr
}

func writeReport(w io.Writer, format string, report *scenario.Report) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(report); err != nil {
		return err
	}
	return encoder.Close()
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
