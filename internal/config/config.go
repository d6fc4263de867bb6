// Package config reads vestingctl settings from the environment, optionally
// seeded from dotenv files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

const (
	EnvOwner          = "VESTING_OWNER"
	EnvCustody        = "VESTING_CUSTODY_ADDRESS"
	EnvMaxLockPlans   = "VESTING_MAX_LOCK_PLANS"
	EnvDataDir        = "VESTING_DATA_DIR"
	EnvJournal        = "VESTING_JOURNAL"
	EnvLogLevel       = "VESTING_LOG_LEVEL"
	EnvLogFormat      = "VESTING_LOG_FORMAT"
	DefaultDotEnvFile = ".env"
)

type Config struct {
	Owner        string `validate:"required"`
	Custody      string `validate:"required"`
	MaxLockPlans uint64 `validate:"gte=1"`
	// DataDir holds the badger database. Empty keeps state in memory.
	DataDir string
	// Journal is the sqlite event journal path. Empty disables it.
	Journal   string
	LogLevel  string `validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `validate:"omitempty,oneof=text json"`
}

var validate = validator.New()

// Load reads files into the process environment without overriding
// variables that are already set, then builds a Config from it. With no
// files, ./.env is read if present.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(DefaultDotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", DefaultDotEnvFile, err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}

	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{
		Owner:        os.Getenv(EnvOwner),
		Custody:      os.Getenv(EnvCustody),
		MaxLockPlans: vesting.DefaultMaxLockPlans,
		DataDir:      os.Getenv(EnvDataDir),
		Journal:      os.Getenv(EnvJournal),
		LogLevel:     os.Getenv(EnvLogLevel),
		LogFormat:    os.Getenv(EnvLogFormat),
	}

	if raw := os.Getenv(EnvMaxLockPlans); raw != "" {
		maxLockPlans, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvMaxLockPlans, err)
		}
		cfg.MaxLockPlans = maxLockPlans
	}

	return cfg, nil
}

// Validate checks the settings a ledger needs. Owner and custody may come
// from a scenario file, so Load does not call it.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !vesting.IsAddressValid(c.Owner) {
		return fmt.Errorf("invalid config: %s %q is not a valid address", EnvOwner, c.Owner)
	}
	if !vesting.IsAddressValid(c.Custody) {
		return fmt.Errorf("invalid config: %s %q is not a valid address", EnvCustody, c.Custody)
	}
	return nil
}

func (c Config) LedgerConfig() vesting.Config {
	return vesting.Config{
		Owner:        c.Owner,
		Custody:      c.Custody,
		MaxLockPlans: c.MaxLockPlans,
	}
}
