package chaincode

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

const contractConfigKey = "vesting_config"

// contractConfig is written once by Initialize.
type contractConfig struct {
	Owner         string `json:"owner"`
	TokenContract string `json:"tokenContract"`
	Custody       string `json:"custody"`
	MaxLockPlans  uint64 `json:"maxLockPlans"`
}

// getContractConfig returns nil, nil before Initialize.
func getContractConfig(ctx transactionContext) (*contractConfig, error) {
	configAsBytes, err := ctx.GetState(contractConfigKey)
	if err != nil {
		return nil, vesting.NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to get %s", contractConfigKey), err)
	}
	if configAsBytes == nil {
		return nil, nil
	}

	var cfg contractConfig
	if err := json.Unmarshal(configAsBytes, &cfg); err != nil {
		return nil, vesting.NewCustomError(http.StatusInternalServerError, "failed to unmarshal contract config", err)
	}
	return &cfg, nil
}

func setContractConfig(ctx transactionContext, cfg *contractConfig) error {
	configAsBytes, err := json.Marshal(cfg)
	if err != nil {
		return vesting.NewCustomError(http.StatusInternalServerError, "failed to marshal contract config", err)
	}
	if err := ctx.PutStateWithoutKYC(contractConfigKey, configAsBytes); err != nil {
		return vesting.NewCustomError(http.StatusInternalServerError, fmt.Sprintf("failed to set %s", contractConfigKey), err)
	}
	return nil
}

func requireContractConfig(ctx transactionContext) (*contractConfig, error) {
	cfg, err := getContractConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, vesting.NewCustomError(http.StatusPreconditionFailed, "contract is not initialized", ErrNotInitialized)
	}
	return cfg, nil
}
