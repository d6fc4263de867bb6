package chaincode

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

const (
	contractAddressRegex = `^klp-[a-fA-F0-9]+-cc$`
	hexAddressRegex      = `^[0-9a-fA-F]{40}$`
	x509CommonNamePrefix = "x509::CN="
)

var (
	contractAddressPattern = regexp.MustCompile(contractAddressRegex)
	hexAddressPattern      = regexp.MustCompile(hexAddressRegex)
)

// GetUserId returns the caller's address, the common name of its x509
// client identity.
func GetUserId(ctx transactionContext) (string, error) {
	b64ID, err := ctx.GetClientIdentity().GetID()
	if err != nil {
		return "", vesting.NewCustomError(http.StatusInternalServerError, "failed to read clientID", err)
	}

	decodeID, err := base64.StdEncoding.DecodeString(b64ID)
	if err != nil {
		return "", vesting.NewCustomError(http.StatusBadRequest, "failed to base64 decode clientID", err)
	}

	completeID := string(decodeID)
	start := strings.Index(completeID, x509CommonNamePrefix)
	if start < 0 {
		return "", errInvalidUserAddress(completeID)
	}
	userID := completeID[start+len(x509CommonNamePrefix):]
	if end := strings.Index(userID, ","); end >= 0 {
		userID = userID[:end]
	}

	if !IsUserAddressValid(userID) {
		return "", errInvalidUserAddress(userID)
	}

	return userID, nil
}

func IsContractAddressValid(address string) bool {
	return contractAddressPattern.MatchString(address)
}

func IsUserAddressValid(address string) bool {
	return hexAddressPattern.MatchString(address)
}

// isRecipientValid accepts users and contracts as lock recipients, but not
// the all-zero address.
func isRecipientValid(address string) bool {
	if strings.Trim(address, "0") == "" {
		return false
	}
	return IsUserAddressValid(address) || IsContractAddressValid(address)
}

func invalidRecipient(address string) error {
	return vesting.NewCustomError(http.StatusBadRequest, fmt.Sprintf("invalid address %q", address), vesting.ErrInvalidAddress)
}
