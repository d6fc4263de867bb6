package chaincode

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/hyperledger/fabric-protos-go/peer"
	"github.com/p2eengineering/kalp-sdk-public/response"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/p2eengineering/chim-vesting-contract/chaincode/mocks"
	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

const (
	Owner         = "2da4c4908a393a387b728206b18388bc529fa8d7"
	Alice         = "0b87970433b22494faff1cc7a819e71bddc7880c"
	Bob           = "63b2d5e9fe4b3dfe6e3e6ecb9bdc35c9d0c4a0a3"
	TokenContract = "klp-6b616c70627269646775-cc"
	Custody       = "klp-76657374696e67-cc"
	StartTime     = 1_700_000_000
)

var _ transactionContext = (*mocks.TransactionContext)(nil)

func SetUserID(transactionContext *mocks.TransactionContext, userID string) {
	completeId := fmt.Sprintf("x509::CN=%s,O=Organization,L=City,ST=State,C=Country", userID)

	// Base64 encode the complete ID
	b64ID := base64.StdEncoding.EncodeToString([]byte(completeId))

	clientIdentity := &mocks.ClientIdentity{}
	clientIdentity.GetIDReturns(b64ID, nil)
	transactionContext.GetClientIdentityReturns(clientIdentity)
}

func SetTime(transactionContext *mocks.TransactionContext, seconds int64) {
	transactionContext.GetTxTimestampReturns(timestamppb.New(time.Unix(seconds, 0)), nil)
}

// testChain backs a fake transaction context with a world state map, an
// event log and a token chaincode holding balances in memory.
type testChain struct {
	ctx       *mocks.TransactionContext
	state     map[string][]byte
	events    []string
	payloads  [][]byte
	balances  map[string]*big.Int
	tokenFail bool
}

func newTestChain(t *testing.T) *testChain {
	t.Helper()

	chain := &testChain{
		ctx:      &mocks.TransactionContext{},
		state:    map[string][]byte{},
		balances: map[string]*big.Int{Custody: big.NewInt(10_000_000)},
	}

	chain.ctx.GetStateStub = func(key string) ([]byte, error) {
		return chain.state[key], nil
	}
	chain.ctx.PutStateWithoutKYCStub = func(key string, value []byte) error {
		chain.state[key] = value
		return nil
	}
	chain.ctx.SetEventStub = func(name string, payload []byte) error {
		chain.events = append(chain.events, name)
		chain.payloads = append(chain.payloads, payload)
		return nil
	}
	chain.ctx.GetTxIDReturns("tx-1")
	chain.ctx.GetChannelIDStub = func() string {
		return "kalp"
	}
	chain.ctx.InvokeChaincodeStub = chain.invokeToken
	SetTime(chain.ctx, StartTime)

	return chain
}

func (c *testChain) invokeToken(name string, args [][]byte, channel string) response.Response {
	if c.tokenFail || name != TokenContract || channel != "kalp" {
		return response.Response{Response: peer.Response{Status: http.StatusInternalServerError, Message: "token unavailable"}}
	}

	switch string(args[0]) {
	case tokenTransfer:
		to := string(args[1])
		amount, _ := new(big.Int).SetString(string(args[2]), 10)
		if c.balances[Custody].Cmp(amount) < 0 {
			return response.Response{Response: peer.Response{Status: http.StatusBadRequest, Message: "insufficient balance"}}
		}
		c.balances[Custody].Sub(c.balances[Custody], amount)
		if c.balances[to] == nil {
			c.balances[to] = big.NewInt(0)
		}
		c.balances[to].Add(c.balances[to], amount)
		return response.Response{Response: peer.Response{Status: http.StatusOK, Payload: []byte("true")}}
	case tokenBalanceOf:
		balance := c.balances[string(args[1])]
		if balance == nil {
			balance = big.NewInt(0)
		}
		return response.Response{Response: peer.Response{Status: http.StatusOK, Payload: []byte(`"` + balance.String() + `"`)}}
	}
	return response.Response{Response: peer.Response{Status: http.StatusNotFound}}
}

func (c *testChain) initialize(t *testing.T) {
	t.Helper()
	SetUserID(c.ctx, Owner)
	require.NoError(t, initialize(c.ctx, TokenContract, Custody, 0))
}

// seedPlan adds the 25% then 2.22% every 30 seconds plan and locks
// 1,000,000 for Alice.
func (c *testChain) seedPlan(t *testing.T) uint64 {
	t.Helper()
	SetUserID(c.ctx, Owner)
	planID, err := addLockPlan(c.ctx, "Seed", "10000000", 2500, 30, 222, 30)
	require.NoError(t, err)
	require.NoError(t, lockTokens(c.ctx, Alice, "1000000", planID))
	return planID
}

func requireStatus(t *testing.T, err error, code int, sentinel error) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, code, vesting.StatusCode(err))
}

func TestGetUserId(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		setup       func(ctx *mocks.TransactionContext)
		expected    string
		shouldError bool
	}{
		{
			name: "Success - user address",
			setup: func(ctx *mocks.TransactionContext) {
				SetUserID(ctx, Alice)
			},
			expected: Alice,
		},
		{
			name: "Failure - client identity error",
			setup: func(ctx *mocks.TransactionContext) {
				clientIdentity := &mocks.ClientIdentity{}
				clientIdentity.GetIDReturns("", errors.New("err"))
				ctx.GetClientIdentityReturns(clientIdentity)
			},
			shouldError: true,
		},
		{
			name: "Failure - not base64",
			setup: func(ctx *mocks.TransactionContext) {
				clientIdentity := &mocks.ClientIdentity{}
				clientIdentity.GetIDReturns("%%%", nil)
				ctx.GetClientIdentityReturns(clientIdentity)
			},
			shouldError: true,
		},
		{
			name: "Failure - no common name",
			setup: func(ctx *mocks.TransactionContext) {
				clientIdentity := &mocks.ClientIdentity{}
				clientIdentity.GetIDReturns(base64.StdEncoding.EncodeToString([]byte("x509::O=Organization")), nil)
				ctx.GetClientIdentityReturns(clientIdentity)
			},
			shouldError: true,
		},
		{
			name: "Failure - common name is not an address",
			setup: func(ctx *mocks.TransactionContext) {
				SetUserID(ctx, "user1")
			},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := &mocks.TransactionContext{}
			tt.setup(ctx)

			userID, err := GetUserId(ctx)
			if tt.shouldError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, userID)
		})
	}
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	chain.initialize(t)

	cfg, err := requireContractConfig(chain.ctx)
	require.NoError(t, err)
	require.Equal(t, Owner, cfg.Owner)
	require.Equal(t, TokenContract, cfg.TokenContract)
	require.Equal(t, Custody, cfg.Custody)
	require.Equal(t, vesting.DefaultMaxLockPlans, cfg.MaxLockPlans)

	require.Equal(t, []string{InitializedKey}, chain.events)
	var event InitializedEvent
	require.NoError(t, json.Unmarshal(chain.payloads[0], &event))
	require.Equal(t, "tx-1", event.TxID)
	require.Equal(t, Owner, event.Owner)

	SetUserID(chain.ctx, Alice)
	err = initialize(chain.ctx, TokenContract, Custody, 3)
	requireStatus(t, err, http.StatusConflict, ErrAlreadyInitialized)
}

func TestInitializeFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		tokenContract string
		custody       string
	}{
		{name: "Failure - token contract is a user", tokenContract: Alice, custody: Custody},
		{name: "Failure - empty token contract", tokenContract: "", custody: Custody},
		{name: "Failure - custody is a user", tokenContract: TokenContract, custody: Bob},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chain := newTestChain(t)
			SetUserID(chain.ctx, Owner)

			err := initialize(chain.ctx, tt.tokenContract, tt.custody, 0)
			requireStatus(t, err, http.StatusBadRequest, ErrInvalidContract)
			require.Empty(t, chain.state)
			require.Empty(t, chain.events)
		})
	}
}

func TestNotInitialized(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	SetUserID(chain.ctx, Owner)

	_, err := addLockPlan(chain.ctx, "Seed", "100", 2500, 30, 222, 30)
	requireStatus(t, err, http.StatusPreconditionFailed, ErrNotInitialized)

	_, err = getLockPlanCount(chain.ctx)
	requireStatus(t, err, http.StatusPreconditionFailed, ErrNotInitialized)
}

func TestLockPlans(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	chain.initialize(t)

	SetUserID(chain.ctx, Owner)
	planID, err := addLockPlan(chain.ctx, "Seed", "10000000", 2500, 30, 222, 30)
	require.NoError(t, err)
	require.Equal(t, uint64(1), planID)

	require.NoError(t, updateLockPlan(chain.ctx, planID, "Seed round", 1000, 60, 500, 60))

	plan, err := getLockPlan(chain.ctx, planID)
	require.NoError(t, err)
	require.Equal(t, vesting.LockPlanView{
		ID:           1,
		Name:         "Seed round",
		MaxPlanTotal: "10000000",
		Total:        "0",
		Locked:       "0",
		Withdrawn:    "0",
		StartPercent: 1000,
		StartDelay:   60,
		NextPercent:  500,
		NextDelay:    60,
	}, plan)

	count, err := getLockPlanCount(chain.ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), count)

	unknown, err := getLockPlan(chain.ctx, 99)
	require.NoError(t, err)
	require.Equal(t, "0", unknown.MaxPlanTotal)

	require.Equal(t, []string{InitializedKey, vesting.LockPlanAddedKey, vesting.LockPlanUpdatedKey}, chain.events)
}

func TestAddLockPlanFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		signer       string
		maxPlanTotal string
		sentinel     error
		code         int
	}{
		{name: "Failure - not owner", signer: Alice, maxPlanTotal: "100", sentinel: vesting.ErrNotOwner, code: http.StatusForbidden},
		{name: "Failure - not owner with bad total", signer: Alice, maxPlanTotal: "abc", sentinel: vesting.ErrNotOwner, code: http.StatusForbidden},
		{name: "Failure - max plan total not a number", signer: Owner, maxPlanTotal: "abc", sentinel: vesting.ErrInvalidMaxPlanTotal, code: http.StatusBadRequest},
		{name: "Failure - zero max plan total", signer: Owner, maxPlanTotal: "0", sentinel: vesting.ErrInvalidMaxPlanTotal, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chain := newTestChain(t)
			chain.initialize(t)

			SetUserID(chain.ctx, tt.signer)
			_, err := addLockPlan(chain.ctx, "Seed", tt.maxPlanTotal, 2500, 30, 222, 30)
			requireStatus(t, err, tt.code, tt.sentinel)

			count, err := getLockPlanCount(chain.ctx)
			require.NoError(t, err)
			require.Zero(t, count)
		})
	}
}

func TestLockTokens(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	chain.initialize(t)
	planID := chain.seedPlan(t)

	require.NoError(t, lockTokens(chain.ctx, TokenContract, "500", planID))

	balance, err := getPlanBalanceOf(chain.ctx, Alice, planID)
	require.NoError(t, err)
	require.Equal(t, vesting.BalanceView{Total: "1000000", Locked: "1000000", Withdrawn: "0"}, balance)

	total, err := getTotalBalanceOf(chain.ctx, TokenContract)
	require.NoError(t, err)
	require.Equal(t, "500", total.Total)

	tests := []struct {
		name     string
		signer   string
		address  string
		amount   string
		sentinel error
		code     int
	}{
		{name: "Failure - not owner", signer: Alice, address: Alice, amount: "abc", sentinel: vesting.ErrNotOwner, code: http.StatusForbidden},
		{name: "Failure - zero address", signer: Owner, address: "0000000000000000000000000000000000000000", amount: "1", sentinel: vesting.ErrInvalidAddress, code: http.StatusBadRequest},
		{name: "Failure - malformed address", signer: Owner, address: "alice", amount: "1", sentinel: vesting.ErrInvalidAddress, code: http.StatusBadRequest},
		{name: "Failure - amount not a number", signer: Owner, address: Bob, amount: "1e6", sentinel: vesting.ErrInvalidAmount, code: http.StatusBadRequest},
		{name: "Failure - negative amount", signer: Owner, address: Bob, amount: "-1", sentinel: vesting.ErrInvalidAmount, code: http.StatusBadRequest},
		{name: "Failure - unknown plan", signer: Owner, address: Bob, amount: "1", sentinel: vesting.ErrPlanNotFound, code: http.StatusNotFound},
		{name: "Failure - over the plan cap", signer: Owner, address: Bob, amount: "9000000", sentinel: vesting.ErrMaxPlanTotalLimitReached, code: http.StatusBadRequest},
	}

	for _, tt := range tests {
		SetUserID(chain.ctx, tt.signer)
		targetPlan := planID
		if tt.sentinel == vesting.ErrPlanNotFound {
			targetPlan = planID + 1
		}
		err := lockTokens(chain.ctx, tt.address, tt.amount, targetPlan)
		requireStatus(t, err, tt.code, tt.sentinel)
	}

	bob, err := getTotalBalanceOf(chain.ctx, Bob)
	require.NoError(t, err)
	require.Equal(t, "0", bob.Total)
}

func TestWithdraw(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	chain.initialize(t)
	planID := chain.seedPlan(t)

	SetUserID(chain.ctx, Alice)
	_, err := withdraw(chain.ctx, planID)
	requireStatus(t, err, http.StatusPreconditionFailed, vesting.ErrReleaseNotSet)

	SetUserID(chain.ctx, Owner)
	require.NoError(t, setReleaseTime(chain.ctx, StartTime))
	err = setReleaseTime(chain.ctx, StartTime+1)
	requireStatus(t, err, http.StatusConflict, vesting.ErrReleaseTimeAlreadySet)

	released, err := releaseTime(chain.ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(StartTime), released)

	SetUserID(chain.ctx, Alice)
	amount, err := withdraw(chain.ctx, planID)
	require.NoError(t, err)
	require.Equal(t, "250000", amount)
	require.Equal(t, "250000", chain.balances[Alice].String())

	_, args, channel := chain.ctx.InvokeChaincodeArgsForCall(chain.ctx.InvokeChaincodeCallCount() - 1)
	require.Equal(t, "kalp", channel)
	require.Equal(t, [][]byte{[]byte(tokenTransfer), []byte(Alice), []byte("250000")}, args)

	SetTime(chain.ctx, StartTime+30)
	info, err := checkLocks(chain.ctx, Alice, planID)
	require.NoError(t, err)
	require.Equal(t, vesting.LockInfoView{
		AfterReleaseTime: 31,
		UnlockPercent:    2722,
		NextUnlockTime:   60,
		Total:            "1000000",
		TotalUnlock:      "272200",
		Withdrawn:        "250000",
		PendingUnlock:    "22200",
	}, info)

	amount, err = withdraw(chain.ctx, planID)
	require.NoError(t, err)
	require.Equal(t, "22200", amount)

	require.Equal(t, vesting.WithdrawnKey, chain.events[len(chain.events)-1])
	var event vesting.WithdrawEvent
	require.NoError(t, json.Unmarshal(chain.payloads[len(chain.payloads)-1], &event))
	require.Equal(t, Alice, event.Address)
	require.Equal(t, "22200", event.Amount)

	summary, err := stats(chain.ctx)
	require.NoError(t, err)
	require.Equal(t, vesting.StatsView{
		TotalBalance:   "9727800",
		MaxPlansTotal:  "10000000",
		Total:          "1000000",
		TotalLocked:    "727800",
		TotalWithdrawn: "272200",
	}, summary)
}

func TestWithdrawTokenFailure(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	chain.initialize(t)
	planID := chain.seedPlan(t)

	SetUserID(chain.ctx, Owner)
	require.NoError(t, setReleaseTime(chain.ctx, StartTime))

	writes := chain.ctx.PutStateWithoutKYCCallCount()
	events := len(chain.events)

	chain.tokenFail = true
	SetUserID(chain.ctx, Alice)
	amount, err := withdraw(chain.ctx, planID)
	requireStatus(t, err, http.StatusBadGateway, vesting.ErrTransferFailed)
	require.ErrorIs(t, err, ErrTokenCallFailed)
	require.Equal(t, "0", amount)

	require.Equal(t, writes, chain.ctx.PutStateWithoutKYCCallCount())
	require.Len(t, chain.events, events)

	balance, err := getPlanBalanceOf(chain.ctx, Alice, planID)
	require.NoError(t, err)
	require.Equal(t, "0", balance.Withdrawn)

	_, err = stats(chain.ctx)
	requireStatus(t, err, http.StatusBadGateway, ErrTokenCallFailed)
}

func TestReadOnlyWorldState(t *testing.T) {
	t.Parallel()

	chain := newTestChain(t)
	err := worldState{ctx: chain.ctx}.View(func(txn vesting.Txn) error {
		return txn.PutState("key", []byte("value"))
	})
	require.ErrorIs(t, err, errReadOnly)
	require.Zero(t, chain.ctx.PutStateWithoutKYCCallCount())
}
