package vesting_test

import (
	"context"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/p2eengineering/chim-vesting-contract/internal/storage/badgerstore"
	"github.com/p2eengineering/chim-vesting-contract/internal/token"
	"github.com/p2eengineering/chim-vesting-contract/vesting"
)

const (
	Owner     = "2da4c4908a393a387b728206b18388bc529fa8d7"
	Custody   = "klp-6b616c70627269646775-cc"
	Alice     = "0b87970433b22494faff1cc7a819e71bddc7880c"
	Bob       = "63b2d5e9fe4b3dfe6e3e6ecb9bdc35c9d0c4a0a3"
	PlanName  = "Seed"
	StartTime = uint64(1_700_000_000)
)

// fakeClock is a settable clock.
type fakeClock struct {
	now atomic.Uint64
}

func newFakeClock(now uint64) *fakeClock {
	c := &fakeClock{}
	c.now.Store(now)
	return c
}

func (c *fakeClock) Now() (uint64, error) {
	return c.now.Load(), nil
}

func (c *fakeClock) Set(now uint64) {
	c.now.Store(now)
}

// recordingSink collects emitted events in order.
type recordingSink struct {
	mu     sync.Mutex
	names  []string
	events [][]byte
}

func (s *recordingSink) SetEvent(name string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	s.events = append(s.events, payload)
	return nil
}

func (s *recordingSink) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.names...)
}

type fixture struct {
	ledger *vesting.Ledger
	token  *token.Token
	clock  *fakeClock
	sink   *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithToken(t, nil)
}

// newFixtureWithToken builds a ledger over an in-memory badger store. A nil
// tok means an in-memory token with custody funded with 10^12.
func newFixtureWithToken(t *testing.T, tok vesting.Token) *fixture {
	t.Helper()

	store, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		clock: newFakeClock(StartTime),
		sink:  &recordingSink{},
	}
	if tok == nil {
		f.token = token.New("CHIM")
		require.NoError(t, f.token.Mint(Custody, big.NewInt(1_000_000_000_000)))
		tok = token.NewCustody(f.token, Custody)
	}

	f.ledger, err = vesting.New(store, tok, f.clock, vesting.Config{
		Owner:   Owner,
		Custody: Custody,
	}, vesting.WithEventSink(f.sink))
	require.NoError(t, err)

	return f
}

func (f *fixture) addPlan(t *testing.T, maxPlanTotal int64) uint64 {
	t.Helper()
	planID, err := f.ledger.AddLockPlan(context.Background(), Owner, PlanName, big.NewInt(maxPlanTotal), 2500, 30, 222, 30)
	require.NoError(t, err)
	return planID
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	store, err := badgerstore.OpenInMemory()
	require.NoError(t, err)
	defer store.Close()

	tok := token.NewCustody(token.New("CHIM"), Custody)
	clock := newFakeClock(StartTime)

	tests := []struct {
		name  string
		store vesting.Store
		token vesting.Token
		clock vesting.Clock
		cfg   vesting.Config
	}{
		{name: "Failure - nil store", token: tok, clock: clock, cfg: vesting.Config{Owner: Owner, Custody: Custody}},
		{name: "Failure - nil token", store: store, clock: clock, cfg: vesting.Config{Owner: Owner, Custody: Custody}},
		{name: "Failure - nil clock", store: store, token: tok, cfg: vesting.Config{Owner: Owner, Custody: Custody}},
		{name: "Failure - null owner", store: store, token: tok, clock: clock, cfg: vesting.Config{Owner: vesting.NullAddress, Custody: Custody}},
		{name: "Failure - empty custody", store: store, token: tok, clock: clock, cfg: vesting.Config{Owner: Owner}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := vesting.New(tt.store, tt.token, tt.clock, tt.cfg)
			require.Error(t, err)
		})
	}

	ledger, err := vesting.New(store, tok, clock, vesting.Config{Owner: Owner, Custody: Custody})
	require.NoError(t, err)
	require.Equal(t, Owner, ledger.Owner())
	require.Equal(t, Custody, ledger.Custody())
	require.Equal(t, vesting.DefaultMaxLockPlans, ledger.MaxLockPlans())
}

func TestLockTokens(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	planID := f.addPlan(t, 1_000)

	require.NoError(t, f.ledger.LockTokens(ctx, Owner, Alice, big.NewInt(600), planID))
	require.NoError(t, f.ledger.LockTokens(ctx, Owner, Alice, big.NewInt(100), planID))
	require.NoError(t, f.ledger.LockTokens(ctx, Owner, Bob, big.NewInt(300), planID))

	balance, err := f.ledger.GetPlanBalanceOf(Alice, planID)
	require.NoError(t, err)
	require.Equal(t, "700", balance.Total.String())
	require.Equal(t, "700", balance.Locked.String())
	require.Equal(t, "0", balance.Withdrawn.String())

	plan, err := f.ledger.GetLockPlan(planID)
	require.NoError(t, err)
	require.Equal(t, "1000", plan.Total.String())
	require.Equal(t, "1000", plan.Locked.String())

	require.Equal(t, []string{
		vesting.LockPlanAddedKey,
		vesting.TokensLockedKey,
		vesting.TokensLockedKey,
		vesting.TokensLockedKey,
	}, f.sink.Names())
}

func TestLockTokensFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		caller     string
		address    string
		amount     *big.Int
		planID     uint64
		wantErr    error
		wantStatus int
	}{
		{
			name:       "Failure - not owner",
			caller:     Alice,
			address:    Alice,
			amount:     big.NewInt(1),
			planID:     1,
			wantErr:    vesting.ErrNotOwner,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "Failure - null address",
			caller:     Owner,
			address:    vesting.NullAddress,
			amount:     big.NewInt(1),
			planID:     1,
			wantErr:    vesting.ErrInvalidAddress,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Failure - negative amount",
			caller:     Owner,
			address:    Alice,
			amount:     big.NewInt(-1),
			planID:     1,
			wantErr:    vesting.ErrInvalidAmount,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Failure - plan zero",
			caller:     Owner,
			address:    Alice,
			amount:     big.NewInt(1),
			planID:     0,
			wantErr:    vesting.ErrPlanNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Failure - unallocated plan",
			caller:     Owner,
			address:    Alice,
			amount:     big.NewInt(1),
			planID:     2,
			wantErr:    vesting.ErrPlanNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "Failure - over max plan total",
			caller:     Owner,
			address:    Alice,
			amount:     big.NewInt(1_001),
			planID:     1,
			wantErr:    vesting.ErrMaxPlanTotalLimitReached,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			f := newFixture(t)
			f.addPlan(t, 1_000)

			err := f.ledger.LockTokens(ctx, tt.caller, tt.address, tt.amount, tt.planID)
			require.ErrorIs(t, err, tt.wantErr)
			require.Equal(t, tt.wantStatus, vesting.StatusCode(err))

			plan, err := f.ledger.GetLockPlan(1)
			require.NoError(t, err)
			require.Equal(t, "0", plan.Total.String())

			balance, err := f.ledger.GetTotalBalanceOf(tt.address)
			require.NoError(t, err)
			require.Equal(t, "0", balance.Total.String())
		})
	}
}

func TestLockTokensCapLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	planID := f.addPlan(t, 1_000)
	require.NoError(t, f.ledger.LockTokens(ctx, Owner, Alice, big.NewInt(900), planID))

	before, err := f.ledger.Stats(ctx)
	require.NoError(t, err)

	err = f.ledger.LockTokens(ctx, Owner, Bob, big.NewInt(101), planID)
	require.ErrorIs(t, err, vesting.ErrMaxPlanTotalLimitReached)

	after, err := f.ledger.Stats(ctx)
	require.NoError(t, err)
	requireStatsEqual(t, before, after)

	balance, err := f.ledger.GetPlanBalanceOf(Bob, planID)
	require.NoError(t, err)
	require.Equal(t, "0", balance.Total.String())

	// filling the plan exactly to the cap is allowed
	require.NoError(t, f.ledger.LockTokens(ctx, Owner, Bob, big.NewInt(100), planID))
}

func TestGetTotalBalanceOf(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	first := f.addPlan(t, 1_000)
	second := f.addPlan(t, 1_000)

	require.NoError(t, f.ledger.LockTokens(ctx, Owner, Alice, big.NewInt(100), first))
	require.NoError(t, f.ledger.LockTokens(ctx, Owner, Alice, big.NewInt(250), second))

	balance, err := f.ledger.GetTotalBalanceOf(Alice)
	require.NoError(t, err)
	require.Equal(t, "350", balance.Total.String())
	require.Equal(t, "350", balance.Locked.String())

	unknown, err := f.ledger.GetTotalBalanceOf(Bob)
	require.NoError(t, err)
	require.Equal(t, "0", unknown.Total.String())
	require.Equal(t, "0", unknown.Locked.String())
	require.Equal(t, "0", unknown.Withdrawn.String())
}

func requireStatsEqual(t *testing.T, expected, actual vesting.Stats) {
	t.Helper()
	require.Equal(t, expected.TotalBalance.String(), actual.TotalBalance.String())
	require.Equal(t, expected.MaxPlansTotal.String(), actual.MaxPlansTotal.String())
	require.Equal(t, expected.Total.String(), actual.Total.String())
	require.Equal(t, expected.TotalLocked.String(), actual.TotalLocked.String())
	require.Equal(t, expected.TotalWithdrawn.String(), actual.TotalWithdrawn.String())
}

func TestAddressSpellingsShareOneLock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
	}{
		{name: "Success - upper case", address: strings.ToUpper(Alice)},
		{name: "Success - mixed case", address: "0B87970433b22494FAFF1cc7a819e71bddc7880C"},
		{name: "Success - padded", address: "  " + Alice + "\t"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			f := newFixture(t)
			planID := f.addPlan(t, 10_000_000)

			require.NoError(t, f.ledger.LockTokens(ctx, Owner, tt.address, big.NewInt(600_000), planID))
			require.NoError(t, f.ledger.LockTokens(ctx, Owner, Alice, big.NewInt(400_000), planID))

			for _, spelling := range []string{Alice, tt.address} {
				balance, err := f.ledger.GetTotalBalanceOf(spelling)
				require.NoError(t, err)
				require.Equal(t, "1000000", balance.Total.String())

				balance, err = f.ledger.GetPlanBalanceOf(spelling, planID)
				require.NoError(t, err)
				require.Equal(t, "1000000", balance.Total.String())
			}

			require.NoError(t, f.ledger.SetReleaseTime(ctx, strings.ToUpper(Owner), StartTime))

			info, err := f.ledger.CheckLocksAt(tt.address, planID, StartTime)
			require.NoError(t, err)
			require.Equal(t, "250000", info.PendingUnlock.String())

			amount, err := f.ledger.Withdraw(ctx, tt.address, planID)
			require.NoError(t, err)
			require.Equal(t, "250000", amount.String())
			require.Equal(t, "250000", f.token.BalanceOf(Alice).String())

			amount, err = f.ledger.Withdraw(ctx, Alice, planID)
			require.NoError(t, err)
			require.Equal(t, "0", amount.String())
		})
	}
}
