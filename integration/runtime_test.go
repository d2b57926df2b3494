package integration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/secret-loot-path/claim"
	contract "github.com/rony4d/secret-loot-path/contracts/lootpath"
	lperrors "github.com/rony4d/secret-loot-path/errors"
	"github.com/rony4d/secret-loot-path/lootpath"
	"github.com/rony4d/secret-loot-path/lootpath/genesis"
	"github.com/rony4d/secret-loot-path/purchase"
	"github.com/rony4d/secret-loot-path/wallet"
)

var (
	owner  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	player = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func newRuntime(t *testing.T, cfg Config) *Runtime {
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg.Now = func() time.Time { return now }
	if cfg.Season.Name == "" {
		cfg.Season = genesis.DefaultSeason()
	}
	if cfg.Rules.Name == "" {
		cfg.Rules = lootpath.FakeNetRules()
	}
	rt, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close() })
	return rt
}

func TestSeasonFlow(t *testing.T) {
	rt := newRuntime(t, Config{ChainBackend: BackendMemory})
	ctx := context.Background()

	sp, err := rt.OpenSeason(ctx, owner)
	require.NoError(t, err)

	_, _, err = rt.GrantExperience(ctx, sp, player, 10)
	require.NoError(t, err)
	_, ref, err := rt.GrantExperience(ctx, sp, player, 15)
	require.NoError(t, err)
	require.EqualValues(t, 3, ref.Block)

	total, tier, err := rt.Unlock(sp, player)
	require.NoError(t, err)
	require.EqualValues(t, 25, total)
	require.EqualValues(t, 1, tier)

	onChain, err := rt.Chain.PlayerProgress(ctx, sp.Chain, player)
	require.NoError(t, err)
	require.EqualValues(t, 2, onChain.Grants)

	s := rt.ClaimSession(sp, wallet.Static(player), nil)
	require.NoError(t, s.Select(1))
	require.NoError(t, s.Select(3))
	ok, err := s.Claim(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	snap := s.Snapshot()
	require.Equal(t, claim.Success, snap.State)
	require.Len(t, snap.TxRefs, 2)
	// Reward 3 of the Starter Pack is the 100 XP boost.
	require.EqualValues(t, 100, snap.Revealed[3])

	locked := rt.ClaimSession(sp, wallet.Static(player), nil)
	require.NoError(t, locked.Select(4))
	ok, err = locked.Claim(ctx)
	require.False(t, ok)
	require.Error(t, err)

	offer, _ := rt.Season.Offer(2)
	p := rt.PurchaseSession(offer, wallet.Static(player), nil)
	ok, err = p.Purchase(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, purchase.Success, p.Snapshot().State)
	require.NotEqual(t, sp.Chain, p.Snapshot().Pass)
}

func TestGrantSurvivesChainFault(t *testing.T) {
	rt := newRuntime(t, Config{ChainBackend: BackendMemory})
	ctx := context.Background()

	sp, err := rt.OpenSeason(ctx, owner)
	require.NoError(t, err)
	_, _, err = rt.GrantExperience(ctx, sp, player, 10)
	require.NoError(t, err)
	before, err := rt.Ledger.Progress(sp.Ledger, player)
	require.NoError(t, err)

	rt.Chain.SetFault(func(_ common.Address, call contract.Call) error {
		if call.Method == contract.MethodGainExperience {
			return errors.New("rpc down")
		}
		return nil
	})
	_, _, err = rt.GrantExperience(ctx, sp, player, 20)
	require.ErrorIs(t, err, lperrors.ErrTransactionFailure)

	after, err := rt.Ledger.Progress(sp.Ledger, player)
	require.NoError(t, err)
	require.Equal(t, before.TotalExperience.Ref(), after.TotalExperience.Ref())

	rt.Chain.SetFault(nil)
	_, _, err = rt.GrantExperience(ctx, sp, player, 5)
	require.NoError(t, err)

	total, _, err := rt.Unlock(sp, player)
	require.NoError(t, err)
	require.EqualValues(t, 15, total)
	onChain, err := rt.Chain.PlayerProgress(ctx, sp.Chain, player)
	require.NoError(t, err)
	require.EqualValues(t, 2, onChain.Grants)
}

func TestOpenSeasonChainFault(t *testing.T) {
	rt := newRuntime(t, Config{ChainBackend: BackendMemory})
	ctx := context.Background()

	rt.Chain.SetFault(func(common.Address, contract.Call) error { return errors.New("rpc down") })
	_, err := rt.OpenSeason(ctx, owner)
	require.ErrorIs(t, err, lperrors.ErrTransactionFailure)
	_, err = rt.Ledger.BattlePass(1)
	require.ErrorIs(t, err, lperrors.ErrNotFound)

	rt.Chain.SetFault(nil)
	sp, err := rt.OpenSeason(ctx, owner)
	require.NoError(t, err)
	require.EqualValues(t, 1, sp.Ledger)
	require.EqualValues(t, 1, sp.Chain)
}

func TestPersistentRuntime(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		DataDir:      dir,
		Rules:        lootpath.TestNetRules(),
		ChainBackend: BackendSQLite,
		ChainDB:      "chain.db",
		KeysDir:      filepath.Join(dir, "keys"),
	}

	first, err := New(withClock(cfg))
	require.NoError(t, err)
	ref := first.Keys.Ref()
	sp, err := first.OpenSeason(context.Background(), owner)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(withClock(cfg))
	require.NoError(t, err)
	defer second.Close()
	require.True(t, ref.Equal(second.Keys.Ref()))

	info, err := second.Chain.BattlePassInfo(context.Background(), sp.Chain)
	require.NoError(t, err)
	require.Equal(t, "Season 1: Cyber Awakening", info.Name)

	// The ledger is in memory, so a second season lands on a new chain id.
	sp2, err := second.OpenSeason(context.Background(), owner)
	require.NoError(t, err)
	require.Equal(t, sp.Ledger, sp2.Ledger)
	require.NotEqual(t, sp.Chain, sp2.Chain)
}

func TestNewRejectsBadConfig(t *testing.T) {
	rules := lootpath.FakeNetRules()
	rules.Claims.MaxBatch = 0
	_, err := New(Config{Rules: rules, Season: genesis.DefaultSeason()})
	require.Error(t, err)

	_, err = New(Config{Rules: lootpath.FakeNetRules(), Season: genesis.DefaultSeason(), ChainBackend: "postgres"})
	require.Error(t, err)

	_, err = New(Config{Rules: lootpath.FakeNetRules(), Season: genesis.DefaultSeason(), ChainBackend: BackendSQLite})
	require.Error(t, err)
}

func withClock(cfg Config) Config {
	cfg.Season = genesis.DefaultSeason()
	cfg.Now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	return cfg
}
