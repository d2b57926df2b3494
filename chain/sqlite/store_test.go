package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/secret-loot-path/chain"
	"github.com/rony4d/secret-loot-path/progression"
)

func openTempStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chain.db")
	store, err := Open(path)
	require.NoError(t, err)
	return store, path
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestStoreRecords(t *testing.T) {
	store, _ := openTempStore(t)
	defer store.Close()
	ctx := context.Background()
	owner := common.HexToAddress("0xaa")
	player := common.HexToAddress("0xbb")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	id, err := store.InsertPass(ctx, chain.PassRecord{
		Name: "pass", TotalTiers: 3, Owner: owner, StartTime: start, EndTime: start.Add(time.Hour), Intent: []byte{1},
	})
	require.NoError(t, err)
	require.Equal(t, progression.PassID(1), id)

	rec, err := store.GetPass(ctx, id)
	require.NoError(t, err)
	require.Equal(t, owner, rec.Owner)
	require.Equal(t, start, rec.StartTime)
	require.Equal(t, []byte{1}, rec.Intent)

	_, err = store.GetPass(ctx, 5)
	require.ErrorIs(t, err, chain.ErrNotFound)

	_, err = store.GetProgress(ctx, id, player)
	require.ErrorIs(t, err, chain.ErrNotFound)
	prog := chain.ProgressRecord{Pass: id, Player: player, ExperienceRoot: common.HexToHash("0x01"), Grants: 1, LastUpdate: start}
	require.NoError(t, store.PutProgress(ctx, prog))
	prog.Grants = 2
	require.NoError(t, store.PutProgress(ctx, prog))
	got, err := store.GetProgress(ctx, id, player)
	require.NoError(t, err)
	require.Equal(t, prog, got)

	claim := chain.ClaimRecord{Pass: id, Player: player, Reward: 3, Time: start}
	require.NoError(t, store.InsertClaim(ctx, claim))
	require.ErrorIs(t, store.InsertClaim(ctx, claim), chain.ErrAlreadyExists)

	b1, err := store.AppendTx(ctx, chain.TxRecord{From: player, Method: "claimReward", Input: []byte{1}, Time: start})
	require.NoError(t, err)
	b2, err := store.AppendTx(ctx, chain.TxRecord{From: player, Method: "claimReward", Input: []byte{2}, Time: start})
	require.NoError(t, err)
	require.Equal(t, b1+1, b2)
}

func TestUpdateIsAtomic(t *testing.T) {
	store, _ := openTempStore(t)
	defer store.Close()
	ctx := context.Background()
	player := common.HexToAddress("0xbb")
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	id, err := store.InsertPass(ctx, chain.PassRecord{Name: "pass", TotalTiers: 1, StartTime: start, EndTime: start.Add(time.Hour)})
	require.NoError(t, err)

	claim := chain.ClaimRecord{Pass: id, Player: player, Reward: 1, Time: start}
	boom := errors.New("boom")
	err = store.Update(ctx, func(st chain.StateStore) error {
		require.NoError(t, st.InsertClaim(ctx, claim))
		require.NoError(t, st.PutProgress(ctx, chain.ProgressRecord{Pass: id, Player: player, RewardsClaimed: 1, LastUpdate: start}))
		_, err := st.AppendTx(ctx, chain.TxRecord{From: player, Method: "claimReward", Time: start})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.GetProgress(ctx, id, player)
	require.ErrorIs(t, err, chain.ErrNotFound)

	var block uint64
	err = store.Update(ctx, func(st chain.StateStore) error {
		if err := st.InsertClaim(ctx, claim); err != nil {
			return err
		}
		b, err := st.AppendTx(ctx, chain.TxRecord{From: player, Method: "claimReward", Time: start})
		block = uint64(b)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1), block)
	require.ErrorIs(t, store.InsertClaim(ctx, claim), chain.ErrAlreadyExists)
}

func TestStateSurvivesReopen(t *testing.T) {
	store, path := openTempStore(t)
	ctx := context.Background()
	sim := chain.NewSimulated(store)

	buyer := common.HexToAddress("0xaa")
	_, err := sim.CreateBattlePass(ctx, buyer, "Tier 3 - Warrior Collection", "desc", 3, time.Hour, []byte("intent"))
	require.NoError(t, err)
	_, err = sim.SubmitClaim(ctx, buyer, 1, 1)
	require.NoError(t, err)
	require.NoError(t, sim.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	sim = chain.NewSimulated(reopened)
	defer sim.Close()

	info, err := sim.BattlePassInfo(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Tier 3 - Warrior Collection", info.Name)

	_, err = sim.SubmitClaim(ctx, buyer, 1, 1)
	require.ErrorIs(t, err, chain.ErrReverted)

	ref, err := sim.CreateBattlePass(ctx, buyer, "again", "", 1, time.Hour, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(3), uint64(ref.Block))
}

func TestExtractUpMigration(t *testing.T) {
	require.Equal(t, "\nA\n", extractUpMigration("-- +migrate Up\nA\n-- +migrate Down\nB"))
	require.Equal(t, "plain", extractUpMigration("plain"))
}
