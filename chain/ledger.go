// Package chain is the ledger collaborator: the contract the orchestrators
// submit transactions to, and an in-process simulated chain executing
// SecretLootPath calldata against a pluggable state store.
package chain

import (
	"context"
	"time"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/secret-loot-path/contracts/lootpath"
	"github.com/rony4d/secret-loot-path/fhe"
	"github.com/rony4d/secret-loot-path/progression"
)

// TxRef identifies an executed transaction.
type TxRef struct {
	Hash  common.Hash
	Block idx.Block
	// Return is the ABI-encoded return value, if the method has one.
	Return []byte
}

// String returns the transaction hash in hex.
func (r TxRef) String() string {
	return r.Hash.Hex()
}

// Ledger is what the orchestrators need from a chain.
type Ledger interface {
	CreateBattlePass(ctx context.Context, from common.Address, name, description string, totalTiers uint32, duration time.Duration, intent []byte) (TxRef, error)
	SubmitExperience(ctx context.Context, from common.Address, pass progression.PassID, amount fhe.Envelope, proof fhe.Proof) (TxRef, error)
	SubmitClaim(ctx context.Context, from common.Address, reward progression.RewardID, pass progression.PassID) (TxRef, error)
	BattlePassInfo(ctx context.Context, pass progression.PassID) (lootpath.BattlePassInfo, error)
	PlayerProgress(ctx context.Context, pass progression.PassID, player common.Address) (lootpath.PlayerProgress, error)
}

// CreatedPass extracts the new pass id from a createBattlePass receipt.
func CreatedPass(ref TxRef) (progression.PassID, error) {
	id, err := lootpath.UnpackCreatedPass(ref.Return)
	return progression.PassID(id), err
}
