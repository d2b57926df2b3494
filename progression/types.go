// Package progression is the ledger of battle passes and per-player
// progress. Experience is only ever held sealed; tiers advance through
// revealed values backed by reveal proofs.
package progression

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/secret-loot-path/fhe"
)

// PassID and RewardID are ledger-assigned and start at 1.
type (
	PassID   uint64
	RewardID uint64
)

func (id PassID) String() string   { return fmt.Sprintf("pass#%d", uint64(id)) }
func (id RewardID) String() string { return fmt.Sprintf("reward#%d", uint64(id)) }

// RewardKind is what a reward grants.
type RewardKind uint8

const (
	KindExperience RewardKind = iota
	KindItem
	KindCurrency
	KindCollectible
)

func (k RewardKind) String() string {
	switch k {
	case KindExperience:
		return "experience"
	case KindItem:
		return "item"
	case KindCurrency:
		return "currency"
	case KindCollectible:
		return "collectible"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Rarity grades a reward.
type Rarity uint8

const (
	Common Rarity = iota
	Rare
	Epic
	Legendary
)

func (r Rarity) String() string {
	switch r {
	case Common:
		return "common"
	case Rare:
		return "rare"
	case Epic:
		return "epic"
	case Legendary:
		return "legendary"
	}
	return fmt.Sprintf("rarity(%d)", uint8(r))
}

// ParseRarity is the inverse of Rarity.String.
func ParseRarity(s string) (Rarity, error) {
	for r := Common; r <= Legendary; r++ {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rarity %q", s)
}

// Reward is one reward of a battle pass as seen by a given player.
// Payload is nil once the reward is claimed.
type Reward struct {
	ID        RewardID
	Name      string
	Kind      RewardKind
	Rarity    Rarity
	Tier      uint32
	IsClaimed bool
	Payload   *fhe.Envelope
}

// RewardSpec defines a reward when a pass is created. Value is sealed into
// the reward payload.
type RewardSpec struct {
	Name   string
	Kind   RewardKind
	Rarity Rarity
	Tier   uint32
	Value  int64
}

// BattlePass is a pass as the ledger reports it. ExperiencePoints is the
// sealed sum of every grant on the pass. IsActive and IsCompleted are
// computed when the view is taken.
type BattlePass struct {
	ID               PassID
	Name             string
	Description      string
	TotalTiers       uint32
	CurrentTier      uint32 // highest tier any player has unlocked
	ExperiencePoints fhe.Envelope
	IsActive         bool
	IsCompleted      bool
	Owner            common.Address
	StartTime        time.Time
	EndTime          time.Time
}

// PlayerProgress is one player's state on one pass. TotalExperience is
// sealed; CurrentTier only moves on UnlockTier.
type PlayerProgress struct {
	Player          common.Address
	Pass            PassID
	TotalExperience fhe.Envelope
	CurrentTier     uint32
	RewardsClaimed  uint32
	IsActive        bool
	LastUpdate      time.Time
}

// Grant is the result of GrantExperience: the updated progress plus the
// sealed amount and the proof that the new total is old total + amount.
type Grant struct {
	Progress PlayerProgress
	Amount   fhe.Envelope
	Proof    fhe.Proof
}
