// Package genesis holds the season catalogue: the battle pass tiers on
// offer, their prices and the rewards sealed into each.
package genesis

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/params"

	"github.com/rony4d/secret-loot-path/progression"
)

// hiddenReward is shown in place of rewards of unrevealed tiers.
const hiddenReward = "???"

var milliEther = big.NewInt(params.GWei * 1e6)

// TierOffer is one purchasable battle pass tier.
type TierOffer struct {
	Tier     uint32
	Title    string
	PriceWei *big.Int
	Rarity   progression.Rarity
	Revealed bool
	Rewards  []string
}

// Season is a named set of tier offers.
type Season struct {
	Name        string
	Description string
	Offers      []TierOffer
}

// DefaultSeason is the launch season. Tier 1 is revealed; the top tiers
// list mystery rewards only.
func DefaultSeason() Season {
	return Season{
		Name:        "Season 1: Cyber Awakening",
		Description: "Discover encrypted rewards hidden within each battle pass tier",
		Offers: []TierOffer{
			{
				Tier: 1, Title: "Starter Pack", PriceWei: ether(100), Rarity: progression.Common, Revealed: true,
				Rewards: []string{"Digital Avatar", "Basic Emote Pack", "100 XP Boost"},
			},
			{
				Tier: 2, Title: "Explorer Bundle", PriceWei: ether(250), Rarity: progression.Rare,
				Rewards: []string{"Rare Weapon Skin", "Custom Banner", "250 XP Boost", "Mystery Box"},
			},
			{
				Tier: 3, Title: "Warrior Collection", PriceWei: ether(500), Rarity: progression.Epic,
				Rewards: []string{"Epic Character Skin", "Legendary Emote", "500 XP Boost", "Exclusive Title"},
			},
			{
				Tier: 4, Title: "Champion's Vault", PriceWei: ether(1000), Rarity: progression.Legendary,
				Rewards: []string{"Mythic Weapon", "Animated Avatar", "1000 XP Boost", "VIP Access", "Rare NFT"},
			},
			{
				Tier: 5, Title: "Ultimate Mystery", PriceWei: ether(2500), Rarity: progression.Legendary,
				Rewards: hidden(5),
			},
			{
				Tier: 6, Title: "Season Finale", PriceWei: ether(5000), Rarity: progression.Legendary,
				Rewards: hidden(6),
			},
		},
	}
}

// ether converts thousandths of an ether to wei.
func ether(milli int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(milli), milliEther)
}

func hidden(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = hiddenReward
	}
	return out
}

// Offer returns the offer for tier.
func (s Season) Offer(tier uint32) (TierOffer, bool) {
	for _, o := range s.Offers {
		if o.Tier == tier {
			return o, true
		}
	}
	return TierOffer{}, false
}

// Validate checks tiers are numbered 1..n in order and every offer has a
// price and at least one reward.
func (s Season) Validate() error {
	if len(s.Offers) == 0 {
		return fmt.Errorf("season %q has no offers", s.Name)
	}
	for i, o := range s.Offers {
		if o.Tier != uint32(i+1) {
			return fmt.Errorf("offer %d has tier %d", i, o.Tier)
		}
		if o.PriceWei == nil || o.PriceWei.Sign() <= 0 {
			return fmt.Errorf("tier %d has no price", o.Tier)
		}
		if len(o.Rewards) == 0 {
			return fmt.Errorf("tier %d has no rewards", o.Tier)
		}
	}
	return nil
}

// Price renders the price in ether, e.g. "0.25 ETH".
func (o TierOffer) Price() string {
	f := new(big.Float).SetInt(o.PriceWei)
	f.Quo(f, new(big.Float).SetInt64(params.Ether))
	s := f.Text('f', 3)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s + " ETH"
}

// VisibleRewards hides the reward names of unrevealed tiers.
func (o TierOffer) VisibleRewards() []string {
	if o.Revealed {
		return append([]string(nil), o.Rewards...)
	}
	return hidden(len(o.Rewards))
}

// RewardSpecs turns the offer into ledger reward definitions, all unlocked
// at the offer's tier.
func (o TierOffer) RewardSpecs() []progression.RewardSpec {
	specs := make([]progression.RewardSpec, 0, len(o.Rewards))
	for i, name := range o.Rewards {
		kind, value := classify(name, o.Rarity)
		if name == hiddenReward {
			name = fmt.Sprintf("%s #%d", o.Title, i+1)
		}
		specs = append(specs, progression.RewardSpec{
			Name:   name,
			Kind:   kind,
			Rarity: o.Rarity,
			Tier:   o.Tier,
			Value:  value,
		})
	}
	return specs
}

// RewardSpecs collects the reward specs of every offer, tier by tier.
func (s Season) RewardSpecs() []progression.RewardSpec {
	var out []progression.RewardSpec
	for _, o := range s.Offers {
		out = append(out, o.RewardSpecs()...)
	}
	return out
}

var rarityValue = map[progression.Rarity]int64{
	progression.Common:    10,
	progression.Rare:      25,
	progression.Epic:      50,
	progression.Legendary: 100,
}

func classify(name string, rarity progression.Rarity) (progression.RewardKind, int64) {
	if n, ok := strings.CutSuffix(name, " XP Boost"); ok {
		if v, err := strconv.ParseInt(n, 10, 64); err == nil {
			return progression.KindExperience, v
		}
	}
	switch {
	case strings.Contains(name, "NFT"), strings.Contains(name, "Title"),
		strings.Contains(name, "Banner"), strings.Contains(name, "Access"):
		return progression.KindCollectible, rarityValue[rarity]
	case name == hiddenReward, strings.Contains(name, "Mystery"):
		return progression.KindCurrency, rarityValue[rarity] * 10
	}
	return progression.KindItem, rarityValue[rarity]
}
