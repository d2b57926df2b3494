// Package lootpath defines the network rules of a SecretLootPath
// deployment: tier thresholds, season length and claim batch limits for
// the main, test and fake networks.
package lootpath

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rony4d/secret-loot-path/progression"
)

// Network identification constants
const (
	MainNetworkID uint64 = 0x100f
	TestNetworkID uint64 = 0x1010
	FakeNetworkID uint64 = 0x1011

	// DefaultPassDuration is how long a purchased battle pass runs.
	DefaultPassDuration = 30 * 24 * time.Hour
)

// Rules describes one network configuration.
type Rules struct {
	Name      string
	NetworkID uint64

	Progression ProgressionRules
	Season      SeasonRules
	Claims      ClaimRules
}

// ProgressionRules configures tier advancement.
type ProgressionRules struct {
	// Thresholds[T] is the experience needed for tier T. Thresholds[0] is
	// the base tier.
	Thresholds []int64
	// MaxTiers caps the tier count of any battle pass.
	MaxTiers uint32
}

// SeasonRules configures passes opened for a season.
type SeasonRules struct {
	// PassDuration is how long a season pass runs from its opening.
	PassDuration time.Duration
}

// ClaimRules configures reward claim sessions.
type ClaimRules struct {
	// MaxBatch caps the rewards claimed in one session.
	MaxBatch int
}

// MainNetRules returns the main network rules.
func MainNetRules() Rules {
	return Rules{
		Name:        "main",
		NetworkID:   MainNetworkID,
		Progression: DefaultProgressionRules(),
		Season:      SeasonRules{PassDuration: DefaultPassDuration},
		Claims:      ClaimRules{MaxBatch: 16},
	}
}

// TestNetRules returns the test network rules. Apart from the name and the
// network id they match the main network.
func TestNetRules() Rules {
	return Rules{
		Name:        "test",
		NetworkID:   TestNetworkID,
		Progression: DefaultProgressionRules(),
		Season:      SeasonRules{PassDuration: DefaultPassDuration},
		Claims:      ClaimRules{MaxBatch: 16},
	}
}

// FakeNetRules is for local runs: tiers come cheap and seasons are short.
func FakeNetRules() Rules {
	return Rules{
		Name:        "fake",
		NetworkID:   FakeNetworkID,
		Progression: FakeProgressionRules(),
		Season:      SeasonRules{PassDuration: 24 * time.Hour},
		Claims:      ClaimRules{MaxBatch: 64},
	}
}

// DefaultProgressionRules matches the season catalogue: one threshold per
// purchasable tier on top of the base tier.
func DefaultProgressionRules() ProgressionRules {
	return ProgressionRules{
		Thresholds: []int64{0, 100, 300, 600, 1000, 1500, 2100},
		MaxTiers:   6,
	}
}

// FakeProgressionRules divides every default threshold by ten.
func FakeProgressionRules() ProgressionRules {
	cfg := DefaultProgressionRules()
	for i := range cfg.Thresholds {
		cfg.Thresholds[i] /= 10
	}
	return cfg
}

// RulesByName returns the rules of a named network.
func RulesByName(name string) (Rules, error) {
	switch name {
	case "main":
		return MainNetRules(), nil
	case "test":
		return TestNetRules(), nil
	case "fake":
		return FakeNetRules(), nil
	}
	return Rules{}, fmt.Errorf("unknown network %q", name)
}

// Schedule builds the tier schedule from the thresholds.
func (r Rules) Schedule() (progression.TierSchedule, error) {
	return progression.NewTierSchedule(r.Progression.Thresholds)
}

// Validate checks the rules are internally consistent.
func (r Rules) Validate() error {
	if _, err := r.Schedule(); err != nil {
		return err
	}
	if r.Progression.MaxTiers == 0 {
		return fmt.Errorf("max tiers must be positive")
	}
	if len(r.Progression.Thresholds) < int(r.Progression.MaxTiers)+1 {
		return fmt.Errorf("%d thresholds cannot cover %d tiers", len(r.Progression.Thresholds), r.Progression.MaxTiers)
	}
	if r.Season.PassDuration <= 0 {
		return fmt.Errorf("pass duration must be positive")
	}
	if r.Claims.MaxBatch <= 0 {
		return fmt.Errorf("claim batch limit must be positive")
	}
	return nil
}

// Copy returns a deep copy.
func (r Rules) Copy() Rules {
	cp := r
	cp.Progression.Thresholds = append([]int64(nil), r.Progression.Thresholds...)
	return cp
}

// String returns the rules as JSON.
func (r Rules) String() string {
	b, _ := json.Marshal(&r)
	return string(b)
}
