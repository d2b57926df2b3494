package lootpath

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNetworkConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant uint64
		want     uint64
	}{
		{"MainNetworkID", MainNetworkID, 0x100f},
		{"TestNetworkID", TestNetworkID, 0x1010},
		{"FakeNetworkID", FakeNetworkID, 0x1011},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.want {
				t.Errorf("%s = %#x, want %#x", tt.name, tt.constant, tt.want)
			}
		})
	}
}

func TestRulesByName(t *testing.T) {
	for _, name := range []string{"main", "test", "fake"} {
		rules, err := RulesByName(name)
		if err != nil {
			t.Fatalf("RulesByName(%q): %v", name, err)
		}
		if rules.Name != name {
			t.Errorf("Name = %q, want %q", rules.Name, name)
		}
		if err := rules.Validate(); err != nil {
			t.Errorf("%s rules invalid: %v", name, err)
		}
	}
	if _, err := RulesByName("moon"); err == nil {
		t.Error("expected error for unknown network")
	}
}

func TestFakeNetRules(t *testing.T) {
	rules := FakeNetRules()
	if got := rules.Progression.Thresholds[1]; got != 10 {
		t.Errorf("fake tier 1 threshold = %d, want 10", got)
	}
	if rules.Season.PassDuration != 24*time.Hour {
		t.Errorf("PassDuration = %v", rules.Season.PassDuration)
	}
	// Fake thresholds must not leak into the defaults.
	if DefaultProgressionRules().Thresholds[1] != 100 {
		t.Error("DefaultProgressionRules mutated")
	}
}

func TestSchedule(t *testing.T) {
	s, err := MainNetRules().Schedule()
	if err != nil {
		t.Fatal(err)
	}
	if tier := s.TierFor(250); tier != 1 {
		t.Errorf("TierFor(250) = %d, want 1", tier)
	}
	if tier := s.TierFor(5000); tier != 6 {
		t.Errorf("TierFor(5000) = %d, want 6", tier)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rules)
	}{
		{"no thresholds", func(r *Rules) { r.Progression.Thresholds = nil }},
		{"unsorted thresholds", func(r *Rules) { r.Progression.Thresholds[2] = 50 }},
		{"too few thresholds", func(r *Rules) { r.Progression.MaxTiers = 10 }},
		{"zero tiers", func(r *Rules) { r.Progression.MaxTiers = 0 }},
		{"zero duration", func(r *Rules) { r.Season.PassDuration = 0 }},
		{"zero batch", func(r *Rules) { r.Claims.MaxBatch = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rules := MainNetRules()
			tt.mutate(&rules)
			if err := rules.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCopy(t *testing.T) {
	orig := MainNetRules()
	cp := orig.Copy()
	cp.Progression.Thresholds[1] = 7
	if orig.Progression.Thresholds[1] != 100 {
		t.Error("Copy shares the thresholds slice")
	}
}

func TestString(t *testing.T) {
	var decoded Rules
	if err := json.Unmarshal([]byte(FakeNetRules().String()), &decoded); err != nil {
		t.Fatalf("String() is not JSON: %v", err)
	}
	if decoded.NetworkID != FakeNetworkID || decoded.Claims.MaxBatch != 64 {
		t.Errorf("decoded = %+v", decoded)
	}
}
