// Package integration assembles a SecretLootPath runtime: network rules,
// key session, envelope service, progression ledger and chain backend.
// Presets bundle the usual combinations into named profiles so the CLI can
// pick one with a single flag.
package integration

import "fmt"

// Chain backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// PresetConfig captures the settings that vary across profiles.
type PresetConfig struct {
	Name         string // identifier used by --preset
	Network      string // main, test or fake
	ChainBackend string // memory or sqlite
	ChainDB      string // sqlite file name, relative to the data dir
	PersistKeys  bool   // export the key session to the data dir
	LogVerbosity int    // 0=fatal .. 5=trace
}

// DefaultPreset is a persistent test network: sqlite chain state and
// exported keys.
func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:         "default",
		Network:      "test",
		ChainBackend: BackendSQLite,
		ChainDB:      "chain.db",
		PersistKeys:  true,
		LogVerbosity: 3,
	}
}

// DevPreset keeps everything in memory on the fake network: cheap tiers,
// nothing written to disk.
func DevPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "dev"
	cfg.Network = "fake"
	cfg.ChainBackend = BackendMemory
	cfg.ChainDB = ""
	cfg.PersistKeys = false
	cfg.LogVerbosity = 4
	return cfg
}

// MainPreset runs against main network rules with persistent state.
func MainPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "main"
	cfg.Network = "main"
	cfg.ChainDB = "mainchain.db"
	return cfg
}

// GetPresetByName looks up a preset by its identifier.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "dev":
		return DevPreset(), nil
	case "main":
		return MainPreset(), nil
	case "default":
		return DefaultPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: dev, main, default)", name)
	}
}

// ApplyPreset merges preset into target. Empty strings and zero verbosity
// leave the target untouched; PersistKeys is always applied.
func ApplyPreset(target *PresetConfig, preset PresetConfig) {
	if preset.Network != "" {
		target.Network = preset.Network
	}
	if preset.ChainBackend != "" {
		target.ChainBackend = preset.ChainBackend
	}
	if preset.ChainDB != "" {
		target.ChainDB = preset.ChainDB
	}
	if preset.LogVerbosity > 0 {
		target.LogVerbosity = preset.LogVerbosity
	}
	target.PersistKeys = preset.PersistKeys
	if preset.Name != "" {
		target.Name = preset.Name
	}
}
