package launcher

// Defaults bundles the baseline configuration values the launcher uses
// before the environment and flags override them.
type Defaults struct {
	Node    NodeDefaults
	Network NetworkDefaults
	Keys    KeyDefaults
	Logging LoggingDefaults
}

// NodeDefaults locate the data directory and the preset.
type NodeDefaults struct {
	DataDir string // root for keys and chain state
	Preset  string // runtime preset applied before env and flags
}

// NetworkDefaults selects the rules and the simulated chain.
type NetworkDefaults struct {
	Network      string // main, test or fake
	ChainBackend string // memory or sqlite
	ChainDB      string // sqlite file, relative to DataDir
}

// KeyDefaults control key session persistence.
type KeyDefaults struct {
	Dir       string // relative to DataDir
	Ephemeral bool   // never load or write keys
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    // 0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace
	Format    string // text or json
	Color     bool
}

// DefaultConfig returns the baseline: a persistent test network under
// ~/.lootpath with sqlite chain state and exported keys, logging at info
// level as colored text.
func DefaultConfig() Defaults {
	return Defaults{
		Node: NodeDefaults{
			DataDir: "~/.lootpath",
			Preset:  "default",
		},
		Network: NetworkDefaults{
			Network:      "test",
			ChainBackend: "sqlite",
			ChainDB:      "chain.db",
		},
		Keys: KeyDefaults{
			Dir: "keys",
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     true,
		},
	}
}
