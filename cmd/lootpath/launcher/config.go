// This file maps compiled defaults, the environment and the CLI context
// onto one Config.

package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/secret-loot-path/integration"
	"github.com/rony4d/secret-loot-path/lootpath"
	"github.com/rony4d/secret-loot-path/lootpath/genesis"
)

// EnvPrefix prefixes every environment variable the launcher reads.
const EnvPrefix = "LOOTPATH_"

// Config aggregates everything the launcher needs.
type Config struct {
	DataDir  string        `env:"DATADIR"`
	Preset   string        `env:"PRESET"`
	Network  string        `env:"NETWORK"`
	Chain    ChainConfig   `envPrefix:"CHAIN_"`
	Tiers    []int64       `env:"TIERS" envSeparator:","`
	MaxBatch int           `env:"CLAIMS_MAXBATCH"`
	Keys     KeysConfig    `envPrefix:"KEYS_"`
	Wallet   string        `env:"WALLET_KEY"`
	Logging  LoggingConfig `envPrefix:"LOG_"`
	Sentry   string        `env:"SENTRY_DSN"`
}

// ChainConfig selects the simulated chain backend.
type ChainConfig struct {
	Backend string `env:"BACKEND"`
	DB      string `env:"DB"`
}

// KeysConfig locates the key session.
type KeysConfig struct {
	Dir       string `env:"DIR"`
	Ephemeral bool   `env:"EPHEMERAL"`
}

// LoggingConfig controls the logrus formatter and level.
type LoggingConfig struct {
	Verbosity int    `env:"VERBOSITY"`
	Format    string `env:"FORMAT"`
	Color     bool   `env:"COLOR"`
}

func defaultConfig() Config {
	d := DefaultConfig()
	return Config{
		DataDir: resolvePath(d.Node.DataDir),
		Preset:  d.Node.Preset,
		Network: d.Network.Network,
		Chain: ChainConfig{
			Backend: d.Network.ChainBackend,
			DB:      d.Network.ChainDB,
		},
		Keys: KeysConfig{
			Dir:       d.Keys.Dir,
			Ephemeral: d.Keys.Ephemeral,
		},
		Logging: LoggingConfig{
			Verbosity: d.Logging.Verbosity,
			Format:    d.Logging.Format,
			Color:     d.Logging.Color,
		},
	}
}

// MakeAllConfigs merges defaults, the selected preset, LOOTPATH_*
// environment variables and CLI flag overrides, in that order.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	preset := cfg.Preset
	if v, ok := os.LookupEnv(EnvPrefix + "PRESET"); ok {
		preset = v
	}
	if ctx.GlobalIsSet("preset") {
		preset = ctx.GlobalString("preset")
	}
	if err := applyPreset(&cfg, preset); err != nil {
		return Config{}, err
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := applyCLIOverrides(ctx, &cfg); err != nil {
		return Config{}, err
	}
	cfg.DataDir = resolvePath(cfg.DataDir)
	return cfg, nil
}

func applyPreset(cfg *Config, name string) error {
	preset, err := integration.GetPresetByName(name)
	if err != nil {
		return err
	}
	current := integration.PresetConfig{
		Name:         cfg.Preset,
		Network:      cfg.Network,
		ChainBackend: cfg.Chain.Backend,
		ChainDB:      cfg.Chain.DB,
		PersistKeys:  !cfg.Keys.Ephemeral,
		LogVerbosity: cfg.Logging.Verbosity,
	}
	integration.ApplyPreset(&current, preset)

	cfg.Preset = current.Name
	cfg.Network = current.Network
	cfg.Chain.Backend = current.ChainBackend
	cfg.Chain.DB = current.ChainDB
	cfg.Keys.Ephemeral = !current.PersistKeys
	cfg.Logging.Verbosity = current.LogVerbosity
	return nil
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) error {
	if ctx.GlobalIsSet("datadir") {
		cfg.DataDir = ctx.GlobalString("datadir")
	}
	if ctx.GlobalIsSet("network") {
		cfg.Network = ctx.GlobalString("network")
	}
	if ctx.GlobalIsSet("chain.backend") {
		cfg.Chain.Backend = ctx.GlobalString("chain.backend")
	}
	if ctx.GlobalIsSet("chain.db") {
		cfg.Chain.DB = ctx.GlobalString("chain.db")
	}
	if ctx.GlobalIsSet("tiers") {
		tiers, err := parseTiers(ctx.GlobalString("tiers"))
		if err != nil {
			return err
		}
		cfg.Tiers = tiers
	}
	if ctx.GlobalIsSet("claims.maxbatch") {
		cfg.MaxBatch = ctx.GlobalInt("claims.maxbatch")
	}

	if ctx.GlobalIsSet("keys.dir") {
		cfg.Keys.Dir = ctx.GlobalString("keys.dir")
	}
	if ctx.GlobalIsSet("keys.ephemeral") {
		cfg.Keys.Ephemeral = ctx.GlobalBool("keys.ephemeral")
	}
	if ctx.GlobalIsSet("wallet.key") {
		cfg.Wallet = resolvePath(ctx.GlobalString("wallet.key"))
	}

	if ctx.GlobalIsSet("log.format") {
		cfg.Logging.Format = ctx.GlobalString("log.format")
	}
	if ctx.GlobalIsSet("log.verbosity") {
		cfg.Logging.Verbosity = ctx.GlobalInt("log.verbosity")
	}
	if ctx.GlobalIsSet("log.color") {
		cfg.Logging.Color = ctx.GlobalBool("log.color")
	}
	if ctx.GlobalIsSet("sentry.dsn") {
		cfg.Sentry = ctx.GlobalString("sentry.dsn")
	}
	return nil
}

// Rules resolves the network rules with any overrides applied.
func (c Config) Rules() (lootpath.Rules, error) {
	rules, err := lootpath.RulesByName(c.Network)
	if err != nil {
		return lootpath.Rules{}, err
	}
	if len(c.Tiers) > 0 {
		rules.Progression.Thresholds = append([]int64(nil), c.Tiers...)
		if top := uint32(len(c.Tiers) - 1); top < rules.Progression.MaxTiers {
			rules.Progression.MaxTiers = top
		}
	}
	if c.MaxBatch > 0 {
		rules.Claims.MaxBatch = c.MaxBatch
	}
	return rules, rules.Validate()
}

// KeysDir is where the key session lives, or "" for ephemeral keys.
func (c Config) KeysDir() string {
	if c.Keys.Ephemeral {
		return ""
	}
	if filepath.IsAbs(c.Keys.Dir) {
		return c.Keys.Dir
	}
	return filepath.Join(c.DataDir, c.Keys.Dir)
}

// Runtime translates the config for integration.New.
func (c Config) Runtime() (integration.Config, error) {
	rules, err := c.Rules()
	if err != nil {
		return integration.Config{}, err
	}
	if c.Chain.Backend == integration.BackendSQLite || !c.Keys.Ephemeral {
		if err := ensureDir(c.DataDir); err != nil {
			return integration.Config{}, err
		}
	}
	return integration.Config{
		DataDir:      c.DataDir,
		Rules:        rules,
		Season:       genesis.DefaultSeason(),
		ChainBackend: c.Chain.Backend,
		ChainDB:      c.Chain.DB,
		KeysDir:      c.KeysDir(),
	}, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func parseTiers(raw string) ([]int64, error) {
	parts := splitCSV(raw)
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("tier threshold %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create datadir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// GuessWorkDir returns the working directory, or "." if it is unknown.
func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// GuessHomeDir returns the user home directory, or "." if it is unknown.
func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}
