package launcher

import (
	"path/filepath"
	"testing"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/secret-loot-path/flags"
)

// runConfigFromArgs runs MakeAllConfigs inside a synthetic CLI app.
func runConfigFromArgs(t *testing.T, args []string) Config {
	t.Helper()

	app := cli.NewApp()
	app.HideHelp = true
	app.HideVersion = true
	app.Flags = flags.AllFlags()

	var got Config
	app.Action = func(c *cli.Context) error {
		cfg, err := MakeAllConfigs(c)
		if err != nil {
			return err
		}
		got = cfg
		return nil
	}
	if err := app.Run(append([]string{"lootpath"}, args...)); err != nil {
		t.Fatalf("app.Run failed: %v", err)
	}
	return got
}

// TestMakeAllConfigs_flagOverrides feeds flag combinations through a
// synthetic app and checks the fields each should change.
func TestMakeAllConfigs_flagOverrides(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want func(t *testing.T, cfg Config)
	}{
		{
			name: "defaults",
			args: nil,
			want: func(t *testing.T, cfg Config) {
				if cfg.Network != "test" || cfg.Chain.Backend != "sqlite" {
					t.Fatalf("Network = %q, Backend = %q", cfg.Network, cfg.Chain.Backend)
				}
				if cfg.Keys.Ephemeral {
					t.Fatal("default keys should persist")
				}
				if cfg.Logging.Verbosity != 3 {
					t.Fatalf("Verbosity = %d, want 3", cfg.Logging.Verbosity)
				}
			},
		},
		{
			name: "datadir and keys",
			args: []string{"--datadir", dir, "--keys.dir", "vault"},
			want: func(t *testing.T, cfg Config) {
				if cfg.DataDir != dir {
					t.Fatalf("DataDir = %q, want %q", cfg.DataDir, dir)
				}
				if cfg.KeysDir() != filepath.Join(dir, "vault") {
					t.Fatalf("KeysDir = %q", cfg.KeysDir())
				}
			},
		},
		{
			name: "dev preset",
			args: []string{"--preset", "dev"},
			want: func(t *testing.T, cfg Config) {
				if cfg.Network != "fake" || cfg.Chain.Backend != "memory" {
					t.Fatalf("Network = %q, Backend = %q", cfg.Network, cfg.Chain.Backend)
				}
				if !cfg.Keys.Ephemeral || cfg.KeysDir() != "" {
					t.Fatal("dev preset should use ephemeral keys")
				}
				if cfg.Logging.Verbosity != 4 {
					t.Fatalf("Verbosity = %d, want 4", cfg.Logging.Verbosity)
				}
			},
		},
		{
			name: "flags beat preset",
			args: []string{"--preset", "dev", "--network", "main", "--log.verbosity", "1"},
			want: func(t *testing.T, cfg Config) {
				if cfg.Network != "main" {
					t.Fatalf("Network = %q, want main", cfg.Network)
				}
				if cfg.Logging.Verbosity != 1 {
					t.Fatalf("Verbosity = %d, want 1", cfg.Logging.Verbosity)
				}
			},
		},
		{
			name: "tier override",
			args: []string{"--tiers", "0, 50, 200", "--claims.maxbatch", "2"},
			want: func(t *testing.T, cfg Config) {
				rules, err := cfg.Rules()
				if err != nil {
					t.Fatalf("Rules: %v", err)
				}
				if len(rules.Progression.Thresholds) != 3 || rules.Progression.Thresholds[1] != 50 {
					t.Fatalf("Thresholds = %v", rules.Progression.Thresholds)
				}
				if rules.Progression.MaxTiers != 2 {
					t.Fatalf("MaxTiers = %d, want 2", rules.Progression.MaxTiers)
				}
				if rules.Claims.MaxBatch != 2 {
					t.Fatalf("MaxBatch = %d, want 2", rules.Claims.MaxBatch)
				}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := runConfigFromArgs(t, test.args)
			test.want(t, cfg)
		})
	}
}

func TestMakeAllConfigs_envLayer(t *testing.T) {
	t.Setenv("LOOTPATH_NETWORK", "fake")
	t.Setenv("LOOTPATH_CHAIN_BACKEND", "memory")
	t.Setenv("LOOTPATH_LOG_FORMAT", "json")
	t.Setenv("LOOTPATH_TIERS", "0,5,9")
	t.Setenv("LOOTPATH_SENTRY_DSN", "https://key@sentry.example/1")

	cfg := runConfigFromArgs(t, []string{"--log.format", "text"})
	if cfg.Network != "fake" || cfg.Chain.Backend != "memory" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if len(cfg.Tiers) != 3 || cfg.Tiers[2] != 9 {
		t.Fatalf("Tiers = %v", cfg.Tiers)
	}
	if cfg.Sentry == "" {
		t.Fatal("Sentry DSN not read from env")
	}
	// Flags win over the environment.
	if cfg.Logging.Format != "text" {
		t.Fatalf("Format = %q, want text", cfg.Logging.Format)
	}
}

func TestMakeAllConfigs_envPreset(t *testing.T) {
	t.Setenv("LOOTPATH_PRESET", "main")
	cfg := runConfigFromArgs(t, nil)
	if cfg.Preset != "main" || cfg.Network != "main" || cfg.Chain.DB != "mainchain.db" {
		t.Fatalf("preset from env not applied: %+v", cfg)
	}
}

func TestMakeAllConfigs_rejectsBadInput(t *testing.T) {
	app := cli.NewApp()
	app.Flags = flags.AllFlags()
	app.Action = func(c *cli.Context) error {
		_, err := MakeAllConfigs(c)
		return err
	}
	if err := app.Run([]string{"lootpath", "--tiers", "0,ten"}); err == nil {
		t.Fatal("expected error for non-numeric tier")
	}
	if err := app.Run([]string{"lootpath", "--preset", "archive"}); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestVerbosityLevel(t *testing.T) {
	if _, err := setupLogging(LoggingConfig{Format: "xml"}, ""); err == nil {
		t.Fatal("expected error for unknown format")
	}
	log, err := setupLogging(LoggingConfig{Verbosity: 4, Format: "json"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if log.Level.String() != "debug" {
		t.Fatalf("Level = %s, want debug", log.Level)
	}
	if verbosityLevel(-1).String() != "fatal" || verbosityLevel(9).String() != "trace" {
		t.Fatal("verbosity not clamped")
	}
}
