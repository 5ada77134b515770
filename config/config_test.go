package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shiftchain/crypto"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ProgramKeystorePath != filepath.Join(dir, "program.keystore") {
		t.Fatalf("unexpected keystore path %q", cfg.ProgramKeystorePath)
	}
	if _, err := cfg.LoadProgramKey(); err != nil {
		t.Fatalf("decrypt keystore: %v", err)
	}
	if cfg.Clock.GenesisUnix <= 0 {
		t.Fatalf("expected genesis time to be set")
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload config: %v", err)
	}
	if reloaded.Clock != cfg.Clock || reloaded.ProgramKeystorePath != cfg.ProgramKeystorePath {
		t.Fatalf("reloaded config differs: %+v vs %+v", reloaded, cfg)
	}
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	keystorePath := filepath.Join(dir, "keys", "program.keystore")
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	if err := crypto.SaveToKeystore(keystorePath, key, ""); err != nil {
		t.Fatalf("save keystore: %v", err)
	}
	funded := key.Address()

	path := writeConfig(t, fmt.Sprintf(`ListenAddress = "127.0.0.1:9000"
DataDir = "./data"
ProgramKeystorePath = "%s"
NetworkName = "shift-test"

[Clock]
SlotDurationMillis = 500
GenesisUnix = 1700000000

[Rent]
LamportsPerByteYear = 10
ExemptionYears = 1

[Log]
Level = "debug"
Environment = "staging"
File = "/var/log/shiftd.log"

[Telemetry]
Endpoint = "collector:4318"
Traces = true
SampleRatio = 0.25

[RPC]
RequestsPerMinute = 120
Burst = 10

[Index]
Path = "./index.db"

[[Genesis.Accounts]]
Address = "%s"
Lamports = 5000
`, keystorePath, funded.String()))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:9000" || cfg.NetworkName != "shift-test" {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if cfg.Clock.SlotDurationMillis != 500 || cfg.Clock.GenesisUnix != 1_700_000_000 {
		t.Fatalf("unexpected clock: %+v", cfg.Clock)
	}
	if cfg.Rent != (Rent{LamportsPerByteYear: 10, ExemptionYears: 1}) {
		t.Fatalf("unexpected rent: %+v", cfg.Rent)
	}
	if cfg.Log.Level != "debug" || cfg.Log.MaxSizeMB != 100 || cfg.Log.MaxBackups != 5 {
		t.Fatalf("unexpected log settings: %+v", cfg.Log)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.Metrics || cfg.Telemetry.SampleRatio != 0.25 || cfg.Telemetry.MetricIntervalSeconds != 15 {
		t.Fatalf("unexpected telemetry: %+v", cfg.Telemetry)
	}
	if cfg.RPC.RequestsPerMinute != 120 || cfg.RPC.Burst != 10 || cfg.RPC.MaxBodyBytes != 1<<20 {
		t.Fatalf("unexpected rpc settings: %+v", cfg.RPC)
	}
	if cfg.Index.Path != "./index.db" {
		t.Fatalf("unexpected index path %q", cfg.Index.Path)
	}

	balances, err := cfg.GenesisBalances()
	if err != nil {
		t.Fatalf("genesis balances: %v", err)
	}
	if balances[funded] != 5000 || len(balances) != 1 {
		t.Fatalf("unexpected genesis balances: %v", balances)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `ListenAddress = ":8899"
ValidatorKeystorePath = "old.keystore"
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "ValidatorKeystorePath") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLoadUsesPassphraseEnv(t *testing.T) {
	t.Setenv("SHIFT_TEST_PASS", "strong-passphrase")
	path := writeConfig(t, `ListenAddress = ":8899"
DataDir = "./data"
ProgramKeystorePassEnv = "SHIFT_TEST_PASS"

[Clock]
GenesisUnix = 1700000000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := crypto.LoadFromKeystore(cfg.ProgramKeystorePath, "strong-passphrase"); err != nil {
		t.Fatalf("decrypt keystore: %v", err)
	}
	if _, err := crypto.LoadFromKeystore(cfg.ProgramKeystorePath, ""); err == nil {
		t.Fatalf("keystore should not open without the passphrase")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty listen address", func(c *Config) { c.ListenAddress = " " }, "listen address"},
		{"slot too short", func(c *Config) { c.Clock.SlotDurationMillis = 1 }, "clock"},
		{"no genesis time", func(c *Config) { c.Clock.GenesisUnix = 0 }, "genesis_unix"},
		{"free rent", func(c *Config) { c.Rent.ExemptionYears = 0 }, "rent"},
		{"unknown log level", func(c *Config) { c.Log.Level = "loud" }, "log"},
		{"huge burst", func(c *Config) { c.RPC.Burst = MaxBurst + 1 }, "burst"},
		{"telemetry without endpoint", func(c *Config) { c.Telemetry.Metrics = true }, "telemetry"},
		{"sample ratio above one", func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, "sample_ratio"},
		{"zero metric interval", func(c *Config) { c.Telemetry.MetricIntervalSeconds = -1 }, "metric interval"},
		{"bad genesis address", func(c *Config) {
			c.Genesis.Accounts = []GenesisAccount{{Address: "nope", Lamports: 1}}
		}, "genesis account 0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := Validate(cfg); err != nil {
				t.Fatalf("default config invalid: %v", err)
			}
			tc.mutate(cfg)
			err := Validate(cfg)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestGenesisBalancesRejectsDuplicates(t *testing.T) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.Address().String()
	cfg := Default()
	cfg.Genesis.Accounts = []GenesisAccount{{Address: addr, Lamports: 1}, {Address: addr, Lamports: 2}}
	if _, err := cfg.GenesisBalances(); err == nil {
		t.Fatalf("expected duplicate address error")
	}
}
