package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"shiftchain/crypto"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress          string    `toml:"ListenAddress"`
	DataDir                string    `toml:"DataDir"`
	ProgramKeystorePath    string    `toml:"ProgramKeystorePath"`
	ProgramKeystorePassEnv string    `toml:"ProgramKeystorePassEnv"`
	NetworkName            string    `toml:"NetworkName"`
	Clock                  Clock     `toml:"Clock"`
	Rent                   Rent      `toml:"Rent"`
	Log                    Log       `toml:"Log"`
	Telemetry              Telemetry `toml:"Telemetry"`
	RPC                    RPC       `toml:"RPC"`
	Index                  Index     `toml:"Index"`
	Genesis                Genesis   `toml:"Genesis"`
}

// Load loads the configuration from the given path, writing a default file
// and a fresh program keystore when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0])
	}

	if err := ensureKeystore(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a new node.
func Default() *Config {
	cfg := &Config{
		ListenAddress: ":8899",
		DataDir:       "./shift-data",
		NetworkName:   "shift-local",
		Clock:         Clock{GenesisUnix: time.Now().Unix()},
	}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "shift-local"
	}
	if cfg.Clock.SlotDurationMillis == 0 {
		cfg.Clock.SlotDurationMillis = 400
	}
	if cfg.Rent.LamportsPerByteYear == 0 {
		cfg.Rent.LamportsPerByteYear = 3480
	}
	if cfg.Rent.ExemptionYears == 0 {
		cfg.Rent.ExemptionYears = 2
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File != "" {
		if cfg.Log.MaxSizeMB == 0 {
			cfg.Log.MaxSizeMB = 100
		}
		if cfg.Log.MaxBackups == 0 {
			cfg.Log.MaxBackups = 5
		}
		if cfg.Log.MaxAgeDays == 0 {
			cfg.Log.MaxAgeDays = 28
		}
	}
	if cfg.RPC.RequestsPerMinute == 0 {
		cfg.RPC.RequestsPerMinute = 600
	}
	if cfg.RPC.Burst == 0 {
		cfg.RPC.Burst = 60
	}
	if cfg.RPC.MaxBodyBytes == 0 {
		cfg.RPC.MaxBodyBytes = 1 << 20
	}
	if cfg.Telemetry.SampleRatio == 0 {
		cfg.Telemetry.SampleRatio = 1
	}
	if cfg.Telemetry.MetricIntervalSeconds == 0 {
		cfg.Telemetry.MetricIntervalSeconds = 15
	}
	if cfg.Genesis.Accounts == nil {
		cfg.Genesis.Accounts = []GenesisAccount{}
	}
}

// GenesisBalances parses the genesis accounts.
func (cfg *Config) GenesisBalances() (map[crypto.Address]uint64, error) {
	balances := make(map[crypto.Address]uint64, len(cfg.Genesis.Accounts))
	for i, acct := range cfg.Genesis.Accounts {
		addr, err := crypto.ParseAddress(acct.Address)
		if err != nil {
			return nil, fmt.Errorf("genesis account %d: %w", i, err)
		}
		if _, dup := balances[addr]; dup {
			return nil, fmt.Errorf("genesis account %d: duplicate address %s", i, acct.Address)
		}
		balances[addr] = acct.Lamports
	}
	return balances, nil
}

func ensureKeystore(configPath string, cfg *Config) error {
	keystorePath := cfg.ProgramKeystorePath
	if keystorePath == "" {
		keystorePath = defaultKeystorePath(configPath)
	}

	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		key, genErr := crypto.GeneratePrivateKey()
		if genErr != nil {
			return genErr
		}
		if err := crypto.SaveToKeystore(keystorePath, key, passphrase(cfg)); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if cfg.ProgramKeystorePath != keystorePath {
		cfg.ProgramKeystorePath = keystorePath
		return persist(configPath, cfg)
	}

	return nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	cfg.ProgramKeystorePath = defaultKeystorePath(path)
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveToKeystore(cfg.ProgramKeystorePath, key, passphrase(cfg)); err != nil {
		return nil, err
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadProgramKey decrypts the program keystore. The program's address is the
// key's address.
func (cfg *Config) LoadProgramKey() (*crypto.PrivateKey, error) {
	return crypto.LoadFromKeystore(cfg.ProgramKeystorePath, passphrase(cfg))
}

func passphrase(cfg *Config) string {
	if env := strings.TrimSpace(cfg.ProgramKeystorePassEnv); env != "" {
		return os.Getenv(env)
	}
	return ""
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "program.keystore")
}
