package config

import (
	"fmt"
	"strings"
)

var (
	MinSlotDurationMillis = uint64(10)
	MaxBurst              = uint32(10_000)
)

var logLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "error": {}}

func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return fmt.Errorf("listen address: empty")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("data dir: empty")
	}
	if cfg.Clock.SlotDurationMillis < MinSlotDurationMillis {
		return fmt.Errorf("clock: slot_duration_millis below %d", MinSlotDurationMillis)
	}
	if cfg.Clock.GenesisUnix <= 0 {
		return fmt.Errorf("clock: genesis_unix must be positive")
	}
	if cfg.Rent.LamportsPerByteYear == 0 || cfg.Rent.ExemptionYears == 0 {
		return fmt.Errorf("rent: lamports_per_byte_year and exemption_years must be positive")
	}
	if _, ok := logLevels[strings.ToLower(cfg.Log.Level)]; !ok {
		return fmt.Errorf("log: unknown level %q", cfg.Log.Level)
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("log: rotation limits must not be negative")
	}
	if cfg.RPC.Burst > MaxBurst {
		return fmt.Errorf("rpc: burst above %d", MaxBurst)
	}
	if cfg.RPC.MaxBodyBytes <= 0 {
		return fmt.Errorf("rpc: max_body_bytes <= 0")
	}
	if cfg.Telemetry.Traces || cfg.Telemetry.Metrics {
		if strings.TrimSpace(cfg.Telemetry.Endpoint) == "" {
			return fmt.Errorf("telemetry: endpoint required when exporters are enabled")
		}
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio must be within [0, 1]")
	}
	if cfg.Telemetry.MetricIntervalSeconds < 1 {
		return fmt.Errorf("telemetry: metric interval must be at least one second")
	}
	if _, err := cfg.GenesisBalances(); err != nil {
		return err
	}
	return nil
}
