package config

// Clock controls how wall time is mapped to slots.
type Clock struct {
	SlotDurationMillis uint64
	// GenesisUnix is the wall time of slot zero.
	GenesisUnix int64
}

// Rent prices account storage.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// Log configures the structured logger. An empty File logs to stdout.
type Log struct {
	Level       string
	Environment string
	File        string
	MaxSizeMB   int
	MaxBackups  int
	MaxAgeDays  int
	Compress    bool
}

// Telemetry configures the OpenTelemetry exporters.
type Telemetry struct {
	Endpoint string
	Insecure bool
	Headers  string
	Traces   bool
	Metrics  bool

	// SampleRatio is the fraction of root transactions traced. Zero means 1.
	SampleRatio           float64
	MetricIntervalSeconds int
}

// RPC controls per-client admission on the HTTP API.
type RPC struct {
	RequestsPerMinute uint32
	Burst             uint32
	// MaxBodyBytes bounds submitted transactions.
	MaxBodyBytes int64
}

// Index configures the SQLite event index. An empty Path disables it.
type Index struct {
	Path string
}

type GenesisAccount struct {
	Address  string
	Lamports uint64
}

// Genesis lists balances credited to system-owned accounts on first start.
type Genesis struct {
	Accounts []GenesisAccount
}
