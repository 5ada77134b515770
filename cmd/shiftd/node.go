package main

import (
	"fmt"
	"log/slog"
	"time"

	"shiftchain/config"
	"shiftchain/core/events"
	"shiftchain/core/runtime"
	"shiftchain/core/state"
	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/integrations/index"
	"shiftchain/native/metadata"
	"shiftchain/native/shift"
	"shiftchain/native/system"
	"shiftchain/native/token"
	"shiftchain/observability/metrics"
	"shiftchain/observability/otel"
	"shiftchain/rpc"
	"shiftchain/storage"
)

// node owns everything the daemon opens.
type node struct {
	db        storage.Database
	runtime   *runtime.Runtime
	index     *index.Index
	server    *rpc.Server
	programID crypto.Address
}

func newNode(cfg *config.Config, programKey *crypto.PrivateKey, logger *slog.Logger) (*node, error) {
	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	n := &node{db: db, programID: programKey.Address()}

	st := state.NewManager(db)
	balances, err := cfg.GenesisBalances()
	if err != nil {
		n.Close()
		return nil, err
	}
	if err := applyGenesis(st, balances); err != nil {
		n.Close()
		return nil, fmt.Errorf("apply genesis: %w", err)
	}

	ledger, err := otel.NewLedger(nil)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("create ledger instruments: %w", err)
	}
	emitters := events.Fanout{metrics.Ledger(), ledger}
	if cfg.Index.Path != "" {
		idx, err := index.Open(cfg.Index.Path, logger)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("open event index: %w", err)
		}
		n.index = idx
		emitters = append(emitters, idx)
	}

	genesis := time.Unix(cfg.Clock.GenesisUnix, 0)
	clock := runtime.NewWallClock(genesis, time.Duration(cfg.Clock.SlotDurationMillis)*time.Millisecond)
	rent := runtime.Rent{
		LamportsPerByteYear: cfg.Rent.LamportsPerByteYear,
		ExemptionYears:      cfg.Rent.ExemptionYears,
	}
	n.runtime = runtime.New(st, clock,
		runtime.WithRent(rent),
		runtime.WithLogger(logger),
		runtime.WithEmitter(emitters),
	)
	n.runtime.Register(system.New(), token.New(), token.NewAssociated(), metadata.New(), shift.New(n.programID))

	serverCfg := rpc.Config{
		ProgramID:         n.programID,
		RequestsPerMinute: float64(cfg.RPC.RequestsPerMinute),
		Burst:             int(cfg.RPC.Burst),
		MaxBodyBytes:      cfg.RPC.MaxBodyBytes,
		Logger:            logger,
	}
	if n.index != nil {
		serverCfg.History = n.index
	}
	n.server = rpc.NewServer(n.runtime, serverCfg)
	return n, nil
}

// applyGenesis credits each balance to a system-owned account. Addresses that
// already exist are left alone so restarts do not mint lamports.
func applyGenesis(st *state.Manager, balances map[crypto.Address]uint64) error {
	for addr, lamports := range balances {
		existing, err := st.Account(addr)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := st.SetAccount(addr, &types.StoredAccount{Owner: system.ProgramID, Lamports: lamports}); err != nil {
			return err
		}
	}
	return nil
}

func (n *node) Close() {
	if n.index != nil {
		if err := n.index.Close(); err != nil {
			slog.Warn("close event index", "error", err)
		}
	}
	if n.db != nil {
		n.db.Close()
	}
}
