package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	coreerrors "shiftchain/core/errors"
	"shiftchain/core/events"
	"shiftchain/core/state"
	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/observability/metrics"
)

// SystemProgramID owns every address that no program has claimed yet.
var SystemProgramID = crypto.ZeroAddress

const maxInvokeDepth = 4

var (
	ErrMissingAccount     = fmt.Errorf("%w: account not provided to transaction", coreerrors.ErrMalformedInput)
	ErrInvokeDepth        = fmt.Errorf("%w: invocation depth exceeded", coreerrors.ErrAssertionFailed)
	ErrLamportsUnbalanced = fmt.Errorf("%w: lamports not balanced", coreerrors.ErrAssertionFailed)
	ErrAlreadyProcessed   = fmt.Errorf("%w: transaction already processed", coreerrors.ErrAssertionFailed)
)

// Host is the view of the ledger offered to a program while one of its
// instructions executes.
type Host interface {
	Context() context.Context
	// ProgramID is the identity of the executing program.
	ProgramID() crypto.Address
	// Slot is sampled once per transaction.
	Slot() uint64
	MinimumBalance(space int) uint64
	// Invoke calls another program. Each entry of signerSeeds is a seed tuple
	// whose derived address (under the calling program) is granted signer
	// status for the duration of the call.
	Invoke(ix types.Instruction, signerSeeds ...[][]byte) error
	Emit(events.Event)
}

// Program is a native program registered with the runtime.
type Program interface {
	ID() crypto.Address
	Execute(host Host, accounts []*types.Account, data []byte) error
}

type Option func(*Runtime)

func WithRent(rent Rent) Option {
	return func(r *Runtime) { r.rent = rent }
}

// WithEmitter configures where events of committed transactions are sent.
func WithEmitter(emitter events.Emitter) Option {
	return func(r *Runtime) {
		if emitter != nil {
			r.emitter = emitter
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runtime executes transactions one at a time against the state manager.
// Holding the mutex for the whole transaction gives every transaction
// exclusive access to the accounts it touches.
type Runtime struct {
	mu       sync.Mutex
	state    *state.Manager
	clock    Clock
	rent     Rent
	programs map[crypto.Address]Program
	emitter  events.Emitter
	logger   *slog.Logger
	tracer   trace.Tracer
}

func New(st *state.Manager, clock Clock, opts ...Option) *Runtime {
	r := &Runtime{
		state:    st,
		clock:    clock,
		rent:     DefaultRent(),
		programs: make(map[crypto.Address]Program),
		emitter:  events.NoopEmitter{},
		logger:   slog.Default(),
		tracer:   otel.Tracer("shiftchain/core/runtime"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds programs. A later registration replaces an earlier one with
// the same ID.
func (r *Runtime) Register(programs ...Program) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range programs {
		r.programs[p.ID()] = p
	}
}

func (r *Runtime) Clock() Clock { return r.clock }

func (r *Runtime) Rent() Rent { return r.rent }

func (r *Runtime) State() *state.Manager { return r.state }

// Account returns the committed state of addr, or nil when it does not exist.
func (r *Runtime) Account(addr crypto.Address) (*types.StoredAccount, error) {
	return r.state.Account(addr)
}

// Execute runs tx atomically. The receipt is returned whenever the
// transaction was evaluated; the error is the reason it failed, if it did.
func (r *Runtime) Execute(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return r.execute(ctx, tx, true)
}

// Simulate runs tx without committing any change or publishing events.
func (r *Runtime) Simulate(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return r.execute(ctx, tx, false)
}

func (r *Runtime) execute(ctx context.Context, tx *types.Transaction, commit bool) (*types.Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	ctx, span := r.tracer.Start(ctx, "runtime.Execute")
	defer span.End()

	receipt := &types.Receipt{}
	if tx == nil {
		return r.fail(span, receipt, started, fmt.Errorf("%w: nil transaction", coreerrors.ErrMalformedInput))
	}
	hash, err := tx.Hash()
	if err != nil {
		return r.fail(span, receipt, started, fmt.Errorf("%w: %v", coreerrors.ErrMalformedInput, err))
	}
	receipt.TxHash = hexutil.Encode(hash)
	receipt.Slot = r.clock.Slot()
	span.SetAttributes(
		attribute.String("tx.hash", receipt.TxHash),
		attribute.Int64("tx.slot", int64(receipt.Slot)),
		attribute.Int("tx.instructions", len(tx.Message.Instructions)),
		attribute.Bool("tx.commit", commit),
	)

	seen, err := r.state.HasTransaction(hash)
	if err != nil {
		return r.fail(span, receipt, started, err)
	}
	if seen {
		return r.fail(span, receipt, started, ErrAlreadyProcessed)
	}

	exec, err := r.prepare(ctx, tx, receipt.Slot)
	if err != nil {
		return r.fail(span, receipt, started, err)
	}
	for i, ix := range tx.Message.Instructions {
		if err := exec.invoke(ix, 0); err != nil {
			return r.fail(span, receipt, started, fmt.Errorf("instruction %d: %w", i, err))
		}
	}

	receipt.Events = events.Render(exec.events.Events())
	if !commit {
		r.observe(receipt, started)
		return receipt, nil
	}

	updates := make(map[crypto.Address]*types.StoredAccount)
	for _, addr := range exec.order {
		handle := exec.accounts[addr]
		if handle.Writable {
			updates[addr] = handle.Stored()
		}
	}
	if err := r.state.CommitTransaction(hash, updates); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		r.logger.Error("transaction commit failed", "tx", receipt.TxHash, "error", err)
		return nil, fmt.Errorf("runtime: commit: %w", err)
	}
	exec.events.Flush(r.emitter)
	r.observe(receipt, started)
	r.logger.Debug("transaction committed",
		"tx", receipt.TxHash,
		"slot", receipt.Slot,
		"instructions", len(tx.Message.Instructions),
		"events", len(receipt.Events))
	return receipt, nil
}

func (r *Runtime) fail(span trace.Span, receipt *types.Receipt, started time.Time, err error) (*types.Receipt, error) {
	code := coreerrors.CodeOf(err)
	receipt.Code = uint32(code)
	receipt.Error = err.Error()
	receipt.Events = nil
	span.RecordError(err)
	span.SetStatus(codes.Error, code.String())
	r.observe(receipt, started)
	r.logger.Warn("transaction rejected",
		"tx", receipt.TxHash,
		"slot", receipt.Slot,
		"code", code.String(),
		"error", err)
	return receipt, err
}

func (r *Runtime) observe(receipt *types.Receipt, started time.Time) {
	metrics.Ledger().ObserveTransaction(coreerrors.Code(receipt.Code).String(), time.Since(started).Seconds())
}

// prepare loads every account referenced by the transaction once and sets the
// transaction-wide capability flags.
func (r *Runtime) prepare(ctx context.Context, tx *types.Transaction, slot uint64) (*execution, error) {
	signers, err := tx.Signers()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreerrors.ErrMalformedInput, err)
	}
	exec := &execution{
		rt:       r,
		ctx:      ctx,
		slot:     slot,
		accounts: make(map[crypto.Address]*types.Account),
		events:   new(events.Buffer),
	}
	for _, ix := range tx.Message.Instructions {
		for _, meta := range ix.Accounts {
			handle, ok := exec.accounts[meta.Address]
			if !ok {
				handle, err = r.load(meta.Address)
				if err != nil {
					return nil, err
				}
				_, handle.Signer = signers[meta.Address]
				exec.accounts[meta.Address] = handle
				exec.order = append(exec.order, meta.Address)
			}
			if meta.Signer && !handle.Signer {
				return nil, fmt.Errorf("%w: %s", coreerrors.ErrMissingSignature, meta.Address)
			}
			if meta.Writable {
				handle.Writable = true
			}
		}
	}
	return exec, nil
}

func (r *Runtime) load(addr crypto.Address) (*types.Account, error) {
	stored, err := r.state.Account(addr)
	if err != nil {
		return nil, err
	}
	handle := &types.Account{Address: addr, Owner: SystemProgramID}
	if stored != nil {
		handle.Owner = stored.Owner
		handle.Lamports = stored.Lamports
		handle.Data = append([]byte(nil), stored.Data...)
	}
	return handle, nil
}

type execution struct {
	rt       *Runtime
	ctx      context.Context
	slot     uint64
	accounts map[crypto.Address]*types.Account
	order    []crypto.Address
	events   *events.Buffer
}

func (e *execution) invoke(ix types.Instruction, depth int) error {
	program, ok := e.rt.programs[ix.ProgramID]
	if !ok {
		return fmt.Errorf("%w: %s", coreerrors.ErrUnknownProgram, ix.ProgramID)
	}
	handles := make([]*types.Account, len(ix.Accounts))
	f := &frame{
		exec:    e,
		program: ix.ProgramID,
		depth:   depth,
		pre:     make(map[crypto.Address]types.AccountSnapshot, len(ix.Accounts)),
	}
	for i, meta := range ix.Accounts {
		handle, ok := e.accounts[meta.Address]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingAccount, meta.Address)
		}
		handles[i] = handle
		if _, seen := f.pre[meta.Address]; !seen {
			f.pre[meta.Address] = handle.Snapshot()
			f.touched = append(f.touched, meta.Address)
		}
	}
	if err := program.Execute(f, handles, ix.Data); err != nil {
		return err
	}
	return f.verify(f.touched)
}

// frame is one program invocation. It implements Host.
type frame struct {
	exec    *execution
	program crypto.Address
	depth   int
	pre     map[crypto.Address]types.AccountSnapshot
	touched []crypto.Address
}

func (f *frame) Context() context.Context        { return f.exec.ctx }
func (f *frame) ProgramID() crypto.Address       { return f.program }
func (f *frame) Slot() uint64                    { return f.exec.slot }
func (f *frame) MinimumBalance(space int) uint64 { return f.exec.rt.rent.MinimumBalance(space) }
func (f *frame) Emit(e events.Event)             { f.exec.events.Emit(e) }

func (f *frame) Invoke(ix types.Instruction, signerSeeds ...[][]byte) error {
	if f.depth+1 >= maxInvokeDepth {
		return ErrInvokeDepth
	}
	addrs := make([]crypto.Address, 0, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		addrs = append(addrs, meta.Address)
	}
	if err := f.verify(addrs); err != nil {
		return err
	}

	promoted := make(map[crypto.Address]struct{}, len(signerSeeds))
	for _, seeds := range signerSeeds {
		addr, err := crypto.CreateDerivedAddress(f.program, seeds...)
		if err != nil {
			return fmt.Errorf("%w: signer seeds: %v", coreerrors.ErrAddressMismatch, err)
		}
		promoted[addr] = struct{}{}
	}

	var restore []*types.Account
	defer func() {
		for _, handle := range restore {
			handle.Signer = false
		}
	}()
	for _, meta := range ix.Accounts {
		handle, ok := f.exec.accounts[meta.Address]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingAccount, meta.Address)
		}
		if meta.Signer && !handle.Signer {
			if _, ok := promoted[meta.Address]; !ok {
				return fmt.Errorf("%w: %s", coreerrors.ErrMissingSignature, meta.Address)
			}
			handle.Signer = true
			restore = append(restore, handle)
		}
		if meta.Writable && !handle.Writable {
			return fmt.Errorf("%w: %s", coreerrors.ErrNotWritable, meta.Address)
		}
	}

	if err := f.exec.invoke(ix, f.depth+1); err != nil {
		return err
	}
	for _, addr := range addrs {
		if _, seen := f.pre[addr]; !seen {
			f.touched = append(f.touched, addr)
		}
		f.pre[addr] = f.exec.accounts[addr].Snapshot()
	}
	return nil
}

// verify enforces the account rules for changes made by this frame's program
// since the last baseline: read-only accounts never change, only the owner may
// change data, reassign ownership or debit lamports, and lamports are
// conserved.
func (f *frame) verify(addrs []crypto.Address) error {
	var before, after uint64
	seen := make(map[crypto.Address]struct{}, len(addrs))
	for _, addr := range addrs {
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		pre, ok := f.pre[addr]
		if !ok {
			continue
		}
		handle := f.exec.accounts[addr]
		before += pre.Lamports
		after += handle.Lamports
		if !pre.Changed(handle) {
			continue
		}
		if !handle.Writable {
			return fmt.Errorf("%w: %s modified", coreerrors.ErrNotWritable, addr)
		}
		if pre.Owner != f.program {
			if pre.DataChanged(handle) || pre.Owner != handle.Owner {
				return fmt.Errorf("%w: %s modified by non-owner program %s", coreerrors.ErrWrongOwner, addr, f.program)
			}
			if handle.Lamports < pre.Lamports {
				return fmt.Errorf("%w: %s debited by non-owner program %s", coreerrors.ErrWrongOwner, addr, f.program)
			}
		}
	}
	if before != after {
		return ErrLamportsUnbalanced
	}
	return nil
}
