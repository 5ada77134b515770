package shift_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	coreerrors "shiftchain/core/errors"
	"shiftchain/core/events"
	"shiftchain/core/runtime"
	"shiftchain/core/state"
	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/native/metadata"
	program "shiftchain/native/shift"
	"shiftchain/native/system"
	"shiftchain/native/token"
	sdk "shiftchain/sdk/shift"
	"shiftchain/storage"
)

const genesisSlot = 1000

type recorder struct {
	events []events.Event
}

func (r *recorder) Emit(e events.Event) { r.events = append(r.events, e) }

func (r *recorder) last(eventType string) events.Event {
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].EventType() == eventType {
			return r.events[i]
		}
	}
	return nil
}

type env struct {
	t          *testing.T
	st         *state.Manager
	rt         *runtime.Runtime
	clock      *runtime.ManualClock
	sink       *recorder
	b          sdk.Builder
	programKey *crypto.PrivateKey
	operator   *crypto.PrivateKey
	creator    *crypto.PrivateKey
	rewardMint crypto.Address
	collection crypto.Address
	nonce      uint64
}

// newEnv deploys the programs, the reward mint and the NFT collection, but
// creates no program records.
func newEnv(t *testing.T) *env {
	t.Helper()
	st := state.NewManager(storage.NewMemDB())
	clock := runtime.NewManualClock(genesisSlot)
	sink := &recorder{}
	rt := runtime.New(st, clock, runtime.WithEmitter(sink))
	e := &env{
		t:          t,
		st:         st,
		rt:         rt,
		clock:      clock,
		sink:       sink,
		programKey: newKey(t),
		operator:   newKey(t),
		creator:    newKey(t),
	}
	e.b = sdk.NewBuilder(e.programKey.Address())
	rt.Register(system.New(), token.New(), token.NewAssociated(), metadata.New(), program.New(e.programKey.Address()))
	e.fund(e.operator.Address())

	authority, _ := e.b.MintAuthority()
	e.rewardMint = e.createMint(authority)
	e.collection = e.createMint(e.creator.Address())
	return e
}

// newDeployedEnv additionally creates the mint authority and an employer
// with params.
func newDeployedEnv(t *testing.T, params program.EmployerParams) *env {
	t.Helper()
	e := newEnv(t)
	e.mustExec(e.b.MintAuthorityTx(e.next(), e.operator.Address()), e.operator, e.programKey)
	params.TokenMint = e.rewardMint
	params.CollectionMint = e.collection
	e.mustExec(e.b.EmployerTx(e.next(), e.operator.Address(), params), e.operator, e.programKey)
	return e
}

func newKey(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return key
}

func (e *env) next() uint64 {
	e.nonce++
	return e.nonce
}

func (e *env) fund(addr crypto.Address) {
	require.NoError(e.t, e.st.SetAccount(addr, &types.StoredAccount{Owner: system.ProgramID, Lamports: 1_000_000_000_000}))
}

func (e *env) exec(tx *types.Transaction, signers ...*crypto.PrivateKey) (*types.Receipt, error) {
	e.t.Helper()
	require.NoError(e.t, tx.Sign(signers...))
	return e.rt.Execute(context.Background(), tx)
}

func (e *env) mustExec(tx *types.Transaction, signers ...*crypto.PrivateKey) *types.Receipt {
	e.t.Helper()
	receipt, err := e.exec(tx, signers...)
	require.NoError(e.t, err)
	return receipt
}

func (e *env) run(signers []*crypto.PrivateKey, ixs ...types.Instruction) (*types.Receipt, error) {
	e.t.Helper()
	return e.exec(types.NewTransaction(e.next(), ixs...), signers...)
}

func (e *env) createMint(authority crypto.Address) crypto.Address {
	e.t.Helper()
	mintKey := newKey(e.t)
	mint := mintKey.Address()
	_, err := e.run([]*crypto.PrivateKey{e.operator, mintKey},
		system.NewCreateAccountInstruction(e.operator.Address(), mint, e.rt.Rent().MinimumBalance(token.MintSize), token.MintSize, token.ProgramID),
		token.NewInitializeMintInstruction(mint, 0, authority),
	)
	require.NoError(e.t, err)
	return mint
}

// mintNFT creates a collection NFT held by holder.
func (e *env) mintNFT(holder crypto.Address, verified bool) crypto.Address {
	e.t.Helper()
	nftKey := newKey(e.t)
	nft := nftKey.Address()
	holding, _ := token.AssociatedAddress(holder, nft)
	collection := e.collection
	ixs := []types.Instruction{
		system.NewCreateAccountInstruction(e.operator.Address(), nft, e.rt.Rent().MinimumBalance(token.MintSize), token.MintSize, token.ProgramID),
		token.NewInitializeMintInstruction(nft, 0, e.creator.Address()),
		metadata.NewCreateMetadataInstruction(nft, e.creator.Address(), e.operator.Address(), e.creator.Address(), &collection),
	}
	if verified {
		ixs = append(ixs, metadata.NewVerifyCollectionInstruction(nft, e.collection, e.creator.Address()))
	}
	ixs = append(ixs,
		token.NewCreateAssociatedAccountInstruction(e.operator.Address(), holder, nft),
		token.NewMintToInstruction(nft, holding, e.creator.Address(), 1),
	)
	_, err := e.run([]*crypto.PrivateKey{e.operator, nftKey, e.creator}, ixs...)
	require.NoError(e.t, err)
	return nft
}

func (e *env) register(nft crypto.Address) (*types.Receipt, error) {
	e.t.Helper()
	return e.exec(e.b.EmployeeTx(e.next(), nft, e.operator.Address()), e.operator)
}

func (e *env) openShift(owner *crypto.PrivateKey) {
	e.t.Helper()
	e.fund(owner.Address())
	e.mustExec(e.b.ShiftTx(e.next(), owner.Address(), e.rewardMint, e.clock.Slot()), owner)
}

func (e *env) accrue(owner crypto.Address, nfts ...crypto.Address) (*types.Receipt, error) {
	e.t.Helper()
	tx, err := e.b.AccrueTx(e.next(), owner, e.rewardMint, nfts...)
	require.NoError(e.t, err)
	return e.exec(tx, e.operator)
}

func (e *env) data(addr crypto.Address) []byte {
	e.t.Helper()
	stored, err := e.rt.Account(addr)
	require.NoError(e.t, err)
	require.NotNil(e.t, stored, "account %s does not exist", addr)
	return stored.Data
}

func (e *env) employer() *program.Employer {
	addr, _ := e.b.Employer()
	employer, err := program.DecodeEmployer(e.data(addr))
	require.NoError(e.t, err)
	return employer
}

func (e *env) employee(nft crypto.Address) *program.Employee {
	addr, _ := e.b.Employee(nft)
	employee, err := program.DecodeEmployee(e.data(addr))
	require.NoError(e.t, err)
	return employee
}

func (e *env) shift(owner crypto.Address) *program.Shift {
	addr, _ := e.b.Shift(owner)
	shift, err := program.DecodeShift(e.data(addr))
	require.NoError(e.t, err)
	return shift
}

func (e *env) balance(owner, mint crypto.Address) uint64 {
	addr, _ := token.AssociatedAddress(owner, mint)
	holding, err := token.DecodeAccount(e.data(addr))
	require.NoError(e.t, err)
	return holding.Amount
}

func TestCreateRecordsAtomically(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})

	authorityAddr, _ := e.b.MintAuthority()
	authority, err := program.DecodeMintAuthority(e.data(authorityAddr))
	require.NoError(t, err)
	require.True(t, authority.IsInitialized())

	employer := e.employer()
	require.True(t, employer.IsInitialized())
	require.Equal(t, uint64(genesisSlot), employer.StartSlot)
	require.Equal(t, uint64(2_500_001_000), employer.EndSlot)
	require.Equal(t, uint64(100), employer.InflationRatePerSlot)
	require.Equal(t, e.rewardMint, employer.TokenMint)

	stored, err := e.rt.Account(authorityAddr)
	require.NoError(t, err)
	require.Equal(t, e.programKey.Address(), stored.Owner)
	require.Equal(t, e.rt.Rent().MinimumBalance(program.MintAuthoritySize), stored.Lamports)

	require.IsType(t, events.EmployerInitialized{}, e.sink.last(events.TypeEmployerInitialized))
}

func TestInitializeTwiceFails(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})

	receipt, err := e.run([]*crypto.PrivateKey{e.operator}, e.b.InitializeMintAuthority())
	require.ErrorIs(t, err, program.ErrAlreadyInitialized)
	require.Equal(t, uint32(coreerrors.CodeAlreadyInitialized), receipt.Code)

	_, err = e.run([]*crypto.PrivateKey{e.operator}, e.b.InitializeEmployer(program.EmployerParams{TokenMint: e.collection}))
	require.ErrorIs(t, err, program.ErrAlreadyInitialized)
	require.Equal(t, e.rewardMint, e.employer().TokenMint)
}

func TestCreateTwiceFails(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	_, err := e.exec(e.b.MintAuthorityTx(e.next(), e.operator.Address()), e.operator, e.programKey)
	require.ErrorIs(t, err, system.ErrAccountInUse)
}

func TestPrivilegedCreationNeedsProgramSignature(t *testing.T) {
	e := newEnv(t)

	_, err := e.exec(e.b.MintAuthorityTx(e.next(), e.operator.Address()), e.operator)
	require.ErrorIs(t, err, program.ErrMissingSignature)

	// The program itself rejects an unsigned identity even when the
	// transaction does not ask for its signature.
	record, bump := e.b.MintAuthority()
	ix, err := e.b.Instruction(program.CreateMintAuthority{Bump: bump},
		types.SignerWritable(e.operator.Address()),
		types.Writable(record),
		types.ReadOnly(e.programKey.Address()),
		types.ReadOnly(system.ProgramID),
	)
	require.NoError(t, err)
	_, err = e.run([]*crypto.PrivateKey{e.operator}, ix)
	require.ErrorIs(t, err, program.ErrMissingSignature)

	stored, err := e.rt.Account(record)
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestInitializeRequiresDerivedAddress(t *testing.T) {
	e := newEnv(t)
	record, bump := e.b.MintAuthority()
	create := e.b.CreateMintAuthority(e.operator.Address())
	wrongBump, err := e.b.Instruction(program.InitializeMintAuthority{Bump: bump - 1}, types.Writable(record))
	require.NoError(t, err)

	_, err = e.run([]*crypto.PrivateKey{e.operator, e.programKey}, create, wrongBump)
	require.ErrorIs(t, err, program.ErrAddressMismatch)
	stored, err := e.rt.Account(record)
	require.NoError(t, err)
	require.Nil(t, stored, "failed transaction must not allocate")
}

func TestRegisterEmployee(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	holder := newKey(t)
	nft := e.mintNFT(holder.Address(), true)

	_, err := e.register(nft)
	require.NoError(t, err)

	employee := e.employee(nft)
	require.True(t, employee.IsInitialized())
	require.Equal(t, nft, employee.NFTMint)
	require.Zero(t, employee.LastSlot)
	require.Zero(t, employee.TotalSlots)
	require.Equal(t, uint16(1), e.employer().Employees)

	_, err = e.register(nft)
	require.ErrorIs(t, err, system.ErrAccountInUse)
	require.Equal(t, uint16(1), e.employer().Employees)
}

func TestRegisterRequiresVerifiedCollection(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	nft := e.mintNFT(newKey(t).Address(), false)

	receipt, err := e.register(nft)
	require.ErrorIs(t, err, program.ErrUnverifiedCollection)
	require.Equal(t, uint32(coreerrors.CodeAssertionFailed), receipt.Code)
	require.Zero(t, e.employer().Employees)
}

func TestRegisterAtCapacityIsNoop(t *testing.T) {
	one := uint16(1)
	e := newDeployedEnv(t, program.EmployerParams{MaxEmployees: &one})
	first := e.mintNFT(newKey(t).Address(), true)
	second := e.mintNFT(newKey(t).Address(), true)

	_, err := e.register(first)
	require.NoError(t, err)

	// Sent without the paired initialize, which would fail on the missing
	// record.
	receipt, err := e.run([]*crypto.PrivateKey{e.operator}, e.b.CreateEmployee(second, e.operator.Address()))
	require.NoError(t, err)
	require.True(t, receipt.Succeeded())
	require.Equal(t, uint16(1), e.employer().Employees)

	addr, _ := e.b.Employee(second)
	stored, err := e.rt.Account(addr)
	require.NoError(t, err)
	require.Nil(t, stored)

	event, ok := e.sink.last(events.TypeEmployerCapacityReached).(events.EmployerCapacityReached)
	require.True(t, ok)
	require.Equal(t, uint16(1), event.MaxEmployees)
}

func TestAccrueMintsReward(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	holder := newKey(t)
	nft := e.mintNFT(holder.Address(), true)
	_, err := e.register(nft)
	require.NoError(t, err)
	e.openShift(holder)

	e.clock.Set(1100)
	_, err = e.accrue(holder.Address(), nft)
	require.NoError(t, err)

	// The cursor starts at slot zero, so the first accrual pays 1100 slots.
	require.Equal(t, uint64(110_000_000), e.balance(holder.Address(), e.rewardMint))
	employee := e.employee(nft)
	require.Equal(t, uint64(1100), employee.LastSlot)
	require.Equal(t, uint64(1100), employee.TotalSlots)
	shift := e.shift(holder.Address())
	require.Equal(t, uint64(1100), shift.TotalSlots)
	require.Equal(t, uint64(110_000_000), shift.TotalRewards)

	settled, ok := e.sink.last(events.TypeShiftSettled).(events.ShiftSettled)
	require.True(t, ok)
	require.Equal(t, uint32(1), settled.Processed)
	require.Equal(t, uint64(110_000_000), settled.Amount)

	// Same slot again: succeeds, changes nothing.
	_, err = e.accrue(holder.Address(), nft)
	require.NoError(t, err)
	require.Equal(t, uint64(110_000_000), e.balance(holder.Address(), e.rewardMint))
	require.Equal(t, *employee, *e.employee(nft))
	settled = e.sink.last(events.TypeShiftSettled).(events.ShiftSettled)
	require.Equal(t, uint32(1), settled.Idle)
	require.Zero(t, settled.Amount)

	e.clock.Set(1200)
	_, err = e.accrue(holder.Address(), nft)
	require.NoError(t, err)
	require.Equal(t, uint64(120_000_000), e.balance(holder.Address(), e.rewardMint))
	require.Equal(t, uint64(1200), e.shift(holder.Address()).TotalSlots)
}

func TestAccrueBatchTotalsAndSkips(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	holder := newKey(t)
	buyer := newKey(t)
	kept := e.mintNFT(holder.Address(), true)
	sold := e.mintNFT(holder.Address(), true)
	for _, nft := range []crypto.Address{kept, sold} {
		_, err := e.register(nft)
		require.NoError(t, err)
	}
	e.openShift(holder)

	from, _ := token.AssociatedAddress(holder.Address(), sold)
	to, _ := token.AssociatedAddress(buyer.Address(), sold)
	_, err := e.run([]*crypto.PrivateKey{e.operator, holder},
		token.NewCreateAssociatedAccountInstruction(e.operator.Address(), buyer.Address(), sold),
		token.NewTransferInstruction(from, to, holder.Address(), 1),
	)
	require.NoError(t, err)

	e.clock.Set(2000)
	_, err = e.accrue(holder.Address(), kept, sold)
	require.NoError(t, err)

	settled := e.sink.last(events.TypeShiftSettled).(events.ShiftSettled)
	require.Equal(t, uint32(1), settled.Processed)
	require.Equal(t, uint32(1), settled.Skipped)
	require.Equal(t, uint64(200_000_000), settled.Amount)
	require.Equal(t, settled.Amount, e.balance(holder.Address(), e.rewardMint))
	require.Zero(t, e.employee(sold).LastSlot, "skipped employee must be untouched")
}

func TestAccrueForeignHolderIsSkipped(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	holder := newKey(t)
	other := newKey(t)
	nft := e.mintNFT(other.Address(), true)
	_, err := e.register(nft)
	require.NoError(t, err)
	e.openShift(holder)
	e.clock.Set(2000)

	accrue, err := e.b.Accrue(holder.Address(), e.rewardMint, nft)
	require.NoError(t, err)
	// The token account holds the right NFT with balance 1, but its owner is
	// not the shift owner.
	foreign, _ := token.AssociatedAddress(other.Address(), nft)
	accrue.Accounts[len(accrue.Accounts)-2] = types.ReadOnly(foreign)

	before := *e.employee(nft)
	_, err = e.run([]*crypto.PrivateKey{e.operator}, accrue)
	require.NoError(t, err)

	settled := e.sink.last(events.TypeShiftSettled).(events.ShiftSettled)
	require.Zero(t, settled.Processed)
	require.Equal(t, uint32(1), settled.Skipped)
	require.Zero(t, settled.Amount)
	require.Equal(t, before, *e.employee(nft))
	require.Zero(t, e.balance(holder.Address(), e.rewardMint))
}

func TestAccrueDuplicateEmployeeCountsOnce(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	holder := newKey(t)
	nft := e.mintNFT(holder.Address(), true)
	_, err := e.register(nft)
	require.NoError(t, err)
	e.openShift(holder)

	e.clock.Set(1500)
	_, err = e.accrue(holder.Address(), nft, nft)
	require.NoError(t, err)

	settled := e.sink.last(events.TypeShiftSettled).(events.ShiftSettled)
	require.Equal(t, uint32(1), settled.Processed)
	require.Equal(t, uint32(1), settled.Idle)
	require.Equal(t, uint64(150_000_000), e.balance(holder.Address(), e.rewardMint))
}

func TestAccrueMintMismatchAbortsBatch(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	holder := newKey(t)
	first := e.mintNFT(holder.Address(), true)
	second := e.mintNFT(holder.Address(), true)
	for _, nft := range []crypto.Address{first, second} {
		_, err := e.register(nft)
		require.NoError(t, err)
	}
	e.openShift(holder)
	e.clock.Set(1500)

	accrue, err := e.b.Accrue(holder.Address(), e.rewardMint, first)
	require.NoError(t, err)
	// Append a pair whose token account holds the first NFT but whose
	// employee record belongs to the second.
	holding, _ := token.AssociatedAddress(holder.Address(), first)
	wrongEmployee, _ := e.b.Employee(second)
	accrue.Accounts = append(accrue.Accounts, types.ReadOnly(holding), types.Writable(wrongEmployee))
	accrue.Data, err = program.EncodeCommand(program.Accrue{NumberOfEmployees: 2})
	require.NoError(t, err)

	shiftBefore := *e.shift(holder.Address())
	receipt, err := e.run([]*crypto.PrivateKey{e.operator}, accrue)
	require.ErrorIs(t, err, program.ErrAddressMismatch)
	require.Equal(t, uint32(coreerrors.CodeAddressMismatch), receipt.Code)

	// The first pair had been processed before the abort; nothing of it
	// survives.
	require.Zero(t, e.employee(first).LastSlot)
	require.Equal(t, shiftBefore, *e.shift(holder.Address()))
	require.Zero(t, e.balance(holder.Address(), e.rewardMint))
}

func TestAccrueOutsidePeriodFails(t *testing.T) {
	shifts, sps := uint16(1), uint64(10)
	e := newDeployedEnv(t, program.EmployerParams{MaxShifts: &shifts, SlotsPerShift: &sps})
	holder := newKey(t)
	nft := e.mintNFT(holder.Address(), true)
	_, err := e.register(nft)
	require.NoError(t, err)
	e.openShift(holder)

	e.clock.Set(genesisSlot + 10)
	_, err = e.accrue(holder.Address(), nft)
	require.NoError(t, err, "end slot is inclusive")

	e.clock.Set(genesisSlot + 11)
	_, err = e.accrue(holder.Address(), nft)
	require.ErrorIs(t, err, program.ErrNotActive)
}

func TestAccrueRejectsForeignRecipient(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	holder, thief := newKey(t), newKey(t)
	nft := e.mintNFT(holder.Address(), true)
	_, err := e.register(nft)
	require.NoError(t, err)
	e.openShift(holder)
	e.openShift(thief)
	e.clock.Set(1500)

	accrue, err := e.b.Accrue(holder.Address(), e.rewardMint, nft)
	require.NoError(t, err)
	thiefATA, _ := token.AssociatedAddress(thief.Address(), e.rewardMint)
	accrue.Accounts[4] = types.Writable(thiefATA)
	_, err = e.run([]*crypto.PrivateKey{e.operator}, accrue)
	require.ErrorIs(t, err, program.ErrAddressMismatch)
	require.Zero(t, e.balance(thief.Address(), e.rewardMint))
}

func TestSetMintAuthority(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	successor := newKey(t).Address()

	_, err := e.run([]*crypto.PrivateKey{e.operator}, e.b.SetMintAuthority(e.rewardMint, successor))
	require.ErrorIs(t, err, program.ErrMissingSignature)

	_, err = e.run([]*crypto.PrivateKey{e.operator, e.programKey}, e.b.SetMintAuthority(e.rewardMint, successor))
	require.NoError(t, err)
	mint, err := token.DecodeMint(e.data(e.rewardMint))
	require.NoError(t, err)
	require.Equal(t, successor, mint.Authority)

	changed := e.sink.last(events.TypeMintAuthorityChanged).(events.MintAuthorityChanged)
	require.Equal(t, successor, changed.NewAuthority)
}

func TestNonCanonicalShiftBumpIsAccepted(t *testing.T) {
	e := newDeployedEnv(t, program.EmployerParams{})
	owner := newKey(t)
	e.fund(owner.Address())
	pid := e.programKey.Address()
	canonical, bump := e.b.Shift(owner.Address())

	for other := int(bump) - 1; other >= 0; other-- {
		addr, err := crypto.CreateDerivedAddress(pid, program.ShiftSeeds(owner.Address(), uint8(other))...)
		if err != nil {
			continue
		}
		create, err := e.b.Instruction(program.CreateShift{Bump: uint8(other)},
			types.SignerWritable(owner.Address()),
			types.Writable(addr),
			types.ReadOnly(pid),
			types.ReadOnly(system.ProgramID),
		)
		require.NoError(t, err)
		initialize, err := e.b.Instruction(program.InitializeShift{Bump: uint8(other), Slot: 1, Owner: owner.Address()}, types.Writable(addr))
		require.NoError(t, err)
		_, err = e.run([]*crypto.PrivateKey{owner}, create, initialize)
		require.NoError(t, err)

		shift, err := program.DecodeShift(e.data(addr))
		require.NoError(t, err)
		require.Equal(t, uint8(other), shift.Bump)
		require.NotEqual(t, canonical, addr)
		return
	}
	t.Skip("no second viable bump for this owner")
}

func TestTestInstructionIsNoop(t *testing.T) {
	e := newEnv(t)
	digest, err := e.st.Digest()
	require.NoError(t, err)
	_, err = e.run([]*crypto.PrivateKey{e.operator}, e.b.Test())
	require.NoError(t, err)
	after, err := e.st.Digest()
	require.NoError(t, err)
	require.Equal(t, digest, after)
}
