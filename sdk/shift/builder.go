// Package shift builds instructions and transactions for the employee reward
// program. Every builder uses the canonical bump of the record it touches.
package shift

import (
	"fmt"

	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/native/metadata"
	program "shiftchain/native/shift"
	"shiftchain/native/system"
	"shiftchain/native/token"
)

// Builder creates instructions for one deployment of the program.
type Builder struct {
	ProgramID crypto.Address
}

func NewBuilder(programID crypto.Address) Builder {
	return Builder{ProgramID: programID}
}

// Instruction wraps an arbitrary command. It is the escape hatch for callers
// that need non-canonical bumps or unusual account lists.
func (b Builder) Instruction(cmd program.Command, accounts ...types.AccountMeta) (types.Instruction, error) {
	data, err := program.EncodeCommand(cmd)
	if err != nil {
		return types.Instruction{}, err
	}
	return types.Instruction{ProgramID: b.ProgramID, Accounts: accounts, Data: data}, nil
}

func (b Builder) must(cmd program.Command, accounts ...types.AccountMeta) types.Instruction {
	ix, err := b.Instruction(cmd, accounts...)
	if err != nil {
		panic(fmt.Sprintf("shift sdk: %v", err))
	}
	return ix
}

func (b Builder) MintAuthority() (crypto.Address, uint8) {
	return program.FindMintAuthorityAddress(b.ProgramID)
}

func (b Builder) Employer() (crypto.Address, uint8) {
	return program.FindEmployerAddress(b.ProgramID)
}

func (b Builder) Employee(nftMint crypto.Address) (crypto.Address, uint8) {
	return program.FindEmployeeAddress(b.ProgramID, nftMint)
}

func (b Builder) Shift(owner crypto.Address) (crypto.Address, uint8) {
	return program.FindShiftAddress(b.ProgramID, owner)
}

func (b Builder) Test() types.Instruction {
	return b.must(program.Test{})
}

// CreateMintAuthority accounts: payer(s,w), mint authority(w), program(s),
// system program. The program key must sign.
func (b Builder) CreateMintAuthority(payer crypto.Address) types.Instruction {
	record, bump := b.MintAuthority()
	return b.must(program.CreateMintAuthority{Bump: bump},
		types.SignerWritable(payer),
		types.Writable(record),
		types.Signer(b.ProgramID),
		types.ReadOnly(system.ProgramID),
	)
}

func (b Builder) InitializeMintAuthority() types.Instruction {
	record, bump := b.MintAuthority()
	return b.must(program.InitializeMintAuthority{Bump: bump}, types.Writable(record))
}

// SetMintAuthority accounts: token mint(w), mint authority, program(s),
// token program.
func (b Builder) SetMintAuthority(mint, newAuthority crypto.Address) types.Instruction {
	record, bump := b.MintAuthority()
	return b.must(program.SetMintAuthority{Bump: bump, NewAuthority: newAuthority},
		types.Writable(mint),
		types.ReadOnly(record),
		types.Signer(b.ProgramID),
		types.ReadOnly(token.ProgramID),
	)
}

// CreateEmployer accounts: payer(s,w), employer(w), program(s), system
// program.
func (b Builder) CreateEmployer(payer crypto.Address) types.Instruction {
	record, bump := b.Employer()
	return b.must(program.CreateEmployer{Bump: bump},
		types.SignerWritable(payer),
		types.Writable(record),
		types.Signer(b.ProgramID),
		types.ReadOnly(system.ProgramID),
	)
}

// InitializeEmployer ignores params.Bump and uses the canonical one.
func (b Builder) InitializeEmployer(params program.EmployerParams) types.Instruction {
	record, bump := b.Employer()
	params.Bump = bump
	return b.must(program.InitializeEmployer{Params: params}, types.Writable(record))
}

// CreateEmployee accounts: employer(w), NFT mint, NFT metadata, payer(s,w),
// employee(w), program, system program.
func (b Builder) CreateEmployee(nftMint, payer crypto.Address) types.Instruction {
	employer, _ := b.Employer()
	record, bump := b.Employee(nftMint)
	meta, _ := metadata.Address(nftMint)
	return b.must(program.CreateEmployee{Bump: bump},
		types.Writable(employer),
		types.ReadOnly(nftMint),
		types.ReadOnly(meta),
		types.SignerWritable(payer),
		types.Writable(record),
		types.ReadOnly(b.ProgramID),
		types.ReadOnly(system.ProgramID),
	)
}

func (b Builder) InitializeEmployee(nftMint crypto.Address) types.Instruction {
	record, bump := b.Employee(nftMint)
	return b.must(program.InitializeEmployee{Bump: bump, NFTMint: nftMint}, types.Writable(record))
}

// CreateShift accounts: owner(s,w), shift(w), program, system program. The
// owner pays.
func (b Builder) CreateShift(owner crypto.Address) types.Instruction {
	record, bump := b.Shift(owner)
	return b.must(program.CreateShift{Bump: bump},
		types.SignerWritable(owner),
		types.Writable(record),
		types.ReadOnly(b.ProgramID),
		types.ReadOnly(system.ProgramID),
	)
}

func (b Builder) InitializeShift(owner crypto.Address, slot uint64) types.Instruction {
	record, bump := b.Shift(owner)
	return b.must(program.InitializeShift{Bump: bump, Slot: slot, Owner: owner}, types.Writable(record))
}

// MaxAccrualBatch is the largest number of NFTs one accrual can settle.
const MaxAccrualBatch = 255

// Accrue settles the NFTs of owner. Accounts: mint authority, employer,
// shift(w), reward mint(w), owner's reward account(w), token program, then
// per NFT the owner's associated NFT account and the employee(w).
func (b Builder) Accrue(owner, rewardMint crypto.Address, nftMints ...crypto.Address) (types.Instruction, error) {
	if len(nftMints) > MaxAccrualBatch {
		return types.Instruction{}, fmt.Errorf("shift sdk: %d NFTs exceed the batch limit of %d", len(nftMints), MaxAccrualBatch)
	}
	authority, _ := b.MintAuthority()
	employer, _ := b.Employer()
	shift, _ := b.Shift(owner)
	recipient, _ := token.AssociatedAddress(owner, rewardMint)
	metas := []types.AccountMeta{
		types.ReadOnly(authority),
		types.ReadOnly(employer),
		types.Writable(shift),
		types.Writable(rewardMint),
		types.Writable(recipient),
		types.ReadOnly(token.ProgramID),
	}
	for _, nft := range nftMints {
		holding, _ := token.AssociatedAddress(owner, nft)
		employee, _ := b.Employee(nft)
		metas = append(metas, types.ReadOnly(holding), types.Writable(employee))
	}
	return b.Instruction(program.Accrue{NumberOfEmployees: uint8(len(nftMints))}, metas...)
}
