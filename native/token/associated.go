package token

import (
	"fmt"

	coreerrors "shiftchain/core/errors"
	"shiftchain/core/runtime"
	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/native/system"
)

// AssociatedProgramID is the address of the program that creates associated
// token accounts.
var AssociatedProgramID = crypto.BytesToAddress(crypto.Keccak256([]byte("shiftchain/program/associated-token")))

var ErrNotAssociated = fmt.Errorf("%w: not the associated token account", coreerrors.ErrAddressMismatch)

func associatedSeeds(wallet, mint crypto.Address) [][]byte {
	return [][]byte{wallet.Bytes(), ProgramID.Bytes(), mint.Bytes()}
}

// AssociatedAddress returns the canonical holding account of mint for wallet
// together with its bump.
func AssociatedAddress(wallet, mint crypto.Address) (crypto.Address, uint8) {
	addr, bump, err := crypto.FindDerivedAddress(AssociatedProgramID, associatedSeeds(wallet, mint)...)
	if err != nil {
		// Three 32 byte seeds are always within limits and a viable bump
		// exists with overwhelming probability.
		panic(fmt.Sprintf("token: associated address: %v", err))
	}
	return addr, bump
}

// NewCreateAssociatedAccountInstruction creates and initializes the
// associated account of mint for wallet, funded by payer. It succeeds without
// change when the account already exists with the expected mint and owner.
func NewCreateAssociatedAccountInstruction(payer, wallet, mint crypto.Address) types.Instruction {
	ata, _ := AssociatedAddress(wallet, mint)
	return types.Instruction{
		ProgramID: AssociatedProgramID,
		Accounts: []types.AccountMeta{
			types.SignerWritable(payer),
			types.Writable(ata),
			types.ReadOnly(wallet),
			types.ReadOnly(mint),
			types.ReadOnly(system.ProgramID),
			types.ReadOnly(ProgramID),
		},
	}
}

// AssociatedProgram allocates associated token accounts.
type AssociatedProgram struct{}

func NewAssociated() *AssociatedProgram { return &AssociatedProgram{} }

func (*AssociatedProgram) ID() crypto.Address { return AssociatedProgramID }

func (*AssociatedProgram) Execute(host runtime.Host, accounts []*types.Account, _ []byte) error {
	if err := need(accounts, 4); err != nil {
		return err
	}
	payer, ata, wallet, mint := accounts[0], accounts[1], accounts[2], accounts[3]
	expected, bump := AssociatedAddress(wallet.Address, mint.Address)
	if ata.Address != expected {
		return fmt.Errorf("%w: %s", ErrNotAssociated, ata.Address)
	}
	if ata.Exists() {
		holding, err := LoadAccount(ata)
		if err != nil {
			return err
		}
		if holding.Mint != mint.Address || holding.Owner != wallet.Address {
			return fmt.Errorf("%w: %s holds another mint or owner", ErrNotAssociated, ata.Address)
		}
		return nil
	}
	seeds := append(associatedSeeds(wallet.Address, mint.Address), []byte{bump})
	create := system.NewCreateAccountInstruction(payer.Address, ata.Address, host.MinimumBalance(AccountSize), AccountSize, ProgramID)
	if err := host.Invoke(create, seeds); err != nil {
		return err
	}
	return host.Invoke(NewInitializeAccountInstruction(ata.Address, mint.Address, wallet.Address))
}
