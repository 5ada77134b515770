package shift

import (
	"shiftchain/core/types"
	"shiftchain/crypto"
	program "shiftchain/native/shift"
	"shiftchain/native/token"
)

// Initialize instructions carry no signer requirement and are only safe when
// they land in the same transaction as the allocation. The builders below
// are the supported way to create records and always pair the two.

// MintAuthorityTx creates the mint authority. Sign with the payer and the
// program key.
func (b Builder) MintAuthorityTx(nonce uint64, payer crypto.Address) *types.Transaction {
	return types.NewTransaction(nonce, b.CreateMintAuthority(payer), b.InitializeMintAuthority())
}

// EmployerTx creates the employer. Sign with the payer and the program key.
func (b Builder) EmployerTx(nonce uint64, payer crypto.Address, params program.EmployerParams) *types.Transaction {
	return types.NewTransaction(nonce, b.CreateEmployer(payer), b.InitializeEmployer(params))
}

// EmployeeTx registers nftMint. Sign with the payer.
func (b Builder) EmployeeTx(nonce uint64, nftMint, payer crypto.Address) *types.Transaction {
	return types.NewTransaction(nonce, b.CreateEmployee(nftMint, payer), b.InitializeEmployee(nftMint))
}

// ShiftTx opens the shift of owner together with the owner's reward token
// account. Sign with the owner.
func (b Builder) ShiftTx(nonce uint64, owner, rewardMint crypto.Address, slot uint64) *types.Transaction {
	return types.NewTransaction(nonce,
		token.NewCreateAssociatedAccountInstruction(owner, owner, rewardMint),
		b.CreateShift(owner),
		b.InitializeShift(owner, slot),
	)
}

// AccrueTx settles the NFTs of owner. Anyone may submit it; the reward always
// goes to the owner.
func (b Builder) AccrueTx(nonce uint64, owner, rewardMint crypto.Address, nftMints ...crypto.Address) (*types.Transaction, error) {
	ix, err := b.Accrue(owner, rewardMint, nftMints...)
	if err != nil {
		return nil, err
	}
	return types.NewTransaction(nonce, ix), nil
}
