// Package token implements the fungible and non-fungible token ledger: mints,
// holding accounts, minting under a mint authority and the associated
// account convention used to find a wallet's balance of a mint.
package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	coreerrors "shiftchain/core/errors"
	"shiftchain/core/runtime"
	"shiftchain/core/types"
	"shiftchain/crypto"
)

// ProgramID is the address of the token ledger program.
var ProgramID = crypto.BytesToAddress(crypto.Keccak256([]byte("shiftchain/program/token")))

var (
	ErrMintMismatch      = fmt.Errorf("%w: token account belongs to another mint", coreerrors.ErrAddressMismatch)
	ErrAuthorityMismatch = fmt.Errorf("%w: signer is not the mint authority", coreerrors.ErrAddressMismatch)
	ErrOwnerMismatch     = fmt.Errorf("%w: signer does not own the token account", coreerrors.ErrAddressMismatch)
	ErrFixedSupply       = fmt.Errorf("%w: mint has no authority", coreerrors.ErrAssertionFailed)
	ErrSupplyOverflow    = fmt.Errorf("%w: supply overflow", coreerrors.ErrAssertionFailed)
	ErrInsufficientFunds = fmt.Errorf("%w: token balance too low", coreerrors.ErrInsufficientFunds)
)

const (
	tagInitializeMint byte = iota
	tagInitializeAccount
	tagMintTo
	tagTransfer
	tagSetAuthority
)

type initializeMintArgs struct {
	Decimals  uint8
	Authority crypto.Address
}

type amountArgs struct {
	Amount uint64
}

type setAuthorityArgs struct {
	NewAuthority *crypto.Address `rlp:"nil"`
}

// NewInitializeMintInstruction types an allocated mint account.
func NewInitializeMintInstruction(mint crypto.Address, decimals uint8, authority crypto.Address) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts:  []types.AccountMeta{types.Writable(mint)},
		Data:      encode(tagInitializeMint, &initializeMintArgs{Decimals: decimals, Authority: authority}),
	}
}

// NewInitializeAccountInstruction types an allocated holding account of mint
// for owner.
func NewInitializeAccountInstruction(account, mint, owner crypto.Address) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			types.Writable(account),
			types.ReadOnly(mint),
			types.ReadOnly(owner),
		},
		Data: encode(tagInitializeAccount, struct{}{}),
	}
}

// NewMintToInstruction credits amount new tokens of mint to destination.
func NewMintToInstruction(mint, destination, authority crypto.Address, amount uint64) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			types.Writable(mint),
			types.Writable(destination),
			types.Signer(authority),
		},
		Data: encode(tagMintTo, &amountArgs{Amount: amount}),
	}
}

func NewTransferInstruction(source, destination, owner crypto.Address, amount uint64) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			types.Writable(source),
			types.Writable(destination),
			types.Signer(owner),
		},
		Data: encode(tagTransfer, &amountArgs{Amount: amount}),
	}
}

// NewSetAuthorityInstruction replaces the mint authority. A nil newAuthority
// fixes the supply permanently.
func NewSetAuthorityInstruction(mint, current crypto.Address, newAuthority *crypto.Address) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			types.Writable(mint),
			types.Signer(current),
		},
		Data: encode(tagSetAuthority, &setAuthorityArgs{NewAuthority: newAuthority}),
	}
}

func encode(tag byte, payload interface{}) []byte {
	encoded, err := rlp.EncodeToBytes(payload)
	if err != nil {
		panic(fmt.Sprintf("token: encode instruction: %v", err))
	}
	return append([]byte{tag}, encoded...)
}

func decode(data []byte, out interface{}) error {
	if err := rlp.DecodeBytes(data, out); err != nil {
		return fmt.Errorf("%w: %v", coreerrors.ErrMalformedInput, err)
	}
	return nil
}

// Program is the runtime entry point of the token ledger.
type Program struct{}

func New() *Program { return &Program{} }

func (*Program) ID() crypto.Address { return ProgramID }

func (p *Program) Execute(host runtime.Host, accounts []*types.Account, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty token instruction", coreerrors.ErrMalformedInput)
	}
	tag, payload := data[0], data[1:]
	switch tag {
	case tagInitializeMint:
		var args initializeMintArgs
		if err := decode(payload, &args); err != nil {
			return err
		}
		if err := need(accounts, 1); err != nil {
			return err
		}
		return p.initializeMint(accounts[0], args)
	case tagInitializeAccount:
		if err := need(accounts, 3); err != nil {
			return err
		}
		return p.initializeAccount(accounts[0], accounts[1], accounts[2])
	case tagMintTo:
		var args amountArgs
		if err := decode(payload, &args); err != nil {
			return err
		}
		if err := need(accounts, 3); err != nil {
			return err
		}
		return p.mintTo(accounts[0], accounts[1], accounts[2], args.Amount)
	case tagTransfer:
		var args amountArgs
		if err := decode(payload, &args); err != nil {
			return err
		}
		if err := need(accounts, 3); err != nil {
			return err
		}
		return p.transfer(accounts[0], accounts[1], accounts[2], args.Amount)
	case tagSetAuthority:
		var args setAuthorityArgs
		if err := decode(payload, &args); err != nil {
			return err
		}
		if err := need(accounts, 2); err != nil {
			return err
		}
		return p.setAuthority(accounts[0], accounts[1], args.NewAuthority)
	default:
		return fmt.Errorf("%w: unknown token instruction %d", coreerrors.ErrMalformedInput, tag)
	}
}

func need(accounts []*types.Account, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: token instruction needs %d accounts, got %d", coreerrors.ErrMalformedInput, n, len(accounts))
	}
	return nil
}

func owned(acct *types.Account) error {
	if acct.Owner != ProgramID {
		return fmt.Errorf("%w: %s is not a token ledger account", coreerrors.ErrWrongOwner, acct.Address)
	}
	return nil
}

// LoadMint decodes an initialized mint owned by the token ledger.
func LoadMint(acct *types.Account) (*Mint, error) {
	if err := owned(acct); err != nil {
		return nil, err
	}
	mint, err := DecodeMint(acct.Data)
	if err != nil {
		return nil, err
	}
	if !mint.Initialized {
		return nil, fmt.Errorf("%w: mint %s", coreerrors.ErrNotInitialized, acct.Address)
	}
	return mint, nil
}

// LoadAccount decodes an initialized holding account owned by the token
// ledger.
func LoadAccount(acct *types.Account) (*Account, error) {
	if err := owned(acct); err != nil {
		return nil, err
	}
	holding, err := DecodeAccount(acct.Data)
	if err != nil {
		return nil, err
	}
	if !holding.Initialized {
		return nil, fmt.Errorf("%w: token account %s", coreerrors.ErrNotInitialized, acct.Address)
	}
	return holding, nil
}

func store(acct *types.Account, v interface{ MarshalBinary() ([]byte, error) }) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	acct.Data = data
	return nil
}

func (p *Program) initializeMint(acct *types.Account, args initializeMintArgs) error {
	if err := owned(acct); err != nil {
		return err
	}
	mint, err := DecodeMint(acct.Data)
	if err != nil {
		return err
	}
	if mint.Initialized {
		return fmt.Errorf("%w: mint %s", coreerrors.ErrAlreadyInitialized, acct.Address)
	}
	return store(acct, &Mint{
		Initialized:  true,
		Decimals:     args.Decimals,
		HasAuthority: true,
		Authority:    args.Authority,
	})
}

func (p *Program) initializeAccount(acct, mintAcct, owner *types.Account) error {
	if err := owned(acct); err != nil {
		return err
	}
	holding, err := DecodeAccount(acct.Data)
	if err != nil {
		return err
	}
	if holding.Initialized {
		return fmt.Errorf("%w: token account %s", coreerrors.ErrAlreadyInitialized, acct.Address)
	}
	if _, err := LoadMint(mintAcct); err != nil {
		return err
	}
	return store(acct, &Account{
		Initialized: true,
		Mint:        mintAcct.Address,
		Owner:       owner.Address,
	})
}

func (p *Program) mintTo(mintAcct, dest, authority *types.Account, amount uint64) error {
	mint, err := LoadMint(mintAcct)
	if err != nil {
		return err
	}
	holding, err := LoadAccount(dest)
	if err != nil {
		return err
	}
	if holding.Mint != mintAcct.Address {
		return ErrMintMismatch
	}
	if !mint.HasAuthority {
		return ErrFixedSupply
	}
	if mint.Authority != authority.Address {
		return ErrAuthorityMismatch
	}
	if !authority.Signer {
		return fmt.Errorf("%w: mint authority %s", coreerrors.ErrMissingSignature, authority.Address)
	}
	if mint.Supply+amount < mint.Supply || holding.Amount+amount < holding.Amount {
		return ErrSupplyOverflow
	}
	mint.Supply += amount
	holding.Amount += amount
	if err := store(mintAcct, mint); err != nil {
		return err
	}
	return store(dest, holding)
}

func (p *Program) transfer(source, dest, owner *types.Account, amount uint64) error {
	from, err := LoadAccount(source)
	if err != nil {
		return err
	}
	to, err := LoadAccount(dest)
	if err != nil {
		return err
	}
	if from.Mint != to.Mint {
		return ErrMintMismatch
	}
	if from.Owner != owner.Address {
		return ErrOwnerMismatch
	}
	if !owner.Signer {
		return fmt.Errorf("%w: token owner %s", coreerrors.ErrMissingSignature, owner.Address)
	}
	if from.Amount < amount {
		return ErrInsufficientFunds
	}
	if source.Address == dest.Address {
		return nil
	}
	if to.Amount+amount < to.Amount {
		return ErrSupplyOverflow
	}
	from.Amount -= amount
	to.Amount += amount
	if err := store(source, from); err != nil {
		return err
	}
	return store(dest, to)
}

func (p *Program) setAuthority(mintAcct, current *types.Account, next *crypto.Address) error {
	mint, err := LoadMint(mintAcct)
	if err != nil {
		return err
	}
	if !mint.HasAuthority {
		return ErrFixedSupply
	}
	if mint.Authority != current.Address {
		return ErrAuthorityMismatch
	}
	if !current.Signer {
		return fmt.Errorf("%w: mint authority %s", coreerrors.ErrMissingSignature, current.Address)
	}
	if next == nil {
		mint.HasAuthority = false
		mint.Authority = crypto.ZeroAddress
	} else {
		mint.Authority = *next
	}
	return store(mintAcct, mint)
}
