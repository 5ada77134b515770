// Package system implements the account allocation service: it reserves
// storage at an address, funds it, and hands ownership to a program.
package system

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	coreerrors "shiftchain/core/errors"
	"shiftchain/core/runtime"
	"shiftchain/core/types"
	"shiftchain/crypto"
)

// ProgramID is the address of the system program.
var ProgramID = runtime.SystemProgramID

// MaxAccountSize bounds the storage a single account may reserve.
const MaxAccountSize = 10 * 1024

const (
	tagCreateAccount byte = iota
	tagTransfer
)

var (
	ErrAccountInUse      = fmt.Errorf("%w: account already in use", coreerrors.ErrAlreadyInitialized)
	ErrInsufficientFunds = coreerrors.ErrInsufficientFunds
	ErrAccountTooLarge   = fmt.Errorf("%w: requested space too large", coreerrors.ErrMalformedInput)
)

type createAccountArgs struct {
	Lamports uint64
	Space    uint64
	Owner    crypto.Address
}

type transferArgs struct {
	Lamports uint64
}

// NewCreateAccountInstruction allocates space bytes at account, funded with
// lamports from payer, owned by owner. Both payer and account must sign; a
// derived account signs through its program's seeds.
func NewCreateAccountInstruction(payer, account crypto.Address, lamports, space uint64, owner crypto.Address) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			types.SignerWritable(payer),
			types.SignerWritable(account),
		},
		Data: encode(tagCreateAccount, &createAccountArgs{Lamports: lamports, Space: space, Owner: owner}),
	}
}

func NewTransferInstruction(from, to crypto.Address, lamports uint64) types.Instruction {
	return types.Instruction{
		ProgramID: ProgramID,
		Accounts: []types.AccountMeta{
			types.SignerWritable(from),
			types.Writable(to),
		},
		Data: encode(tagTransfer, &transferArgs{Lamports: lamports}),
	}
}

func encode(tag byte, payload interface{}) []byte {
	encoded, err := rlp.EncodeToBytes(payload)
	if err != nil {
		panic(fmt.Sprintf("system: encode instruction: %v", err))
	}
	return append([]byte{tag}, encoded...)
}

// Program is the runtime entry point of the system program.
type Program struct{}

func New() *Program { return &Program{} }

func (*Program) ID() crypto.Address { return ProgramID }

func (p *Program) Execute(host runtime.Host, accounts []*types.Account, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty system instruction", coreerrors.ErrMalformedInput)
	}
	switch data[0] {
	case tagCreateAccount:
		var args createAccountArgs
		if err := rlp.DecodeBytes(data[1:], &args); err != nil {
			return fmt.Errorf("%w: %v", coreerrors.ErrMalformedInput, err)
		}
		if len(accounts) < 2 {
			return fmt.Errorf("%w: create account needs 2 accounts", coreerrors.ErrMalformedInput)
		}
		return createAccount(accounts[0], accounts[1], args)
	case tagTransfer:
		var args transferArgs
		if err := rlp.DecodeBytes(data[1:], &args); err != nil {
			return fmt.Errorf("%w: %v", coreerrors.ErrMalformedInput, err)
		}
		if len(accounts) < 2 {
			return fmt.Errorf("%w: transfer needs 2 accounts", coreerrors.ErrMalformedInput)
		}
		return transfer(accounts[0], accounts[1], args.Lamports)
	default:
		return fmt.Errorf("%w: unknown system instruction %d", coreerrors.ErrMalformedInput, data[0])
	}
}

func createAccount(payer, account *types.Account, args createAccountArgs) error {
	if !payer.Signer {
		return fmt.Errorf("%w: payer %s", coreerrors.ErrMissingSignature, payer.Address)
	}
	if !account.Signer {
		return fmt.Errorf("%w: new account %s", coreerrors.ErrMissingSignature, account.Address)
	}
	if account.Exists() || account.Owner != ProgramID {
		return fmt.Errorf("%w: %s", ErrAccountInUse, account.Address)
	}
	if args.Space > MaxAccountSize {
		return fmt.Errorf("%w: %d bytes", ErrAccountTooLarge, args.Space)
	}
	if payer.Address == account.Address {
		return fmt.Errorf("%w: payer cannot fund itself", coreerrors.ErrAssertionFailed)
	}
	if payer.Lamports < args.Lamports {
		return fmt.Errorf("%w: payer %s has %d, needs %d", ErrInsufficientFunds, payer.Address, payer.Lamports, args.Lamports)
	}
	payer.Lamports -= args.Lamports
	account.Lamports = args.Lamports
	account.Data = make([]byte, args.Space)
	account.Owner = args.Owner
	return nil
}

func transfer(from, to *types.Account, lamports uint64) error {
	if !from.Signer {
		return fmt.Errorf("%w: %s", coreerrors.ErrMissingSignature, from.Address)
	}
	if from.Owner != ProgramID || len(from.Data) > 0 {
		return fmt.Errorf("%w: transfer source must be a plain system account", coreerrors.ErrWrongOwner)
	}
	if from.Lamports < lamports {
		return fmt.Errorf("%w: %s has %d, needs %d", ErrInsufficientFunds, from.Address, from.Lamports, lamports)
	}
	if from.Address == to.Address {
		return nil
	}
	if to.Lamports+lamports < to.Lamports {
		return fmt.Errorf("%w: balance overflow", coreerrors.ErrAssertionFailed)
	}
	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}
