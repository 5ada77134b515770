package shift

import (
	"fmt"

	"shiftchain/core/runtime"
	"shiftchain/core/types"
	"shiftchain/crypto"
)

// Program is the runtime entry point of the reward program. Its identity is
// the address of the key that deployed it; that key co-signs the creation
// of the privileged records.
type Program struct {
	id crypto.Address
}

func New(programID crypto.Address) *Program {
	return &Program{id: programID}
}

func (p *Program) ID() crypto.Address { return p.id }

func (p *Program) Execute(host runtime.Host, accounts []*types.Account, data []byte) error {
	cmd, err := DecodeCommand(data)
	if err != nil {
		return err
	}
	switch c := cmd.(type) {
	case Test:
		return nil
	case CreateMintAuthority:
		return p.createMintAuthority(host, accounts, c.Bump)
	case InitializeMintAuthority:
		return p.initializeMintAuthority(host, accounts, c.Bump)
	case SetMintAuthority:
		return p.setMintAuthority(host, accounts, c.Bump, c.NewAuthority)
	case CreateEmployer:
		return p.createEmployer(host, accounts, c.Bump)
	case InitializeEmployer:
		return p.initializeEmployer(host, accounts, c.Params)
	case CreateEmployee:
		return p.createEmployee(host, accounts, c.Bump)
	case InitializeEmployee:
		return p.initializeEmployee(host, accounts, c.Bump, c.NFTMint)
	case CreateShift:
		return p.createShift(host, accounts, c.Bump)
	case InitializeShift:
		return p.initializeShift(host, accounts, c.Bump, c.Slot, c.Owner)
	case Accrue:
		return p.accrue(host, accounts, int(c.NumberOfEmployees))
	default:
		return fmt.Errorf("%w: unhandled command %T", ErrMalformedInput, cmd)
	}
}

func need(accounts []*types.Account, n int) error {
	if len(accounts) < n {
		return fmt.Errorf("%w: need %d, got %d", ErrNotEnoughAccounts, n, len(accounts))
	}
	return nil
}

// load decodes a record held by acct after checking that this program owns
// the storage.
func (p *Program) load(acct *types.Account, r Record) error {
	if err := CheckOwner(acct, p.id); err != nil {
		return err
	}
	return r.UnmarshalBinary(acct.Data)
}

// loadInitialized is load followed by the initialized check.
func (p *Program) loadInitialized(acct *types.Account, r Record) error {
	if err := p.load(acct, r); err != nil {
		return err
	}
	return CheckInitialized(r, acct)
}

func store(acct *types.Account, r Record) error {
	data, err := r.MarshalBinary()
	if err != nil {
		return err
	}
	if len(data) != len(acct.Data) {
		return fmt.Errorf("%w: %s storage is %d bytes, record is %d", ErrAssertionFailed, acct.Address, len(acct.Data), len(data))
	}
	copy(acct.Data, data)
	return nil
}
