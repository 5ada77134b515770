package shift

import (
	"shiftchain/core/events"
	"shiftchain/core/runtime"
	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/native/metadata"
	"shiftchain/native/system"
	"shiftchain/native/token"
)

// createRecord allocates space bytes of rent exempt storage owned by the
// program at the address derived from seeds. accounts are payer, record,
// program identity and the system program. With proxy set the program
// identity must co-sign, so only its key holder can claim the address.
//
// Allocation leaves the record untyped. Its Initialize instruction has no
// signer requirement and must be submitted in the same transaction, or a
// third party could type the bare storage first.
func (p *Program) createRecord(host runtime.Host, accounts []*types.Account, space int, seeds [][]byte, proxy bool) error {
	if err := need(accounts, 4); err != nil {
		return err
	}
	payer, record, identity, sys := accounts[0], accounts[1], accounts[2], accounts[3]
	if err := CheckAddress(identity.Address, p.id); err != nil {
		return err
	}
	if proxy {
		if err := CheckSigner(identity); err != nil {
			return err
		}
	}
	if err := CheckAddress(sys.Address, system.ProgramID); err != nil {
		return err
	}
	if err := CheckDerivedAddress(p.id, record, seeds...); err != nil {
		return err
	}
	ix := system.NewCreateAccountInstruction(payer.Address, record.Address, host.MinimumBalance(space), uint64(space), p.id)
	return host.Invoke(ix, seeds)
}

// prepareInitialize returns the untyped record account after checking that
// it is program storage derived from seeds. r receives the decoded storage.
func (p *Program) prepareInitialize(accounts []*types.Account, r Record, seeds [][]byte) (*types.Account, error) {
	if err := need(accounts, 1); err != nil {
		return nil, err
	}
	acct := accounts[0]
	if err := p.load(acct, r); err != nil {
		return nil, err
	}
	if err := CheckUninitialized(r, acct); err != nil {
		return nil, err
	}
	if err := CheckWritable(acct); err != nil {
		return nil, err
	}
	if err := CheckDerivedAddress(p.id, acct, seeds...); err != nil {
		return nil, err
	}
	return acct, nil
}

func (p *Program) createMintAuthority(host runtime.Host, accounts []*types.Account, bump uint8) error {
	return p.createRecord(host, accounts, MintAuthoritySize, MintAuthoritySeeds(bump), true)
}

func (p *Program) initializeMintAuthority(host runtime.Host, accounts []*types.Account, bump uint8) error {
	acct, err := p.prepareInitialize(accounts, new(MintAuthority), MintAuthoritySeeds(bump))
	if err != nil {
		return err
	}
	if err := store(acct, NewMintAuthority(bump)); err != nil {
		return err
	}
	host.Emit(events.MintAuthorityInitialized{Address: acct.Address, Bump: bump})
	return nil
}

// setMintAuthority hands the reward mint to newAuthority. accounts are token
// mint, mint authority record, program identity and the token program.
func (p *Program) setMintAuthority(host runtime.Host, accounts []*types.Account, bump uint8, newAuthority crypto.Address) error {
	if err := need(accounts, 4); err != nil {
		return err
	}
	mint, authorityAcct, identity, tokenProgram := accounts[0], accounts[1], accounts[2], accounts[3]
	var authority MintAuthority
	if err := p.loadInitialized(authorityAcct, &authority); err != nil {
		return err
	}
	seeds := MintAuthoritySeeds(bump)
	if err := CheckDerivedAddress(p.id, authorityAcct, seeds...); err != nil {
		return err
	}
	if err := CheckSigner(identity); err != nil {
		return err
	}
	if err := CheckAddress(identity.Address, p.id); err != nil {
		return err
	}
	if err := CheckAddress(tokenProgram.Address, token.ProgramID); err != nil {
		return err
	}
	next := newAuthority
	if err := host.Invoke(token.NewSetAuthorityInstruction(mint.Address, authorityAcct.Address, &next), seeds); err != nil {
		return err
	}
	host.Emit(events.MintAuthorityChanged{Mint: mint.Address, NewAuthority: newAuthority})
	return nil
}

func (p *Program) createEmployer(host runtime.Host, accounts []*types.Account, bump uint8) error {
	return p.createRecord(host, accounts, EmployerSize, EmployerSeeds(bump), true)
}

func (p *Program) initializeEmployer(host runtime.Host, accounts []*types.Account, params EmployerParams) error {
	acct, err := p.prepareInitialize(accounts, new(Employer), EmployerSeeds(params.Bump))
	if err != nil {
		return err
	}
	employer, err := NewEmployer(params, host.Slot())
	if err != nil {
		return err
	}
	if err := store(acct, employer); err != nil {
		return err
	}
	host.Emit(events.EmployerInitialized{
		Address:         acct.Address,
		TokenMint:       employer.TokenMint,
		CollectionMint:  employer.CollectionMint,
		MaxEmployees:    employer.MaxEmployees,
		StartSlot:       employer.StartSlot,
		EndSlot:         employer.EndSlot,
		SlotsPerShift:   employer.SlotsPerShift,
		BaseRatePerSlot: employer.BaseRatePerSlot,
	})
	return nil
}

// createEmployee registers an NFT of the employer's verified collection.
// accounts are employer, NFT mint, NFT metadata, then the createRecord
// accounts for the employee. A full employer turns the call into a no-op.
func (p *Program) createEmployee(host runtime.Host, accounts []*types.Account, bump uint8) error {
	if err := need(accounts, 1); err != nil {
		return err
	}
	employerAcct := accounts[0]
	var employer Employer
	if err := p.loadInitialized(employerAcct, &employer); err != nil {
		return err
	}
	if !employer.HasCapacity() {
		host.Emit(events.EmployerCapacityReached{Employer: employerAcct.Address, MaxEmployees: employer.MaxEmployees})
		return nil
	}
	if err := need(accounts, 7); err != nil {
		return err
	}
	nftMint, metadataAcct := accounts[1], accounts[2]
	meta, err := metadata.Load(metadataAcct)
	if err != nil {
		return err
	}
	if err := CheckAddress(meta.Mint, nftMint.Address); err != nil {
		return err
	}
	if !meta.HasCollection || !meta.CollectionVerified {
		return ErrUnverifiedCollection
	}
	if err := CheckAddress(meta.CollectionKey, employer.CollectionMint); err != nil {
		return err
	}
	if err := CheckWritable(employerAcct); err != nil {
		return err
	}

	employee := accounts[4]
	if err := p.createRecord(host, accounts[3:7], EmployeeSize, EmployeeSeeds(nftMint.Address, bump), false); err != nil {
		return err
	}
	employer.Employees++
	if err := store(employerAcct, &employer); err != nil {
		return err
	}
	host.Emit(events.EmployeeRegistered{
		Employer:  employerAcct.Address,
		Employee:  employee.Address,
		NFTMint:   nftMint.Address,
		Employees: employer.Employees,
	})
	return nil
}

func (p *Program) initializeEmployee(host runtime.Host, accounts []*types.Account, bump uint8, nftMint crypto.Address) error {
	acct, err := p.prepareInitialize(accounts, new(Employee), EmployeeSeeds(nftMint, bump))
	if err != nil {
		return err
	}
	if err := store(acct, NewEmployee(bump, nftMint)); err != nil {
		return err
	}
	host.Emit(events.EmployeeInitialized{Employee: acct.Address, NFTMint: nftMint})
	return nil
}

// createShift allocates the shift record of the paying owner. Only the owner
// can sign as payer, which pins the record to them without a proxy.
func (p *Program) createShift(host runtime.Host, accounts []*types.Account, bump uint8) error {
	if err := need(accounts, 1); err != nil {
		return err
	}
	owner := accounts[0]
	return p.createRecord(host, accounts, ShiftSize, ShiftSeeds(owner.Address, bump), false)
}

func (p *Program) initializeShift(host runtime.Host, accounts []*types.Account, bump uint8, slot uint64, owner crypto.Address) error {
	acct, err := p.prepareInitialize(accounts, new(Shift), ShiftSeeds(owner, bump))
	if err != nil {
		return err
	}
	if err := store(acct, NewShift(bump, slot, owner)); err != nil {
		return err
	}
	host.Emit(events.ShiftInitialized{Shift: acct.Address, Owner: owner, Slot: slot})
	return nil
}
