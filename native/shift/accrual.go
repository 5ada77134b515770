package shift

import (
	"github.com/holiman/uint256"

	"shiftchain/core/events"
	"shiftchain/core/runtime"
	"shiftchain/core/types"
	"shiftchain/native/token"
)

// Accrual is the reward owed to one employee at a slot.
type Accrual struct {
	// Available is the number of slots paid, capped at one shift.
	Available       uint64
	BaseReward      uint64
	InflationReward uint64
	Reward          uint64
	// NewTotal is the employee's lifetime slot count after this accrual.
	NewTotal uint64
}

// ComputeAccrual prices the slots elapsed since the employee was last paid.
//
// Every slot earns the base rate. An employee that has already worked
// complete shifts also earns the inflation rate times the index of the shift
// each slot falls in, so a window straddling a shift boundary is split
// between the two indices. Results that do not fit in 64 bits fail with
// ErrArithmeticOverflow.
func ComputeAccrual(employer *Employer, employee *Employee, slot uint64) (Accrual, error) {
	var elapsed uint64
	if slot > employee.LastSlot {
		elapsed = slot - employee.LastSlot
	}
	available := min(elapsed, employer.SlotsPerShift)
	if available == 0 {
		return Accrual{NewTotal: employee.TotalSlots}, nil
	}

	sps := uint256.NewInt(employer.SlotsPerShift)
	avail := uint256.NewInt(available)
	rate := uint256.NewInt(employer.InflationRatePerSlot)

	base := new(uint256.Int).Mul(uint256.NewInt(employer.BaseRatePerSlot), avail)
	newTotal := new(uint256.Int).Add(uint256.NewInt(employee.TotalSlots), avail)
	if !newTotal.IsUint64() {
		return Accrual{}, ErrArithmeticOverflow
	}

	inflation := new(uint256.Int)
	if newTotal.Gt(sps) {
		currentIndex := new(uint256.Int).Div(uint256.NewInt(employee.TotalSlots), sps)
		nextIndex := new(uint256.Int).AddUint64(currentIndex, 1)
		boundary := new(uint256.Int).Mul(nextIndex, sps)

		nextSlots := new(uint256.Int)
		if newTotal.Gt(boundary) {
			nextSlots.Mod(newTotal, sps)
		}
		currentSlots, underflow := new(uint256.Int).SubOverflow(avail, nextSlots)
		if underflow {
			return Accrual{}, ErrArithmeticOverflow
		}

		current := new(uint256.Int).Mul(rate, currentSlots)
		current.Mul(current, currentIndex)
		next := new(uint256.Int).Mul(rate, nextSlots)
		next.Mul(next, nextIndex)
		inflation.Add(current, next)
	}

	reward := new(uint256.Int).Add(base, inflation)
	if !base.IsUint64() || !inflation.IsUint64() || !reward.IsUint64() {
		return Accrual{}, ErrArithmeticOverflow
	}
	return Accrual{
		Available:       available,
		BaseReward:      base.Uint64(),
		InflationReward: inflation.Uint64(),
		Reward:          reward.Uint64(),
		NewTotal:        newTotal.Uint64(),
	}, nil
}

func addUint64(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// Fixed accounts of an accrual request, followed by the employee pairs.
const (
	accrueMintAuthority = iota
	accrueEmployer
	accrueShift
	accrueTokenMint
	accrueRecipient
	accrueTokenProgram
	accrueFixedAccounts
)

// accrue settles count (identity token account, employee) pairs into the
// shift record and mints the total to the shift owner's associated account.
//
// A pair whose token account does not hold exactly one token for the shift
// owner is skipped. Once a pair is accepted, an employee record that is not
// valid program storage for the same mint aborts the whole request.
func (p *Program) accrue(host runtime.Host, accounts []*types.Account, count int) error {
	if err := need(accounts, accrueFixedAccounts); err != nil {
		return err
	}
	authorityAcct := accounts[accrueMintAuthority]
	employerAcct := accounts[accrueEmployer]
	shiftAcct := accounts[accrueShift]
	mintAcct := accounts[accrueTokenMint]
	recipient := accounts[accrueRecipient]

	var authority MintAuthority
	if err := p.loadInitialized(authorityAcct, &authority); err != nil {
		return err
	}
	var employer Employer
	if err := p.loadInitialized(employerAcct, &employer); err != nil {
		return err
	}
	var shift Shift
	if err := p.loadInitialized(shiftAcct, &shift); err != nil {
		return err
	}
	if err := CheckAddress(mintAcct.Address, employer.TokenMint); err != nil {
		return err
	}
	if err := CheckAssociatedTokenAddress(recipient, employer.TokenMint, shift.Owner); err != nil {
		return err
	}
	if err := CheckAddress(accounts[accrueTokenProgram].Address, token.ProgramID); err != nil {
		return err
	}

	slot := host.Slot()
	if !employer.Active(slot) {
		return ErrNotActive
	}
	if err := need(accounts, accrueFixedAccounts+2*count); err != nil {
		return err
	}

	settled := events.ShiftSettled{
		Shift:     shiftAcct.Address,
		Owner:     shift.Owner,
		Employer:  employerAcct.Address,
		Recipient: recipient.Address,
		Slot:      slot,
	}
	var total uint64
	for i := 0; i < count; i++ {
		holdingAcct := accounts[accrueFixedAccounts+2*i]
		employeeAcct := accounts[accrueFixedAccounts+2*i+1]

		holding, err := token.LoadAccount(holdingAcct)
		if err != nil {
			return err
		}
		if holding.Amount != 1 || holding.Owner != shift.Owner {
			settled.Skipped++
			continue
		}

		var employee Employee
		if err := p.loadInitialized(employeeAcct, &employee); err != nil {
			return err
		}
		if err := CheckAddress(holding.Mint, employee.NFTMint); err != nil {
			return err
		}

		accrual, err := ComputeAccrual(&employer, &employee, slot)
		if err != nil {
			return err
		}
		if accrual.Available == 0 {
			settled.Idle++
			continue
		}
		if err := CheckWritable(employeeAcct); err != nil {
			return err
		}

		if shift.TotalSlots, err = addUint64(shift.TotalSlots, accrual.Available); err != nil {
			return err
		}
		if shift.TotalRewards, err = addUint64(shift.TotalRewards, accrual.Reward); err != nil {
			return err
		}
		if total, err = addUint64(total, accrual.Reward); err != nil {
			return err
		}
		employee.LastSlot = slot
		employee.TotalSlots = accrual.NewTotal
		// Stored immediately so a repeated reference to the same employee
		// in this batch sees the new cursor.
		if err := store(employeeAcct, &employee); err != nil {
			return err
		}
		settled.Processed++
		settled.Slots += accrual.Available
	}

	if settled.Processed > 0 {
		if err := CheckWritable(shiftAcct); err != nil {
			return err
		}
		if err := store(shiftAcct, &shift); err != nil {
			return err
		}
	}
	if total > 0 {
		mintTo := token.NewMintToInstruction(mintAcct.Address, recipient.Address, authorityAcct.Address, total)
		if err := host.Invoke(mintTo, MintAuthoritySeeds(authority.Bump)); err != nil {
			return err
		}
	}

	settled.Amount = total
	settled.TotalSlots = shift.TotalSlots
	settled.TotalRewards = shift.TotalRewards
	host.Emit(settled)
	return nil
}
