package events

import (
	"strconv"

	"shiftchain/core/types"
	"shiftchain/crypto"
)

const (
	// TypeMintAuthorityInitialized is emitted when the singleton mint
	// authority record becomes typed.
	TypeMintAuthorityInitialized = "shift.mint_authority.initialized"
	// TypeMintAuthorityChanged is emitted when the reward token's mint
	// authority is handed to another address.
	TypeMintAuthorityChanged = "shift.mint_authority.changed"
	// TypeEmployerInitialized is emitted when an employer record is
	// initialized.
	TypeEmployerInitialized = "shift.employer.initialized"
	// TypeEmployeeRegistered is emitted when an employee slot is allocated
	// against an employer.
	TypeEmployeeRegistered = "shift.employee.registered"
	// TypeEmployerCapacityReached is emitted when an employee creation was
	// skipped because the employer is full.
	TypeEmployerCapacityReached = "shift.employer.capacity_reached"
	// TypeEmployeeInitialized is emitted when an employee record becomes
	// typed.
	TypeEmployeeInitialized = "shift.employee.initialized"
	// TypeShiftInitialized is emitted when a shift record becomes typed.
	TypeShiftInitialized = "shift.shift.initialized"
	// TypeShiftSettled is emitted after every successful accrual batch,
	// including batches that minted nothing.
	TypeShiftSettled = "shift.settled"
)

type MintAuthorityInitialized struct {
	Address crypto.Address
	Bump    uint8
}

func (MintAuthorityInitialized) EventType() string { return TypeMintAuthorityInitialized }

func (e MintAuthorityInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeMintAuthorityInitialized,
		Attributes: map[string]string{
			"address": e.Address.String(),
			"bump":    strconv.FormatUint(uint64(e.Bump), 10),
		},
	}
}

type MintAuthorityChanged struct {
	Mint         crypto.Address
	NewAuthority crypto.Address
}

func (MintAuthorityChanged) EventType() string { return TypeMintAuthorityChanged }

func (e MintAuthorityChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeMintAuthorityChanged,
		Attributes: map[string]string{
			"mint":         e.Mint.String(),
			"newAuthority": e.NewAuthority.String(),
		},
	}
}

type EmployerInitialized struct {
	Address         crypto.Address
	TokenMint       crypto.Address
	CollectionMint  crypto.Address
	MaxEmployees    uint16
	StartSlot       uint64
	EndSlot         uint64
	SlotsPerShift   uint64
	BaseRatePerSlot uint64
}

func (EmployerInitialized) EventType() string { return TypeEmployerInitialized }

func (e EmployerInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeEmployerInitialized,
		Attributes: map[string]string{
			"address":         e.Address.String(),
			"tokenMint":       e.TokenMint.String(),
			"collectionMint":  e.CollectionMint.String(),
			"maxEmployees":    strconv.FormatUint(uint64(e.MaxEmployees), 10),
			"startSlot":       strconv.FormatUint(e.StartSlot, 10),
			"endSlot":         strconv.FormatUint(e.EndSlot, 10),
			"slotsPerShift":   strconv.FormatUint(e.SlotsPerShift, 10),
			"baseRatePerSlot": strconv.FormatUint(e.BaseRatePerSlot, 10),
		},
	}
}

type EmployeeRegistered struct {
	Employer  crypto.Address
	Employee  crypto.Address
	NFTMint   crypto.Address
	Employees uint16
}

func (EmployeeRegistered) EventType() string { return TypeEmployeeRegistered }

func (e EmployeeRegistered) Event() *types.Event {
	return &types.Event{
		Type: TypeEmployeeRegistered,
		Attributes: map[string]string{
			"employer":  e.Employer.String(),
			"employee":  e.Employee.String(),
			"nftMint":   e.NFTMint.String(),
			"employees": strconv.FormatUint(uint64(e.Employees), 10),
		},
	}
}

type EmployerCapacityReached struct {
	Employer     crypto.Address
	MaxEmployees uint16
}

func (EmployerCapacityReached) EventType() string { return TypeEmployerCapacityReached }

func (e EmployerCapacityReached) Event() *types.Event {
	return &types.Event{
		Type: TypeEmployerCapacityReached,
		Attributes: map[string]string{
			"employer":     e.Employer.String(),
			"maxEmployees": strconv.FormatUint(uint64(e.MaxEmployees), 10),
		},
	}
}

type EmployeeInitialized struct {
	Employee crypto.Address
	NFTMint  crypto.Address
}

func (EmployeeInitialized) EventType() string { return TypeEmployeeInitialized }

func (e EmployeeInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeEmployeeInitialized,
		Attributes: map[string]string{
			"employee": e.Employee.String(),
			"nftMint":  e.NFTMint.String(),
		},
	}
}

type ShiftInitialized struct {
	Shift crypto.Address
	Owner crypto.Address
	Slot  uint64
}

func (ShiftInitialized) EventType() string { return TypeShiftInitialized }

func (e ShiftInitialized) Event() *types.Event {
	return &types.Event{
		Type: TypeShiftInitialized,
		Attributes: map[string]string{
			"shift": e.Shift.String(),
			"owner": e.Owner.String(),
			"slot":  strconv.FormatUint(e.Slot, 10),
		},
	}
}

// ShiftSettled summarises one accrual batch.
type ShiftSettled struct {
	Shift        crypto.Address
	Owner        crypto.Address
	Employer     crypto.Address
	Recipient    crypto.Address
	Slot         uint64
	Processed    uint32
	Skipped      uint32
	Idle         uint32
	Slots        uint64
	Amount       uint64
	TotalSlots   uint64
	TotalRewards uint64
}

func (ShiftSettled) EventType() string { return TypeShiftSettled }

func (e ShiftSettled) Event() *types.Event {
	return &types.Event{
		Type: TypeShiftSettled,
		Attributes: map[string]string{
			"shift":        e.Shift.String(),
			"owner":        e.Owner.String(),
			"employer":     e.Employer.String(),
			"recipient":    e.Recipient.String(),
			"slot":         strconv.FormatUint(e.Slot, 10),
			"processed":    strconv.FormatUint(uint64(e.Processed), 10),
			"skipped":      strconv.FormatUint(uint64(e.Skipped), 10),
			"idle":         strconv.FormatUint(uint64(e.Idle), 10),
			"slots":        strconv.FormatUint(e.Slots, 10),
			"amount":       strconv.FormatUint(e.Amount, 10),
			"totalSlots":   strconv.FormatUint(e.TotalSlots, 10),
			"totalRewards": strconv.FormatUint(e.TotalRewards, 10),
		},
	}
}
