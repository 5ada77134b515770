// Package shift is the employee reward program. Employers describe a reward
// schedule for holders of a verified NFT collection; every holder's NFT is
// registered as an employee whose elapsed slots are periodically settled
// into a shift record and paid out in the employer's reward token.
package shift

import (
	"encoding"

	"github.com/holiman/uint256"

	"shiftchain/crypto"
)

// Kind is the leading tag of every record. A record is initialized when its
// tag equals the kind of its layout.
type Kind uint8

const (
	KindUninitialized Kind = iota
	KindMintAuthority
	KindEmployer
	KindEmployee
	KindShift
)

func (k Kind) String() string {
	switch k {
	case KindUninitialized:
		return "uninitialized"
	case KindMintAuthority:
		return "mint_authority"
	case KindEmployer:
		return "employer"
	case KindEmployee:
		return "employee"
	case KindShift:
		return "shift"
	default:
		return "unknown"
	}
}

// Record sizes in bytes.
const (
	MintAuthoritySize = 2
	EmployerSize      = 111
	EmployeeSize      = 50
	ShiftSize         = 58
)

// Employer defaults applied when optional initialization fields are absent.
const (
	DefaultMaxShifts       uint16 = 10_000
	DefaultMaxEmployees    uint16 = 10_000
	DefaultSlotsPerShift   uint64 = 250_000
	DefaultBaseRatePerSlot uint64 = 100_000

	// InflationDivisor scales the base rate into the per-epoch bonus rate.
	InflationDivisor = 1000
)

// Record is implemented by the four program records.
type Record interface {
	// Kind is the tag an initialized record of this layout carries.
	Kind() Kind
	IsInitialized() bool
	Size() int
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// MintAuthority is the singleton whose derived address is the reward token's
// mint authority.
type MintAuthority struct {
	Tag  Kind
	Bump uint8
}

func NewMintAuthority(bump uint8) *MintAuthority {
	return &MintAuthority{Tag: KindMintAuthority, Bump: bump}
}

func (*MintAuthority) Kind() Kind            { return KindMintAuthority }
func (r *MintAuthority) IsInitialized() bool { return r.Tag == KindMintAuthority }
func (*MintAuthority) Size() int             { return MintAuthoritySize }

// Employer is a reward schedule. EndSlot and InflationRatePerSlot are fixed
// when the record is created.
type Employer struct {
	Tag                  Kind
	Bump                 uint8
	IsActive             bool
	Employees            uint16
	MaxEmployees         uint16
	StartSlot            uint64
	EndSlot              uint64
	SlotsPerShift        uint64
	BaseRatePerSlot      uint64
	InflationRatePerSlot uint64
	TokenMint            crypto.Address
	CollectionMint       crypto.Address
}

func (*Employer) Kind() Kind            { return KindEmployer }
func (r *Employer) IsInitialized() bool { return r.Tag == KindEmployer }
func (*Employer) Size() int             { return EmployerSize }

// HasCapacity reports whether another employee may be registered.
func (r *Employer) HasCapacity() bool { return r.Employees < r.MaxEmployees }

// Active reports whether slot lies within the reward period, bounds included.
func (r *Employer) Active(slot uint64) bool {
	return slot >= r.StartSlot && slot <= r.EndSlot
}

// EmployerParams are the initialization arguments of an employer. Nil
// fields take their defaults.
type EmployerParams struct {
	Bump            uint8
	TokenMint       crypto.Address
	CollectionMint  crypto.Address
	MaxShifts       *uint16
	MaxEmployees    *uint16
	StartSlot       *uint64
	SlotsPerShift   *uint64
	BaseRatePerSlot *uint64
}

// NewEmployer builds an employer record; currentSlot is the start slot when
// none is given.
func NewEmployer(params EmployerParams, currentSlot uint64) (*Employer, error) {
	maxShifts := DefaultMaxShifts
	if params.MaxShifts != nil {
		maxShifts = *params.MaxShifts
	}
	maxEmployees := DefaultMaxEmployees
	if params.MaxEmployees != nil {
		maxEmployees = *params.MaxEmployees
	}
	start := currentSlot
	if params.StartSlot != nil {
		start = *params.StartSlot
	}
	slotsPerShift := DefaultSlotsPerShift
	if params.SlotsPerShift != nil {
		slotsPerShift = *params.SlotsPerShift
	}
	baseRate := DefaultBaseRatePerSlot
	if params.BaseRatePerSlot != nil {
		baseRate = *params.BaseRatePerSlot
	}

	span, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(uint64(maxShifts)), uint256.NewInt(slotsPerShift))
	if overflow {
		return nil, ErrArithmeticOverflow
	}
	end, overflow := new(uint256.Int).AddOverflow(span, uint256.NewInt(start))
	if overflow || !end.IsUint64() {
		return nil, ErrArithmeticOverflow
	}

	return &Employer{
		Tag:                  KindEmployer,
		Bump:                 params.Bump,
		IsActive:             true,
		MaxEmployees:         maxEmployees,
		StartSlot:            start,
		EndSlot:              end.Uint64(),
		SlotsPerShift:        slotsPerShift,
		BaseRatePerSlot:      baseRate,
		InflationRatePerSlot: baseRate / InflationDivisor,
		TokenMint:            params.TokenMint,
		CollectionMint:       params.CollectionMint,
	}, nil
}

// Employee is the accrual cursor of one NFT.
type Employee struct {
	Tag        Kind
	Bump       uint8
	LastSlot   uint64
	TotalSlots uint64
	NFTMint    crypto.Address
}

func NewEmployee(bump uint8, nftMint crypto.Address) *Employee {
	return &Employee{Tag: KindEmployee, Bump: bump, NFTMint: nftMint}
}

func (*Employee) Kind() Kind            { return KindEmployee }
func (r *Employee) IsInitialized() bool { return r.Tag == KindEmployee }
func (*Employee) Size() int             { return EmployeeSize }

// Shift aggregates every settlement made on behalf of Owner.
type Shift struct {
	Tag          Kind
	Bump         uint8
	Slot         uint64
	TotalSlots   uint64
	TotalRewards uint64
	Owner        crypto.Address
}

func NewShift(bump uint8, slot uint64, owner crypto.Address) *Shift {
	return &Shift{Tag: KindShift, Bump: bump, Slot: slot, Owner: owner}
}

func (*Shift) Kind() Kind            { return KindShift }
func (r *Shift) IsInitialized() bool { return r.Tag == KindShift }
func (*Shift) Size() int             { return ShiftSize }
