package shift

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"shiftchain/crypto"
)

// Tag is the leading byte of every instruction.
type Tag uint8

const (
	TagTest Tag = iota
	TagCreateMintAuthority
	TagInitializeMintAuthority
	TagSetMintAuthority
	TagCreateEmployer
	TagInitializeEmployer
	TagCreateEmployee
	TagInitializeEmployee
	TagCreateShift
	TagInitializeShift
	TagShift
)

// Command is a decoded instruction payload.
type Command interface {
	Tag() Tag
}

type Test struct{}

type CreateMintAuthority struct{ Bump uint8 }

type InitializeMintAuthority struct{ Bump uint8 }

type SetMintAuthority struct {
	Bump         uint8
	NewAuthority crypto.Address
}

type CreateEmployer struct{ Bump uint8 }

type InitializeEmployer struct{ Params EmployerParams }

type CreateEmployee struct{ Bump uint8 }

type InitializeEmployee struct {
	Bump    uint8
	NFTMint crypto.Address
}

type CreateShift struct{ Bump uint8 }

type InitializeShift struct {
	Bump  uint8
	Slot  uint64
	Owner crypto.Address
}

// Accrue settles NumberOfEmployees (token account, employee) pairs into a
// shift record.
type Accrue struct{ NumberOfEmployees uint8 }

func (Test) Tag() Tag                    { return TagTest }
func (CreateMintAuthority) Tag() Tag     { return TagCreateMintAuthority }
func (InitializeMintAuthority) Tag() Tag { return TagInitializeMintAuthority }
func (SetMintAuthority) Tag() Tag        { return TagSetMintAuthority }
func (CreateEmployer) Tag() Tag          { return TagCreateEmployer }
func (InitializeEmployer) Tag() Tag      { return TagInitializeEmployer }
func (CreateEmployee) Tag() Tag          { return TagCreateEmployee }
func (InitializeEmployee) Tag() Tag      { return TagInitializeEmployee }
func (CreateShift) Tag() Tag             { return TagCreateShift }
func (InitializeShift) Tag() Tag         { return TagInitializeShift }
func (Accrue) Tag() Tag                  { return TagShift }

// Presence bits of the optional employer fields.
const (
	hasMaxShifts uint8 = 1 << iota
	hasMaxEmployees
	hasStartSlot
	hasSlotsPerShift
	hasBaseRatePerSlot
)

// employerWire is the encoded form of InitializeEmployer. Absent optional
// fields are zero and their presence bit is clear.
type employerWire struct {
	Bump            uint8
	TokenMint       crypto.Address
	CollectionMint  crypto.Address
	Present         uint8
	MaxShifts       uint16
	MaxEmployees    uint16
	StartSlot       uint64
	SlotsPerShift   uint64
	BaseRatePerSlot uint64
}

func toWire(p EmployerParams) *employerWire {
	w := &employerWire{Bump: p.Bump, TokenMint: p.TokenMint, CollectionMint: p.CollectionMint}
	if p.MaxShifts != nil {
		w.Present |= hasMaxShifts
		w.MaxShifts = *p.MaxShifts
	}
	if p.MaxEmployees != nil {
		w.Present |= hasMaxEmployees
		w.MaxEmployees = *p.MaxEmployees
	}
	if p.StartSlot != nil {
		w.Present |= hasStartSlot
		w.StartSlot = *p.StartSlot
	}
	if p.SlotsPerShift != nil {
		w.Present |= hasSlotsPerShift
		w.SlotsPerShift = *p.SlotsPerShift
	}
	if p.BaseRatePerSlot != nil {
		w.Present |= hasBaseRatePerSlot
		w.BaseRatePerSlot = *p.BaseRatePerSlot
	}
	return w
}

func (w *employerWire) params() (EmployerParams, error) {
	if w.Present&^(hasMaxShifts|hasMaxEmployees|hasStartSlot|hasSlotsPerShift|hasBaseRatePerSlot) != 0 {
		return EmployerParams{}, fmt.Errorf("%w: unknown employer option bits %#x", ErrMalformedInput, w.Present)
	}
	p := EmployerParams{Bump: w.Bump, TokenMint: w.TokenMint, CollectionMint: w.CollectionMint}
	if w.Present&hasMaxShifts != 0 {
		p.MaxShifts = &w.MaxShifts
	}
	if w.Present&hasMaxEmployees != 0 {
		p.MaxEmployees = &w.MaxEmployees
	}
	if w.Present&hasStartSlot != 0 {
		p.StartSlot = &w.StartSlot
	}
	if w.Present&hasSlotsPerShift != 0 {
		p.SlotsPerShift = &w.SlotsPerShift
	}
	if w.Present&hasBaseRatePerSlot != 0 {
		p.BaseRatePerSlot = &w.BaseRatePerSlot
	}
	return p, nil
}

// EncodeCommand renders cmd as its tag byte followed by the RLP payload.
func EncodeCommand(cmd Command) ([]byte, error) {
	var payload interface{}
	switch c := cmd.(type) {
	case Test:
		return []byte{byte(TagTest)}, nil
	case InitializeEmployer:
		payload = toWire(c.Params)
	case nil:
		return nil, fmt.Errorf("%w: nil command", ErrMalformedInput)
	default:
		payload = c
	}
	encoded, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, fmt.Errorf("shift: encode %T: %w", cmd, err)
	}
	return append([]byte{byte(cmd.Tag())}, encoded...), nil
}

func decodeAs[T Command](tag Tag, payload []byte) (Command, error) {
	var c T
	if err := rlp.DecodeBytes(payload, &c); err != nil {
		return nil, fmt.Errorf("%w: tag %d: %v", ErrMalformedInput, tag, err)
	}
	return c, nil
}

// DecodeCommand parses instruction data. Anything that does not decode
// exactly is MalformedInput.
func DecodeCommand(data []byte) (Command, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty instruction", ErrMalformedInput)
	}
	tag, payload := Tag(data[0]), data[1:]
	switch tag {
	case TagTest:
		if len(payload) != 0 {
			return nil, fmt.Errorf("%w: test takes no payload", ErrMalformedInput)
		}
		return Test{}, nil
	case TagCreateMintAuthority:
		return decodeAs[CreateMintAuthority](tag, payload)
	case TagInitializeMintAuthority:
		return decodeAs[InitializeMintAuthority](tag, payload)
	case TagSetMintAuthority:
		return decodeAs[SetMintAuthority](tag, payload)
	case TagCreateEmployer:
		return decodeAs[CreateEmployer](tag, payload)
	case TagInitializeEmployer:
		var w employerWire
		if err := rlp.DecodeBytes(payload, &w); err != nil {
			return nil, fmt.Errorf("%w: tag %d: %v", ErrMalformedInput, tag, err)
		}
		params, err := w.params()
		if err != nil {
			return nil, err
		}
		return InitializeEmployer{Params: params}, nil
	case TagCreateEmployee:
		return decodeAs[CreateEmployee](tag, payload)
	case TagInitializeEmployee:
		return decodeAs[InitializeEmployee](tag, payload)
	case TagCreateShift:
		return decodeAs[CreateShift](tag, payload)
	case TagInitializeShift:
		return decodeAs[InitializeShift](tag, payload)
	case TagShift:
		return decodeAs[Accrue](tag, payload)
	default:
		return nil, fmt.Errorf("%w: unknown instruction tag %d", ErrMalformedInput, tag)
	}
}
