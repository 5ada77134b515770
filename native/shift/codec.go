package shift

import (
	"encoding/binary"
	"fmt"

	"shiftchain/crypto"
)

// encoder writes fields in declaration order, little endian, without padding.
type encoder struct {
	buf []byte
}

func newEncoder(size int) *encoder { return &encoder{buf: make([]byte, 0, size)} }

func (e *encoder) kind(k Kind)           { e.buf = append(e.buf, byte(k)) }
func (e *encoder) u8(v uint8)            { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16)          { e.buf = binary.LittleEndian.AppendUint16(e.buf, v) }
func (e *encoder) u64(v uint64)          { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *encoder) addr(a crypto.Address) { e.buf = append(e.buf, a[:]...) }

func (e *encoder) boolean(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

type decoder struct {
	data []byte
	off  int
	err  error
}

func newDecoder(data []byte, size int, kind Kind) *decoder {
	d := &decoder{data: data}
	if len(data) != size {
		d.err = fmt.Errorf("%w: %s record is %d bytes, want %d", ErrMalformedInput, kind, len(data), size)
	}
	return d
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return make([]byte, n)
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) kind() Kind {
	k := Kind(d.take(1)[0])
	if d.err == nil && k > KindShift {
		d.err = fmt.Errorf("%w: unknown record tag %d", ErrMalformedInput, k)
	}
	return k
}

func (d *decoder) u8() uint8   { return d.take(1)[0] }
func (d *decoder) u16() uint16 { return binary.LittleEndian.Uint16(d.take(2)) }
func (d *decoder) u64() uint64 { return binary.LittleEndian.Uint64(d.take(8)) }

func (d *decoder) addr() crypto.Address { return crypto.BytesToAddress(d.take(crypto.AddressLength)) }

func (d *decoder) boolean() bool {
	b := d.take(1)[0]
	if d.err == nil && b > 1 {
		d.err = fmt.Errorf("%w: invalid bool byte %d", ErrMalformedInput, b)
	}
	return b == 1
}

func (r *MintAuthority) MarshalBinary() ([]byte, error) {
	e := newEncoder(MintAuthoritySize)
	e.kind(r.Tag)
	e.u8(r.Bump)
	return e.buf, nil
}

func (r *MintAuthority) UnmarshalBinary(data []byte) error {
	d := newDecoder(data, MintAuthoritySize, KindMintAuthority)
	r.Tag = d.kind()
	r.Bump = d.u8()
	return d.err
}

func (r *Employer) MarshalBinary() ([]byte, error) {
	e := newEncoder(EmployerSize)
	e.kind(r.Tag)
	e.u8(r.Bump)
	e.boolean(r.IsActive)
	e.u16(r.Employees)
	e.u16(r.MaxEmployees)
	e.u64(r.StartSlot)
	e.u64(r.EndSlot)
	e.u64(r.SlotsPerShift)
	e.u64(r.BaseRatePerSlot)
	e.u64(r.InflationRatePerSlot)
	e.addr(r.TokenMint)
	e.addr(r.CollectionMint)
	return e.buf, nil
}

func (r *Employer) UnmarshalBinary(data []byte) error {
	d := newDecoder(data, EmployerSize, KindEmployer)
	r.Tag = d.kind()
	r.Bump = d.u8()
	r.IsActive = d.boolean()
	r.Employees = d.u16()
	r.MaxEmployees = d.u16()
	r.StartSlot = d.u64()
	r.EndSlot = d.u64()
	r.SlotsPerShift = d.u64()
	r.BaseRatePerSlot = d.u64()
	r.InflationRatePerSlot = d.u64()
	r.TokenMint = d.addr()
	r.CollectionMint = d.addr()
	return d.err
}

func (r *Employee) MarshalBinary() ([]byte, error) {
	e := newEncoder(EmployeeSize)
	e.kind(r.Tag)
	e.u8(r.Bump)
	e.u64(r.LastSlot)
	e.u64(r.TotalSlots)
	e.addr(r.NFTMint)
	return e.buf, nil
}

func (r *Employee) UnmarshalBinary(data []byte) error {
	d := newDecoder(data, EmployeeSize, KindEmployee)
	r.Tag = d.kind()
	r.Bump = d.u8()
	r.LastSlot = d.u64()
	r.TotalSlots = d.u64()
	r.NFTMint = d.addr()
	return d.err
}

func (r *Shift) MarshalBinary() ([]byte, error) {
	e := newEncoder(ShiftSize)
	e.kind(r.Tag)
	e.u8(r.Bump)
	e.u64(r.Slot)
	e.u64(r.TotalSlots)
	e.u64(r.TotalRewards)
	e.addr(r.Owner)
	return e.buf, nil
}

func (r *Shift) UnmarshalBinary(data []byte) error {
	d := newDecoder(data, ShiftSize, KindShift)
	r.Tag = d.kind()
	r.Bump = d.u8()
	r.Slot = d.u64()
	r.TotalSlots = d.u64()
	r.TotalRewards = d.u64()
	r.Owner = d.addr()
	return d.err
}

// DecodeMintAuthority, DecodeEmployer, DecodeEmployee and DecodeShift parse
// raw record storage. All-zero storage decodes as an uninitialized record.
func DecodeMintAuthority(data []byte) (*MintAuthority, error) {
	r := new(MintAuthority)
	if err := r.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return r, nil
}

func DecodeEmployer(data []byte) (*Employer, error) {
	r := new(Employer)
	if err := r.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return r, nil
}

func DecodeEmployee(data []byte) (*Employee, error) {
	r := new(Employee)
	if err := r.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return r, nil
}

func DecodeShift(data []byte) (*Shift, error) {
	r := new(Shift)
	if err := r.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return r, nil
}
