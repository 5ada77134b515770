package token

import (
	"encoding/binary"
	"fmt"

	coreerrors "shiftchain/core/errors"
	"shiftchain/crypto"
)

const (
	// MintSize is the storage reserved for a mint:
	// initialized(1) decimals(1) has_authority(1) authority(32) supply(8).
	MintSize = 43
	// AccountSize is the storage reserved for a holding account:
	// initialized(1) mint(32) owner(32) amount(8).
	AccountSize = 73
)

// Mint describes one fungible or non-fungible token type.
type Mint struct {
	Initialized  bool
	Decimals     uint8
	HasAuthority bool
	Authority    crypto.Address
	Supply       uint64
}

// Account is a balance of one mint held on behalf of Owner.
type Account struct {
	Initialized bool
	Mint        crypto.Address
	Owner       crypto.Address
	Amount      uint64
}

func putBool(b []byte, v bool) {
	if v {
		b[0] = 1
	} else {
		b[0] = 0
	}
}

func getBool(b byte) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: invalid bool byte %d", coreerrors.ErrMalformedInput, b)
	}
}

func (m *Mint) MarshalBinary() ([]byte, error) {
	buf := make([]byte, MintSize)
	putBool(buf[0:1], m.Initialized)
	buf[1] = m.Decimals
	putBool(buf[2:3], m.HasAuthority)
	copy(buf[3:35], m.Authority[:])
	binary.LittleEndian.PutUint64(buf[35:43], m.Supply)
	return buf, nil
}

func (m *Mint) UnmarshalBinary(data []byte) error {
	if len(data) != MintSize {
		return fmt.Errorf("%w: mint data is %d bytes", coreerrors.ErrMalformedInput, len(data))
	}
	initialized, err := getBool(data[0])
	if err != nil {
		return err
	}
	hasAuthority, err := getBool(data[2])
	if err != nil {
		return err
	}
	m.Initialized = initialized
	m.Decimals = data[1]
	m.HasAuthority = hasAuthority
	m.Authority = crypto.BytesToAddress(data[3:35])
	m.Supply = binary.LittleEndian.Uint64(data[35:43])
	return nil
}

func (a *Account) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AccountSize)
	putBool(buf[0:1], a.Initialized)
	copy(buf[1:33], a.Mint[:])
	copy(buf[33:65], a.Owner[:])
	binary.LittleEndian.PutUint64(buf[65:73], a.Amount)
	return buf, nil
}

func (a *Account) UnmarshalBinary(data []byte) error {
	if len(data) != AccountSize {
		return fmt.Errorf("%w: token account data is %d bytes", coreerrors.ErrMalformedInput, len(data))
	}
	initialized, err := getBool(data[0])
	if err != nil {
		return err
	}
	a.Initialized = initialized
	a.Mint = crypto.BytesToAddress(data[1:33])
	a.Owner = crypto.BytesToAddress(data[33:65])
	a.Amount = binary.LittleEndian.Uint64(data[65:73])
	return nil
}

// DecodeMint parses mint storage.
func DecodeMint(data []byte) (*Mint, error) {
	m := new(Mint)
	if err := m.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeAccount parses holding account storage.
func DecodeAccount(data []byte) (*Account, error) {
	a := new(Account)
	if err := a.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return a, nil
}
