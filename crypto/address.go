package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressLength is the size in bytes of every ledger address.
const AddressLength = 32

// AddressPrefix is the bech32 human-readable part used for display.
const AddressPrefix = "shift"

var ErrInvalidAddress = errors.New("crypto: invalid address")

// Address identifies an account, a program or a derived record on the ledger.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address. It never corresponds to a key pair.
var ZeroAddress Address

// BytesToAddress copies b into an Address. It panics when b has the wrong
// length, mirroring the strictness of NewAddress in the rest of the codebase.
func BytesToAddress(b []byte) Address {
	if len(b) != AddressLength {
		panic(fmt.Sprintf("address must be %d bytes long, got %d", AddressLength, len(b)))
	}
	var a Address
	copy(a[:], b)
	return a
}

func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Hex returns the 0x-prefixed hexadecimal form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String returns the bech32 form of the address.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressPrefix, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress accepts either the bech32 or the 0x-prefixed hex form.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
		raw, err := hex.DecodeString(trimmed[2:])
		if err != nil {
			return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
		}
		if len(raw) != AddressLength {
			return Address{}, fmt.Errorf("%w: hex length %d", ErrInvalidAddress, len(raw))
		}
		return BytesToAddress(raw), nil
	}
	prefix, decoded, err := bech32.Decode(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("%w: invalid bech32 string: %v", ErrInvalidAddress, err)
	}
	if prefix != AddressPrefix {
		return Address{}, fmt.Errorf("%w: unexpected prefix %q", ErrInvalidAddress, prefix)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("%w: error converting bits: %v", ErrInvalidAddress, err)
	}
	if len(conv) != AddressLength {
		return Address{}, fmt.Errorf("%w: decoded length %d", ErrInvalidAddress, len(conv))
	}
	return BytesToAddress(conv), nil
}

// MustParseAddress is ParseAddress for constants; it panics on error.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}
