package crypto

import (
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// MaxSeeds bounds the number of seeds in a derivation.
	MaxSeeds = 16
	// MaxSeedLength bounds the size of an individual seed.
	MaxSeedLength = 32

	derivedAddressMarker = "ProgramDerivedAddress"
)

var (
	ErrMaxSeedLengthExceeded = errors.New("crypto: derived address seeds exceed limits")
	ErrInvalidSeeds          = errors.New("crypto: seeds derive a key-pair address")
	ErrNoViableBump          = errors.New("crypto: no viable bump seed")
)

// DeriveAddress hashes seeds and programID into a candidate address and reports
// whether it is a valid derived address. A candidate is valid only when it is
// not the x-coordinate of a secp256k1 point, so no private key can sign for it
// and only the owning program can authorize it.
func DeriveAddress(programID Address, seeds ...[]byte) (Address, bool) {
	if len(seeds) > MaxSeeds {
		return Address{}, false
	}
	parts := make([][]byte, 0, len(seeds)+2)
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, false
		}
		parts = append(parts, seed)
	}
	parts = append(parts, programID[:], []byte(derivedAddressMarker))
	candidate := BytesToAddress(crypto.Keccak256(parts...))
	return candidate, !onCurve(candidate)
}

// CreateDerivedAddress is DeriveAddress returning an error for invalid seeds.
func CreateDerivedAddress(programID Address, seeds ...[]byte) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, ErrMaxSeedLengthExceeded
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, ErrMaxSeedLengthExceeded
		}
	}
	addr, ok := DeriveAddress(programID, seeds...)
	if !ok {
		return Address{}, ErrInvalidSeeds
	}
	return addr, nil
}

// FindDerivedAddress appends a bump byte to seeds, starting at 255 and counting
// down, and returns the first valid derived address. Programs never call this;
// they verify a caller-supplied bump with CreateDerivedAddress instead.
func FindDerivedAddress(programID Address, seeds ...[]byte) (Address, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateDerivedAddress(programID, withBump...)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if errors.Is(err, ErrMaxSeedLengthExceeded) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// IsOnCurve reports whether addr could be the public key coordinate of a
// secp256k1 key pair.
func IsOnCurve(addr Address) bool {
	return onCurve(addr)
}

func onCurve(addr Address) bool {
	compressed := make([]byte, 0, 33)
	compressed = append(compressed, 0x02)
	compressed = append(compressed, addr[:]...)
	_, err := crypto.DecompressPubkey(compressed)
	return err == nil
}
