// Package metadata implements the NFT metadata registry. It records, per
// token mint, the collection the token claims membership of and whether the
// collection's authority has verified that claim.
package metadata

import (
	"fmt"

	coreerrors "shiftchain/core/errors"
	"shiftchain/crypto"
)

// ProgramID is the address of the metadata registry.
var ProgramID = crypto.BytesToAddress(crypto.Keccak256([]byte("shiftchain/program/metadata")))

// Seed prefixes every metadata address.
const Seed = "metadata"

// Size is initialized(1) mint(32) update_authority(32) has_collection(1)
// collection_key(32) collection_verified(1).
const Size = 99

var (
	ErrNoCollection       = fmt.Errorf("%w: metadata has no collection", coreerrors.ErrAssertionFailed)
	ErrCollectionMismatch = fmt.Errorf("%w: collection key mismatch", coreerrors.ErrAddressMismatch)
	ErrNotMetadata        = fmt.Errorf("%w: not the metadata address of the mint", coreerrors.ErrAddressMismatch)
)

// Metadata is the registry record of one mint.
type Metadata struct {
	Initialized        bool
	Mint               crypto.Address
	UpdateAuthority    crypto.Address
	HasCollection      bool
	CollectionKey      crypto.Address
	CollectionVerified bool
}

// VerifiedMemberOf reports whether the record claims membership of
// collection and the claim has been verified.
func (m *Metadata) VerifiedMemberOf(collection crypto.Address) bool {
	return m.HasCollection && m.CollectionVerified && m.CollectionKey == collection
}

func (m *Metadata) MarshalBinary() ([]byte, error) {
	buf := make([]byte, Size)
	buf[0] = boolByte(m.Initialized)
	copy(buf[1:33], m.Mint[:])
	copy(buf[33:65], m.UpdateAuthority[:])
	buf[65] = boolByte(m.HasCollection)
	copy(buf[66:98], m.CollectionKey[:])
	buf[98] = boolByte(m.CollectionVerified)
	return buf, nil
}

func (m *Metadata) UnmarshalBinary(data []byte) error {
	if len(data) != Size {
		return fmt.Errorf("%w: metadata is %d bytes", coreerrors.ErrMalformedInput, len(data))
	}
	for _, i := range []int{0, 65, 98} {
		if data[i] > 1 {
			return fmt.Errorf("%w: invalid bool byte at %d", coreerrors.ErrMalformedInput, i)
		}
	}
	m.Initialized = data[0] == 1
	m.Mint = crypto.BytesToAddress(data[1:33])
	m.UpdateAuthority = crypto.BytesToAddress(data[33:65])
	m.HasCollection = data[65] == 1
	m.CollectionKey = crypto.BytesToAddress(data[66:98])
	m.CollectionVerified = data[98] == 1
	return nil
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

func seeds(mint crypto.Address) [][]byte {
	return [][]byte{[]byte(Seed), ProgramID.Bytes(), mint.Bytes()}
}

// Address returns the metadata address of mint and its bump.
func Address(mint crypto.Address) (crypto.Address, uint8) {
	addr, bump, err := crypto.FindDerivedAddress(ProgramID, seeds(mint)...)
	if err != nil {
		panic(fmt.Sprintf("metadata: derive address: %v", err))
	}
	return addr, bump
}
