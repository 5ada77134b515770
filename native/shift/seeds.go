package shift

import (
	"fmt"

	"shiftchain/crypto"
)

// Seed prefixes of the derived record addresses.
const (
	MintAuthoritySeed = "mint_authority"
	EmployerSeed      = "employer"
	EmployeeSeed      = "employee"
	ShiftSeed         = "shift"
)

func MintAuthoritySeeds(bump uint8) [][]byte {
	return [][]byte{[]byte(MintAuthoritySeed), {bump}}
}

func EmployerSeeds(bump uint8) [][]byte {
	return [][]byte{[]byte(EmployerSeed), {bump}}
}

func EmployeeSeeds(nftMint crypto.Address, bump uint8) [][]byte {
	return [][]byte{[]byte(EmployeeSeed), nftMint.Bytes(), {bump}}
}

func ShiftSeeds(owner crypto.Address, bump uint8) [][]byte {
	return [][]byte{[]byte(ShiftSeed), owner.Bytes(), {bump}}
}

// find searches for the canonical bump of a seed prefix. Only clients search;
// the program verifies whatever bump it is given.
func find(programID crypto.Address, prefix ...[]byte) (crypto.Address, uint8) {
	addr, bump, err := crypto.FindDerivedAddress(programID, prefix...)
	if err != nil {
		panic(fmt.Sprintf("shift: derive address: %v", err))
	}
	return addr, bump
}

func FindMintAuthorityAddress(programID crypto.Address) (crypto.Address, uint8) {
	return find(programID, []byte(MintAuthoritySeed))
}

func FindEmployerAddress(programID crypto.Address) (crypto.Address, uint8) {
	return find(programID, []byte(EmployerSeed))
}

func FindEmployeeAddress(programID, nftMint crypto.Address) (crypto.Address, uint8) {
	return find(programID, []byte(EmployeeSeed), nftMint.Bytes())
}

func FindShiftAddress(programID, owner crypto.Address) (crypto.Address, uint8) {
	return find(programID, []byte(ShiftSeed), owner.Bytes())
}
