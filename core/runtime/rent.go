package runtime

import (
	"math"
	"math/bits"
)

// accountStorageOverhead is charged on top of the data length of every account.
const accountStorageOverhead = 128

// Rent prices account storage. An account funded with MinimumBalance is
// retained indefinitely.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionYears: 2}
}

// MinimumBalance saturates at math.MaxUint64, which no account can hold.
func (r Rent) MinimumBalance(space int) uint64 {
	if space < 0 {
		space = 0
	}
	bytes, carry := bits.Add64(accountStorageOverhead, uint64(space), 0)
	if carry != 0 {
		return math.MaxUint64
	}
	hi, perYear := bits.Mul64(bytes, r.LamportsPerByteYear)
	if hi != 0 {
		return math.MaxUint64
	}
	hi, total := bits.Mul64(perYear, r.ExemptionYears)
	if hi != 0 {
		return math.MaxUint64
	}
	return total
}
