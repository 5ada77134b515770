package shift

import (
	"fmt"

	coreerrors "shiftchain/core/errors"
)

var (
	ErrAssertionFailed    = coreerrors.ErrAssertionFailed
	ErrMissingSignature   = coreerrors.ErrMissingSignature
	ErrNotWritable        = coreerrors.ErrNotWritable
	ErrWrongOwner         = coreerrors.ErrWrongOwner
	ErrAddressMismatch    = coreerrors.ErrAddressMismatch
	ErrAlreadyInitialized = coreerrors.ErrAlreadyInitialized
	ErrNotInitialized     = coreerrors.ErrNotInitialized
	ErrMalformedInput     = coreerrors.ErrMalformedInput

	ErrNotEnoughAccounts    = fmt.Errorf("%w: not enough accounts", ErrMalformedInput)
	ErrArithmeticOverflow   = fmt.Errorf("%w: arithmetic overflow", ErrAssertionFailed)
	ErrNotActive            = fmt.Errorf("%w: mining not available", ErrAssertionFailed)
	ErrUnverifiedCollection = fmt.Errorf("%w: unverified collection", ErrAssertionFailed)
)

// ErrorCode is the stable numeric outcome written to receipts.
type ErrorCode = coreerrors.Code

// Code classifies err for a receipt.
func Code(err error) ErrorCode {
	return coreerrors.CodeOf(err)
}
