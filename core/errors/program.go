package errors

import stderrors "errors"

// Code is the numeric outcome recorded in a transaction receipt.
type Code uint32

const (
	CodeOK Code = iota
	CodeAssertionFailed
	CodeMissingSignature
	CodeNotWritable
	CodeWrongOwner
	CodeAddressMismatch
	CodeAlreadyInitialized
	CodeNotInitialized
	CodeMalformedInput
	CodeInsufficientFunds
	CodeUnknownProgram

	CodeInternal Code = 255
)

// The program error taxonomy. Every failure that aborts a transaction wraps
// exactly one of these so callers can classify it with errors.Is.
var (
	ErrAssertionFailed    = stderrors.New("assertion failed")
	ErrMissingSignature   = stderrors.New("missing required signature")
	ErrNotWritable        = stderrors.New("account not writable")
	ErrWrongOwner         = stderrors.New("incorrect account owner")
	ErrAddressMismatch    = stderrors.New("address mismatch")
	ErrAlreadyInitialized = stderrors.New("account already initialized")
	ErrNotInitialized     = stderrors.New("account not initialized")
	ErrMalformedInput     = stderrors.New("malformed input")
	ErrInsufficientFunds  = stderrors.New("insufficient funds")
	ErrUnknownProgram     = stderrors.New("unknown program")
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrAssertionFailed, CodeAssertionFailed},
	{ErrMissingSignature, CodeMissingSignature},
	{ErrNotWritable, CodeNotWritable},
	{ErrWrongOwner, CodeWrongOwner},
	{ErrAddressMismatch, CodeAddressMismatch},
	{ErrAlreadyInitialized, CodeAlreadyInitialized},
	{ErrNotInitialized, CodeNotInitialized},
	{ErrMalformedInput, CodeMalformedInput},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrUnknownProgram, CodeUnknownProgram},
}

// CodeOf classifies err. Errors outside the taxonomy map to CodeInternal.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	for _, entry := range codes {
		if stderrors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeInternal
}

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeAssertionFailed:
		return "AssertionFailed"
	case CodeMissingSignature:
		return "MissingSignature"
	case CodeNotWritable:
		return "NotWritable"
	case CodeWrongOwner:
		return "WrongOwner"
	case CodeAddressMismatch:
		return "AddressMismatch"
	case CodeAlreadyInitialized:
		return "AlreadyInitialized"
	case CodeNotInitialized:
		return "NotInitialized"
	case CodeMalformedInput:
		return "MalformedInput"
	case CodeInsufficientFunds:
		return "InsufficientFunds"
	case CodeUnknownProgram:
		return "UnknownProgram"
	default:
		return "Internal"
	}
}
