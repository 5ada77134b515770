package shift

import (
	"fmt"

	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/native/token"
)

func CheckSigner(acct *types.Account) error {
	if !acct.Signer {
		return fmt.Errorf("%w: %s", ErrMissingSignature, acct.Address)
	}
	return nil
}

func CheckWritable(acct *types.Account) error {
	if !acct.Writable {
		return fmt.Errorf("%w: %s", ErrNotWritable, acct.Address)
	}
	return nil
}

func CheckSignerAndWritable(acct *types.Account) error {
	if err := CheckSigner(acct); err != nil {
		return err
	}
	return CheckWritable(acct)
}

// CheckOwner requires acct to be controlled by the owner program.
func CheckOwner(acct *types.Account, owner crypto.Address) error {
	if acct.Owner != owner {
		return fmt.Errorf("%w: %s is owned by %s, want %s", ErrWrongOwner, acct.Address, acct.Owner, owner)
	}
	return nil
}

func CheckAddress(actual, expected crypto.Address) error {
	if actual != expected {
		return fmt.Errorf("%w: got %s, want %s", ErrAddressMismatch, actual, expected)
	}
	return nil
}

// CheckDerivedAddress recomputes the address of seeds under programID and
// compares it with acct. The bump is part of seeds and is not required to be
// the canonical one.
func CheckDerivedAddress(programID crypto.Address, acct *types.Account, seeds ...[]byte) error {
	expected, err := crypto.CreateDerivedAddress(programID, seeds...)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAddressMismatch, acct.Address, err)
	}
	return CheckAddress(acct.Address, expected)
}

// CheckAssociatedTokenAddress requires acct to be wallet's associated
// account for mint.
func CheckAssociatedTokenAddress(acct *types.Account, mint, wallet crypto.Address) error {
	expected, _ := token.AssociatedAddress(wallet, mint)
	return CheckAddress(acct.Address, expected)
}

func CheckInitialized(r Record, acct *types.Account) error {
	if !r.IsInitialized() {
		return fmt.Errorf("%w: %s %s", ErrNotInitialized, r.Kind(), acct.Address)
	}
	return nil
}

func CheckUninitialized(r Record, acct *types.Account) error {
	if r.IsInitialized() {
		return fmt.Errorf("%w: %s %s", ErrAlreadyInitialized, r.Kind(), acct.Address)
	}
	return nil
}

// Assert fails with AssertionFailed and msg when cond is false.
func Assert(cond bool, msg string) error {
	if !cond {
		return fmt.Errorf("%w: %s", ErrAssertionFailed, msg)
	}
	return nil
}
