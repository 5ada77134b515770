package types

import (
	"bytes"

	"shiftchain/crypto"
)

// StoredAccount is the persisted form of an account.
type StoredAccount struct {
	Owner    crypto.Address `json:"owner"`
	Lamports uint64         `json:"lamports"`
	Data     []byte         `json:"data"`
}

// Account is the handle a program receives while an instruction executes. The
// capability flags come from the transaction; the remaining fields are the live
// state shared by every instruction of the same transaction.
type Account struct {
	Address  crypto.Address `json:"address"`
	Owner    crypto.Address `json:"owner"`
	Lamports uint64         `json:"lamports"`
	Data     []byte         `json:"data"`

	Signer   bool `json:"signer"`
	Writable bool `json:"writable"`
}

// Exists reports whether any storage or balance has been allocated.
func (a *Account) Exists() bool {
	return a != nil && (a.Lamports > 0 || len(a.Data) > 0)
}

// Stored converts the handle into its persisted form.
func (a *Account) Stored() *StoredAccount {
	return &StoredAccount{
		Owner:    a.Owner,
		Lamports: a.Lamports,
		Data:     append([]byte(nil), a.Data...),
	}
}

// Snapshot captures the mutable fields so the runtime can detect changes.
func (a *Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{
		Owner:    a.Owner,
		Lamports: a.Lamports,
		Data:     append([]byte(nil), a.Data...),
	}
}

// AccountSnapshot is a copy of an account's mutable fields.
type AccountSnapshot struct {
	Owner    crypto.Address
	Lamports uint64
	Data     []byte
}

// DataChanged reports whether a's data differs from the snapshot.
func (s AccountSnapshot) DataChanged(a *Account) bool {
	return !bytes.Equal(s.Data, a.Data)
}

// Changed reports whether any mutable field differs from the snapshot.
func (s AccountSnapshot) Changed(a *Account) bool {
	return s.Owner != a.Owner || s.Lamports != a.Lamports || s.DataChanged(a)
}

// Restore rewinds a to the snapshot.
func (s AccountSnapshot) Restore(a *Account) {
	a.Owner = s.Owner
	a.Lamports = s.Lamports
	a.Data = append([]byte(nil), s.Data...)
}
