package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"lukechampine.com/blake3"

	"shiftchain/core/types"
	"shiftchain/crypto"
	"shiftchain/storage"
)

var (
	accountPrefix = []byte("acct:")
	txPrefix      = []byte("tx:")
)

func accountKey(addr crypto.Address) []byte {
	buf := make([]byte, len(accountPrefix)+crypto.AddressLength)
	copy(buf, accountPrefix)
	copy(buf[len(accountPrefix):], addr[:])
	return buf
}

// Manager reads and writes accounts in the backing database. Writes are only
// applied through Commit so a transaction's changes land in one batch.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Account returns the stored account, or nil when the address was never
// allocated.
func (m *Manager) Account(addr crypto.Address) (*types.StoredAccount, error) {
	data, err := m.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	stored := new(types.StoredAccount)
	if err := rlp.DecodeBytes(data, stored); err != nil {
		return nil, fmt.Errorf("state: decode account %s: %w", addr, err)
	}
	return stored, nil
}

// Commit writes every account in one batch. Accounts left with neither
// lamports nor data are removed.
func (m *Manager) Commit(accounts map[crypto.Address]*types.StoredAccount) error {
	if len(accounts) == 0 {
		return nil
	}
	batch, err := accountBatch(accounts)
	if err != nil {
		return err
	}
	return m.db.Write(batch)
}

// CommitTransaction writes the accounts and marks hash as executed in the
// same batch.
func (m *Manager) CommitTransaction(hash []byte, accounts map[crypto.Address]*types.StoredAccount) error {
	batch, err := accountBatch(accounts)
	if err != nil {
		return err
	}
	batch.Put(txKey(hash), []byte{1})
	return m.db.Write(batch)
}

// HasTransaction reports whether a transaction with hash was committed.
func (m *Manager) HasTransaction(hash []byte) (bool, error) {
	return m.db.Has(txKey(hash))
}

func txKey(hash []byte) []byte {
	return append(append([]byte(nil), txPrefix...), hash...)
}

func accountBatch(accounts map[crypto.Address]*types.StoredAccount) (*storage.Batch, error) {
	addrs := make([]crypto.Address, 0, len(accounts))
	for addr := range accounts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return string(addrs[i][:]) < string(addrs[j][:])
	})
	batch := storage.NewBatch()
	for _, addr := range addrs {
		acct := accounts[addr]
		if acct == nil || (acct.Lamports == 0 && len(acct.Data) == 0) {
			batch.Delete(accountKey(addr))
			continue
		}
		encoded, err := rlp.EncodeToBytes(acct)
		if err != nil {
			return nil, err
		}
		batch.Put(accountKey(addr), encoded)
	}
	return batch, nil
}

// SetAccount stores a single account outside of a transaction. It is intended
// for genesis allocation.
func (m *Manager) SetAccount(addr crypto.Address, acct *types.StoredAccount) error {
	return m.Commit(map[crypto.Address]*types.StoredAccount{addr: acct})
}

// ForEachAccount visits all accounts in address order.
func (m *Manager) ForEachAccount(fn func(addr crypto.Address, acct *types.StoredAccount) error) error {
	return m.db.ForEach(accountPrefix, func(key, value []byte) error {
		if len(key) != len(accountPrefix)+crypto.AddressLength {
			return nil
		}
		stored := new(types.StoredAccount)
		if err := rlp.DecodeBytes(value, stored); err != nil {
			return err
		}
		return fn(crypto.BytesToAddress(key[len(accountPrefix):]), stored)
	})
}

// Digest hashes every stored account with blake3. Two nodes that executed the
// same transactions from the same genesis produce the same digest.
func (m *Manager) Digest() ([32]byte, error) {
	hasher := blake3.New(32, nil)
	err := m.db.ForEach(accountPrefix, func(key, value []byte) error {
		hasher.Write(key)
		hasher.Write(value)
		return nil
	})
	if err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out, nil
}
