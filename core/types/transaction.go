package types

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"shiftchain/crypto"
)

var ErrEmptyTransaction = errors.New("transaction: no instructions")

// Message is the signed portion of a transaction. Nonce only differentiates
// otherwise identical messages; the runtime refuses a message whose hash was
// already committed.
type Message struct {
	Nonce        uint64
	Instructions []Instruction
}

// Transaction groups instructions that execute atomically: either every
// instruction succeeds and all writes land, or none do.
type Transaction struct {
	Message    Message
	Signatures [][]byte
}

// NewTransaction builds an unsigned transaction.
func NewTransaction(nonce uint64, instructions ...Instruction) *Transaction {
	return &Transaction{Message: Message{Nonce: nonce, Instructions: instructions}}
}

// Hash is the keccak256 digest of the RLP-encoded message.
func (tx *Transaction) Hash() ([]byte, error) {
	if len(tx.Message.Instructions) == 0 {
		return nil, ErrEmptyTransaction
	}
	encoded, err := rlp.EncodeToBytes(&tx.Message)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(encoded), nil
}

// Sign appends a signature from each key over the message hash.
func (tx *Transaction) Sign(keys ...*crypto.PrivateKey) error {
	hash, err := tx.Hash()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if key == nil {
			return errors.New("transaction: nil signing key")
		}
		sig, err := key.Sign(hash)
		if err != nil {
			return err
		}
		tx.Signatures = append(tx.Signatures, sig)
	}
	return nil
}

// Signers recovers the set of addresses that signed the transaction.
func (tx *Transaction) Signers() (map[crypto.Address]struct{}, error) {
	hash, err := tx.Hash()
	if err != nil {
		return nil, err
	}
	signers := make(map[crypto.Address]struct{}, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		addr, err := crypto.RecoverAddress(hash, sig)
		if err != nil {
			return nil, fmt.Errorf("signature %d: %w", i, err)
		}
		signers[addr] = struct{}{}
	}
	return signers, nil
}

// Encode returns the RLP wire form.
func (tx *Transaction) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(tx)
}

// DecodeTransaction parses the RLP wire form.
func DecodeTransaction(data []byte) (*Transaction, error) {
	tx := new(Transaction)
	if err := rlp.DecodeBytes(data, tx); err != nil {
		return nil, err
	}
	return tx, nil
}
