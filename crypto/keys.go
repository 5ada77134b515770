package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the size of a recoverable secp256k1 signature.
const SignatureLength = crypto.SignatureLength

var ErrInvalidSignature = errors.New("crypto: invalid signature")

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address is shorthand for PubKey().Address().
func (k *PrivateKey) Address() Address {
	return k.PubKey().Address()
}

// Sign produces a 65-byte recoverable signature over a 32-byte digest.
func (k *PrivateKey) Sign(digest []byte) ([]byte, error) {
	return crypto.Sign(digest, k.PrivateKey)
}

// Address is the keccak256 hash of the uncompressed public key without its
// 0x04 prefix. The full 32 bytes are kept.
func (k *PublicKey) Address() Address {
	raw := crypto.FromECDSAPub(k.PublicKey)
	return BytesToAddress(crypto.Keccak256(raw[1:]))
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// RecoverAddress returns the address of the key that produced sig over digest.
func RecoverAddress(digest, sig []byte) (Address, error) {
	if len(sig) != SignatureLength {
		return Address{}, ErrInvalidSignature
	}
	pub, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return Address{}, errors.Join(ErrInvalidSignature, err)
	}
	return (&PublicKey{pub}).Address(), nil
}

// Keccak256 is re-exported so callers hash with the same function used for
// addresses.
func Keccak256(data ...[]byte) []byte {
	return crypto.Keccak256(data...)
}
