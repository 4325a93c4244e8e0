// Package keys derives the device's ed25519 account keys from the holder's
// seed and produces detached signatures over transaction digests.
//
// Accounts live at the hardened path m/44'/148'/index'. Derivation follows
// SLIP-0010 for ed25519: an HMAC-SHA512 chain seeded with "ed25519 seed",
// where every step must be hardened.
package keys

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/crypto/pbkdf2"
)

// Typed failures of the root-key provider. Any of these aborts the signing
// session; there is never a fallback key.
var (
	ErrNotInitialized      = errors.New("keys: device not initialized")
	ErrPassphraseCancelled = errors.New("keys: passphrase request cancelled")
	ErrUnsupportedCurve    = errors.New("keys: unsupported curve")
	ErrDerivationFailed    = errors.New("keys: key derivation failed")
)

// SeedProvider hands out the root seed. Implementations may prompt the
// holder for a passphrase or refuse entirely.
type SeedProvider interface {
	Seed() ([]byte, error)
}

// MnemonicSeed derives the BIP-39 seed from a mnemonic sentence with an
// optional passphrase.
type MnemonicSeed struct {
	Mnemonic   string
	Passphrase string
}

func (m *MnemonicSeed) Seed() ([]byte, error) {
	if m.Mnemonic == "" {
		return nil, ErrNotInitialized
	}
	salt := []byte("mnemonic" + m.Passphrase)
	return pbkdf2.Key([]byte(m.Mnemonic), salt, 2048, 64, sha512.New), nil
}

const hardened = 0x80000000

// Path returns the hardened derivation path m/44'/148'/index'.
func Path(index uint32) accounts.DerivationPath {
	return accounts.DerivationPath{hardened | 44, hardened | 148, hardened | index}
}

const pubKeyCacheSize = 16

// KeyRing derives account keys on demand. Public keys are cached by account
// index; private keys live only for the duration of a single call.
type KeyRing struct {
	seed  SeedProvider
	cache *lru.Cache[uint32, [32]byte]
}

func NewKeyRing(seed SeedProvider) *KeyRing {
	cache, _ := lru.New[uint32, [32]byte](pubKeyCacheSize)
	return &KeyRing{seed: seed, cache: cache}
}

// derive runs the SLIP-0010 chain over path and returns the 32-byte ed25519
// private key seed. The root seed and every chain node, including the final
// block whose upper half holds the sibling chain code, are scrubbed before
// returning.
func (k *KeyRing) derive(path accounts.DerivationPath) ([]byte, error) {
	seed, err := k.seed.Seed()
	if err != nil {
		return nil, err
	}
	defer zero(seed)

	mac := hmac.New(sha512.New, []byte("ed25519 seed"))
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chain := sum[:32], sum[32:]

	for _, n := range path {
		if n&hardened == 0 {
			zero(sum)
			return nil, fmt.Errorf("%w: non-hardened step %d in %s", ErrDerivationFailed, n, path)
		}
		var idx [4]byte
		binary.BigEndian.PutUint32(idx[:], n)
		mac = hmac.New(sha512.New, chain)
		mac.Write([]byte{0})
		mac.Write(key)
		mac.Write(idx[:])
		zero(sum)
		sum = mac.Sum(nil)
		key, chain = sum[:32], sum[32:]
	}

	// key aliases sum, so it must be copied out before the block is zeroed.
	out := make([]byte, 32)
	copy(out, key)
	zero(sum)
	return out, nil
}

// PublicKey returns the raw 32-byte public key of the account at index.
func (k *KeyRing) PublicKey(index uint32) ([32]byte, error) {
	if pub, ok := k.cache.Get(index); ok {
		return pub, nil
	}
	var pub [32]byte
	key, err := k.derive(Path(index))
	if err != nil {
		return pub, err
	}
	priv := ed25519.NewKeyFromSeed(key)
	zero(key)
	copy(pub[:], priv[32:])
	zero(priv)
	k.cache.Add(index, pub)
	return pub, nil
}

// Sign produces a 64-byte detached signature over an already-final 32-byte
// digest with the key at index. Nothing is hashed here; callers own the
// digest. The derived private key is scrubbed before returning.
func (k *KeyRing) Sign(index uint32, digest [32]byte) (sig [64]byte, err error) {
	key, err := k.derive(Path(index))
	if err != nil {
		return sig, err
	}
	priv := ed25519.NewKeyFromSeed(key)
	zero(key)
	defer zero(priv)
	copy(sig[:], ed25519.Sign(priv, digest[:]))
	return sig, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
