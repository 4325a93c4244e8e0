// Package xdr folds the canonical transaction envelope encoding into a
// running digest without ever buffering the whole transaction: each value is
// appended straight into a SHA-256 accumulator in the network's big-endian,
// length-prefixed binary form.
package xdr

import (
	"crypto/sha256"
	"encoding/binary"
	"hash"
)

// Hasher accumulates canonical bytes into a SHA-256 digest and counts how
// many bytes have been consumed. The zero value is not usable; call New.
type Hasher struct {
	h hash.Hash
	n uint32
}

func New() *Hasher {
	return &Hasher{h: sha256.New()}
}

// Bytes appends raw bytes.
func (h *Hasher) Bytes(p []byte) {
	h.h.Write(p)
	h.n += uint32(len(p))
}

// Uint32 appends v most-significant byte first, independent of host order.
func (h *Hasher) Uint32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	h.Bytes(buf[:])
}

// Uint64 appends v most-significant byte first, independent of host order.
func (h *Hasher) Uint64(v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	h.Bytes(buf[:])
}

// Bool appends a 4-byte 1 or 0.
func (h *Hasher) Bool(v bool) {
	if v {
		h.Uint32(1)
	} else {
		h.Uint32(0)
	}
}

// String appends a u32 length prefix followed by the raw bytes. Unlike wire
// XDR the payload is not padded to a 4-byte boundary; this matches the
// device encoding being modeled, not the network envelope.
func (h *Hasher) String(p []byte) {
	h.Uint32(uint32(len(p)))
	h.Bytes(p)
}

// Address appends the account-type discriminant (0, the only type that
// exists) and the 32 raw key bytes.
func (h *Hasher) Address(key *[32]byte) {
	h.Uint32(0)
	h.Bytes(key[:])
}

// Size returns the number of bytes appended so far.
func (h *Hasher) Size() uint32 {
	return h.n
}

// Sum returns the digest of everything appended so far.
func (h *Hasher) Sum() [32]byte {
	var d [32]byte
	copy(d[:], h.h.Sum(nil))
	return d
}
