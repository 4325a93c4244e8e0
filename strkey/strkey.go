// Package strkey implements the Stellar address encoding of raw ed25519
// public keys: a version byte, the 32 key bytes and a CRC16 checksum,
// base32-encoded to a fixed 56-character string that always starts with 'G'.
package strkey

import "encoding/base32"

// Version byte for account IDs. 6<<3 base32-encodes to a leading 'G'.
const versionAccountID byte = 6 << 3

// EncodedLen is the length of an encoded account address.
const EncodedLen = 56

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Checksum returns the CRC16 used by strkey: polynomial 0x1021, initial
// value 0x0000, no reflection. The zero initial value matches the network's
// reference implementation rather than CCITT-FALSE, which seeds with 0xffff.
func Checksum(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		for bit := 0; bit < 8; bit++ {
			in := (b>>(7-bit))&1 == 1
			c15 := crc&0x8000 != 0
			crc <<= 1
			if c15 != in {
				crc ^= 0x1021
			}
		}
	}
	return crc
}

// Encode returns the account address for a raw 32-byte public key.
func Encode(key [32]byte) string {
	var buf [35]byte
	buf[0] = versionAccountID
	copy(buf[1:33], key[:])
	crc := Checksum(buf[:33])
	// Checksum trails the key, little-endian.
	buf[33] = byte(crc)
	buf[34] = byte(crc >> 8)
	return encoding.EncodeToString(buf[:])
}
