// Package stelsignd implements the device side of the chunked Stellar
// transaction signing protocol: a framed request/response channel that
// parses each incoming record and feeds it into the signing session.
package stelsignd

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/stelsign/stelsignd/signing"
)

// Message types carried on the channel.
const (
	MsgSignTx       byte = 0x01
	MsgTxOpAck      byte = 0x02
	MsgGetPublicKey byte = 0x03

	MsgTxRequest byte = 0x81
	MsgSignedTx  byte = 0x82
	MsgPublicKey byte = 0x83
	MsgFailure   byte = 0x7f
)

// Failure codes reported to the host.
const (
	FailureUnexpectedMessage uint32 = 1
	FailureActionCancelled   uint32 = 2
	FailureDerivation        uint32 = 3
	FailureProcessError      uint32 = 4
)

// Operation discriminants on the wire, matching the envelope encoding.
const (
	opCreateAccount uint32 = 0
	opPayment       uint32 = 1
)

// Transactions arrive in chunks of at most 1024 bytes, so any frame well
// past that is not legal.
const maxFrameLen = 4096

const maxPassphraseLen = 1024

var errMalformed = errors.New("stelsignd: malformed message")

// readFrame reads one "type | u32 length | payload" frame.
func readFrame(r io.Reader) (byte, []byte, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, err
	}
	n := binary.BigEndian.Uint32(hdr[1:])
	if n > maxFrameLen {
		return 0, nil, fmt.Errorf("%w: frame of %d bytes", errMalformed, n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, err
	}
	return hdr[0], payload, nil
}

func writeFrame(w io.Writer, typ byte, payload []byte) error {
	buf := make([]byte, 5, 5+len(payload))
	buf[0] = typ
	binary.BigEndian.PutUint32(buf[1:], uint32(len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// readString reads a u32 length-prefixed byte string.
func readString(r *bytes.Reader, max uint32) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, errMalformed
	}
	if n > max {
		return nil, fmt.Errorf("%w: string of %d bytes", errMalformed, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errMalformed
	}
	return buf, nil
}

// parseSignTx decodes the transaction header record.
func parseSignTx(p []byte) (*signing.TxHeader, error) {
	r := bytes.NewReader(p)

	pass, err := readString(r, maxPassphraseLen)
	if err != nil {
		return nil, err
	}
	var fixed struct {
		AccountIndex    uint32
		Fee             uint32
		SequenceNumber  uint64
		TimeboundsStart uint32
		TimeboundsEnd   uint32
		MemoType        uint32
	}
	if err := binary.Read(r, binary.BigEndian, &fixed); err != nil {
		return nil, errMalformed
	}

	h := &signing.TxHeader{
		NetworkPassphrase: string(pass),
		AccountIndex:      fixed.AccountIndex,
		Fee:               fixed.Fee,
		SequenceNumber:    fixed.SequenceNumber,
		TimeboundsStart:   fixed.TimeboundsStart,
		TimeboundsEnd:     fixed.TimeboundsEnd,
		Memo:              signing.Memo{Type: signing.MemoType(fixed.MemoType)},
	}
	switch h.Memo.Type {
	case signing.MemoNone:
	case signing.MemoText:
		if h.Memo.Text, err = readString(r, signing.MemoTextMaxLen); err != nil {
			return nil, err
		}
	case signing.MemoID:
		if err := binary.Read(r, binary.BigEndian, &h.Memo.ID); err != nil {
			return nil, errMalformed
		}
	case signing.MemoHash, signing.MemoReturn:
		if _, err := io.ReadFull(r, h.Memo.Hash[:]); err != nil {
			return nil, errMalformed
		}
	default:
		return nil, fmt.Errorf("%w: memo type %d", errMalformed, fixed.MemoType)
	}

	if err := binary.Read(r, binary.BigEndian, &h.NumOperations); err != nil {
		return nil, errMalformed
	}
	if h.NumOperations == 0 {
		return nil, fmt.Errorf("%w: transaction declares no operations", errMalformed)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errMalformed, r.Len())
	}
	return h, nil
}

// parseOperation decodes one operation record into its typed form. Unknown
// discriminants are rejected here so they can never reach the hash.
func parseOperation(p []byte) (signing.Operation, error) {
	r := bytes.NewReader(p)

	var source *[32]byte
	flag, err := r.ReadByte()
	if err != nil {
		return nil, errMalformed
	}
	switch flag {
	case 0:
	case 1:
		var src [32]byte
		if _, err := io.ReadFull(r, src[:]); err != nil {
			return nil, errMalformed
		}
		source = &src
	default:
		return nil, fmt.Errorf("%w: source flag %d", errMalformed, flag)
	}

	var opType uint32
	if err := binary.Read(r, binary.BigEndian, &opType); err != nil {
		return nil, errMalformed
	}

	var op signing.Operation
	switch opType {
	case opCreateAccount:
		var rec struct {
			Destination     [32]byte
			StartingBalance uint64
		}
		if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
			return nil, errMalformed
		}
		op = &signing.CreateAccount{
			Source:          source,
			Destination:     rec.Destination,
			StartingBalance: rec.StartingBalance,
		}

	case opPayment:
		pay := &signing.Payment{Source: source}
		if _, err := io.ReadFull(r, pay.Destination[:]); err != nil {
			return nil, errMalformed
		}
		var assetType uint32
		if err := binary.Read(r, binary.BigEndian, &assetType); err != nil {
			return nil, errMalformed
		}
		pay.Asset.Type = signing.AssetType(assetType)
		switch pay.Asset.Type {
		case signing.AssetNative:
		case signing.AssetAlphaNum4, signing.AssetAlphaNum12:
			code := make([]byte, 4)
			if pay.Asset.Type == signing.AssetAlphaNum12 {
				code = make([]byte, 12)
			}
			if _, err := io.ReadFull(r, code); err != nil {
				return nil, errMalformed
			}
			pay.Asset.Code = string(bytes.TrimRight(code, "\x00"))
			if _, err := io.ReadFull(r, pay.Asset.Issuer[:]); err != nil {
				return nil, errMalformed
			}
		default:
			return nil, fmt.Errorf("%w: asset type %d", errMalformed, assetType)
		}
		if err := binary.Read(r, binary.BigEndian, &pay.Amount); err != nil {
			return nil, errMalformed
		}
		op = pay

	default:
		return nil, fmt.Errorf("%w: operation type %d", errMalformed, opType)
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", errMalformed, r.Len())
	}
	return op, nil
}

func parseGetPublicKey(p []byte) (uint32, error) {
	if len(p) != 4 {
		return 0, errMalformed
	}
	return binary.BigEndian.Uint32(p), nil
}
