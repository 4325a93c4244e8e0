// Package signing implements the device's multi-message transaction signing
// flow. A transaction arrives as a header followed by one record per
// operation; the holder confirms each unit on the device, and every
// confirmed byte is folded into a running envelope hash. Once all declared
// operations are confirmed, the accumulated digest is signed with the
// account key derived on the device.
package signing

import (
	"crypto/sha256"
	"errors"
	"strconv"

	"github.com/btcsuite/btclog"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/stelsign/stelsignd/keys"
	"github.com/stelsign/stelsignd/strkey"
	"github.com/stelsign/stelsignd/xdr"
)

var (
	// ErrUnexpectedMessage reports an operation record with no transaction
	// in progress. The session stays idle; the host must restart with a
	// header.
	ErrUnexpectedMessage = errors.New("signing: no transaction in progress")

	// ErrActionCancelled reports a rejection by the holder. It aborts the
	// whole session, never a single operation.
	ErrActionCancelled = errors.New("signing: cancelled by user")
)

// Envelope discriminant for a transaction.
const txTypeTag = 2

type MemoType uint32

const (
	MemoNone MemoType = iota
	MemoText
	MemoID
	MemoHash
	MemoReturn
)

// MemoTextMaxLen bounds memo text. Longer input is truncated before it is
// either displayed or hashed, so both always see the same bytes.
const MemoTextMaxLen = 28

type Memo struct {
	Type MemoType
	Text []byte
	ID   uint64
	Hash [32]byte
}

// TxHeader is the parsed first record of a transaction.
type TxHeader struct {
	NetworkPassphrase string
	AccountIndex      uint32
	Fee               uint32
	SequenceNumber    uint64
	TimeboundsStart   uint32
	TimeboundsEnd     uint32
	Memo              Memo
	NumOperations     uint32
}

// activeTx is the per-session transaction context. It is zeroed at the
// start and end of every session so nothing leaks across transactions.
type activeTx struct {
	accountID           [32]byte
	accountIndex        uint32
	network             NetworkType
	memoType            MemoType
	numOperations       uint32
	confirmedOperations uint32
	hash                *xdr.Hasher
}

// Session drives one signing flow from header to signature. It is strictly
// synchronous and not safe for concurrent use; the channel protocol is
// request/response with a single session at a time.
type Session struct {
	keys    *keys.KeyRing
	dialog  Dialog
	log     btclog.Logger
	signing bool
	tx      activeTx
}

func NewSession(ring *keys.KeyRing, dialog Dialog, log btclog.Logger) *Session {
	if log == nil {
		log = btclog.Disabled
	}
	return &Session{keys: ring, dialog: dialog, log: log}
}

// Init opens a new session from a parsed header, discarding any session
// already in progress (a second header is always an intentional restart on
// this synchronous channel). The holder confirms the transaction summary,
// the memo, and the timebounds if present; afterwards the header fields are
// folded into the envelope hash in canonical order.
func (s *Session) Init(h *TxHeader) error {
	s.tx = activeTx{hash: xdr.New()}
	s.signing = true

	passHash := sha256.Sum256([]byte(h.NetworkPassphrase))
	switch h.NetworkPassphrase {
	case passphrasePublic:
		s.tx.network = NetworkPublic
	case passphraseTestnet:
		s.tx.network = NetworkTestnet
	default:
		s.tx.network = NetworkPrivate
	}

	// The device derives the signing key itself; a key supplied by the
	// host is never trusted.
	pub, err := s.keys.PublicKey(h.AccountIndex)
	if err != nil {
		s.Reset()
		return err
	}
	s.tx.accountID = pub
	s.tx.accountIndex = h.AccountIndex
	s.tx.memoType = h.Memo.Type
	s.tx.numOperations = h.NumOperations

	memoText := h.Memo.Text
	if len(memoText) > MemoTextMaxLen {
		memoText = memoText[:MemoTextMaxLen]
	}

	if !s.confirmHeader(h, memoText) {
		s.Abort()
		return ErrActionCancelled
	}

	s.tx.hash.Bytes(passHash[:])
	s.tx.hash.Uint32(txTypeTag)
	s.tx.hash.Address(&s.tx.accountID)
	s.tx.hash.Uint32(h.Fee)
	s.tx.hash.Uint64(h.SequenceNumber)
	if h.TimeboundsStart > 0 || h.TimeboundsEnd > 0 {
		s.tx.hash.Bool(true)
		// Timebounds travel as u32, all the display can show, but the
		// envelope encodes them as u64.
		s.tx.hash.Uint64(uint64(h.TimeboundsStart))
		s.tx.hash.Uint64(uint64(h.TimeboundsEnd))
	} else {
		s.tx.hash.Bool(false)
	}
	s.tx.hash.Uint32(uint32(h.Memo.Type))
	switch h.Memo.Type {
	case MemoNone:
	case MemoText:
		s.tx.hash.String(memoText)
	case MemoID:
		s.tx.hash.Uint64(h.Memo.ID)
	case MemoHash, MemoReturn:
		s.tx.hash.Bytes(h.Memo.Hash[:])
	}
	s.tx.hash.Uint32(h.NumOperations)

	s.log.Debugf("Signing session opened: account #%d, %d operation(s)",
		h.AccountIndex+1, h.NumOperations)
	return nil
}

func (s *Session) confirmHeader(h *TxHeader, memoText []byte) bool {
	rows := LineBreakAddress(s.tx.accountID)

	opsWord := "ops"
	if h.NumOperations == 1 {
		opsWord = "op"
	}
	title := "Fee: " + FormatStroops(uint64(h.Fee)) + " XLM (" +
		strconv.FormatUint(uint64(h.NumOperations), 10) + " " + opsWord + ")"
	if !s.confirm(&Prompt{
		Title: title,
		Lines: []string{"Signing with:", rows[0], rows[1], rows[2]},
	}) {
		return false
	}

	var memoLines []string
	switch h.Memo.Type {
	case MemoNone:
		memoLines = []string{"[No Memo]"}
	case MemoText:
		memoLines = []string{"Memo (TEXT)", string(memoText)}
	case MemoID:
		memoLines = []string{"Memo (ID)", strconv.FormatUint(h.Memo.ID, 10)}
	case MemoHash:
		memoLines = memoHashLines("Memo (HASH)", h.Memo.Hash)
	case MemoReturn:
		memoLines = memoHashLines("Memo (RETURN)", h.Memo.Hash)
	}
	if !s.confirm(&Prompt{Title: memoLines[0], Lines: memoLines[1:]}) {
		return false
	}

	if h.TimeboundsStart > 0 || h.TimeboundsEnd > 0 {
		if !s.confirm(&Prompt{
			Title: "Confirm Time Bounds",
			Lines: []string{
				"Valid from:", formatTimebound(h.TimeboundsStart),
				"Valid to:", formatTimebound(h.TimeboundsEnd),
			},
		}) {
			return false
		}
	}
	return true
}

func memoHashLines(title string, hash [32]byte) []string {
	return []string{title, hexutil.Encode(hash[:16]), hexutil.Encode(hash[16:])}
}

// confirm fills in the signing context and blocks on the dialog.
func (s *Session) confirm(p *Prompt) bool {
	p.SignerAddress = strkey.Encode(s.tx.accountID)
	p.AccountIndex = s.tx.accountIndex
	p.Network = s.tx.network
	return s.dialog.Confirm(p)
}

// AddOperation confirms the next operation with the holder and folds it
// into the envelope hash. The canonical bytes are appended only after every
// dialog the operation produces has been accepted, so a rejected operation
// leaves the digest exactly as the previous operation left it.
func (s *Session) AddOperation(op Operation) error {
	if !s.signing {
		return ErrUnexpectedMessage
	}
	if s.tx.confirmedOperations >= s.tx.numOperations {
		// More records than the header declared.
		s.Abort()
		return ErrUnexpectedMessage
	}

	src := op.sourceAccount()
	if src != nil {
		rows := LineBreakAddress(*src)
		if !s.confirm(&Prompt{Title: "Op src account OK?", Lines: rows[:]}) {
			s.Abort()
			return ErrActionCancelled
		}
	}
	if !op.confirm(s) {
		s.Abort()
		return ErrActionCancelled
	}

	// Holder accepted: append the operation in canonical order.
	if src != nil {
		s.tx.hash.Bool(true)
		s.tx.hash.Address(src)
	} else {
		s.tx.hash.Bool(false)
	}
	s.tx.hash.Uint32(op.opType())
	op.encode(s.tx.hash)
	s.tx.confirmedOperations++

	// The reserved-extension trailer follows the final operation's bytes,
	// exactly once, before any signature can be produced.
	if s.IsComplete() {
		s.tx.hash.Uint32(0)
	}
	return nil
}

// IsComplete reports whether every declared operation has been confirmed.
func (s *Session) IsComplete() bool {
	return s.signing && s.tx.confirmedOperations == s.tx.numOperations
}

// Offset reports the canonical-stream position the next chunk must start
// at: the number of bytes hashed so far.
func (s *Session) Offset() uint32 {
	if !s.signing {
		return 0
	}
	return s.tx.hash.Size()
}

// AccountID returns the public key the session signs with.
func (s *Session) AccountID() [32]byte {
	return s.tx.accountID
}

// Finalize signs the accumulated digest and returns the 64-byte detached
// signature. It is valid only once the session is complete and does not
// reset the session; the caller decides when to return to idle.
func (s *Session) Finalize() ([64]byte, error) {
	var sig [64]byte
	if !s.IsComplete() {
		return sig, ErrUnexpectedMessage
	}
	digest := s.tx.hash.Sum()
	sig, err := s.keys.Sign(s.tx.accountIndex, digest)
	if err != nil {
		s.Reset()
		return sig, err
	}
	s.log.Infof("Transaction %x signed with account #%d", digest, s.tx.accountIndex+1)
	return sig, nil
}

// Abort cancels the session after a rejection and clears all transaction
// state, including the partial hash.
func (s *Session) Abort() {
	s.log.Infof("Signing session aborted")
	s.Reset()
}

// Reset quietly returns the session to idle, zeroing the transaction
// context.
func (s *Session) Reset() {
	s.signing = false
	s.tx = activeTx{}
}
