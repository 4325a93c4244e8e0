package signing

import (
	"github.com/stelsign/stelsignd/strkey"
	"github.com/stelsign/stelsignd/xdr"
)

type AssetType uint32

const (
	AssetNative AssetType = iota
	AssetAlphaNum4
	AssetAlphaNum12
)

// Asset identifies what is being paid: the native asset, or a custom asset
// code together with its issuing account.
type Asset struct {
	Type   AssetType
	Code   string
	Issuer [32]byte
}

// codeBytes returns the asset code zero-padded to the fixed width of the
// variant, which is how it is encoded in the envelope.
func (a *Asset) codeBytes() []byte {
	n := 4
	if a.Type == AssetAlphaNum12 {
		n = 12
	}
	buf := make([]byte, n)
	copy(buf, a.Code)
	return buf
}

// describe returns the display row for the asset: the native label, or the
// code followed by a truncated issuer prefix such as "USD (GABCD)".
func (a *Asset) describe() string {
	if a.Type == AssetNative {
		return "XLM (native asset)"
	}
	issuer := strkey.Encode(a.Issuer)
	return a.Code + " (" + issuer[:5] + ")"
}

// Payment sends an amount of an asset to a destination account.
type Payment struct {
	Source      *[32]byte
	Destination [32]byte
	Asset       Asset
	Amount      uint64
}

func (op *Payment) sourceAccount() *[32]byte { return op.Source }

func (op *Payment) opType() uint32 { return opTypePayment }

func (op *Payment) confirm(s *Session) bool {
	rows := LineBreakAddress(op.Destination)
	return s.confirm(&Prompt{
		Title: "Pay " + FormatStroops(op.Amount),
		Lines: []string{op.Asset.describe(), "To: " + rows[0], rows[1], rows[2]},
	})
}

func (op *Payment) encode(h *xdr.Hasher) {
	h.Address(&op.Destination)
	// The native asset is a bare type tag; custom assets encode the
	// fixed-width code and the issuer.
	if op.Asset.Type == AssetNative {
		h.Uint32(uint32(AssetNative))
	} else {
		h.Bytes(op.Asset.codeBytes())
		h.Bytes(op.Asset.Issuer[:])
	}
	h.Uint64(op.Amount)
}
