package signing

import "fmt"

// NetworkType classifies the network a transaction is destined for. It only
// drives warnings on the confirmation prompts; it never affects hashing.
type NetworkType uint32

const (
	NetworkPublic NetworkType = iota + 1
	NetworkTestnet
	NetworkPrivate
)

// Well-known network passphrases. Anything else classifies as private.
const (
	passphrasePublic  = "Public Global Stellar Network ; September 2015"
	passphraseTestnet = "Test SDF Network ; September 2015"
)

// Prompt is one confirmation screen: a title, a few detail lines, and the
// signing context the dialog shows on every screen.
type Prompt struct {
	Title         string
	Lines         []string
	SignerAddress string
	AccountIndex  uint32
	Network       NetworkType
}

// Header returns the identity line shown on every prompt, such as
// "Signing with #1 (GDRXE)". Account numbering is 1-based for the holder.
func (p *Prompt) Header() string {
	addr := p.SignerAddress
	if len(addr) > 5 {
		addr = addr[:5]
	}
	return fmt.Sprintf("Signing with #%d (%s)", p.AccountIndex+1, addr)
}

// Warning returns the warning tag for non-public networks, or "".
func (p *Prompt) Warning() string {
	switch p.Network {
	case NetworkTestnet:
		return "WRN:TN"
	case NetworkPrivate:
		return "WRN:PN"
	}
	return ""
}

// Dialog is the device's confirmation UI: it presents a prompt and blocks
// until the holder accepts or rejects it. Rejection is the only cancellation
// path in the protocol.
type Dialog interface {
	Confirm(p *Prompt) bool
}
