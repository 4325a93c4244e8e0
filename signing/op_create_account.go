package signing

import "github.com/stelsign/stelsignd/xdr"

// Operation is one confirmable unit of a transaction. Each kind carries
// only its own fields and knows how to summarize itself for the holder and
// how to append its canonical bytes. Dispatch is a method call, so a record
// of no known kind can never reach the hash.
type Operation interface {
	sourceAccount() *[32]byte
	opType() uint32
	confirm(s *Session) bool
	encode(h *xdr.Hasher)
}

// Operation type discriminants of the envelope format.
const (
	opTypeCreateAccount uint32 = 0
	opTypePayment       uint32 = 1
)

// CreateAccount funds a new account with a starting balance.
type CreateAccount struct {
	Source          *[32]byte
	Destination     [32]byte
	StartingBalance uint64
}

func (op *CreateAccount) sourceAccount() *[32]byte { return op.Source }

func (op *CreateAccount) opType() uint32 { return opTypeCreateAccount }

func (op *CreateAccount) confirm(s *Session) bool {
	rows := LineBreakAddress(op.Destination)
	return s.confirm(&Prompt{
		Title: "Create account: ",
		Lines: []string{
			rows[0], rows[1], rows[2],
			"With " + FormatStroops(op.StartingBalance) + " XLM",
		},
	})
}

func (op *CreateAccount) encode(h *xdr.Hasher) {
	h.Address(&op.Destination)
	h.Uint64(op.StartingBalance)
}
