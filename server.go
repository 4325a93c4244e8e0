package stelsignd

import (
	"encoding/binary"
	"errors"
	"io"
	"net"

	"github.com/btcsuite/btclog"

	"github.com/stelsign/stelsignd/keys"
	"github.com/stelsign/stelsignd/signing"
	"github.com/stelsign/stelsignd/strkey"
)

// Server exposes the signing device over a framed stream channel. The
// protocol is strictly synchronous, so hosts are served one connection at a
// time and a connection carries at most one signing session at once.
type Server struct {
	Addr   string
	Keys   *keys.KeyRing
	Dialog signing.Dialog
	Log    btclog.Logger
}

func (s *Server) Start() error {
	if s.Log == nil {
		s.Log = btclog.Disabled
	}
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.Log.Infof("Listening on %s", lis.Addr())
	for {
		conn, err := lis.Accept()
		if err != nil {
			return err
		}
		s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer conn.Close()

	session := signing.NewSession(s.Keys, s.Dialog, s.Log)
	defer session.Reset()

	for {
		typ, payload, err := readFrame(conn)
		if err != nil {
			if err != io.EOF {
				s.Log.Errorf("Failed to read frame: %v", err)
			}
			return
		}
		if err := s.handle(conn, session, typ, payload); err != nil {
			s.Log.Errorf("Failed to respond: %v", err)
			return
		}
	}
}

// handle processes one request frame and writes exactly one response frame.
// A returned error means the channel itself failed; protocol-level failures
// are reported to the host and keep the connection open.
func (s *Server) handle(conn net.Conn, session *signing.Session, typ byte, payload []byte) error {
	switch typ {
	case MsgSignTx:
		header, err := parseSignTx(payload)
		if err != nil {
			// The host meant to restart; the session this header was
			// replacing must not outlive it.
			session.Reset()
			return s.sendFailure(conn, FailureProcessError, err)
		}
		if err := session.Init(header); err != nil {
			return s.sendFailure(conn, failureCode(err), err)
		}
		return s.sendTxRequest(conn, session.Offset())

	case MsgTxOpAck:
		op, err := parseOperation(payload)
		if err != nil {
			// A record the device cannot parse must never be hashed;
			// the whole session is torn down.
			session.Reset()
			return s.sendFailure(conn, FailureProcessError, err)
		}
		if err := session.AddOperation(op); err != nil {
			return s.sendFailure(conn, failureCode(err), err)
		}
		if !session.IsComplete() {
			return s.sendTxRequest(conn, session.Offset())
		}
		sig, err := session.Finalize()
		if err != nil {
			return s.sendFailure(conn, failureCode(err), err)
		}
		account := session.AccountID()
		session.Reset()
		return writeFrame(conn, MsgSignedTx, append(account[:], sig[:]...))

	case MsgGetPublicKey:
		index, err := parseGetPublicKey(payload)
		if err != nil {
			return s.sendFailure(conn, FailureProcessError, err)
		}
		pub, err := s.Keys.PublicKey(index)
		if err != nil {
			return s.sendFailure(conn, failureCode(err), err)
		}
		if !s.confirmShare(index, pub) {
			return s.sendFailure(conn, FailureActionCancelled, signing.ErrActionCancelled)
		}
		return writeFrame(conn, MsgPublicKey, pub[:])

	default:
		return s.sendFailure(conn, FailureUnexpectedMessage,
			errors.New("stelsignd: unknown message type"))
	}
}

// confirmShare asks the holder whether the account's public address may be
// shared with the host.
func (s *Server) confirmShare(index uint32, pub [32]byte) bool {
	rows := signing.LineBreakAddress(pub)
	return s.Dialog.Confirm(&signing.Prompt{
		Title:         "Share public account ID?",
		Lines:         rows[:],
		SignerAddress: strkey.Encode(pub),
		AccountIndex:  index,
	})
}

func (s *Server) sendTxRequest(conn net.Conn, offset uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], offset)
	return writeFrame(conn, MsgTxRequest, buf[:])
}

func (s *Server) sendFailure(conn net.Conn, code uint32, cause error) error {
	s.Log.Warnf("Request failed (code %d): %v", code, cause)
	payload := make([]byte, 4, 4+len(cause.Error()))
	binary.BigEndian.PutUint32(payload, code)
	payload = append(payload, cause.Error()...)
	return writeFrame(conn, MsgFailure, payload)
}

// failureCode maps session and key errors onto wire failure codes.
func failureCode(err error) uint32 {
	switch {
	case errors.Is(err, signing.ErrUnexpectedMessage):
		return FailureUnexpectedMessage
	case errors.Is(err, signing.ErrActionCancelled):
		return FailureActionCancelled
	case errors.Is(err, keys.ErrNotInitialized),
		errors.Is(err, keys.ErrPassphraseCancelled),
		errors.Is(err, keys.ErrUnsupportedCurve),
		errors.Is(err, keys.ErrDerivationFailed):
		return FailureDerivation
	}
	return FailureProcessError
}
