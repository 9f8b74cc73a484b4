package session

import "fmt"

// SessionError is a connection-level closure reason reported to the peer
// via Conn.CloseWithError, distinct from model.ClosedError which closes
// local producer/consumer state. SPEC_FULL.md §7 names ProtocolViolation
// as the code a decode failure on the control stream must close with.
type SessionError struct {
	Code   uint64
	Reason string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session: %s (code %d)", e.Reason, e.Code)
}

const (
	codeNoError = iota
	codeProtocolViolation
)

// ErrProtocolViolation marks a session torn down because the peer sent a
// control message this side could not decode.
var ErrProtocolViolation = &SessionError{Code: codeProtocolViolation, Reason: "protocol violation"}
