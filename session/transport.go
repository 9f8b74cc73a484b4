// Package session implements the per-connection MoQ session: handshake,
// control-stream read/write loop, subscription bookkeeping, and
// group-stream framing/dispatch, per SPEC_FULL.md §4.4.
//
// Grounded on original_source/src/app/session.rs and
// moq-relay/src/session.rs for the handshake-then-spawn-loops shape, and
// on other_examples' prism moq_session.go.go for the Go realization
// (buffered control reader, mutex-guarded writes, atomic counters,
// context-scoped per-subscription goroutines).
package session

import (
	"context"
	"io"
	"net"
)

// StreamErrorCode is an application-defined QUIC stream error/reset code.
type StreamErrorCode uint64

// SendStream is the write half of a stream, with QUIC-style abrupt reset.
type SendStream interface {
	io.Writer
	io.Closer
	CancelWrite(StreamErrorCode)
}

// ReceiveStream is the read half of a stream, with QUIC-style abrupt reset.
type ReceiveStream interface {
	io.Reader
	CancelRead(StreamErrorCode)
}

// Stream is a bidirectional stream (the control stream).
type Stream interface {
	SendStream
	ReceiveStream
}

// Conn is the transport connection a Session runs over: one bidirectional
// control stream plus any number of unidirectional group streams. Two
// concrete adapters satisfy this in package transport: native QUIC
// (quic-go) and WebTransport (quic-go/webtransport-go).
type Conn interface {
	OpenStream() (Stream, error)
	OpenStreamSync(ctx context.Context) (Stream, error)
	AcceptStream(ctx context.Context) (Stream, error)

	OpenUniStream() (SendStream, error)
	OpenUniStreamSync(ctx context.Context) (SendStream, error)
	AcceptUniStream(ctx context.Context) (ReceiveStream, error)

	CloseWithError(code uint64, msg string) error

	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Context() context.Context
}
