package transport

import (
	"context"
	"net"
	"net/http"

	quicgo "github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	webtransport "github.com/quic-go/webtransport-go"

	"github.com/moqtransfork/moqrelay/session"
)

// NewWebTransportServer builds a webtransport.Server with its H3 field
// explicitly configured. webtransport.Server's zero value leaves H3 nil,
// which panics the first time a QUIC connection is served; constructing
// it this way (rather than leaving it to a caller's zero-value literal)
// avoids that pitfall entirely.
func NewWebTransportServer(checkOrigin func(*http.Request) bool) *webtransport.Server {
	h3 := &http3.Server{Handler: http.DefaultServeMux}
	webtransport.ConfigureHTTP3Server(h3)
	return &webtransport.Server{H3: h3, CheckOrigin: checkOrigin}
}

// UpgradeWebTransport upgrades an HTTP/3 request to a WebTransport
// session and adapts it to session.Conn.
func UpgradeWebTransport(srv *webtransport.Server, w http.ResponseWriter, r *http.Request) (session.Conn, error) {
	sess, err := srv.Upgrade(w, r)
	if err != nil {
		return nil, err
	}
	return &wtConn{sess: sess}, nil
}

// ServeQUICConn hands an already-accepted QUIC connection to srv, for
// deployments that terminate QUIC themselves and multiplex HTTP/3 and
// raw QUIC-MoQ on the same UDP socket.
func ServeQUICConn(srv *webtransport.Server, conn *quicgo.Conn) error {
	return srv.ServeQUICConn(conn)
}

type wtConn struct {
	sess *webtransport.Session
}

func (c *wtConn) OpenStream() (session.Stream, error) {
	s, err := c.sess.OpenStream()
	if err != nil {
		return nil, err
	}
	return &wtStream{stream: s}, nil
}

func (c *wtConn) OpenStreamSync(ctx context.Context) (session.Stream, error) {
	s, err := c.sess.OpenStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &wtStream{stream: s}, nil
}

func (c *wtConn) AcceptStream(ctx context.Context) (session.Stream, error) {
	s, err := c.sess.AcceptStream(ctx)
	if err != nil {
		return nil, err
	}
	return &wtStream{stream: s}, nil
}

func (c *wtConn) OpenUniStream() (session.SendStream, error) {
	s, err := c.sess.OpenUniStream()
	if err != nil {
		return nil, err
	}
	return &wtSendStream{stream: s}, nil
}

func (c *wtConn) OpenUniStreamSync(ctx context.Context) (session.SendStream, error) {
	s, err := c.sess.OpenUniStreamSync(ctx)
	if err != nil {
		return nil, err
	}
	return &wtSendStream{stream: s}, nil
}

func (c *wtConn) AcceptUniStream(ctx context.Context) (session.ReceiveStream, error) {
	s, err := c.sess.AcceptUniStream(ctx)
	if err != nil {
		return nil, err
	}
	return &wtRecvStream{stream: s}, nil
}

func (c *wtConn) CloseWithError(code uint64, msg string) error {
	return c.sess.CloseWithError(webtransport.SessionErrorCode(code), msg)
}

func (c *wtConn) LocalAddr() net.Addr      { return c.sess.LocalAddr() }
func (c *wtConn) RemoteAddr() net.Addr     { return c.sess.RemoteAddr() }
func (c *wtConn) Context() context.Context { return c.sess.Context() }

type wtStream struct {
	stream *webtransport.Stream
}

func (s *wtStream) Read(b []byte) (int, error)  { return s.stream.Read(b) }
func (s *wtStream) Write(b []byte) (int, error) { return s.stream.Write(b) }
func (s *wtStream) Close() error                { return s.stream.Close() }
func (s *wtStream) CancelRead(c session.StreamErrorCode) {
	s.stream.CancelRead(webtransport.StreamErrorCode(c))
}
func (s *wtStream) CancelWrite(c session.StreamErrorCode) {
	s.stream.CancelWrite(webtransport.StreamErrorCode(c))
}

type wtSendStream struct {
	stream *webtransport.SendStream
}

func (s *wtSendStream) Write(b []byte) (int, error) { return s.stream.Write(b) }
func (s *wtSendStream) Close() error                { return s.stream.Close() }
func (s *wtSendStream) CancelWrite(c session.StreamErrorCode) {
	s.stream.CancelWrite(webtransport.StreamErrorCode(c))
}

type wtRecvStream struct {
	stream *webtransport.ReceiveStream
}

func (s *wtRecvStream) Read(b []byte) (int, error) { return s.stream.Read(b) }
func (s *wtRecvStream) CancelRead(c session.StreamErrorCode) {
	s.stream.CancelRead(webtransport.StreamErrorCode(c))
}
