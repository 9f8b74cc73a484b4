package relay

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	quicgo "github.com/quic-go/quic-go"
	webtransport "github.com/quic-go/webtransport-go"

	"github.com/moqtransfork/moqrelay/message"
	"github.com/moqtransfork/moqrelay/originclient"
	"github.com/moqtransfork/moqrelay/relay/health"
	"github.com/moqtransfork/moqrelay/router"
	"github.com/moqtransfork/moqrelay/session"
	"github.com/moqtransfork/moqrelay/transport"
)

// Server listens for MoQ sessions over native QUIC and WebTransport and
// relays announcements and subscriptions between them through a shared
// Router.
type Server struct {
	Addr       string
	TLSConfig  *tls.Config
	QUICConfig *quicgo.Config
	Config     *Config

	// CheckHTTPOrigin validates the Origin header of an incoming
	// WebTransport CONNECT request. Passed straight through to the
	// underlying webtransport.Server; has no effect on native-QUIC
	// connections, which never carry an HTTP origin.
	CheckHTTPOrigin func(r *http.Request) bool

	Router *router.Router
	Origin *originclient.Client

	// Health, if set before ListenAndServe, is used instead of a
	// freshly constructed one. Useful for tests that want to observe
	// connection counts.
	Health *health.StatusHandler

	quicListener *transport.QUICListener

	wtMu               sync.Mutex
	webtransportServer *webtransport.Server

	initOnce sync.Once
}

func (s *Server) init() {
	s.initOnce.Do(func() {
		if s.Config == nil {
			s.Config = &Config{}
		}
		if s.TLSConfig == nil {
			panic("relay: Server.TLSConfig is required")
		}
		if s.Router == nil {
			s.Router = router.New()
		}
		if s.Health == nil {
			s.Health = health.NewStatusHandler()
		}
		s.Health.SetUpstreamRequired(s.Config.Upstream != "")
		if s.Config.OriginRegistryURL != "" && s.Origin == nil {
			s.Origin = originclient.New(originclient.Config{
				BaseURL:   s.Config.OriginRegistryURL,
				TLSConfig: s.TLSConfig,
			})
		}
	})
}

// newHandler builds the RelayHandler this server's sessions share.
func (s *Server) newHandler() *RelayHandler {
	h := &RelayHandler{
		Router:         s.Router,
		SelfURL:        s.Config.NodeID,
		Health:         s.Health,
		GroupCacheSize: s.Config.groupCacheSize(),
		FramePool:      NewFramePool(s.Config.frameCapacity()),
	}
	if s.Config.NodeID != "" {
		h.Origin = s.Origin
	}
	return h
}

// ListenAndServe listens for native-QUIC MoQ connections on Addr and
// blocks until the listener closes. If Config.Upstream is set, it also
// dials that address and relays from it concurrently.
func (s *Server) ListenAndServe() error {
	s.init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ln, err := transport.ListenQUIC(s.Addr, s.TLSConfig, s.QUICConfig)
	if err != nil {
		return err
	}
	s.quicListener = ln

	var wg sync.WaitGroup
	if s.Config.Upstream != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.dialUpstream(ctx)
		}()
	}

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			wg.Wait()
			return err
		}
		s.Health.IncrementConnections()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.Health.DecrementConnections()
			s.serve(ctx, conn)
		}()
	}
}

// ListenAndServeWebTransport listens for browser-originating WebTransport
// sessions over HTTP/3 on addr and blocks until the listener closes.
// Per SPEC_FULL.md §4.7, every accepted connection has its broadcast
// name extracted from the connect path (leading/trailing "/" trimmed)
// before the MoQ handshake runs; namespaces themselves are still
// resolved from the Announce/Subscribe messages the session exchanges,
// so the path segment is surfaced here purely for logging, matching how native-QUIC connections (which carry no
// HTTP path at all) are handled identically once accepted.
func (s *Server) ListenAndServeWebTransport(addr string) error {
	s.init()

	wt := transport.NewWebTransportServer(s.CheckHTTPOrigin)
	wt.H3.Addr = addr
	wt.H3.TLSConfig = s.TLSConfig

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebTransport(wt))
	wt.H3.Handler = mux

	s.wtMu.Lock()
	s.webtransportServer = wt
	s.wtMu.Unlock()

	return wt.H3.ListenAndServe()
}

func (s *Server) handleWebTransport(wt *webtransport.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		namespace := strings.Trim(r.URL.Path, "/")

		conn, err := transport.UpgradeWebTransport(wt, w, r)
		if err != nil {
			slog.Warn("relay: webtransport upgrade failed", "namespace", namespace, "error", err)
			return
		}

		slog.Info("relay: accepted webtransport session", "namespace", namespace, "remote", conn.RemoteAddr())
		s.Health.IncrementConnections()
		defer s.Health.DecrementConnections()
		s.serve(context.Background(), conn)
	}
}

func (s *Server) serve(ctx context.Context, conn session.Conn) {
	sess, err := session.Accept(ctx, conn, message.RoleBoth, s.newHandler())
	if err != nil {
		slog.Error("relay: failed to accept session", "error", err)
		return
	}
	<-sess.Context().Done()
}

func (s *Server) dialUpstream(ctx context.Context) {
	conn, err := transport.DialQUIC(ctx, s.Config.Upstream, s.TLSConfig, s.QUICConfig)
	if err != nil {
		slog.Warn("relay: failed to connect to upstream", "upstream", s.Config.Upstream, "error", err)
		return
	}
	s.Health.SetUpstreamConnected(true)
	defer s.Health.SetUpstreamConnected(false)

	sess, err := session.Open(ctx, conn, message.RoleBoth, s.newHandler())
	if err != nil {
		slog.Warn("relay: upstream handshake failed", "upstream", s.Config.Upstream, "error", err)
		return
	}
	slog.Info("relay: connected to upstream", "upstream", s.Config.Upstream)
	<-sess.Context().Done()
}

// Close closes the native-QUIC listener and, if one was started, the
// WebTransport server, without waiting for in-flight sessions to drain.
// It does not close native-QUIC sessions already accepted or the
// upstream connection.
func (s *Server) Close() error {
	s.init()
	var err error
	if s.quicListener != nil {
		err = s.quicListener.Close()
	}

	s.wtMu.Lock()
	wt := s.webtransportServer
	s.wtMu.Unlock()
	if wt != nil {
		if cerr := wt.H3.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Shutdown calls Close and returns its result. It does not wait for
// in-flight sessions to finish, and ctx is not used.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Close()
}
