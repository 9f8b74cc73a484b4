package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/moqtransfork/moqrelay/message"
	"github.com/moqtransfork/moqrelay/model"
	"github.com/moqtransfork/moqrelay/wire"
)

// State is a session's position in the handshake/run/drain/close
// lifecycle described in SPEC_FULL.md §4.4.
type State int32

const (
	StateHandshaking State = iota
	StateRunning
	StateDraining
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// outgoingSub tracks a subscription this side requested from the peer.
type outgoingSub struct {
	id       uint64
	alias    uint64
	producer *model.TrackProducer
	result   chan error // receives nil on SubscribeOk, error on SubscribeError
}

// Session is one MoQ connection: a control stream plus however many
// unidirectional group streams the peer opens in response to our
// subscriptions, or that we open in response to the peer's.
type Session struct {
	conn    Conn
	role    message.Role
	handler Handler
	log     *slog.Logger

	control       Stream
	controlReader *bufio.Reader
	writeMu       sync.Mutex

	state atomic.Int32

	mu         sync.Mutex
	nextID     uint64
	nextAlias  uint64
	outgoing   map[uint64]*outgoingSub // subscribe id -> pending/active
	aliasToSub map[uint64]*outgoingSub // track alias -> same entry

	runCtx    context.Context
	runCancel context.CancelFunc
	wg        sync.WaitGroup
}

// Open performs the client side of the handshake: send ClientSetup, read
// ServerSetup. Used by the publisher CLI and by a relay dialing an
// upstream relay.
func Open(ctx context.Context, conn Conn, role message.Role, handler Handler) (*Session, error) {
	control, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: open control stream: %w", err)
	}

	s := newSession(conn, role, handler, control)

	cs := message.ClientSetup{
		Versions: []message.Version{message.CurrentVersion},
		Role:     role,
		Params:   wire.NewParams(),
	}
	if err := s.writeControl(cs); err != nil {
		return nil, fmt.Errorf("session: write ClientSetup: %w", err)
	}

	msg, err := message.Read(s.controlReader)
	if err != nil {
		return nil, fmt.Errorf("session: read ServerSetup: %w", err)
	}
	ss, ok := msg.(message.ServerSetup)
	if !ok {
		return nil, fmt.Errorf("session: expected ServerSetup, got %T", msg)
	}
	if ss.Version != message.CurrentVersion {
		return nil, message.ErrUnsupportedVersion
	}

	s.start()
	return s, nil
}

// Accept performs the server side of the handshake: read ClientSetup,
// send ServerSetup. Used by a relay accepting an inbound connection.
func Accept(ctx context.Context, conn Conn, role message.Role, handler Handler) (*Session, error) {
	control, err := conn.AcceptStream(ctx)
	if err != nil {
		return nil, fmt.Errorf("session: accept control stream: %w", err)
	}

	s := newSession(conn, role, handler, control)

	msg, err := message.Read(s.controlReader)
	if err != nil {
		return nil, fmt.Errorf("session: read ClientSetup: %w", err)
	}
	cs, ok := msg.(message.ClientSetup)
	if !ok {
		return nil, fmt.Errorf("session: expected ClientSetup, got %T", msg)
	}

	version, err := message.NegotiateVersion(cs.Versions, message.CurrentVersion)
	if err != nil {
		return nil, err
	}

	ss := message.ServerSetup{Version: version, Role: role, Params: wire.NewParams()}
	if err := s.writeControl(ss); err != nil {
		return nil, fmt.Errorf("session: write ServerSetup: %w", err)
	}

	s.start()
	return s, nil
}

func newSession(conn Conn, role message.Role, handler Handler, control Stream) *Session {
	runCtx, cancel := context.WithCancel(conn.Context())
	s := &Session{
		conn:          conn,
		role:          role,
		handler:       handler,
		log:           slog.With("remote", conn.RemoteAddr()),
		control:       control,
		controlReader: bufio.NewReader(control),
		outgoing:      make(map[uint64]*outgoingSub),
		aliasToSub:    make(map[uint64]*outgoingSub),
		runCtx:        runCtx,
		runCancel:     cancel,
	}
	s.state.Store(int32(StateHandshaking))
	return s
}

func (s *Session) start() {
	s.state.Store(int32(StateRunning))
	s.wg.Add(2)
	go s.controlReadLoop()
	go s.groupAcceptLoop()
}

// State returns the session's current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Context is cancelled when the session is closed or the underlying
// connection's context is done.
func (s *Session) Context() context.Context { return s.runCtx }

func (s *Session) writeControl(m message.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return m.Encode(s.control)
}

// GoAway sends a GoAway and transitions to Draining. No new subscriptions
// should be issued locally after this; the caller is responsible for that
// policy since the session itself still accepts peer-initiated ones until
// Close.
func (s *Session) GoAway(newURI string) error {
	s.state.Store(int32(StateDraining))
	return s.writeControl(message.GoAway{NewURI: newURI})
}

// Close tears the session down: cancels all outstanding subscriptions and
// closes the underlying connection.
func (s *Session) Close(code uint64, reason string) error {
	if !s.state.CompareAndSwap(int32(StateClosed), int32(StateClosed)) {
		s.state.Store(int32(StateClosed))
	}
	s.runCancel()

	s.mu.Lock()
	for _, sub := range s.outgoing {
		sub.producer.Close(model.ErrCancel)
	}
	s.mu.Unlock()

	return s.conn.CloseWithError(code, reason)
}

func (s *Session) controlReadLoop() {
	defer s.wg.Done()
	defer s.runCancel()

	for {
		msg, err := message.Read(s.controlReader)
		if err != nil {
			if s.runCtx.Err() != nil {
				return
			}
			if err == io.EOF {
				s.log.Debug("control stream closed", "error", err)
				return
			}
			// Any other read/decode failure is a malformed control message
			// the peer sent: SPEC_FULL.md §7 requires terminating the
			// session with ProtocolViolation rather than just dropping it.
			s.log.Warn("control stream decode error, closing session", "error", err)
			_ = s.Close(ErrProtocolViolation.Code, ErrProtocolViolation.Reason)
			return
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg message.Message) {
	switch m := msg.(type) {
	case message.Announce:
		s.handleAnnounce(m)
	case message.Unannounce:
		s.handler.HandleUnannounce(s.runCtx, s, m)
	case message.Subscribe:
		s.handleSubscribe(m)
	case message.SubscribeOk:
		s.resolveSubscribe(m.ID, nil)
	case message.SubscribeError:
		s.resolveSubscribe(m.ID, &model.ClosedError{Code: m.Code, Reason: m.Reason})
	case message.SubscribeDone:
		s.finishSubscribe(m.ID, model.AppError(m.Code, m.Reason))
	case message.Unsubscribe:
		// Not acted on: the dispatch goroutine serving that subscription
		// keeps forwarding groups until its track consumer or the session
		// closes.
	case message.GoAway:
		s.state.Store(int32(StateDraining))
	default:
		s.log.Warn("unhandled control message", "type", fmt.Sprintf("%T", m))
	}
}

func (s *Session) handleAnnounce(m message.Announce) {
	err := s.handler.HandleAnnounce(s.runCtx, s, m)
	if err != nil {
		ce, _ := err.(*model.ClosedError)
		code, reason := uint64(0), err.Error()
		if ce != nil {
			code, reason = ce.Code, ce.Reason
		}
		_ = s.writeControl(message.AnnounceError{Namespace: m.Namespace, Code: code, Reason: reason})
		return
	}
	_ = s.writeControl(message.AnnounceOk{Namespace: m.Namespace})
}

func (s *Session) handleSubscribe(m message.Subscribe) {
	tc, err := s.handler.HandleSubscribe(s.runCtx, s, m)
	if err != nil {
		ce, _ := err.(*model.ClosedError)
		code, reason := uint64(0), err.Error()
		if ce != nil {
			code, reason = ce.Code, ce.Reason
		}
		_ = s.writeControl(message.SubscribeError{ID: m.ID, Code: code, Reason: reason, Alias: m.Alias})
		return
	}

	_ = s.writeControl(message.SubscribeOk{ID: m.ID})

	s.wg.Add(1)
	go s.dispatchGroups(m.ID, m.Alias, tc)
}

// Announce advertises namespace to the peer and returns once the Announce
// is written. It does not wait for AnnounceOk or AnnounceError: the
// control loop does not match those replies to an announce, and ctx is
// not used.
func (s *Session) Announce(ctx context.Context, namespace string, auth []byte) error {
	if err := s.writeControl(message.Announce{Namespace: namespace, Auth: auth, Unknown: wire.NewParams()}); err != nil {
		return err
	}
	_ = ctx
	return nil
}

// Unannounce withdraws namespace.
func (s *Session) Unannounce(namespace string) error {
	return s.writeControl(message.Unannounce{Namespace: namespace})
}

// Subscribe requests trackName within namespace from the peer and returns
// a consumer fed by the group streams the peer opens in response. Blocks
// until SubscribeOk or SubscribeError.
func (s *Session) Subscribe(ctx context.Context, namespace, trackName string, filter message.FilterType) (*model.TrackConsumer, error) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	alias := s.nextAlias
	s.nextAlias++

	producer, consumer := model.NewTrack(trackName, 0)
	sub := &outgoingSub{id: id, alias: alias, producer: producer, result: make(chan error, 1)}
	s.outgoing[id] = sub
	s.aliasToSub[alias] = sub
	s.mu.Unlock()

	msg := message.Subscribe{
		ID:        id,
		Alias:     alias,
		Namespace: namespace,
		TrackName: trackName,
		Filter:    filter,
		Params:    wire.NewParams(),
	}
	if err := s.writeControl(msg); err != nil {
		s.forgetSubscribe(id, alias)
		return nil, err
	}

	select {
	case err := <-sub.result:
		if err != nil {
			s.forgetSubscribe(id, alias)
			return nil, err
		}
		return consumer, nil
	case <-ctx.Done():
		s.forgetSubscribe(id, alias)
		return nil, ctx.Err()
	case <-s.runCtx.Done():
		s.forgetSubscribe(id, alias)
		return nil, model.ErrCancel
	}
}

func (s *Session) forgetSubscribe(id, alias uint64) {
	s.mu.Lock()
	delete(s.outgoing, id)
	delete(s.aliasToSub, alias)
	s.mu.Unlock()
}

func (s *Session) resolveSubscribe(id uint64, err error) {
	s.mu.Lock()
	sub, ok := s.outgoing[id]
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case sub.result <- err:
	default:
	}
}

func (s *Session) finishSubscribe(id uint64, err error) {
	s.mu.Lock()
	sub, ok := s.outgoing[id]
	if ok {
		delete(s.outgoing, id)
		delete(s.aliasToSub, sub.alias)
	}
	s.mu.Unlock()
	if ok {
		sub.producer.Close(err)
	}
}
