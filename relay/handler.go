package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/moqtransfork/moqrelay/message"
	"github.com/moqtransfork/moqrelay/model"
	"github.com/moqtransfork/moqrelay/originclient"
	"github.com/moqtransfork/moqrelay/relay/health"
	"github.com/moqtransfork/moqrelay/router"
	"github.com/moqtransfork/moqrelay/session"
)

// RelayHandler implements session.Handler for one peer connection,
// bridging its announcements and subscriptions into the shared Router
// and, optionally, the origin registry.
//
// Every namespace this handler has announced gets its own
// trackDistributor per track once a remote subscriber pulls from it,
// so a track relayed to a hundred downstream sessions is still only
// read off the network once.
type RelayHandler struct {
	Router *router.Router
	Origin *originclient.Client

	// SelfURL is the address this node advertises to the origin
	// registry as the current origin for namespaces it announces.
	SelfURL string

	Health *health.StatusHandler

	GroupCacheSize int
	FramePool      *FramePool

	mu          sync.Mutex
	announced   map[string]*announcedBroadcast
	distributed map[string]map[string]*trackDistributor // namespace -> track -> distributor
}

type announcedBroadcast struct {
	producer *model.BroadcastProducer
	consumer *model.BroadcastConsumer
	handle   *router.Announcement
}

var _ session.Handler = (*RelayHandler)(nil)

// HandleAnnounce registers namespace's broadcast with the router and,
// if an origin registry client is configured, records this node as its
// origin.
func (h *RelayHandler) HandleAnnounce(ctx context.Context, s *session.Session, msg message.Announce) error {
	h.mu.Lock()
	if h.announced == nil {
		h.announced = make(map[string]*announcedBroadcast)
	}
	if _, exists := h.announced[msg.Namespace]; exists {
		h.mu.Unlock()
		return fmt.Errorf("relay: namespace %q already announced on this session", msg.Namespace)
	}

	bp, bc := model.NewBroadcast(msg.Namespace)
	bp.Unknown(h.unknownTrack(ctx, s, bp, bc, msg.Namespace))
	handle := h.Router.Announce(bc)
	h.announced[msg.Namespace] = &announcedBroadcast{producer: bp, consumer: bc, handle: handle}
	h.mu.Unlock()

	if h.Origin != nil {
		if err := h.Origin.SetOrigin(ctx, msg.Namespace, originclient.Origin{URL: h.SelfURL}); err != nil {
			slog.Warn("relay: failed to register origin", "namespace", msg.Namespace, "error", err)
		}
	}
	return nil
}

// HandleUnannounce withdraws namespace from the router and the origin
// registry.
func (h *RelayHandler) HandleUnannounce(ctx context.Context, s *session.Session, msg message.Unannounce) {
	h.mu.Lock()
	ab, ok := h.announced[msg.Namespace]
	if ok {
		delete(h.announced, msg.Namespace)
	}
	delete(h.distributed, msg.Namespace)
	h.mu.Unlock()

	if !ok {
		return
	}
	ab.handle.Close()
	ab.producer.Close(model.ErrDone)

	if h.Origin != nil {
		if err := h.Origin.DeleteOrigin(ctx, msg.Namespace); err != nil {
			slog.Warn("relay: failed to remove origin", "namespace", msg.Namespace, "error", err)
		}
	}
}

// HandleSubscribe resolves namespace against the router and returns a
// consumer for trackName, lazily pulling it from the originating
// session the first time any local subscriber asks for it.
func (h *RelayHandler) HandleSubscribe(ctx context.Context, s *session.Session, msg message.Subscribe) (*model.TrackConsumer, error) {
	bc, ok := h.Router.Resolve(msg.Namespace)
	if !ok {
		return nil, model.ErrNotFound
	}
	return bc.Subscribe(msg.TrackName)
}

// unknownTrack returns the UnknownHandler installed on a freshly
// announced broadcast: it pulls the named track from the announcing
// session exactly once, fanning it out to every local subscriber
// through a trackDistributor, and publishes the result as a local
// model.Track so later callers resolve it like any other track.
func (h *RelayHandler) unknownTrack(ctx context.Context, s *session.Session, bp *model.BroadcastProducer, bc *model.BroadcastConsumer, namespace string) model.UnknownHandler {
	return func(trackName string) (*model.TrackConsumer, error) {
		h.mu.Lock()
		if h.distributed == nil {
			h.distributed = make(map[string]map[string]*trackDistributor)
		}
		tracks, ok := h.distributed[namespace]
		if !ok {
			tracks = make(map[string]*trackDistributor)
			h.distributed[namespace] = tracks
		}
		if _, exists := tracks[trackName]; exists {
			h.mu.Unlock()
			return nil, model.ErrUnknownTrack
		}
		h.mu.Unlock()

		src, err := s.Subscribe(ctx, namespace, trackName, message.FilterLatestGroup)
		if err != nil {
			return nil, errors.Join(model.ErrUnknownTrack, err)
		}

		tp, err := bp.Create(trackName, 0)
		if err != nil {
			return nil, errors.Join(model.ErrUnknownTrack, err)
		}
		tc, err := bc.Subscribe(trackName)
		if err != nil {
			return nil, errors.Join(model.ErrUnknownTrack, err)
		}
		cacheSize := h.GroupCacheSize
		if cacheSize <= 0 {
			cacheSize = DefaultGroupCacheSize
		}

		ingestCtx, cancel := context.WithCancel(ctx)
		dist := newTrackDistributor(ingestCtx, src, cacheSize, func() {
			cancel()
			tp.Close(model.ErrDone)
			bp.Remove(trackName)
			h.mu.Lock()
			delete(h.distributed[namespace], trackName)
			h.mu.Unlock()
		})
		if h.FramePool != nil {
			dist.ring.pool = h.FramePool
		}

		h.mu.Lock()
		h.distributed[namespace][trackName] = dist
		h.mu.Unlock()

		go dist.egress(ingestCtx, &trackProducerSink{tp: tp})

		return tc, nil
	}
}

// trackProducerSink adapts a model.TrackProducer to GroupSink/FrameSink
// so a trackDistributor can egress into a local track just as easily as
// into a raw outgoing stream.
type trackProducerSink struct {
	tp *model.TrackProducer
}

func (s *trackProducerSink) OpenGroup(seq uint64) (FrameSink, error) {
	gp, err := s.tp.AppendGroup(seq)
	if err != nil {
		return nil, err
	}
	return &groupProducerSink{gp: gp}, nil
}

type groupProducerSink struct {
	gp *model.GroupProducer
}

func (s *groupProducerSink) WriteFrame(f []byte) error {
	return s.gp.AppendFrame(model.Frame(f))
}

func (s *groupProducerSink) Close() {
	s.gp.Finish()
}
