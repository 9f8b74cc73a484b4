package relay

import (
	"context"
	"testing"

	"github.com/moqtransfork/moqrelay/message"
	"github.com/moqtransfork/moqrelay/model"
	"github.com/moqtransfork/moqrelay/router"
	"github.com/moqtransfork/moqrelay/session"
)

// TestRelayHandlerInterfaceCompliance verifies RelayHandler implements
// session.Handler.
func TestRelayHandlerInterfaceCompliance(t *testing.T) {
	var _ session.Handler = (*RelayHandler)(nil)
}

// TestNewTrackDistributorConstruction verifies the constructor's signature.
func TestNewTrackDistributorConstruction(t *testing.T) {
	var _ func(context.Context, *model.TrackConsumer, int, func()) *trackDistributor = newTrackDistributor
}

// TestDistributorCloseFunction tests close functionality
func TestDistributorCloseFunction(t *testing.T) {
	t.Run("close_with_callback", func(t *testing.T) {
		called := false
		dist := &trackDistributor{onClose: func() { called = true }}
		dist.close()
		if !called {
			t.Error("onClose should be called")
		}
	})

	t.Run("close_without_callback", func(t *testing.T) {
		dist := &trackDistributor{}
		dist.close() // should not panic
	})
}

// TestHandleAnnounceInitializesRegistry tests that HandleAnnounce
// lazily initializes the handler's bookkeeping maps.
func TestHandleAnnounceInitializesRegistry(t *testing.T) {
	handler := &RelayHandler{Router: router.New()}

	err := handler.HandleAnnounce(context.Background(), nil, message.Announce{Namespace: "room"})
	if err != nil {
		t.Fatalf("HandleAnnounce: %v", err)
	}

	handler.mu.Lock()
	_, ok := handler.announced["room"]
	handler.mu.Unlock()
	if !ok {
		t.Error("announced map should contain the namespace")
	}

	if _, resolved := handler.Router.Resolve("room"); !resolved {
		t.Error("namespace should resolve via the router after announce")
	}
}

// TestHandleAnnounceRejectsDuplicate tests that announcing the same
// namespace twice on one handler is rejected rather than silently
// replacing the first announcement.
func TestHandleAnnounceRejectsDuplicate(t *testing.T) {
	handler := &RelayHandler{Router: router.New()}
	ctx := context.Background()

	if err := handler.HandleAnnounce(ctx, nil, message.Announce{Namespace: "room"}); err != nil {
		t.Fatalf("first HandleAnnounce: %v", err)
	}
	if err := handler.HandleAnnounce(ctx, nil, message.Announce{Namespace: "room"}); err == nil {
		t.Error("expected an error announcing the same namespace twice")
	}
}

// TestHandleUnannounceRemovesRegistry tests that HandleUnannounce
// reverses HandleAnnounce's bookkeeping.
func TestHandleUnannounceRemovesRegistry(t *testing.T) {
	handler := &RelayHandler{Router: router.New()}
	ctx := context.Background()

	if err := handler.HandleAnnounce(ctx, nil, message.Announce{Namespace: "room"}); err != nil {
		t.Fatalf("HandleAnnounce: %v", err)
	}
	handler.HandleUnannounce(ctx, nil, message.Unannounce{Namespace: "room"})

	if _, resolved := handler.Router.Resolve("room"); resolved {
		t.Error("namespace should no longer resolve after unannounce")
	}
	handler.mu.Lock()
	_, ok := handler.announced["room"]
	handler.mu.Unlock()
	if ok {
		t.Error("announced map entry should be removed")
	}
}

// TestTrackDistributorFields tests field initialization
func TestTrackDistributorFields(t *testing.T) {
	dist := &trackDistributor{
		ring:        newGroupRing(),
		subscribers: make(map[chan struct{}]struct{}),
	}
	if dist.ring == nil {
		t.Error("ring should be initialized")
	}
	if dist.subscribers == nil {
		t.Error("subscribers should be initialized")
	}
	if len(dist.subscribers) != 0 {
		t.Error("subscribers should start empty")
	}
}

// TestDistributorRingOperations tests ring buffer operations
func TestDistributorRingOperations(t *testing.T) {
	dist := &trackDistributor{
		ring:        newGroupRing(),
		subscribers: make(map[chan struct{}]struct{}),
	}

	if head := dist.ring.head(); head != 0 {
		t.Errorf("Expected initial head 0, got %d", head)
	}
	if cache := dist.ring.get(1); cache != nil {
		t.Error("Expected nil cache for non-existent sequence")
	}
}

// TestRelayHandlerDistributedMapOperations tests concurrent-shaped map operations
func TestRelayHandlerDistributedMapOperations(t *testing.T) {
	handler := &RelayHandler{Router: router.New()}

	handler.mu.Lock()
	if handler.distributed == nil {
		handler.distributed = make(map[string]map[string]*trackDistributor)
	}
	handler.distributed["room"] = map[string]*trackDistributor{
		"video": {ring: newGroupRing(), subscribers: make(map[chan struct{}]struct{})},
	}
	handler.mu.Unlock()

	handler.mu.Lock()
	_, exists := handler.distributed["room"]["video"]
	handler.mu.Unlock()
	if !exists {
		t.Error("Entry should exist in map")
	}

	handler.mu.Lock()
	delete(handler.distributed["room"], "video")
	handler.mu.Unlock()

	handler.mu.Lock()
	_, exists = handler.distributed["room"]["video"]
	handler.mu.Unlock()
	if exists {
		t.Error("Entry should be deleted from map")
	}
}

// TestSubscriberNotifications tests the notification mechanism
func TestSubscriberNotifications(t *testing.T) {
	dist := &trackDistributor{
		ring:        newGroupRing(),
		subscribers: make(map[chan struct{}]struct{}),
	}

	ch := dist.subscribe()
	if ch == nil {
		t.Fatal("subscribe should return a channel")
	}

	dist.mu.RLock()
	count := len(dist.subscribers)
	dist.mu.RUnlock()
	if count != 1 {
		t.Errorf("Expected 1 subscriber, got %d", count)
	}

	dist.unsubscribe(ch)

	dist.mu.RLock()
	count = len(dist.subscribers)
	dist.mu.RUnlock()
	if count != 0 {
		t.Errorf("Expected 0 subscribers after unsubscribe, got %d", count)
	}
}

