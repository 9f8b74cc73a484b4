package session

import (
	"context"

	"github.com/moqtransfork/moqrelay/message"
	"github.com/moqtransfork/moqrelay/model"
)

// Handler reacts to control messages initiated by the remote peer. The
// relay glue package implements this to wire incoming announcements into
// the router and incoming subscriptions into whatever broadcast the
// router resolves.
type Handler interface {
	// HandleAnnounce is called when the peer announces namespace. A nil
	// error accepts the announcement (the session replies AnnounceOk); any
	// other error is sent back as AnnounceError.
	HandleAnnounce(ctx context.Context, s *Session, msg message.Announce) error

	// HandleUnannounce is called when the peer withdraws namespace.
	HandleUnannounce(ctx context.Context, s *Session, msg message.Unannounce)

	// HandleSubscribe is called when the peer subscribes to a track. A
	// non-nil TrackConsumer causes the session to reply SubscribeOk and
	// forward every group the consumer yields; an error replies
	// SubscribeError.
	HandleSubscribe(ctx context.Context, s *Session, msg message.Subscribe) (*model.TrackConsumer, error)
}

// NopHandler implements Handler by rejecting every announce and
// subscribe. Embed it to implement only the methods a particular session
// role needs (e.g. a pure subscriber never receives a Subscribe).
type NopHandler struct{}

func (NopHandler) HandleAnnounce(context.Context, *Session, message.Announce) error {
	return model.ErrNotFound
}

func (NopHandler) HandleUnannounce(context.Context, *Session, message.Unannounce) {}

func (NopHandler) HandleSubscribe(context.Context, *Session, message.Subscribe) (*model.TrackConsumer, error) {
	return nil, model.ErrNotFound
}
