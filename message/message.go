package message

import (
	"io"

	"github.com/moqtransfork/moqrelay/wire"
)

// Message is any control-stream message. Each concrete type's Encode
// writes its own kind discriminant first.
type Message interface {
	Encode(w io.Writer) error
}

// Read decodes one message from r, dispatching on the leading varint kind.
func Read(r io.Reader) (Message, error) {
	kind, err := wire.ReadVarInt(wire.AsByteReader(r))
	if err != nil {
		return nil, err
	}

	switch Kind(kind) {
	case KindClientSetup:
		return DecodeClientSetup(r)
	case KindServerSetup:
		return DecodeServerSetup(r)
	case KindAnnounce:
		return DecodeAnnounce(r)
	case KindAnnounceOk:
		return DecodeAnnounceOk(r)
	case KindAnnounceError:
		return DecodeAnnounceError(r)
	case KindUnannounce:
		return DecodeUnannounce(r)
	case KindSubscribe:
		return DecodeSubscribe(r)
	case KindSubscribeOk:
		return DecodeSubscribeOk(r)
	case KindSubscribeError:
		return DecodeSubscribeError(r)
	case KindSubscribeDone:
		return DecodeSubscribeDone(r)
	case KindUnsubscribe:
		return DecodeUnsubscribe(r)
	case KindGoAway:
		return DecodeGoAway(r)
	default:
		return nil, ErrInvalidMessage
	}
}

// Write encodes m to w.
func Write(w io.Writer, m Message) error {
	return m.Encode(w)
}
