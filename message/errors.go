// Package message implements the typed control messages exchanged over a
// session's bidirectional control stream: the setup handshake, announce
// family, and subscribe family.
package message

import "errors"

// Decode errors for message bodies, plus ErrUnsupportedVersion for a failed
// setup version negotiation. The codec-level kinds (InvalidString,
// BoundsExceeded, DuplicateParam) are defined in package wire.
var (
	ErrMissingField            = errors.New("message: missing field")
	ErrInvalidMessage           = errors.New("message: invalid message")
	ErrInvalidSubscribeLocation = errors.New("message: object location without group location")
	ErrUnsupportedVersion       = errors.New("message: no common setup version")
)

// Kind identifies a message's wire discriminant.
type Kind uint64

const (
	KindClientSetup Kind = 0x40
	KindServerSetup Kind = 0x41

	KindAnnounce      Kind = 0x06
	KindAnnounceOk    Kind = 0x07
	KindAnnounceError Kind = 0x08
	KindUnannounce    Kind = 0x09

	KindSubscribe       Kind = 0x03
	KindSubscribeOk     Kind = 0x04
	KindSubscribeError  Kind = 0x05
	KindSubscribeDone   Kind = 0x0b
	KindUnsubscribe     Kind = 0x0a

	KindGoAway Kind = 0x10
)
