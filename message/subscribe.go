package message

import (
	"io"

	"github.com/moqtransfork/moqrelay/wire"
)

// FilterType selects which range of a track's groups/objects a Subscribe
// requests.
type FilterType uint64

const (
	FilterLatestGroup  FilterType = 0x1
	FilterLatestObject FilterType = 0x2
	FilterAbsoluteStart FilterType = 0x3
	FilterAbsoluteRange FilterType = 0x4
)

// LocationKind distinguishes the four forms a SubscribeLocation can take.
type LocationKind uint64

const (
	LocationNone     LocationKind = 0
	LocationAbsolute LocationKind = 1
	LocationLatest   LocationKind = 2
	LocationFuture   LocationKind = 3
)

// SubscribeLocation signals where a subscription should begin, relative to
// the current cache, for either the group or object axis of a pair.
type SubscribeLocation struct {
	Kind  LocationKind
	Value uint64
}

var NoLocation = SubscribeLocation{Kind: LocationNone}

func (l SubscribeLocation) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(l.Kind)); err != nil {
		return err
	}
	if l.Kind == LocationNone {
		return nil
	}
	return wire.WriteVarInt(w, l.Value)
}

func decodeLocation(br io.ByteReader) (SubscribeLocation, error) {
	kind, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeLocation{}, err
	}
	switch LocationKind(kind) {
	case LocationNone:
		return SubscribeLocation{Kind: LocationNone}, nil
	case LocationAbsolute, LocationLatest, LocationFuture:
		v, err := wire.ReadVarInt(br)
		if err != nil {
			return SubscribeLocation{}, err
		}
		return SubscribeLocation{Kind: LocationKind(kind), Value: v}, nil
	default:
		return SubscribeLocation{}, ErrInvalidMessage
	}
}

// SubscribePair is a (group, object) location pair bounding one end of a
// subscription range.
type SubscribePair struct {
	Group  SubscribeLocation
	Object SubscribeLocation
}

func (p SubscribePair) Encode(w io.Writer) error {
	if err := p.Group.Encode(w); err != nil {
		return err
	}
	return p.Object.Encode(w)
}

func decodeSubscribePair(r io.Reader, br io.ByteReader) (SubscribePair, error) {
	group, err := decodeLocation(br)
	if err != nil {
		return SubscribePair{}, err
	}
	object, err := decodeLocation(br)
	if err != nil {
		return SubscribePair{}, err
	}
	// An object location without a group location is meaningless: there is
	// no group to count objects within.
	if group.Kind == LocationNone && object.Kind != LocationNone {
		return SubscribePair{}, ErrInvalidSubscribeLocation
	}
	return SubscribePair{Group: group, Object: object}, nil
}

// Subscribe requests a track's groups, from the point described by Filter.
type Subscribe struct {
	ID        uint64
	Alias     uint64
	Namespace string
	TrackName string

	Filter FilterType
	Start  *SubscribePair
	End    *SubscribePair

	Params wire.Params
}

func (m Subscribe) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindSubscribe)); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.ID); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.Alias); err != nil {
		return err
	}
	if err := wire.WriteString(w, m.Namespace); err != nil {
		return err
	}
	if err := wire.WriteString(w, m.TrackName); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, uint64(m.Filter)); err != nil {
		return err
	}

	if m.Filter == FilterAbsoluteStart || m.Filter == FilterAbsoluteRange {
		if m.Start == nil {
			return ErrMissingField
		}
		if err := m.Start.Encode(w); err != nil {
			return err
		}
	}
	if m.Filter == FilterAbsoluteRange {
		if m.End == nil {
			return ErrMissingField
		}
		if err := m.End.Encode(w); err != nil {
			return err
		}
	}

	return m.Params.Encode(w)
}

func DecodeSubscribe(r io.Reader) (Subscribe, error) {
	br := wire.AsByteReader(r)

	id, err := wire.ReadVarInt(br)
	if err != nil {
		return Subscribe{}, err
	}
	alias, err := wire.ReadVarInt(br)
	if err != nil {
		return Subscribe{}, err
	}
	namespace, err := wire.ReadString(r)
	if err != nil {
		return Subscribe{}, err
	}
	trackName, err := wire.ReadString(r)
	if err != nil {
		return Subscribe{}, err
	}
	filterVal, err := wire.ReadVarInt(br)
	if err != nil {
		return Subscribe{}, err
	}
	filter := FilterType(filterVal)

	var start, end *SubscribePair
	switch filter {
	case FilterAbsoluteStart:
		s, err := decodeSubscribePair(r, br)
		if err != nil {
			return Subscribe{}, err
		}
		start = &s
	case FilterAbsoluteRange:
		s, err := decodeSubscribePair(r, br)
		if err != nil {
			return Subscribe{}, err
		}
		e, err := decodeSubscribePair(r, br)
		if err != nil {
			return Subscribe{}, err
		}
		start, end = &s, &e
	}

	params, err := wire.DecodeParams(r)
	if err != nil {
		return Subscribe{}, err
	}

	return Subscribe{
		ID:        id,
		Alias:     alias,
		Namespace: namespace,
		TrackName: trackName,
		Filter:    filter,
		Start:     start,
		End:       end,
		Params:    params,
	}, nil
}

// SubscribeOk confirms a subscription and reports the current cache state.
type SubscribeOk struct {
	ID            uint64
	Expires       uint64 // milliseconds; 0 means no expiry
	LargestGroup  uint64
	LargestObject uint64
}

func (m SubscribeOk) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindSubscribeOk)); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.ID); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.Expires); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.LargestGroup); err != nil {
		return err
	}
	return wire.WriteVarInt(w, m.LargestObject)
}

func DecodeSubscribeOk(r io.Reader) (SubscribeOk, error) {
	br := wire.AsByteReader(r)
	id, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeOk{}, err
	}
	expires, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeOk{}, err
	}
	largestGroup, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeOk{}, err
	}
	largestObject, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeOk{}, err
	}
	return SubscribeOk{ID: id, Expires: expires, LargestGroup: largestGroup, LargestObject: largestObject}, nil
}

// SubscribeError reports a subscription could not be served.
type SubscribeError struct {
	ID     uint64
	Code   uint64
	Reason string
	Alias  uint64
}

func (m SubscribeError) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindSubscribeError)); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.ID); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.Code); err != nil {
		return err
	}
	if err := wire.WriteString(w, m.Reason); err != nil {
		return err
	}
	return wire.WriteVarInt(w, m.Alias)
}

func DecodeSubscribeError(r io.Reader) (SubscribeError, error) {
	br := wire.AsByteReader(r)
	id, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeError{}, err
	}
	code, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeError{}, err
	}
	reason, err := wire.ReadString(r)
	if err != nil {
		return SubscribeError{}, err
	}
	alias, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeError{}, err
	}
	return SubscribeError{ID: id, Code: code, Reason: reason, Alias: alias}, nil
}

// SubscribeDone reports a subscription has ended, cleanly or not.
type SubscribeDone struct {
	ID            uint64
	Code          uint64
	Reason        string
	FinalGroup    uint64
	FinalObject   uint64
}

func (m SubscribeDone) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindSubscribeDone)); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.ID); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.Code); err != nil {
		return err
	}
	if err := wire.WriteString(w, m.Reason); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.FinalGroup); err != nil {
		return err
	}
	return wire.WriteVarInt(w, m.FinalObject)
}

func DecodeSubscribeDone(r io.Reader) (SubscribeDone, error) {
	br := wire.AsByteReader(r)
	id, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeDone{}, err
	}
	code, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeDone{}, err
	}
	reason, err := wire.ReadString(r)
	if err != nil {
		return SubscribeDone{}, err
	}
	finalGroup, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeDone{}, err
	}
	finalObject, err := wire.ReadVarInt(br)
	if err != nil {
		return SubscribeDone{}, err
	}
	return SubscribeDone{ID: id, Code: code, Reason: reason, FinalGroup: finalGroup, FinalObject: finalObject}, nil
}

// Unsubscribe cancels an outstanding subscription by id.
type Unsubscribe struct {
	ID uint64
}

func (m Unsubscribe) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindUnsubscribe)); err != nil {
		return err
	}
	return wire.WriteVarInt(w, m.ID)
}

func DecodeUnsubscribe(r io.Reader) (Unsubscribe, error) {
	id, err := wire.ReadVarInt(wire.AsByteReader(r))
	return Unsubscribe{ID: id}, err
}
