package message

import (
	"io"

	"github.com/moqtransfork/moqrelay/wire"
)

// GoAway asks the peer to migrate to a new URI and enter draining.
type GoAway struct {
	NewURI string
}

func (m GoAway) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindGoAway)); err != nil {
		return err
	}
	return wire.WriteString(w, m.NewURI)
}

func DecodeGoAway(r io.Reader) (GoAway, error) {
	uri, err := wire.ReadString(r)
	return GoAway{NewURI: uri}, err
}
