package message

import (
	"io"

	"github.com/moqtransfork/moqrelay/wire"
)

// ParamAuth is the announce parameter id carrying an opaque auth token,
// matching moq-transport's track_namespace auth param (id 0x02).
const ParamAuth uint64 = 0x02

// Announce advertises a broadcast namespace as available.
type Announce struct {
	Namespace string
	Auth      []byte // nil if absent
	Unknown   wire.Params
}

func (m Announce) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindAnnounce)); err != nil {
		return err
	}
	if err := wire.WriteString(w, m.Namespace); err != nil {
		return err
	}
	params := m.Unknown.Clone()
	if m.Auth != nil {
		params.Set(ParamAuth, m.Auth)
	}
	return params.Encode(w)
}

func DecodeAnnounce(r io.Reader) (Announce, error) {
	ns, err := wire.ReadString(r)
	if err != nil {
		return Announce{}, err
	}
	params, err := wire.DecodeParams(r)
	if err != nil {
		return Announce{}, err
	}
	auth, _ := params.Get(ParamAuth)
	return Announce{Namespace: ns, Auth: auth, Unknown: params}, nil
}

// AnnounceOk confirms an Announce was accepted.
type AnnounceOk struct {
	Namespace string
}

func (m AnnounceOk) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindAnnounceOk)); err != nil {
		return err
	}
	return wire.WriteString(w, m.Namespace)
}

func DecodeAnnounceOk(r io.Reader) (AnnounceOk, error) {
	ns, err := wire.ReadString(r)
	return AnnounceOk{Namespace: ns}, err
}

// AnnounceError rejects an Announce with a reason.
type AnnounceError struct {
	Namespace string
	Code      uint64
	Reason    string
}

func (m AnnounceError) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindAnnounceError)); err != nil {
		return err
	}
	if err := wire.WriteString(w, m.Namespace); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, m.Code); err != nil {
		return err
	}
	return wire.WriteString(w, m.Reason)
}

func DecodeAnnounceError(r io.Reader) (AnnounceError, error) {
	ns, err := wire.ReadString(r)
	if err != nil {
		return AnnounceError{}, err
	}
	code, err := wire.ReadVarInt(wire.AsByteReader(r))
	if err != nil {
		return AnnounceError{}, err
	}
	reason, err := wire.ReadString(r)
	if err != nil {
		return AnnounceError{}, err
	}
	return AnnounceError{Namespace: ns, Code: code, Reason: reason}, nil
}

// Unannounce withdraws a previously announced namespace.
type Unannounce struct {
	Namespace string
}

func (m Unannounce) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindUnannounce)); err != nil {
		return err
	}
	return wire.WriteString(w, m.Namespace)
}

func DecodeUnannounce(r io.Reader) (Unannounce, error) {
	ns, err := wire.ReadString(r)
	return Unannounce{Namespace: ns}, err
}
