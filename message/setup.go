package message

import (
	"io"

	"github.com/moqtransfork/moqrelay/wire"
)

// Role identifies which direction of traffic a session side intends to
// carry: a pure publisher, a pure subscriber, or both.
type Role uint64

const (
	RolePublisher Role = 1
	RoleSubscriber Role = 2
	RoleBoth Role = 3
)

// ParamRole is the setup parameter id carrying Role.
const ParamRole uint64 = 0x00

// Version is a supported protocol version number. This repository speaks
// exactly one, but the handshake is shaped to negotiate among several so a
// future revision only needs a new constant.
type Version uint64

const CurrentVersion Version = 0xff00000a

// ClientSetup is sent first by the connecting side.
type ClientSetup struct {
	Versions []Version
	Role     Role
	Params   wire.Params
}

func (m ClientSetup) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindClientSetup)); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, uint64(len(m.Versions))); err != nil {
		return err
	}
	for _, v := range m.Versions {
		if err := wire.WriteVarInt(w, uint64(v)); err != nil {
			return err
		}
	}
	params := m.Params.Clone()
	params.Set(ParamRole, []byte{byte(m.Role)})
	return params.Encode(w)
}

func DecodeClientSetup(r io.Reader) (ClientSetup, error) {
	br := wire.AsByteReader(r)
	n, err := wire.ReadVarInt(br)
	if err != nil {
		return ClientSetup{}, err
	}
	versions := make([]Version, n)
	for i := range versions {
		v, err := wire.ReadVarInt(br)
		if err != nil {
			return ClientSetup{}, err
		}
		versions[i] = Version(v)
	}
	params, err := wire.DecodeParams(r)
	if err != nil {
		return ClientSetup{}, err
	}
	role, err := decodeRole(params)
	if err != nil {
		return ClientSetup{}, err
	}
	return ClientSetup{Versions: versions, Role: role, Params: params}, nil
}

// ServerSetup is the server's reply, selecting exactly one version.
type ServerSetup struct {
	Version Version
	Role    Role
	Params  wire.Params
}

func (m ServerSetup) Encode(w io.Writer) error {
	if err := wire.WriteVarInt(w, uint64(KindServerSetup)); err != nil {
		return err
	}
	if err := wire.WriteVarInt(w, uint64(m.Version)); err != nil {
		return err
	}
	params := m.Params.Clone()
	params.Set(ParamRole, []byte{byte(m.Role)})
	return params.Encode(w)
}

func DecodeServerSetup(r io.Reader) (ServerSetup, error) {
	br := wire.AsByteReader(r)
	v, err := wire.ReadVarInt(br)
	if err != nil {
		return ServerSetup{}, err
	}
	params, err := wire.DecodeParams(r)
	if err != nil {
		return ServerSetup{}, err
	}
	role, err := decodeRole(params)
	if err != nil {
		return ServerSetup{}, err
	}
	return ServerSetup{Version: Version(v), Role: role, Params: params}, nil
}

func decodeRole(p wire.Params) (Role, error) {
	v, ok := p.Get(ParamRole)
	if !ok || len(v) != 1 {
		return 0, ErrMissingField
	}
	return Role(v[0]), nil
}

// NegotiateVersion picks the first offered version this server also
// supports, preserving the client's preference order.
func NegotiateVersion(offered []Version, supported ...Version) (Version, error) {
	supportedSet := make(map[Version]bool, len(supported))
	for _, v := range supported {
		supportedSet[v] = true
	}
	for _, v := range offered {
		if supportedSet[v] {
			return v, nil
		}
	}
	return 0, ErrUnsupportedVersion
}
