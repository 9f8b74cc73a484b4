package wire

import (
	"errors"
	"io"
)

// ErrDuplicateParam is returned when a parameter id appears more than once
// in a single dictionary.
var ErrDuplicateParam = errors.New("wire: duplicate parameter id")

// Params is an ordered dictionary of varint-id -> byte-string parameters.
// Unknown ids are preserved verbatim so messages round-trip through a peer
// that doesn't understand every parameter.
type Params struct {
	order []uint64
	value map[uint64][]byte
}

// NewParams returns an empty parameter dictionary.
func NewParams() Params {
	return Params{value: make(map[uint64][]byte)}
}

// Set stores id -> v, overwriting any previous value for id without
// affecting its position in iteration order.
func (p *Params) Set(id uint64, v []byte) {
	if p.value == nil {
		p.value = make(map[uint64][]byte)
	}
	if _, ok := p.value[id]; !ok {
		p.order = append(p.order, id)
	}
	p.value[id] = v
}

// Get returns the value stored for id, if any.
func (p *Params) Get(id uint64) ([]byte, bool) {
	v, ok := p.value[id]
	return v, ok
}

// Clone returns an independent copy of p: mutating the result (e.g. via
// Set) never affects p's own backing map or order slice.
func (p Params) Clone() Params {
	order := append([]uint64(nil), p.order...)
	value := make(map[uint64][]byte, len(p.value))
	for id, v := range p.value {
		value[id] = v
	}
	return Params{order: order, value: value}
}

// Len returns the number of parameters.
func (p *Params) Len() int { return len(p.order) }

// Each calls fn for every parameter in insertion order.
func (p *Params) Each(fn func(id uint64, v []byte)) {
	for _, id := range p.order {
		fn(id, p.value[id])
	}
}

// Encode writes the varint count followed by each (id, bytes) pair.
func (p Params) Encode(w io.Writer) error {
	if err := WriteVarInt(w, uint64(len(p.order))); err != nil {
		return err
	}
	for _, id := range p.order {
		if err := WriteVarInt(w, id); err != nil {
			return err
		}
		if err := WriteBytes(w, p.value[id]); err != nil {
			return err
		}
	}
	return nil
}

// DecodeParams reads a varint count then that many (id, bytes) pairs.
func DecodeParams(r io.Reader) (Params, error) {
	br := AsByteReader(r)
	count, err := ReadVarInt(br)
	if err != nil {
		return Params{}, err
	}

	p := NewParams()
	for i := uint64(0); i < count; i++ {
		id, err := ReadVarInt(br)
		if err != nil {
			return Params{}, err
		}
		v, err := ReadBytes(r)
		if err != nil {
			return Params{}, err
		}
		if _, dup := p.value[id]; dup {
			return Params{}, ErrDuplicateParam
		}
		p.Set(id, v)
	}
	return p, nil
}
