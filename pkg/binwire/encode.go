package binwire

import (
	"encoding/binary"
	"fmt"

	"github.com/rawbytedev/slab"
	"github.com/rawbytedev/slab/internal/common"
)

// Encode writes root and every container reachable from it as one frame.
// Records are ordered breadth first from root, so root is record 1. Cycles
// are fine; a reference to a released container is not.
func Encode(root *slab.Container, flags uint16) ([]byte, error) {
	if flags&^knownFlags != 0 {
		return nil, fmt.Errorf("%w: flags %#04x", ErrBadVersion, flags)
	}
	var order []*slab.Container
	if err := slab.Walk(root, func(c *slab.Container) error {
		order = append(order, c)
		return nil
	}); err != nil {
		return nil, err
	}
	local := make(map[uint64]uint64, len(order))
	est := 0
	for i, c := range order {
		local[c.ID()] = uint64(i + 1)
		est += len(c.Bytes()) + 16*c.FieldCount() + 8
	}

	body := make([]byte, 0, est)
	var err error
	for _, c := range order {
		if body, err = appendRecord(body, c, local); err != nil {
			return nil, err
		}
	}
	if flags&FlagZstd != 0 {
		if body, err = compress(body); err != nil {
			return nil, err
		}
	}
	out := make([]byte, 0, HeaderSize+len(body)+TrailerCRC)
	out = encodeHeader(out, Header{
		Magic:   Magic,
		Version: VersionV1,
		Flags:   flags,
		Records: uint32(len(order)),
		BodyLen: uint32(len(body)),
	})
	out = append(out, body...)
	if flags&FlagChecksum != 0 {
		out = appendCRC(out)
	}
	return out, nil
}

// appendRecord writes version, schema and raw buffer of c, with reference
// slots rewritten from registry IDs to record numbers.
func appendRecord(dst []byte, c *slab.Container, local map[uint64]uint64) ([]byte, error) {
	s := c.Schema()
	dst = common.WriteVarUintTo(dst, c.Version)
	dst = common.WriteVarUintTo(dst, uint64(s.FieldCount()))
	for i := range s.FieldCount() {
		fd := s.FieldAt(i)
		dst = common.WriteVarUintTo(dst, uint64(len(fd.Name())))
		dst = append(dst, fd.Name()...)
		dst = common.WriteVarInt(dst, int64(fd.EncodedLength()))
		dst = common.WriteVarUintTo(dst, uint64(fd.Offset()))
	}
	dst = common.WriteVarUintTo(dst, uint64(s.Stride()))
	start := len(dst)
	dst = append(dst, c.Bytes()...)
	raw := dst[start:]
	for i := range s.FieldCount() {
		fd := s.FieldAt(i)
		if !fd.IsReference() {
			continue
		}
		for off := fd.Offset(); off < fd.End(); off += slab.RefSize {
			r := slab.ContainerReference(binary.LittleEndian.Uint64(raw[off:]))
			if r.IsNull() {
				continue
			}
			n, ok := local[uint64(r)]
			if !ok {
				return nil, fmt.Errorf("%w: #%d field %q -> %s", slab.ErrNotLive, c.ID(), fd.Name(), r)
			}
			binary.LittleEndian.PutUint64(raw[off:], n)
		}
	}
	return dst, nil
}
