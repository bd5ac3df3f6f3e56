package binwire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rawbytedev/slab"
	"github.com/rawbytedev/slab/internal/common"
	"go.uber.org/zap"
)

// Decode reads a frame into reg and returns its root container.
func Decode(reg *slab.Registry, frame []byte) (*slab.Container, error) {
	all, err := DecodeAll(reg, frame)
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

// DecodeAll reads a frame into reg and returns every record in frame order.
// Each record gets a freshly allocated container and ID; references between
// records are relinked to those IDs. On error nothing stays allocated.
func DecodeAll(reg *slab.Registry, frame []byte) ([]*slab.Container, error) {
	h, err := ParseHeader(frame)
	if err != nil {
		return nil, err
	}
	if len(frame) != h.frameLen() {
		return nil, fmt.Errorf("%w: frame is %d bytes, header says %d", ErrShortFrame, len(frame), h.frameLen())
	}
	if h.Flags&FlagChecksum != 0 {
		if err := checkCRC(frame); err != nil {
			return nil, err
		}
	}
	body := frame[HeaderSize : HeaderSize+int(h.BodyLen)]
	if h.Flags&FlagZstd != 0 {
		if body, err = decompress(body); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	// Every record takes at least three bytes.
	if h.Records == 0 || uint64(h.Records)*3 > uint64(len(body)) {
		return nil, fmt.Errorf("%w: %d records in %d bytes", ErrCorrupt, h.Records, len(body))
	}

	d := decoder{reg: reg, r: reader{b: body}}
	recs, err := d.records(int(h.Records))
	if err != nil {
		d.rollback()
		return nil, err
	}
	return recs, nil
}

type decoder struct {
	reg   *slab.Registry
	r     reader
	fresh []*slab.Container
}

func (d *decoder) rollback() {
	for _, c := range d.fresh {
		if err := d.reg.Release(c); err != nil {
			slab.Logger().Warn("binwire rollback", zap.Uint64("container", c.ID()), zap.Error(err))
		}
	}
	d.fresh = nil
}

func (d *decoder) records(n int) ([]*slab.Container, error) {
	for i := range n {
		if err := d.record(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
	}
	if d.r.off != len(d.r.b) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(d.r.b)-d.r.off)
	}
	for _, c := range d.fresh {
		if err := d.link(c); err != nil {
			return nil, err
		}
	}
	return d.fresh, nil
}

func (d *decoder) record() error {
	version, err := d.r.uvarint()
	if err != nil {
		return err
	}
	n, err := d.r.count()
	if err != nil {
		return err
	}
	fields := make([]slab.FieldDescriptor, 0, n)
	for range n {
		nameLen, err := d.r.count()
		if err != nil {
			return err
		}
		name, err := d.r.bytes(nameLen)
		if err != nil {
			return err
		}
		enc, err := d.r.varint()
		if err != nil {
			return err
		}
		off, err := d.r.uvarint()
		if err != nil {
			return err
		}
		if enc < math.MinInt32 || enc > math.MaxInt32 || off > math.MaxInt32 {
			return fmt.Errorf("%w: field %q length %d offset %d", ErrCorrupt, name, enc, off)
		}
		fd, err := slab.NewFieldDescriptor(string(name), int(enc), int(off))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
		fields = append(fields, fd)
	}
	stride, err := d.r.count()
	if err != nil {
		return err
	}
	raw, err := d.r.bytes(stride)
	if err != nil {
		return err
	}
	s, err := d.reg.Pool().Intern(fields, stride)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if err := checkTags(s, raw); err != nil {
		return err
	}
	c := d.reg.Allocate(s)
	d.fresh = append(d.fresh, c)
	copy(c.Bytes(), raw)
	c.Version = version
	return nil
}

// checkTags rejects tag bytes that contradict the schema: reference fields
// must be tagged Ref, value fields untyped or with a width dividing the
// field length.
func checkTags(s *slab.Schema, raw []byte) error {
	for i := range s.FieldCount() {
		fd := s.FieldAt(i)
		vt := slab.TagType(raw, i)
		ok := vt == slab.TypeRef
		if !fd.IsReference() {
			ok = vt == slab.TypeUnknown || (vt.IsValue() && fd.Length()%vt.Width() == 0)
		}
		if !ok {
			return fmt.Errorf("%w: field %q tagged %s", ErrCorrupt, fd.Name(), vt)
		}
	}
	return nil
}

// link turns record numbers in c's reference slots into registry IDs.
func (d *decoder) link(c *slab.Container) error {
	s, raw := c.Schema(), c.Bytes()
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
			if uint64(r) > uint64(len(d.fresh)) {
				return fmt.Errorf("%w: field %q -> record %d of %d", ErrCorrupt, fd.Name(), uint64(r), len(d.fresh))
			}
			binary.LittleEndian.PutUint64(raw[off:], uint64(slab.RefOf(d.fresh[r-1])))
		}
	}
	return nil
}

type reader struct {
	b   []byte
	off int
}

func (r *reader) uvarint() (uint64, error) {
	v, n := common.ReadVarUint(r.b[r.off:])
	if n == 0 {
		return 0, fmt.Errorf("%w: bad varint at %d", ErrCorrupt, r.off)
	}
	r.off += n
	return v, nil
}

func (r *reader) varint() (int64, error) {
	v, n := common.ReadVarInt(r.b[r.off:])
	if n == 0 {
		return 0, fmt.Errorf("%w: bad varint at %d", ErrCorrupt, r.off)
	}
	r.off += n
	return v, nil
}

// count reads a length that must fit in what is left of the body.
func (r *reader) count() (int, error) {
	v, err := r.uvarint()
	if err != nil {
		return 0, err
	}
	if v > uint64(len(r.b)-r.off) {
		return 0, fmt.Errorf("%w: length %d exceeds remaining %d bytes", ErrCorrupt, v, len(r.b)-r.off)
	}
	return int(v), nil
}

func (r *reader) bytes(n int) ([]byte, error) {
	if n > len(r.b)-r.off {
		return nil, fmt.Errorf("%w: need %d bytes at %d", ErrCorrupt, n, r.off)
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out, nil
}
