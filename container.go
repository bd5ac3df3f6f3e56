package slab

import (
	"cmp"
	"fmt"
	"slices"
	"sync/atomic"

	"go.uber.org/zap"
)

// Container is one object instance: a byte buffer laid out by an interned
// Schema, preceded by a one-byte-per-field type tag header. Containers come
// from a Registry and go back to it on Release.
//
// Field operations assume a single writer per container.
type Container struct {
	id  atomic.Uint64
	gen atomic.Uint64

	// Version is a caller-owned counter. No field operation changes it.
	Version uint64

	schema *Schema
	buf    []byte
	reg    *Registry
}

func (c *Container) reset(schema *Schema) {
	if cap(c.buf) >= schema.stride {
		c.buf = c.buf[:schema.stride]
		clear(c.buf)
	} else {
		c.buf = make([]byte, schema.stride)
	}
	c.schema = schema
	c.Version = 0
	c.initTags(0)
}

// initTags marks reference fields from index from onward; value fields stay
// untyped until their first typed access.
func (c *Container) initTags(from int) {
	hdr := c.tags()
	for i := from; i < len(c.schema.fields); i++ {
		fd := c.schema.fields[i]
		if fd.IsReference() {
			SetTag(hdr, i, TypeRef, fd.Length() > RefSize)
		} else {
			hdr[i] = 0
		}
	}
}

// ID is 0 while the container is not registered.
func (c *Container) ID() uint64 { return c.id.Load() }

// Generation counts how many times this instance has been handed out.
func (c *Container) Generation() uint64 { return c.gen.Load() }

// IsDisposed reports whether a container observed at gen has since been
// released or recycled.
func (c *Container) IsDisposed(gen uint64) bool { return !IsLive(c, gen) }

func (c *Container) Schema() *Schema { return c.schema }

func (c *Container) Registry() *Registry { return c.reg }

// Bytes is the raw buffer, tag header included. Codecs may read and write it
// in place; its length is always Schema().Stride().
func (c *Container) Bytes() []byte { return c.buf }

func (c *Container) FieldCount() int { return len(c.schema.fields) }

func (c *Container) tags() []byte { return c.buf[:len(c.schema.fields)] }

func (c *Container) data(i int) []byte {
	fd := c.schema.fields[i]
	return c.buf[fd.Offset():fd.End():fd.End()]
}

// FieldHeader is a point-in-time description of one field. It goes stale
// when the container's schema changes.
type FieldHeader struct {
	index int
	desc  FieldDescriptor
	tag   byte
}

func (h FieldHeader) Index() int { return h.index }

func (h FieldHeader) Name() string { return h.desc.name }

func (h FieldHeader) Descriptor() FieldDescriptor { return h.desc }

func (h FieldHeader) Type() ValueType { return ValueType(h.tag & tagTypeMask) }

func (h FieldHeader) IsRef() bool { return h.desc.IsReference() }

func (h FieldHeader) IsArray() bool { return h.tag&tagArrayFlag != 0 }

// ElemSize is the width of one element, 0 while the field is untyped.
func (h FieldHeader) ElemSize() int { return h.Type().Width() }

// DataOffset is the field's absolute offset in Bytes().
func (h FieldHeader) DataOffset() int { return h.desc.Offset() }

func (h FieldHeader) Length() int { return h.desc.Length() }

// Count is the number of elements, 0 while the field is untyped.
func (h FieldHeader) Count() int {
	if w := h.ElemSize(); w > 0 {
		return h.desc.Length() / w
	}
	return 0
}

// FieldHeader returns the header of the i-th field.
func (c *Container) FieldHeader(i int) (FieldHeader, error) {
	if i < 0 || i >= len(c.schema.fields) {
		return FieldHeader{}, fmt.Errorf("%w: field index %d of %d", ErrIndexOutOfRange, i, len(c.schema.fields))
	}
	return FieldHeader{index: i, desc: c.schema.fields[i], tag: c.buf[i]}, nil
}

// Header returns the header of the named field.
func (c *Container) Header(name string) (FieldHeader, error) {
	i, err := c.index(name)
	if err != nil {
		return FieldHeader{}, err
	}
	return c.FieldHeader(i)
}

func (c *Container) FieldName(h FieldHeader) string { return h.desc.name }

func (c *Container) IsArray(h FieldHeader) bool {
	i, err := c.check(h)
	return err == nil && TagIsArray(c.tags(), i)
}

func (c *Container) check(h FieldHeader) (int, error) {
	if h.index < 0 || h.index >= len(c.schema.fields) || !c.schema.fields[h.index].Equal(h.desc) {
		return -1, fmt.Errorf("%w: stale header for %q", ErrFieldNotFound, h.desc.name)
	}
	return h.index, nil
}

func (c *Container) index(name string) (int, error) {
	i, ok := c.schema.index[name]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrFieldNotFound, name)
	}
	return i, nil
}

// Has reports whether the schema has a field called name.
func (c *Container) Has(name string) bool {
	_, ok := c.schema.index[name]
	return ok
}

// ValueView returns a view over a single-element field. Untyped fields get
// an untyped view over all their bytes.
func (c *Container) ValueView(h FieldHeader) (ValueView, error) {
	i, err := c.check(h)
	if err != nil {
		return ValueView{}, err
	}
	vt := TagType(c.tags(), i)
	b := c.data(i)
	if vt != TypeUnknown && len(b) != vt.Width() {
		return ValueView{}, fmt.Errorf("%w: field %q holds %d %s elements", ErrWidthMismatch, h.desc.name, len(b)/vt.Width(), vt)
	}
	return NewValueView(vt, b)
}

// ElementView returns a view over element idx of an array field.
func (c *Container) ElementView(h FieldHeader, idx int) (ValueView, error) {
	i, err := c.check(h)
	if err != nil {
		return ValueView{}, err
	}
	vt := TagType(c.tags(), i)
	w := vt.Width()
	if w == 0 {
		return ValueView{}, fmt.Errorf("%w: field %q is untyped", ErrUnsupported, h.desc.name)
	}
	b := c.data(i)
	if idx < 0 || idx >= len(b)/w {
		return ValueView{}, fmt.Errorf("%w: %q[%d] of %d", ErrIndexOutOfRange, h.desc.name, idx, len(b)/w)
	}
	return NewValueView(vt, b[idx*w:(idx+1)*w])
}

// coerce reconciles field i with a typed access of vt. Same-width accesses
// convert the stored elements in place and retag; untyped fields are retagged
// without conversion. Reference/value crossings and width changes fail.
func (c *Container) coerce(i int, vt ValueType, scalar bool) error {
	fd := c.schema.fields[i]
	if fd.IsReference() != (vt == TypeRef) {
		return fmt.Errorf("%w: field %q is a %s field, accessed as %s", ErrStructuralMismatch, fd.name, kindWord(fd), vt)
	}
	w := vt.Width()
	if (scalar && fd.Length() != w) || fd.Length()%w != 0 {
		return fmt.Errorf("%w: field %q has %d bytes, accessed as %s", ErrWidthMismatch, fd.name, fd.Length(), vt)
	}
	hdr := c.tags()
	cur := TagType(hdr, i)
	switch {
	case cur == vt, textBytes(cur, vt):
	case cur == TypeUnknown:
		if vt == TypeBool {
			b := c.data(i)
			for j := range b {
				b[j] = b2u(b[j] != 0)
			}
		}
		SetTagType(hdr, i, vt)
	case cur.Width() != w:
		return fmt.Errorf("%w: field %q holds %s elements, accessed as %s", ErrWidthMismatch, fd.name, cur, vt)
	default:
		convertElements(c.data(i), cur, vt)
		SetTagType(hdr, i, vt)
		Logger().Debug("field coerced",
			zap.Uint64("container", c.ID()),
			zap.String("field", fd.name),
			zap.Stringer("from", cur),
			zap.Stringer("to", vt))
	}
	if !scalar {
		SetTag(hdr, i, TagType(hdr, i), true)
	}
	return nil
}

// textBytes lets byte and char accesses share a field without retagging.
func textBytes(cur, vt ValueType) bool {
	return (cur == TypeChar && vt == TypeUInt8) || (cur == TypeUInt8 && vt == TypeChar)
}

func kindWord(fd FieldDescriptor) string {
	if fd.IsReference() {
		return "reference"
	}
	return "value"
}

// Move renames a field. Data, tags and Version are kept; a registry with
// Canonical set re-sorts the layout under the new name.
func (c *Container) Move(oldName, newName string) error {
	i, err := c.index(oldName)
	if err != nil {
		return err
	}
	if oldName == newName {
		return nil
	}
	if c.Has(newName) {
		return fmt.Errorf("%w: %q", ErrDuplicateField, newName)
	}
	fields := slices.Clone(c.schema.fields)
	fields[i] = fields[i].WithName(newName)
	if c.reg.opts.Canonical {
		// The renamed field may sort elsewhere. migrate copies by name from
		// the current schema, so present the rename to it first.
		old := c.schema
		c.schema = newSchema(fields, old.stride, 0)
		if err := c.evolve(slices.Clone(fields), true); err != nil {
			c.schema = old
			return err
		}
		return nil
	}
	s, err := c.reg.pool.Intern(fields, c.schema.stride)
	if err != nil {
		return err
	}
	c.schema = s
	return nil
}

// Delete removes a field and compacts the layout. Version is untouched.
func (c *Container) Delete(name string) error {
	i, err := c.index(name)
	if err != nil {
		return err
	}
	reqs := slices.Delete(slices.Clone(c.schema.fields), i, i+1)
	return c.evolve(reqs, false)
}

// Extend adds new fields, re-laying out the buffer and keeping existing
// field values and tags. This is the schema-less entry point codecs use;
// typed accessors never create fields. Names already present fail with
// ErrDuplicateField.
func (c *Container) Extend(fields ...FieldDescriptor) error {
	if len(fields) == 0 {
		return nil
	}
	reqs := slices.Clone(c.schema.fields)
	for _, f := range fields {
		if f.err != nil {
			return f.err
		}
		if c.Has(f.name) {
			return fmt.Errorf("%w: %q", ErrDuplicateField, f.name)
		}
		reqs = append(reqs, f)
	}
	return c.evolve(reqs, c.reg.opts.Canonical)
}

// Checkpoint is a saved copy of a container's schema and bytes.
type Checkpoint struct {
	c      *Container
	gen    uint64
	schema *Schema
	buf    []byte
}

// Checkpoint copies c's current layout and data so a failed multi-step
// edit can be undone with Restore. Version is not captured.
func (c *Container) Checkpoint() Checkpoint {
	return Checkpoint{c: c, gen: c.gen.Load(), schema: c.schema, buf: slices.Clone(c.buf)}
}

// Restore puts the container back to the saved layout and data. It fails
// with ErrNotLive if the container was released or reused since.
func (cp Checkpoint) Restore() error {
	if !IsLive(cp.c, cp.gen) {
		return fmt.Errorf("%w: restore of container %d", ErrNotLive, cp.c.ID())
	}
	cp.c.schema = cp.schema
	cp.c.buf = slices.Clone(cp.buf)
	return nil
}

// evolve lays reqs out, interns the result and migrates data by field name.
func (c *Container) evolve(reqs []FieldDescriptor, canonical bool) error {
	if canonical {
		slices.SortStableFunc(reqs, func(x, y FieldDescriptor) int { return cmp.Compare(x.name, y.name) })
	}
	fields, stride, err := layoutFields(reqs)
	if err != nil {
		return err
	}
	s, err := c.reg.pool.Intern(fields, stride)
	if err != nil {
		return err
	}
	c.migrate(s)
	Logger().Debug("container schema evolved",
		zap.Uint64("container", c.ID()),
		zap.Int("fields", s.FieldCount()),
		zap.Int("stride", s.Stride()))
	return nil
}

func (c *Container) migrate(s *Schema) {
	old, oldBuf := c.schema, c.buf
	c.schema = s
	c.buf = make([]byte, s.stride)
	c.initTags(0)
	hdr := c.tags()
	for j, fd := range s.fields {
		_, i, ok := old.Field(fd.name)
		if !ok {
			continue
		}
		ofd := old.fields[i]
		copy(c.buf[fd.Offset():fd.End()], oldBuf[ofd.Offset():ofd.End()])
		hdr[j] = oldBuf[i]
	}
}
