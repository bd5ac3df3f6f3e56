// Package jsonwire maps JSON documents to slab containers and back.
//
// Decoding needs no declared schema: every key becomes a field whose kind and
// width are inferred from its literal, and nested objects become child
// containers held by reference. Decoding into a container that already has
// fields reconciles each literal with the existing field through the
// container's self-heal rules instead of resizing anything.
package jsonwire

import (
	"errors"
	"fmt"
	"slices"

	"github.com/buger/jsonparser"
	"github.com/rawbytedev/slab"
	"go.uber.org/zap"
)

var (
	ErrNotObject = errors.New("jsonwire: document is not an object")
	ErrCycle     = errors.New("jsonwire: reference cycle")
)

// literal is one decoded key before it is applied to a container.
type literal struct {
	name  string
	kind  slab.ValueType // TypeRef for objects/null, TypeUnknown for []
	array bool
	elems [][]byte // number or bool text
	text  string   // string literals
	objs  [][]byte // raw objects, nil for null
}

func (l *literal) count() int {
	switch {
	case l.kind == slab.TypeChar:
		return len(l.text)
	case l.kind == slab.TypeRef:
		return len(l.objs)
	}
	return len(l.elems)
}

func (l *literal) request() slab.FieldDescriptor {
	switch {
	case l.kind == slab.TypeRef && l.array:
		return slab.ReferenceArray(l.name, len(l.objs))
	case l.kind == slab.TypeRef:
		return slab.Reference(l.name)
	case l.kind == slab.TypeUnknown:
		return slab.Fixed(l.name, 0)
	}
	return slab.ValueField(l.name, l.kind, l.count())
}

type decoder struct {
	reg   *slab.Registry
	fresh []*slab.Container
	saved map[*slab.Container]slab.Checkpoint
}

// Decode builds a new container in reg from a JSON object. Nested objects
// are allocated as child containers. On error nothing stays allocated.
func Decode(reg *slab.Registry, data []byte) (*slab.Container, error) {
	d := decoder{reg: reg}
	c := d.alloc()
	if err := d.into(c, data); err != nil {
		d.rollback()
		return nil, err
	}
	return c, nil
}

// DecodeInto applies a JSON object to an existing container. Missing fields
// are added in one schema change; existing fields keep their layout and are
// coerced in place when the literal's kind differs from the stored tag.
// Children referenced by existing fields are decoded into when still live.
// On error every pre-existing container is put back as it was.
func DecodeInto(c *slab.Container, data []byte) error {
	if c.ID() == 0 {
		return slab.ErrNotLive
	}
	d := decoder{reg: c.Registry()}
	if err := d.into(c, data); err != nil {
		d.rollback()
		return err
	}
	return nil
}

func (d *decoder) alloc() *slab.Container {
	c := d.reg.Allocate(nil)
	d.fresh = append(d.fresh, c)
	return c
}

// rollback undoes every edit to containers that existed before the decode,
// then releases the ones it allocated.
func (d *decoder) rollback() {
	for c, cp := range d.saved {
		if err := cp.Restore(); err != nil {
			slab.Logger().Warn("jsonwire restore", zap.Uint64("container", c.ID()), zap.Error(err))
		}
	}
	d.saved = nil
	for _, c := range d.fresh {
		if err := d.reg.Release(c); err != nil {
			slab.Logger().Warn("jsonwire rollback", zap.Uint64("container", c.ID()), zap.Error(err))
		}
	}
	d.fresh = nil
}

func (d *decoder) save(c *slab.Container) {
	if slices.Contains(d.fresh, c) {
		return
	}
	if _, ok := d.saved[c]; ok {
		return
	}
	if d.saved == nil {
		d.saved = make(map[*slab.Container]slab.Checkpoint)
	}
	d.saved[c] = c.Checkpoint()
}

func (d *decoder) into(c *slab.Container, data []byte) error {
	lits, err := parseObject(data)
	if err != nil {
		return err
	}
	d.save(c)
	var missing []slab.FieldDescriptor
	for _, l := range lits {
		if !c.Has(l.name) {
			missing = append(missing, l.request())
		}
	}
	if err := c.Extend(missing...); err != nil {
		return err
	}
	for _, l := range lits {
		if err := d.apply(c, l); err != nil {
			return fmt.Errorf("jsonwire: field %q: %w", l.name, err)
		}
	}
	return nil
}

func parseObject(data []byte) ([]*literal, error) {
	_, typ, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	if typ != jsonparser.Object {
		return nil, ErrNotObject
	}
	var lits []*literal
	seen := make(map[string]struct{})
	err = jsonparser.ObjectEach(data, func(key, value []byte, typ jsonparser.ValueType, _ int) error {
		name, err := unescapeKey(key)
		if err != nil {
			return err
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: %q", slab.ErrDuplicateField, name)
		}
		seen[name] = struct{}{}
		l, err := parseLiteral(name, value, typ)
		if err != nil {
			return fmt.Errorf("jsonwire: key %q: %w", name, err)
		}
		lits = append(lits, l)
		return nil
	})
	return lits, err
}

func unescapeKey(key []byte) (string, error) {
	var scratch [64]byte
	out, err := jsonparser.Unescape(key, scratch[:])
	if err != nil {
		return "", fmt.Errorf("%w: key %q", slab.ErrInvalidText, key)
	}
	return string(out), nil
}

func parseLiteral(name string, value []byte, typ jsonparser.ValueType) (*literal, error) {
	l := &literal{name: name}
	switch typ {
	case jsonparser.Number:
		vt, err := slab.InferNumber(string(value))
		if err != nil {
			return nil, err
		}
		l.kind, l.elems = vt, [][]byte{value}
	case jsonparser.Boolean:
		l.kind, l.elems = slab.TypeBool, [][]byte{value}
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", slab.ErrInvalidText, err)
		}
		l.kind, l.array, l.text = slab.TypeChar, true, s
	case jsonparser.Null:
		l.kind, l.objs = slab.TypeRef, [][]byte{nil}
	case jsonparser.Object:
		l.kind, l.objs = slab.TypeRef, [][]byte{value}
	case jsonparser.Array:
		return l, parseArray(l, value)
	default:
		return nil, fmt.Errorf("%w: json %s", slab.ErrUnsupported, typ)
	}
	return l, nil
}

// parseArray fills l from an array literal: all objects/nulls make a
// reference array, all numbers/bools a value array of the unified kind.
func parseArray(l *literal, value []byte) error {
	l.array = true
	var kinds []slab.ValueType
	var refs, vals int
	var inner error
	_, err := jsonparser.ArrayEach(value, func(v []byte, typ jsonparser.ValueType, _ int, err error) {
		if inner != nil {
			return
		}
		if err != nil {
			inner = err
			return
		}
		switch typ {
		case jsonparser.Object:
			refs++
			l.objs = append(l.objs, v)
		case jsonparser.Null:
			refs++
			l.objs = append(l.objs, nil)
		case jsonparser.Number:
			vt, err := slab.InferNumber(string(v))
			if err != nil {
				inner = err
				return
			}
			vals++
			kinds = append(kinds, vt)
			l.elems = append(l.elems, v)
		case jsonparser.Boolean:
			vals++
			kinds = append(kinds, slab.TypeBool)
			l.elems = append(l.elems, v)
		default:
			inner = fmt.Errorf("%w: json %s array element", slab.ErrUnsupported, typ)
		}
	})
	if inner != nil {
		return inner
	}
	if err != nil {
		return fmt.Errorf("%w: %v", slab.ErrInvalidText, err)
	}
	switch {
	case refs > 0 && vals > 0:
		return fmt.Errorf("%w: array mixes objects and values", slab.ErrUnsupported)
	case refs > 0:
		l.kind = slab.TypeRef
	case vals > 0:
		vt, err := slab.UnifyElements(kinds)
		if err != nil {
			return err
		}
		l.kind = vt
	default:
		l.kind = slab.TypeUnknown
	}
	return nil
}

func (d *decoder) apply(c *slab.Container, l *literal) error {
	switch l.kind {
	case slab.TypeRef:
		return d.applyRefs(c, l)
	case slab.TypeChar:
		return slab.WriteString(c, l.name, l.text)
	case slab.TypeUnknown:
		h, err := c.Header(l.name)
		if err != nil {
			return err
		}
		if h.Length() != 0 {
			return fmt.Errorf("%w: empty array for %d bytes", slab.ErrWidthMismatch, h.Length())
		}
		return nil
	}
	vt, err := target(c, l)
	if err != nil {
		return err
	}
	h, err := c.EnsureValue(l.name, vt, len(l.elems), l.array)
	if err != nil {
		return err
	}
	for i, e := range l.elems {
		v, err := c.ElementView(h, i)
		if err != nil {
			return err
		}
		if err := v.SetText(string(e)); err != nil {
			return err
		}
	}
	return nil
}

// target picks the element type for a value literal. An existing typed
// field keeps its tag when the literal fits it; an untyped field takes the
// literal's class at the field's element width; otherwise the inferred kind
// wins and the field is coerced to it.
func target(c *slab.Container, l *literal) (slab.ValueType, error) {
	h, err := c.Header(l.name)
	if err != nil {
		return slab.TypeUnknown, err
	}
	n := len(l.elems)
	if h.IsRef() || n == 0 {
		return l.kind, nil
	}
	cur := h.Type()
	if cur != slab.TypeUnknown {
		if fits(l.kind, cur) && n*cur.Width() == h.Length() {
			return cur, nil
		}
		return l.kind, nil
	}
	if h.Length()%n == 0 {
		if vt, ok := sameClass(l.kind, h.Length()/n); ok {
			return vt, nil
		}
	}
	return l.kind, nil
}

func numeric(vt slab.ValueType) bool {
	return vt.IsValue() && vt != slab.TypeBool && vt != slab.TypeChar
}

func fits(lit, cur slab.ValueType) bool {
	switch {
	case lit == slab.TypeBool:
		return cur == slab.TypeBool
	case lit.IsFloat():
		return cur.IsFloat()
	}
	return numeric(cur)
}

func sameClass(lit slab.ValueType, width int) (slab.ValueType, bool) {
	var family []slab.ValueType
	switch {
	case lit == slab.TypeBool:
		family = []slab.ValueType{slab.TypeBool}
	case lit.IsFloat():
		family = []slab.ValueType{slab.TypeFloat32, slab.TypeFloat64}
	case lit == slab.TypeUInt64:
		family = []slab.ValueType{slab.TypeUInt8, slab.TypeUInt16, slab.TypeUInt32, slab.TypeUInt64}
	default:
		family = []slab.ValueType{slab.TypeInt8, slab.TypeInt16, slab.TypeInt32, slab.TypeInt64}
	}
	for _, vt := range family {
		if vt.Width() == width {
			return vt, true
		}
	}
	return slab.TypeUnknown, false
}

func (d *decoder) applyRefs(c *slab.Container, l *literal) error {
	if _, err := c.EnsureReference(l.name, len(l.objs), l.array); err != nil {
		return err
	}
	for i, raw := range l.objs {
		// Re-fetch per slot: decoding a child that is c itself may relayout c.
		arr, err := c.GetObjectArray(l.name)
		if err != nil {
			return err
		}
		if raw == nil {
			if err := arr.SetRef(i, slab.Empty); err != nil {
				return err
			}
			continue
		}
		child, err := arr.Get(i)
		if err != nil && !errors.Is(err, slab.ErrNotLive) {
			return err
		}
		if child == nil {
			child = d.alloc()
		}
		if err := d.into(child, raw); err != nil {
			return err
		}
		if arr, err = c.GetObjectArray(l.name); err != nil {
			return err
		}
		if err := arr.Set(i, child); err != nil {
			return err
		}
	}
	return nil
}
