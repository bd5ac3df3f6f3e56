package jsonwire

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rawbytedev/slab"
)

// Encode renders c as a JSON object in field order. Reference fields become
// nested objects (or null), char arrays become strings and untyped fields
// become arrays of their raw bytes. Floats always carry a decimal point or
// exponent so a schema-less decode infers a float again. A container that
// reaches itself through its references fails with ErrCycle; shared
// children are rendered once per path.
func Encode(c *slab.Container) ([]byte, error) {
	e := encoder{path: make(map[uint64]struct{})}
	return e.object(make([]byte, 0, c.Schema().Stride()*2+2), c)
}

type encoder struct {
	path map[uint64]struct{}
}

func (e *encoder) object(dst []byte, c *slab.Container) ([]byte, error) {
	id := c.ID()
	if id == 0 {
		return nil, slab.ErrNotLive
	}
	if _, ok := e.path[id]; ok {
		return nil, fmt.Errorf("%w: container #%d", ErrCycle, id)
	}
	e.path[id] = struct{}{}
	defer delete(e.path, id)

	dst = append(dst, '{')
	for i := range c.FieldCount() {
		h, err := c.FieldHeader(i)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = appendString(dst, h.Name())
		dst = append(dst, ':')
		if dst, err = e.field(dst, c, h); err != nil {
			return nil, fmt.Errorf("jsonwire: field %q: %w", h.Name(), err)
		}
	}
	return append(dst, '}'), nil
}

func (e *encoder) field(dst []byte, c *slab.Container, h slab.FieldHeader) ([]byte, error) {
	switch {
	case h.IsRef():
		return e.refs(dst, c, h)
	case h.Type() == slab.TypeChar:
		s, err := slab.ReadString(c, h.Name())
		if err != nil {
			return nil, err
		}
		return appendString(dst, s), nil
	case h.Type() == slab.TypeUnknown:
		dst = append(dst, '[')
		for i, b := range c.Bytes()[h.DataOffset() : h.DataOffset()+h.Length()] {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = strconv.AppendUint(dst, uint64(b), 10)
		}
		return append(dst, ']'), nil
	}
	if h.IsArray() {
		dst = append(dst, '[')
	}
	for i := range h.Count() {
		v, err := c.ElementView(h, i)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			dst = append(dst, ',')
		}
		if dst, err = appendValue(dst, v); err != nil {
			return nil, err
		}
	}
	if h.IsArray() {
		dst = append(dst, ']')
	}
	return dst, nil
}

func (e *encoder) refs(dst []byte, c *slab.Container, h slab.FieldHeader) ([]byte, error) {
	arr, err := c.GetObjectArray(h.Name())
	if err != nil {
		return nil, err
	}
	if h.IsArray() {
		dst = append(dst, '[')
	}
	for i := range arr.Count() {
		if i > 0 {
			dst = append(dst, ',')
		}
		child, err := arr.Get(i)
		if err != nil {
			return nil, err
		}
		if child == nil {
			dst = append(dst, "null"...)
			continue
		}
		if dst, err = e.object(dst, child); err != nil {
			return nil, err
		}
	}
	if h.IsArray() {
		dst = append(dst, ']')
	}
	return dst, nil
}

func appendValue(dst []byte, v slab.ValueView) ([]byte, error) {
	if !v.Type().IsFloat() {
		return append(dst, v.Text()...), nil
	}
	f := v.Float()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v has no JSON form", slab.ErrUnsupported, f)
	}
	s := v.Text()
	dst = append(dst, s...)
	if !strings.ContainsAny(s, ".eE") {
		dst = append(dst, ".0"...)
	}
	return dst, nil
}

func appendString(dst []byte, s string) []byte {
	b, _ := json.Marshal(s)
	return append(dst, b...)
}
