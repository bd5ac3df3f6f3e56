package bind

import (
	"fmt"
	"reflect"

	"github.com/rawbytedev/slab"
)

// Alloc allocates a container with v's schema in reg and stores v into it.
func (b *Binder) Alloc(reg *slab.Registry, v any) (*slab.Container, error) {
	s, err := b.SchemaFor(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}
	c := reg.Allocate(s)
	if err := b.Store(c, v); err != nil {
		_ = reg.Release(c)
		return nil, err
	}
	return c, nil
}

// Store copies the bound fields of struct v into c. The container need not
// use v's schema, but every bound field must exist with a matching byte
// length; differently tagged fields are coerced like any typed write.
func (b *Binder) Store(c *slab.Container, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return ErrNotStruct
	}
	p, err := b.getPlan(rv.Type())
	if err != nil {
		return err
	}
	for _, fp := range p.fields {
		if err := fp.store(c, rv.Field(fp.index)); err != nil {
			return fmt.Errorf("bind: field %q: %w", fp.name, err)
		}
	}
	return nil
}

// Load copies c's fields into the struct out points to.
func (b *Binder) Load(c *slab.Container, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrNotStructPtr
	}
	dst := rv.Elem()
	p, err := b.getPlan(dst.Type())
	if err != nil {
		return err
	}
	for _, fp := range p.fields {
		if err := fp.load(c, dst.Field(fp.index)); err != nil {
			return fmt.Errorf("bind: field %q: %w", fp.name, err)
		}
	}
	return nil
}

// header checks existence first: the Ensure helpers would synthesize a
// missing field.
func (fp fieldPlan) header(c *slab.Container) (slab.FieldHeader, error) {
	if !c.Has(fp.name) {
		return slab.FieldHeader{}, slab.ErrFieldNotFound
	}
	if fp.vt == slab.TypeRef {
		return c.EnsureReference(fp.name, fp.count, fp.array)
	}
	return c.EnsureValue(fp.name, fp.vt, fp.count, fp.array)
}

func (fp fieldPlan) elem(v reflect.Value, i int) reflect.Value {
	if fp.array {
		return v.Index(i)
	}
	return v
}

func (fp fieldPlan) store(c *slab.Container, v reflect.Value) error {
	if fp.text {
		if !c.Has(fp.name) {
			return slab.ErrFieldNotFound
		}
		return slab.WriteString(c, fp.name, v.String())
	}
	h, err := fp.header(c)
	if err != nil {
		return err
	}
	if fp.vt == slab.TypeRef {
		arr, err := c.GetObjectArray(fp.name)
		if err != nil {
			return err
		}
		for i := range fp.count {
			if err := arr.SetRef(i, slab.ContainerReference(fp.elem(v, i).Uint())); err != nil {
				return err
			}
		}
		return nil
	}
	for i := range fp.count {
		view, err := c.ElementView(h, i)
		if err != nil {
			return err
		}
		ev := fp.elem(v, i)
		switch {
		case fp.vt == slab.TypeChar:
			view.Bytes()[0] = byte(ev.Uint())
		case fp.kind == reflect.Bool:
			err = view.SetBool(ev.Bool())
		case ev.CanInt():
			err = view.SetInt(ev.Int())
		case ev.CanUint():
			err = view.SetUint(ev.Uint())
		case ev.CanFloat():
			err = view.SetFloat(ev.Float())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (fp fieldPlan) load(c *slab.Container, v reflect.Value) error {
	if fp.text {
		if !c.Has(fp.name) {
			return slab.ErrFieldNotFound
		}
		s, err := slab.ReadString(c, fp.name)
		if err != nil {
			return err
		}
		v.SetString(s)
		return nil
	}
	h, err := fp.header(c)
	if err != nil {
		return err
	}
	if fp.vt == slab.TypeRef {
		arr, err := c.GetObjectArray(fp.name)
		if err != nil {
			return err
		}
		for i := range fp.count {
			s, err := arr.Slot(i)
			if err != nil {
				return err
			}
			fp.elem(v, i).SetUint(uint64(s.Ref))
		}
		return nil
	}
	for i := range fp.count {
		view, err := c.ElementView(h, i)
		if err != nil {
			return err
		}
		ev := fp.elem(v, i)
		switch {
		case fp.vt == slab.TypeChar:
			ev.SetUint(uint64(view.Bytes()[0]))
		case fp.kind == reflect.Bool:
			ev.SetBool(view.Bool())
		case ev.CanInt():
			ev.SetInt(view.Int())
		case ev.CanUint():
			ev.SetUint(view.Uint())
		case ev.CanFloat():
			ev.SetFloat(view.Float())
		}
	}
	return nil
}
