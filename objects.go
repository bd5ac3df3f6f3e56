package slab

import (
	"fmt"
	"iter"
)

// ObjectSlot is one reference slot as read at access time.
type ObjectSlot struct {
	Ref    ContainerReference
	IsNull bool
}

// ObjectArray is an indexable view over a reference field. It records the
// owner's generation and schema and refuses access once either changes.
type ObjectArray struct {
	c      *Container
	gen    uint64
	schema *Schema
	name   string
	slots  []ContainerReference
}

// GetObjectArray returns a view over the named reference field.
func (c *Container) GetObjectArray(name string) (ObjectArray, error) {
	i, err := c.index(name)
	if err != nil {
		return ObjectArray{}, err
	}
	if fd := c.schema.fields[i]; !fd.IsReference() {
		return ObjectArray{}, fmt.Errorf("%w: field %q is a value field", ErrStructuralMismatch, name)
	}
	slots, err := overlay[ContainerReference](c.data(i), name)
	if err != nil {
		return ObjectArray{}, err
	}
	return ObjectArray{c: c, gen: c.gen.Load(), schema: c.schema, name: name, slots: slots}, nil
}

func (a ObjectArray) valid() error {
	if a.c == nil || !IsLive(a.c, a.gen) || a.c.schema != a.schema {
		return fmt.Errorf("%w: object array %q", ErrNotLive, a.name)
	}
	return nil
}

func (a ObjectArray) Count() int { return len(a.slots) }

func (a ObjectArray) bounds(i int) error {
	if err := a.valid(); err != nil {
		return err
	}
	if i < 0 || i >= len(a.slots) {
		return fmt.Errorf("%w: %q[%d] of %d", ErrIndexOutOfRange, a.name, i, len(a.slots))
	}
	return nil
}

// Slot reads slot i.
func (a ObjectArray) Slot(i int) (ObjectSlot, error) {
	if err := a.bounds(i); err != nil {
		return ObjectSlot{}, err
	}
	r := a.slots[i]
	return ObjectSlot{Ref: r, IsNull: r.IsNull()}, nil
}

// Get resolves slot i. Null slots return nil without error; a reference to a
// released child returns ErrNotLive.
func (a ObjectArray) Get(i int) (*Container, error) {
	s, err := a.Slot(i)
	if err != nil || s.IsNull {
		return nil, err
	}
	child, ok := a.c.reg.Resolve(s.Ref)
	if !ok {
		return nil, fmt.Errorf("%w: %q[%d] -> %s", ErrNotLive, a.name, i, s.Ref)
	}
	return child, nil
}

// Set points slot i at child; nil stores Empty.
func (a ObjectArray) Set(i int, child *Container) error {
	if child != nil && child.reg != a.c.reg {
		return fmt.Errorf("%w: child belongs to another registry", ErrNotLive)
	}
	return a.SetRef(i, RefOf(child))
}

func (a ObjectArray) SetRef(i int, r ContainerReference) error {
	if err := a.bounds(i); err != nil {
		return err
	}
	a.slots[i] = r
	return nil
}

// All yields every slot in order; it stops early if the view goes stale.
func (a ObjectArray) All() iter.Seq2[int, ObjectSlot] {
	return func(yield func(int, ObjectSlot) bool) {
		for i := range a.slots {
			s, err := a.Slot(i)
			if err != nil || !yield(i, s) {
				return
			}
		}
	}
}
