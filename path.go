package slab

import (
	"fmt"
	"strings"
)

func (c *Container) refSlot(name string) (int, error) {
	i, err := c.index(name)
	if err != nil {
		return -1, err
	}
	fd := c.schema.fields[i]
	if !fd.IsReference() {
		return -1, fmt.Errorf("%w: field %q is a value field", ErrStructuralMismatch, name)
	}
	if fd.Length() != RefSize {
		return -1, fmt.Errorf("%w: %q holds %d references", ErrWidthMismatch, name, fd.Length()/RefSize)
	}
	return i, nil
}

// GetReference reads a single reference field without resolving it.
func (c *Container) GetReference(name string) (ContainerReference, error) {
	i, err := c.refSlot(name)
	if err != nil {
		return Empty, err
	}
	return ContainerReference(load[uint64](c.data(i))), nil
}

// SetReference stores r into a single reference field.
func (c *Container) SetReference(name string, r ContainerReference) error {
	i, err := c.refSlot(name)
	if err != nil {
		return err
	}
	store(c.data(i), uint64(r))
	return nil
}

// GetObject resolves a single reference field. Null references yield nil
// without error; a dangling reference yields ErrNotLive.
func (c *Container) GetObject(name string) (*Container, error) {
	r, err := c.GetReference(name)
	if err != nil || r.IsNull() {
		return nil, err
	}
	child, ok := c.reg.Resolve(r)
	if !ok {
		return nil, fmt.Errorf("%w: %q -> %s", ErrNotLive, name, r)
	}
	return child, nil
}

// SetObject points a single reference field at child; nil stores Empty.
func (c *Container) SetObject(name string, child *Container) error {
	if child != nil && child.reg != c.reg {
		return fmt.Errorf("%w: child belongs to another registry", ErrNotLive)
	}
	return c.SetReference(name, RefOf(child))
}

// walk follows every segment but the last through single reference fields
// and returns the leaf container with the final field name.
func (c *Container) walk(path string) (*Container, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segs := strings.Split(path, ".")
	cur := c
	for _, seg := range segs[:len(segs)-1] {
		if seg == "" {
			return nil, "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
		next, err := cur.GetObject(seg)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %q at %q: %w", ErrInvalidPath, path, seg, err)
		}
		if next == nil {
			return nil, "", fmt.Errorf("%w: %q: %q is null", ErrInvalidPath, path, seg)
		}
		cur = next
	}
	last := segs[len(segs)-1]
	if last == "" {
		return nil, "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return cur, last, nil
}

// GetObjectPath resolves a dotted path whose every segment is a single
// reference field.
func (c *Container) GetObjectPath(path string) (*Container, error) {
	leaf, name, err := c.walk(path)
	if err != nil {
		return nil, err
	}
	return leaf.GetObject(name)
}

// ReadPath reads the scalar at a dotted path such as "a.b.c".
func ReadPath[T Scalar](c *Container, path string) (T, error) {
	leaf, name, err := c.walk(path)
	if err != nil {
		var zero T
		return zero, err
	}
	return Read[T](leaf, name)
}

// WritePath writes the scalar at a dotted path. Only the leaf container is
// modified.
func WritePath[T Scalar](c *Container, path string, v T) error {
	leaf, name, err := c.walk(path)
	if err != nil {
		return err
	}
	return Write(leaf, name, v)
}
