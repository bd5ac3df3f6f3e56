package slab

import (
	"iter"
)

// References yields every non-null reference held by c, in field order.
func (c *Container) References() iter.Seq2[string, ContainerReference] {
	return func(yield func(string, ContainerReference) bool) {
		for i, fd := range c.schema.fields {
			if !fd.IsReference() {
				continue
			}
			for _, r := range overlayRefs(c.data(i)) {
				if r.IsNull() {
					continue
				}
				if !yield(fd.name, r) {
					return
				}
			}
		}
	}
}

func overlayRefs(b []byte) []ContainerReference {
	out, err := overlay[ContainerReference](b, "")
	if err != nil {
		return nil
	}
	return out
}

// Walk visits root and every container reachable from it once, breadth
// first. The reference graph may contain cycles; visits are tracked by ID.
// References to released containers are skipped. fn returning a non-nil
// error stops the walk with that error.
func Walk(root *Container, fn func(*Container) error) error {
	if root == nil || root.ID() == 0 {
		return ErrNotLive
	}
	seen := map[uint64]struct{}{root.ID(): {}}
	queue := []*Container{root}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if err := fn(c); err != nil {
			return err
		}
		for _, r := range c.References() {
			if _, ok := seen[uint64(r)]; ok {
				continue
			}
			child, ok := c.reg.Resolve(r)
			if !ok {
				continue
			}
			seen[uint64(r)] = struct{}{}
			queue = append(queue, child)
		}
	}
	return nil
}
