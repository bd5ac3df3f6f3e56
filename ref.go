package slab

import (
	"math"
	"strconv"
	"strings"
)

// ContainerReference is the 8-byte child ID stored in reference fields.
type ContainerReference uint64

const (
	// Empty marks an explicit "no child". Zeroed slots read as Empty.
	Empty ContainerReference = 0
	// Wild marks an unresolved or type-erased placeholder.
	Wild ContainerReference = math.MaxUint64
)

// RefOf returns the reference to c, or Empty for nil or unregistered containers.
func RefOf(c *Container) ContainerReference {
	if c == nil {
		return Empty
	}
	return ContainerReference(c.ID())
}

// IsNull reports whether r is one of the sentinels. Null references are
// never resolved through a registry.
func (r ContainerReference) IsNull() bool { return r == Empty || r == Wild }

func (r ContainerReference) String() string {
	switch r {
	case Empty:
		return "empty"
	case Wild:
		return "wild"
	}
	return "#" + strconv.FormatUint(uint64(r), 10)
}

// ParseReference is the inverse of String.
func ParseReference(s string) (ContainerReference, bool) {
	switch s {
	case "empty", "null", "":
		return Empty, true
	case "wild":
		return Wild, true
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil {
		return Empty, false
	}
	return ContainerReference(id), true
}
