// Package slab is a self-describing, fixed-layout binary object store.
//
// A Container holds named fields packed into one byte buffer according to an
// interned Schema. Fields are scalar values, inline value arrays, single
// references or reference arrays to other containers. References are 8-byte
// container IDs resolved through a Registry, never live pointers.
//
// Buffer layout for a schema with n fields:
//
//	[0, DataBase)       one tag byte per field: ValueType | array flag
//	[DataBase, Stride)  field data, each field at its natural alignment
//
// The tag header records what a field holds right now, which may differ from
// what was declared: schema-less codecs synthesize fields from literals
// (Container.Extend, EnsureValue, EnsureReference) and typed accessors
// convert same-width fields in place. Width changes and reference/value
// crossings always fail.
//
// Containers are pooled. Release bumps nothing; the next Allocate of the same
// instance raises its Generation and assigns a fresh ID, so a (container,
// generation) pair captured earlier is detectably stale (IsLive, Handle).
package slab
