package slab

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/rawbytedev/slab/internal/common"
)

// Schema is an immutable, interned field layout. Obtain one from a
// SchemaBuilder or a SchemaPool; never construct it directly.
type Schema struct {
	fields   []FieldDescriptor
	index    map[string]int
	stride   int
	dataBase int
	hash     uint64
}

func newSchema(fields []FieldDescriptor, stride int, hash uint64) *Schema {
	s := &Schema{
		fields:   fields,
		index:    make(map[string]int, len(fields)),
		stride:   stride,
		dataBase: headerSize(len(fields)),
		hash:     hash,
	}
	for i, f := range fields {
		s.index[f.name] = i
	}
	return s
}

// headerSize is the tag header reserved ahead of field data.
func headerSize(fieldCount int) int {
	return common.AlignUp(fieldCount, 8)
}

func (s *Schema) FieldCount() int { return len(s.fields) }

// FieldAt returns the i-th descriptor in declaration order.
func (s *Schema) FieldAt(i int) FieldDescriptor { return s.fields[i] }

// Field looks a descriptor up by name (ordinal, case-sensitive).
func (s *Schema) Field(name string) (FieldDescriptor, int, bool) {
	i, ok := s.index[name]
	if !ok {
		return FieldDescriptor{}, -1, false
	}
	return s.fields[i], i, true
}

// Fields returns a copy of the descriptors.
func (s *Schema) Fields() []FieldDescriptor { return slices.Clone(s.fields) }

// Stride is the byte size of one container buffer for this schema.
func (s *Schema) Stride() int { return s.stride }

// DataBase is the size of the tag header that precedes field data.
func (s *Schema) DataBase() int { return s.dataBase }

func (s *Schema) Hash() uint64 { return s.hash }

// Equal is structural over the ordered fields and stride.
func (s *Schema) Equal(o *Schema) bool {
	if s == o {
		return true
	}
	if s == nil || o == nil {
		return false
	}
	return s.hash == o.hash && sameLayout(s.fields, s.stride, o.fields, o.stride)
}

func (s *Schema) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(f.String())
	}
	fmt.Fprintf(&b, "} stride=%d", s.stride)
	return b.String()
}

func sameLayout(a []FieldDescriptor, strideA int, b []FieldDescriptor, strideB int) bool {
	if strideA != strideB || len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// hashLayout is the single structural hash shared by Schema and SchemaKey:
// FNV-1a over stride and each (name, offset, length) in order.
func hashLayout(stride int, fields []FieldDescriptor) uint64 {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	mix := func(v uint64) {
		for i := 0; i < 8; i++ {
			h ^= v & 0xff
			h *= prime64
			v >>= 8
		}
	}
	mix(uint64(stride))
	for _, f := range fields {
		for i := 0; i < len(f.name); i++ {
			h ^= uint64(f.name[i])
			h *= prime64
		}
		mix(uint64(uint32(f.offset))<<32 | uint64(uint32(f.length)))
	}
	return h
}

// validateLayout checks the invariants of an explicit field list.
func validateLayout(fields []FieldDescriptor, stride int) error {
	base := headerSize(len(fields))
	end := base
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.err != nil {
			return f.err
		}
		if _, dup := seen[f.name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateField, f.name)
		}
		seen[f.name] = struct{}{}
		if f.IsReference() && f.Length()%RefSize != 0 {
			return fmt.Errorf("%w: reference field %q length %d", ErrWidthMismatch, f.name, f.Length())
		}
		if f.Offset() < end {
			return fmt.Errorf("field %q at offset %d overlaps previous data ending at %d", f.name, f.Offset(), end)
		}
		end = f.End()
	}
	if stride != common.AlignUp(end, 8) {
		return fmt.Errorf("stride %d does not match layout ending at %d", stride, end)
	}
	return nil
}

// layoutFields places requests consecutively after the tag header, each on
// its natural alignment, and returns the positioned descriptors and stride.
func layoutFields(reqs []FieldDescriptor) ([]FieldDescriptor, int, error) {
	out := make([]FieldDescriptor, len(reqs))
	seen := make(map[string]struct{}, len(reqs))
	off := 0
	base := headerSize(len(reqs))
	for i, f := range reqs {
		if f.err != nil {
			return nil, 0, f.err
		}
		if _, dup := seen[f.name]; dup {
			return nil, 0, fmt.Errorf("%w: %q", ErrDuplicateField, f.name)
		}
		seen[f.name] = struct{}{}
		off = common.AlignUp(off, f.alignment())
		out[i] = f.WithOffset(off).WithBaseInfo(base)
		off += f.Length()
		if base+off > common.MaxFieldBytes {
			return nil, 0, fmt.Errorf("%w: schema size exceeds limit at field %q", ErrLengthOverflow, f.name)
		}
	}
	if len(reqs) == 0 {
		return out, 0, nil
	}
	return out, common.AlignUp(base+off, 8), nil
}

// SchemaBuilder accumulates field requests and interns the resulting layout.
type SchemaBuilder struct {
	fields    []FieldDescriptor
	canonical bool
}

func NewSchemaBuilder() *SchemaBuilder { return &SchemaBuilder{} }

// Canonical orders fields by name on Build, so declarations that differ only
// in order intern to the same schema.
func (b *SchemaBuilder) Canonical(on bool) *SchemaBuilder {
	b.canonical = on
	return b
}

// Add appends field requests in declaration order. Offsets are ignored.
func (b *SchemaBuilder) Add(fields ...FieldDescriptor) *SchemaBuilder {
	b.fields = append(b.fields, fields...)
	return b
}

// Len is the number of requests added so far.
func (b *SchemaBuilder) Len() int { return len(b.fields) }

// Build lays the fields out and returns the pool's canonical instance.
func (b *SchemaBuilder) Build(pool *SchemaPool) (*Schema, error) {
	reqs := slices.Clone(b.fields)
	if b.canonical {
		slices.SortStableFunc(reqs, func(x, y FieldDescriptor) int { return cmp.Compare(x.name, y.name) })
	}
	fields, stride, err := layoutFields(reqs)
	if err != nil {
		return nil, err
	}
	return pool.Intern(fields, stride)
}
