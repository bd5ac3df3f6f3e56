package slab

import (
	"iter"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// SchemaKey is a structural surrogate of (fields, stride) used to probe the
// pool without allocating a Schema. It borrows the caller's slice.
type SchemaKey struct {
	fields []FieldDescriptor
	stride int
	hash   uint64
}

func NewSchemaKey(fields []FieldDescriptor, stride int) SchemaKey {
	return SchemaKey{fields: fields, stride: stride, hash: hashLayout(stride, fields)}
}

// KeyOf recomputes the key of an existing schema.
func KeyOf(s *Schema) SchemaKey { return NewSchemaKey(s.fields, s.stride) }

func (k SchemaKey) Hash() uint64 { return k.hash }

func (k SchemaKey) Stride() int { return k.stride }

// Matches reports whether s has exactly this key's layout.
func (k SchemaKey) Matches(s *Schema) bool {
	return k.hash == s.hash && sameLayout(k.fields, k.stride, s.fields, s.stride)
}

// SchemaPool interns schemas so that one instance exists per structural
// layout. A single mutex guards all access; schema creation is rare and
// field access never touches the pool.
type SchemaPool struct {
	mu      sync.Mutex
	buckets map[uint64][]*Schema
	count   int
	empty   *Schema
}

func NewSchemaPool() *SchemaPool {
	p := &SchemaPool{}
	p.seed()
	return p
}

func (p *SchemaPool) seed() {
	p.buckets = make(map[uint64][]*Schema)
	p.empty = newSchema(nil, 0, hashLayout(0, nil))
	p.buckets[p.empty.hash] = []*Schema{p.empty}
	p.count = 1
}

// Empty is the preseeded zero-field schema.
func (p *SchemaPool) Empty() *Schema {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.empty
}

// Intern returns the canonical schema for fields and stride, creating it on a
// miss. fields is only copied when a new schema is created.
func (p *SchemaPool) Intern(fields []FieldDescriptor, stride int) (*Schema, error) {
	key := NewSchemaKey(fields, stride)
	p.mu.Lock()
	defer p.mu.Unlock()
	if s := p.lookup(key); s != nil {
		return s, nil
	}
	if err := validateLayout(fields, stride); err != nil {
		return nil, err
	}
	s := newSchema(slices.Clone(fields), stride, key.hash)
	p.buckets[key.hash] = append(p.buckets[key.hash], s)
	p.count++
	Logger().Debug("schema interned",
		zap.Int("fields", len(fields)),
		zap.Int("stride", stride),
		zap.Uint64("hash", key.hash),
		zap.Int("pool_size", p.count))
	return s, nil
}

// InternSeq interns a layout produced by an iterator.
func (p *SchemaPool) InternSeq(fields iter.Seq[FieldDescriptor], stride int) (*Schema, error) {
	return p.Intern(slices.Collect(fields), stride)
}

// InternSchema re-interns s by recomputing its key. A schema from another
// pool resolves to this pool's canonical instance.
func (p *SchemaPool) InternSchema(s *Schema) (*Schema, error) {
	return p.Intern(s.fields, s.stride)
}

// TryGetExisting probes without inserting.
func (p *SchemaPool) TryGetExisting(key SchemaKey) (*Schema, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.lookup(key)
	return s, s != nil
}

func (p *SchemaPool) lookup(key SchemaKey) *Schema {
	for _, s := range p.buckets[key.hash] {
		if key.Matches(s) {
			return s
		}
	}
	return nil
}

// Len is the number of interned schemas, the empty schema included.
func (p *SchemaPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Reset drops every interned schema and reseeds the empty one. Containers
// built on dropped schemas keep working but no longer share identity with
// newly interned layouts; only test harnesses should call this.
func (p *SchemaPool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seed()
}
