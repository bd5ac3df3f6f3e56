package slab

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

// RegistryOptions tunes a Registry.
type RegistryOptions struct {
	// Canonical orders fields by name whenever a container's schema evolves,
	// so equal field sets share one schema regardless of arrival order.
	Canonical bool
	// Prealloc fills the retired pool with this many instances up front.
	Prealloc int
}

// Registry maps IDs to live containers and recycles released instances.
// IDs are never reused; a recycled instance gets a new ID and a higher
// Generation.
type Registry struct {
	mu     sync.Mutex
	pool   *SchemaPool
	opts   RegistryOptions
	live   map[uint64]*Container
	free   []*Container
	nextID uint64
}

func NewRegistry(pool *SchemaPool, opts RegistryOptions) *Registry {
	r := &Registry{
		pool: pool,
		opts: opts,
		live: make(map[uint64]*Container),
	}
	for i := 0; i < opts.Prealloc; i++ {
		r.free = append(r.free, &Container{reg: r})
	}
	return r
}

// Pool is the schema pool evolved schemas are interned into.
func (r *Registry) Pool() *SchemaPool { return r.pool }

// Allocate returns a registered container laid out for schema (the empty
// schema when nil), zero-filled, with Version 0.
func (r *Registry) Allocate(schema *Schema) *Container {
	if schema == nil {
		schema = r.pool.Empty()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var c *Container
	if n := len(r.free); n > 0 {
		c = r.free[n-1]
		r.free[n-1] = nil
		r.free = r.free[:n-1]
	} else {
		c = &Container{reg: r}
		Logger().Debug("registry grew", zap.Int("live", len(r.live)+1))
	}
	c.reset(schema)
	// Generation moves before the ID is published so that a reader seeing
	// the new ID also sees the new Generation.
	c.gen.Add(1)
	r.nextID++
	id := r.nextID
	r.live[id] = c
	c.id.Store(id)
	return c
}

// Release unregisters c and returns it to the pool. Its Generation is left
// alone until the instance is handed out again.
func (r *Registry) Release(c *Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := c.id.Load()
	if id == 0 || r.live[id] != c {
		return fmt.Errorf("%w: release of container %d", ErrNotLive, id)
	}
	delete(r.live, id)
	c.id.Store(0)
	r.free = append(r.free, c)
	return nil
}

// Resolve looks a reference up. Sentinels never resolve.
func (r *Registry) Resolve(ref ContainerReference) (*Container, bool) {
	if ref.IsNull() {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.live[uint64(ref)]
	return c, ok
}

// Len is the number of live containers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// SnapshotEntry is one live container as seen at snapshot time.
type SnapshotEntry struct {
	ID         uint64
	Generation uint64
	Container  *Container
}

// Live revalidates the entry against the container's current state.
func (e SnapshotEntry) Live() bool {
	return e.Container.ID() == e.ID && IsLive(e.Container, e.Generation)
}

// Snapshot copies the live table, ordered by ID. Entries may go stale at any
// time after it returns; check Live before dereferencing or writing back.
func (r *Registry) Snapshot() []SnapshotEntry {
	r.mu.Lock()
	out := make([]SnapshotEntry, 0, len(r.live))
	for id, c := range r.live {
		out = append(out, SnapshotEntry{ID: id, Generation: c.gen.Load(), Container: c})
	}
	r.mu.Unlock()
	slices.SortFunc(out, func(a, b SnapshotEntry) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

// Reset releases every live container. Test harnesses only.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.live {
		delete(r.live, id)
		c.id.Store(0)
		r.free = append(r.free, c)
	}
}

// IsLive is the staleness rule: a container observed at generation gen is
// still the same object iff it is registered and has not been recycled.
func IsLive(c *Container, gen uint64) bool {
	if c == nil || c.id.Load() == 0 {
		return false
	}
	return c.gen.Load() == gen
}

// Handle pairs a container with the generation it was observed at.
type Handle struct {
	c   *Container
	gen uint64
}

// Handle captures c at its current generation.
func (c *Container) Handle() Handle { return Handle{c: c, gen: c.gen.Load()} }

func (h Handle) Live() bool { return IsLive(h.c, h.gen) }

func (h Handle) Generation() uint64 { return h.gen }

// Container returns the container if the handle is still live.
func (h Handle) Container() (*Container, error) {
	if !h.Live() {
		return nil, ErrNotLive
	}
	return h.c, nil
}
