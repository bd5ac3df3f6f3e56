package slab

import "sync"

// Runtime bundles the schema pool and registry a process works against.
// Create one at startup and pass it down; Default exists for callers that
// want a single process-wide instance.
type Runtime struct {
	Pool     *SchemaPool
	Registry *Registry
}

func NewRuntime(opts RegistryOptions) *Runtime {
	pool := NewSchemaPool()
	return &Runtime{Pool: pool, Registry: NewRegistry(pool, opts)}
}

var (
	defaultRuntime     *Runtime
	defaultRuntimeOnce sync.Once
)

// Default returns the process-wide runtime, created on first use.
func Default() *Runtime {
	defaultRuntimeOnce.Do(func() {
		defaultRuntime = NewRuntime(RegistryOptions{Canonical: true})
	})
	return defaultRuntime
}

// Build interns the builder's layout in this runtime's pool.
func (rt *Runtime) Build(b *SchemaBuilder) (*Schema, error) { return b.Build(rt.Pool) }

// New allocates a container for schema.
func (rt *Runtime) New(schema *Schema) *Container { return rt.Registry.Allocate(schema) }

// Reset releases every container and empties the pool. Test harnesses only.
func (rt *Runtime) Reset() {
	rt.Registry.Reset()
	rt.Pool.Reset()
}
