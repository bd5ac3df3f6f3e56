package bind

import (
	"math"
	"reflect"
	"testing"
	"testing/quick"

	"github.com/rawbytedev/slab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type Unit struct {
	HP       int32                     `slab:"hp"`
	Speeds   [4]float32                `slab:"speeds"`
	Children [2]slab.ContainerReference `slab:"children"`
	Name     string                    `slab:"name,len=12"`
	Code     [3]byte                   `slab:"code,char"`
	hidden   int64
	Skip     float64 `slab:"-"`
}

type Scalars struct {
	B   bool
	I8  int8
	U8  uint8
	I16 int16
	U16 uint16
	I32 int32
	U32 uint32
	I64 int64
	U64 uint64
	F32 float32
	F64 float64
	I   int
	U   uint
}

func TestSchemaFor(t *testing.T) {
	rt := slab.NewRuntime(slab.RegistryOptions{})
	b := New(rt.Pool)
	s, err := b.SchemaFor(reflect.TypeFor[Unit]())
	require.NoError(t, err)
	assert.Equal(t, 5, s.FieldCount())

	want, err := slab.NewSchemaBuilder().Add(
		slab.Type[int32]("hp"),
		slab.ArrayOf[float32]("speeds", 4),
		slab.ReferenceArray("children", 2),
		slab.ValueField("name", slab.TypeChar, 12),
		slab.ValueField("code", slab.TypeChar, 3),
	).Build(rt.Pool)
	require.NoError(t, err)
	assert.Same(t, want, s, "bound and hand-built schemas intern together")

	again, err := b.SchemaFor(reflect.TypeFor[*Unit]())
	require.NoError(t, err)
	assert.Same(t, s, again)

	_, err = b.SchemaFor(reflect.TypeFor[int]())
	assert.ErrorIs(t, err, ErrNotStruct)
}

func TestSchemaForUnsupported(t *testing.T) {
	b := New(slab.NewSchemaPool())
	type noLen struct{ S string }
	_, err := b.SchemaFor(reflect.TypeFor[noLen]())
	assert.ErrorIs(t, err, slab.ErrUnsupported)
	type slice struct{ S []int32 }
	_, err = b.SchemaFor(reflect.TypeFor[slice]())
	assert.ErrorIs(t, err, slab.ErrUnsupported)
	type dup struct {
		A int32 `slab:"x"`
		B int32 `slab:"x"`
	}
	_, err = b.SchemaFor(reflect.TypeFor[dup]())
	assert.ErrorIs(t, err, slab.ErrDuplicateField)
}

func TestStoreLoad(t *testing.T) {
	rt := slab.NewRuntime(slab.RegistryOptions{})
	b := New(rt.Pool)
	child := rt.New(nil)
	in := Unit{
		HP:       123,
		Speeds:   [4]float32{0.1, 0.2, 0.3, 0.4},
		Children: [2]slab.ContainerReference{slab.RefOf(child), slab.Empty},
		Name:     "grunt",
		Code:     [3]byte{'a', 'b', 'c'},
		hidden:   7,
		Skip:     1.5,
	}
	c, err := b.Alloc(rt.Registry, in)
	require.NoError(t, err)

	hp, err := slab.Read[int32](c, "hp")
	require.NoError(t, err)
	assert.Equal(t, int32(123), hp)
	name, err := slab.ReadString(c, "name")
	require.NoError(t, err)
	assert.Equal(t, "grunt", name)
	got, err := c.GetObjectArray("children")
	require.NoError(t, err)
	first, err := got.Get(0)
	require.NoError(t, err)
	assert.Same(t, child, first)

	var out Unit
	require.NoError(t, b.Load(c, &out))
	assert.EqualExportedValues(t, Unit{
		HP: in.HP, Speeds: in.Speeds, Children: in.Children, Name: in.Name, Code: in.Code,
	}, out)
	assert.Zero(t, out.Skip)

	assert.ErrorIs(t, b.Load(c, out), ErrNotStructPtr)
	assert.ErrorIs(t, b.Store(c, 3), ErrNotStruct)
}

func TestStoreCoercesAndChecks(t *testing.T) {
	rt := slab.NewRuntime(slab.RegistryOptions{})
	b := New(rt.Pool)
	s, err := slab.NewSchemaBuilder().Add(slab.Type[float32]("v")).Build(rt.Pool)
	require.NoError(t, err)
	c := rt.New(s)
	require.NoError(t, slab.Write(c, "v", float32(2.5)))

	type asInt struct {
		V int32 `slab:"v"`
	}
	var got asInt
	require.NoError(t, b.Load(c, &got))
	assert.Equal(t, int32(2), got.V, "same-width field is converted in place")

	type missing struct{ W int32 }
	assert.ErrorIs(t, b.Store(c, missing{W: 1}), slab.ErrFieldNotFound)
	assert.False(t, c.Has("W"), "binding never creates fields")

	type wide struct {
		V int64 `slab:"v"`
	}
	assert.ErrorIs(t, b.Store(c, wide{V: 1}), slab.ErrWidthMismatch)

	type long struct {
		Name string `slab:"name,len=2"`
	}
	lc, err := b.Alloc(rt.Registry, long{Name: "ok"})
	require.NoError(t, err)
	assert.ErrorIs(t, b.Store(lc, long{Name: "toolong"}), slab.ErrWidthMismatch)
}

func TestScalarsRoundTrip(t *testing.T) {
	rt := slab.NewRuntime(slab.RegistryOptions{})
	b := New(rt.Pool)
	condition := func(in Scalars) bool {
		c, err := b.Alloc(rt.Registry, in)
		require.NoError(t, err)
		defer func() { require.NoError(t, rt.Registry.Release(c)) }()
		var out Scalars
		require.NoError(t, b.Load(c, &out))
		return assert.ObjectsAreEqual(in, out)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestConcurrentPlans(t *testing.T) {
	b := New(slab.NewSchemaPool())
	results := make([]*slab.Schema, 32)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			s, err := b.SchemaFor(reflect.TypeFor[Scalars]())
			results[i] = s
			return err
		})
	}
	require.NoError(t, g.Wait())
	for _, s := range results {
		assert.Same(t, results[0], s)
	}
	assert.Len(t, b.plans, 1)
}

func FuzzStoreLoad(f *testing.F) {
	f.Add(int32(1), float32(0.5), "name", uint8('x'))
	f.Fuzz(func(t *testing.T, hp int32, speed float32, name string, code uint8) {
		rt := slab.NewRuntime(slab.RegistryOptions{})
		b := New(rt.Pool)
		in := Unit{HP: hp, Speeds: [4]float32{speed}, Name: name, Code: [3]byte{code}}
		c, err := b.Alloc(rt.Registry, in)
		if len(name) > 12 {
			require.ErrorIs(t, err, slab.ErrWidthMismatch)
			return
		}
		require.NoError(t, err)
		var out Unit
		require.NoError(t, b.Load(c, &out))
		require.Equal(t, in.HP, out.HP)
		require.Equal(t, in.Code, out.Code)
		if !math.IsNaN(float64(speed)) {
			require.Equal(t, in.Speeds, out.Speeds)
		}
	})
}
