package binwire

import (
	"testing"

	"github.com/rawbytedev/slab"
)

func benchGraph(b *testing.B) *slab.Container {
	rt := slab.NewRuntime(slab.RegistryOptions{})
	s, err := slab.NewSchemaBuilder().Add(
		slab.Type[int32]("hp"),
		slab.ArrayOf[float32]("speeds", 4),
		slab.ReferenceArray("children", 2),
	).Build(rt.Pool)
	if err != nil {
		b.Fatal(err)
	}
	root := rt.New(s)
	kids, _ := root.GetObjectArray("children")
	for i := range kids.Count() {
		_ = kids.Set(i, rt.New(s))
	}
	return root
}

func BenchmarkEncode(b *testing.B) {
	root := benchGraph(b)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Encode(root, FlagChecksum)
	}
}

func BenchmarkEncodeZstd(b *testing.B) {
	root := benchGraph(b)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Encode(root, FlagChecksum|FlagZstd)
	}
}

func BenchmarkDecode(b *testing.B) {
	frame, err := Encode(benchGraph(b), FlagChecksum)
	if err != nil {
		b.Fatal(err)
	}
	rt := slab.NewRuntime(slab.RegistryOptions{})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		all, err := DecodeAll(rt.Registry, frame)
		if err != nil {
			b.Fatal(err)
		}
		for _, c := range all {
			_ = rt.Registry.Release(c)
		}
	}
}
