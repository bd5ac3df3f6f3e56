package jsonwire

import (
	"testing"

	"github.com/rawbytedev/slab"
)

var benchDoc = []byte(`{"hp":100,"speeds":[1.5,3.33,2.0,74.0],"children":[null,{"hp":1,"name":"leaf"}]}`)

func BenchmarkDecode(b *testing.B) {
	rt := slab.NewRuntime(slab.RegistryOptions{})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c, err := Decode(rt.Registry, benchDoc)
		if err != nil {
			b.Fatal(err)
		}
		var all []*slab.Container
		_ = slab.Walk(c, func(n *slab.Container) error {
			all = append(all, n)
			return nil
		})
		for _, n := range all {
			_ = rt.Registry.Release(n)
		}
	}
}

func BenchmarkEncode(b *testing.B) {
	rt := slab.NewRuntime(slab.RegistryOptions{})
	c, err := Decode(rt.Registry, benchDoc)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = Encode(c)
	}
}
