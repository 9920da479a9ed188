package dylink_test

import (
	"sync/atomic"
	"testing"

	"github.com/ZenLiuCN/dylink"
	"github.com/ZenLiuCN/dylink/dylinktest"
	"github.com/ZenLiuCN/fn"
)

func resolvedCell() *dylink.Cell {
	l := dylinktest.New().Add(libTest, map[string]uintptr{symCompute: addrCompute})
	c := newRegistry(l).Cell(nameTest, symCompute)
	fn.Panic(c.TryLink())
	return c
}

func BenchmarkAddrResolved(b *testing.B) {
	c := resolvedCell()
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = c.MustAddr()
	}
}

func BenchmarkAddrRaw(b *testing.B) {
	var a atomic.Uintptr
	a.Store(addrCompute)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = a.Load()
	}
}

func BenchmarkAddrParallel(b *testing.B) {
	c := resolvedCell()
	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = c.MustAddr()
		}
	})
}

func BenchmarkResolve(b *testing.B) {
	l := dylinktest.New().Add(libTest, map[string]uintptr{symCompute: addrCompute})
	r := newRegistry(l)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		fn.Panic(r.Cell(nameTest, symCompute).TryLink())
	}
}
