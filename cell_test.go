package dylink_test

import (
	"sync"
	"testing"
	"time"

	"github.com/ZenLiuCN/dylink"
	"github.com/ZenLiuCN/dylink/dylinktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellResolveOnce(t *testing.T) {
	l := dylinktest.New().Add(libTest, map[string]uintptr{symCompute: addrCompute})
	r := newRegistry(l)
	c := r.Cell(nameTest, symCompute)
	assert.False(t, c.Resolved())
	assert.Nil(t, c.Held())
	assert.Equal(t, symCompute, c.Symbol())
	assert.True(t, c.Library().Equal(nameTest))
	assert.Same(t, r, c.Registry())
	assert.Equal(t, "[test.so.1 test.so].compute", c.String())

	a, err := c.Addr()
	require.NoError(t, err)
	assert.Equal(t, addrCompute, a)
	assert.Equal(t, 1, l.Opens())
	assert.Equal(t, 1, l.Lookups())

	l.Reset()
	for i := 0; i < 100; i++ {
		assert.Equal(t, addrCompute, c.MustAddr())
	}
	require.NoError(t, c.TryLink())
	assert.Zero(t, l.Opens()+l.FailedOpens()+l.Lookups()+l.Closes())
	assert.True(t, c.Resolved())
	require.NotNil(t, c.Held())
	assert.Equal(t, libTest, c.Held().Path())
	assert.Equal(t, 1, c.Held().Refs())
}

func TestCellRace(t *testing.T) {
	const k = 32
	l := dylinktest.New().Add(libTest, map[string]uintptr{symCompute: addrCompute})
	l.Delay = time.Millisecond
	r := newRegistry(l)
	c := r.Cell(nameTest, symCompute)
	var (
		w     sync.WaitGroup
		start = make(chan struct{})
		got   [k]uintptr
		errs  [k]error
		held  [k]*dylink.Library
	)
	for i := 0; i < k; i++ {
		w.Add(1)
		go func(i int) {
			defer w.Done()
			<-start
			got[i], errs[i] = c.Addr()
			held[i] = c.Held()
		}(i)
	}
	close(start)
	w.Wait()
	for i := 0; i < k; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, addrCompute, got[i])
		assert.NotNil(t, held[i])
	}
	// losers hand their references back, only the winner pins the library
	libs := r.Libraries()
	require.Len(t, libs, 1)
	assert.Equal(t, 1, libs[0].Refs())
	assert.Equal(t, 1, l.Refs(libTest))
	assert.Equal(t, 1, l.Opens())
	assert.LessOrEqual(t, l.Lookups(), k)
	t.Logf("%d lookups for %d callers", l.Lookups(), k)
}

func TestCellsShareLibrary(t *testing.T) {
	l := dylinktest.New().Add(libTest, map[string]uintptr{"a": 0x10, "b": 0x20, "c": 0x30})
	r := newRegistry(l)
	var w sync.WaitGroup
	for _, s := range []string{"a", "b", "c"} {
		n := dylink.MustLibraryName(libTest)
		w.Add(1)
		go func(s string) {
			defer w.Done()
			assert.NoError(t, r.Cell(n, s).TryLink())
		}(s)
	}
	w.Wait()
	assert.Equal(t, 1, l.Opens())
	require.Len(t, r.Libraries(), 1)
	assert.Equal(t, 3, r.Libraries()[0].Refs())
}

func TestCellFailureNotCached(t *testing.T) {
	l := dylinktest.New().Add(libTest, nil)
	r := newRegistry(l)
	c := r.Cell(nameTest, symCompute)

	_, err := c.Addr()
	assert.ErrorIs(t, err, dylink.ErrSymbolNotFound)
	assert.False(t, c.Resolved())
	assert.Equal(t, 1, l.Closes())
	assert.Zero(t, l.Live())
	assert.Panics(t, func() { c.MustAddr() })

	l.Define(libTest, symCompute, addrCompute)
	a, err := c.Addr()
	require.NoError(t, err)
	assert.Equal(t, addrCompute, a)
	assert.Equal(t, 3, l.Opens())
	assert.Equal(t, 3, l.Lookups())
}

func TestCellLibraryAppears(t *testing.T) {
	l := dylinktest.New()
	r := newRegistry(l)
	c := r.Cell(nameTest, symCompute)
	assert.ErrorIs(t, c.TryLink(), dylink.ErrLibraryNotFound)
	assert.ErrorIs(t, c.TryLink(), dylink.ErrLibraryNotFound)
	assert.Equal(t, 4, l.FailedOpens())

	l.Add(libVersion, map[string]uintptr{symCompute: addrCompute})
	require.NoError(t, c.TryLink())
	assert.Equal(t, libVersion, c.Held().Path())
}

func TestCellNoReload(t *testing.T) {
	l := dylinktest.New().Add(libTest, map[string]uintptr{symCompute: addrCompute})
	c := newRegistry(l).Cell(nameTest, symCompute)
	require.NoError(t, c.TryLink())
	l.Define(libTest, symCompute, addrCompute+0x100)
	assert.Equal(t, addrCompute, c.MustAddr())
}

func TestCellFailureBackoff(t *testing.T) {
	l := dylinktest.New().Add(libTest, nil)
	r := dylink.NewRegistry(dylink.Options{Loader: l, FailureBackoff: 50 * time.Millisecond})
	c := r.Cell(nameTest, symCompute)
	assert.ErrorIs(t, c.TryLink(), dylink.ErrSymbolNotFound)
	l.Define(libTest, symCompute, addrCompute)
	assert.ErrorIs(t, c.TryLink(), dylink.ErrSymbolNotFound)
	assert.Equal(t, 1, l.Lookups())
	require.Eventually(t, func() bool { return c.TryLink() == nil }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, addrCompute, c.MustAddr())
	assert.Equal(t, 2, l.Lookups())
}
