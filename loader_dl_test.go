//go:build darwin || freebsd || linux

package dylink_test

import (
	"os"
	"runtime"
	"testing"

	"github.com/ZenLiuCN/dylink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func libc() dylink.LibraryName {
	switch runtime.GOOS {
	case "darwin":
		return dylink.MustLibraryName("/usr/lib/libSystem.B.dylib", "libSystem.dylib")
	case "freebsd":
		return dylink.MustLibraryName("libc.so.7")
	default:
		return dylink.MustLibraryName("libc.so.6", "libc.so")
	}
}

func systemRegistry(t *testing.T) *dylink.Registry {
	r := dylink.NewRegistry(dylink.DefaultOptions())
	t.Cleanup(func() { assert.NoError(t, r.Close()) })
	l, err := r.Acquire(libc())
	if err != nil {
		t.Skipf("libc unavailable: %s", err)
	}
	require.NoError(t, r.Release(l))
	return r
}

func TestSystemLoader(t *testing.T) {
	r := systemRegistry(t)
	pid, err := r.Cell(libc(), "getpid").Call()
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), int(pid))

	strlen := dylink.Bind[func(string) int](r.Cell(libc(), "strlen"))
	assert.Equal(t, 5, strlen.MustGet()("dylib"))

	_, err = r.Cell(libc(), "dylink_absent_symbol").Addr()
	assert.ErrorIs(t, err, dylink.ErrSymbolNotFound)
	require.Len(t, r.Libraries(), 1)
	assert.Equal(t, 2, r.Libraries()[0].Refs())
}

func TestSystemLoaderMissing(t *testing.T) {
	_, err := dylink.SystemLoader().Open("libdylink-absent.so.42")
	var e *dylink.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, dylink.KindLoadFailure, e.Kind)
	assert.True(t, e.Missing, e.Error())

	r := dylink.NewRegistry(dylink.DefaultOptions())
	_, err = r.Cell(dylink.MustLibraryName("libdylink-absent.so.42", "libdylink-absent.so"), "compute").Addr()
	assert.ErrorIs(t, err, dylink.ErrLibraryNotFound)
	assert.NoError(t, r.Close())
}

func TestSelfLoader(t *testing.T) {
	systemRegistry(t)
	r := dylink.NewRegistry(dylink.Options{Loader: dylink.SelfLoader()})
	defer func() { assert.NoError(t, r.Close()) }()
	a, err := r.Cell(dylink.MustLibraryName(dylink.Self), "getpid").Addr()
	require.NoError(t, err)
	assert.NotZero(t, a)
	_, err = r.Cell(dylink.MustLibraryName("libdylink-absent.so.42"), "getpid").Addr()
	assert.ErrorIs(t, err, dylink.ErrLibraryNotFound)
}
