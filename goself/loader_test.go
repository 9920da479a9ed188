//go:build goloader

package goself

import (
	"fmt"
	"os"
	"testing"

	"github.com/ZenLiuCN/dylink"
	"github.com/ZenLiuCN/fn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var self = dylink.MustLibraryName(dylink.Self)

func TestSelf(t *testing.T) {
	r := Registry()
	defer func() { fn.Panic(r.Close()) }()
	_ = fmt.Sprint()
	c := r.Cell(self, "fmt.Sprint")
	p, err := dylink.As[*uintptr](c)
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.True(t, c.Resolved())
	assert.ErrorIs(t, r.Cell(self, "sample.Missing").TryLink(), dylink.ErrSymbolNotFound)
	assert.Len(t, r.Libraries(), 1)
}

func TestExecutable(t *testing.T) {
	exe := fn.Panic1(os.Executable())
	l := New()
	h, err := l.Open(exe)
	require.NoError(t, err)
	assert.Equal(t, h, fn.Panic1(l.Open(exe)))
	_, err = l.Symbol(h, "github.com/ZenLiuCN/dylink/goself.New")
	require.NoError(t, err)
	require.NoError(t, l.Close(h))
	require.NoError(t, l.Close(h))
	assert.ErrorIs(t, l.Close(h), ErrClosedTable)
}
