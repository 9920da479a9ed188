package dylink

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/multierr"
)

func TestErrorMessage(t *testing.T) {
	cause := errors.New("cannot open shared object file: No such file or directory")
	e := NewLoadFailure("test.so.1", true, cause)
	assert.Equal(t, "dylink: load failure test.so.1: cannot open shared object file: No such file or directory", e.Error())
	assert.ErrorIs(t, e, cause)
	assert.ErrorIs(t, e, ErrLoadFailure)
	assert.NotErrorIs(t, e, ErrSymbolNotFound)

	s := NewSymbolNotFound("test.so", "compute", ErrNotResolved)
	assert.Equal(t, "dylink: symbol not found test.so symbol compute: symbol not resolved", s.Error())
	assert.ErrorIs(t, s, ErrSymbolNotFound)
	assert.Equal(t, "dylink: library not found", ErrLibraryNotFound.Error())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestAggregatedNotFound(t *testing.T) {
	var errs error
	errs = multierr.Append(errs, NewLoadFailure("a.so", true, nil))
	errs = multierr.Append(errs, NewLoadFailure("b.so", false, errors.New("wrong ELF class")))
	err := &Error{Kind: KindLibraryNotFound, Library: "[a.so b.so]", Cause: errs}
	assert.ErrorIs(t, err, ErrLibraryNotFound)
	assert.ErrorIs(t, err, ErrLoadFailure)
	assert.Len(t, multierr.Errors(errors.Unwrap(err)), 2)
}

func TestFailureNormalization(t *testing.T) {
	plain := errors.New("dlopen failed")
	e := loadFailure("x.so", plain)
	assert.Equal(t, KindLoadFailure, e.Kind)
	assert.Equal(t, "x.so", e.Library)
	assert.False(t, e.Missing)
	assert.Same(t, e, loadFailure("x.so", e))

	raw := NewSymbolNotFound("", "compute", ErrNotResolved)
	s := symbolFailure("x.so", "compute", raw)
	assert.Equal(t, "x.so", s.Library)
	assert.Empty(t, raw.Library)
	assert.Same(t, s, symbolFailure("y.so", "compute", s))
	assert.Equal(t, "compute", symbolFailure("x.so", "compute", plain).Symbol)
}
