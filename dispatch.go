package dylink

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// MaxArgs is the most arguments Call can pass.
const MaxArgs = 15

// Call dispatches through the cell: it resolves on first use, then calls the address with the
// platform C calling convention, passing args unchanged. Only the first result register is returned.
// More than MaxArgs arguments fail with ErrTooManyArgs before anything is resolved.
func (c *Cell) Call(args ...uintptr) (uintptr, error) {
	if len(args) > MaxArgs {
		return 0, fmt.Errorf("%w: %d > %d", ErrTooManyArgs, len(args), MaxArgs)
	}
	a, err := c.Addr()
	if err != nil {
		return 0, err
	}
	return call(a, args...), nil
}

// Func is a typed binding of a Cell: F is a Go func type matching the native signature.
// The Go function is built once, on the first successful Get, and reused afterwards.
type Func[F any] struct {
	cell *Cell
	fn   atomic.Pointer[F]
}

// Bind creates the typed binding of cell.
func Bind[F any](cell *Cell) *Func[F] {
	return &Func[F]{cell: cell}
}

// Cell is the bound cell.
func (f *Func[F]) Cell() *Cell { return f.cell }

// Get returns the function, resolving the cell on first use.
// Once built it costs one atomic load and one branch.
func (f *Func[F]) Get() (F, error) {
	if p := f.fn.Load(); p != nil {
		return *p, nil
	}
	return f.build()
}

// MustGet is Get that panics with the resolution error.
func (f *Func[F]) MustGet() F {
	x, err := f.Get()
	if err != nil {
		panic(err)
	}
	return x
}

func (f *Func[F]) build() (x F, err error) {
	var a uintptr
	if a, err = f.cell.Addr(); err != nil {
		return
	}
	p := new(F)
	if err = register(p, a); err != nil {
		return
	}
	if !f.fn.CompareAndSwap(nil, p) {
		p = f.fn.Load()
	}
	return *p, nil
}

// register binds fptr to addr, converting the panics of an unsupported signature to an error.
func register(fptr any, addr uintptr) (err error) {
	defer func() {
		switch r := recover().(type) {
		case nil:
		case error:
			err = fmt.Errorf("dylink: bind %T: %w", fptr, r)
		default:
			err = fmt.Errorf("dylink: bind %T: %v", fptr, r)
		}
	}()
	registerFunc(fptr, addr)
	return
}

// Use creates a function to fetch and use a typed binding on the fly, resolution errors and panics
// raised while binding are handed to the callback.
func Use[F any](cell *Cell) func(func(fn F, err error)) {
	b := Bind[F](cell)
	return func(f func(fn F, err error)) {
		f(b.Get())
	}
}

// As reinterprets a resolved address as T, which must be pointer sized (uintptr, unsafe.Pointer,
// or a pointer type). It is meant for data symbols; use Func for functions.
func As[T any](cell *Cell) (x T, err error) {
	var a uintptr
	if a, err = cell.Addr(); err != nil {
		return
	}
	return reinterpret[T](a)
}

func reinterpret[T any](a uintptr) (x T, err error) {
	if unsafe.Sizeof(x) != unsafe.Sizeof(a) {
		return x, fmt.Errorf("dylink: %T is not pointer sized", x)
	}
	return *(*T)(unsafe.Pointer(&a)), nil
}
