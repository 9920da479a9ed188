package dylink

import (
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Cell binds one declared foreign symbol. It starts unresolved; the first Addr resolves it
// through its Registry and publishes the address, which then never changes.
//
// Concurrent first calls may each look the symbol up, only one compare-and-set wins and every
// caller returns the winner's address. Failures are returned to the caller and never stored in the slot.
type Cell struct {
	name   LibraryName
	symbol string
	reg    *Registry

	addr   atomic.Uintptr // 0 while unresolved
	held   atomic.Pointer[Library]
	failed atomic.Pointer[failure]
}

type failure struct {
	err   error
	until time.Time
}

// NewCell declares symbol in name against the Global registry.
func NewCell(name LibraryName, symbol string) *Cell {
	return Global().Cell(name, symbol)
}

// Symbol is the declared symbol name.
func (c *Cell) Symbol() string { return c.symbol }

// Library is the declared LibraryName.
func (c *Cell) Library() LibraryName { return c.name }

// Registry is the registry the cell resolves through.
func (c *Cell) Registry() *Registry { return c.reg }

// Resolved reports whether the address is published.
func (c *Cell) Resolved() bool {
	return c.addr.Load() != 0
}

// Held is the Library pinned by a resolved cell, nil before resolution.
// It is never nil once Resolved reports true.
func (c *Cell) Held() *Library {
	l := c.held.Load()
	for l == nil && c.addr.Load() != 0 {
		// the winner publishes the address first, its library follows
		runtime.Gosched()
		l = c.held.Load()
	}
	return l
}

// Addr returns the resolved address, resolving on first use.
// Once resolved it costs one atomic load and one branch.
func (c *Cell) Addr() (uintptr, error) {
	if a := c.addr.Load(); a != 0 {
		return a, nil
	}
	return c.resolve()
}

// MustAddr is Addr that panics with the resolution error.
func (c *Cell) MustAddr() uintptr {
	a, err := c.Addr()
	if err != nil {
		panic(err)
	}
	return a
}

// TryLink resolves the cell without calling it.
func (c *Cell) TryLink() error {
	_, err := c.Addr()
	return err
}

func (c *Cell) resolve() (uintptr, error) {
	if f := c.failed.Load(); f != nil && time.Now().Before(f.until) {
		return 0, f.err
	}
	lib, err := c.reg.Acquire(c.name)
	if err != nil {
		return 0, c.fail(err)
	}
	addr, err := lib.Symbol(c.symbol)
	if err != nil {
		c.release(lib)
		return 0, c.fail(err)
	}
	if c.addr.CompareAndSwap(0, addr) {
		// the library stays mapped for as long as the address is in use: the reference is never released
		c.held.Store(lib)
		c.failed.Store(nil)
		Logger().Debug("symbol resolved", zap.String("symbol", c.symbol), zap.String("library", lib.path), zap.Uintptr("addr", addr))
		return addr, nil
	}
	c.release(lib)
	Logger().Debug("resolution lost", zap.String("symbol", c.symbol))
	return c.addr.Load(), nil
}

func (c *Cell) release(lib *Library) {
	if err := c.reg.Release(lib); err != nil {
		Logger().Warn("failed to release library", zap.String("library", lib.path), zap.Error(err))
	}
}

func (c *Cell) fail(err error) error {
	if c.reg.backoff > 0 {
		c.failed.Store(&failure{err: err, until: time.Now().Add(c.reg.backoff)})
	}
	Logger().Debug("resolution failed", zap.String("symbol", c.symbol), zap.Stringer("name", c.name), zap.Error(err))
	return err
}

func (c *Cell) String() string {
	return c.name.String() + "." + c.symbol
}
