// Package dylinktest provides an in-memory dylink.Loader for tests.
//
// Libraries are declared as files with a symbol table. Several paths may alias one file,
// the way a soname and its versioned name reach the same image, and every path of a file
// opens to the same handle. Counters record every loader call.
package dylinktest

import (
	"errors"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZenLiuCN/dylink"
)

var (
	// ErrUndefined is the cause of a lookup for a symbol a file does not define.
	ErrUndefined = errors.New("undefined symbol")
	// ErrBadHandle occurs when a handle was never opened or is already closed.
	ErrBadHandle = errors.New("bad handle")
)

type (
	// Loader is an instrumented dylink.Loader, safe for concurrent use.
	Loader struct {
		// Delay is slept inside Open and Symbol, widening race windows.
		Delay time.Duration

		mu      sync.Mutex
		paths   map[string]*file
		handles map[dylink.Handle]*file
		next    dylink.Handle

		opens, failed, lookups, closes atomic.Int64
	}
	file struct {
		path    string
		handle  dylink.Handle
		symbols map[string]uintptr
		broken  error //Open fails with this cause
		closing error //Close fails with this cause
		refs    int
	}
)

// New creates an empty Loader.
func New() *Loader {
	return &Loader{
		paths:   make(map[string]*file),
		handles: make(map[dylink.Handle]*file),
	}
}

// Add declares a library file at path exporting symbols.
func (l *Loader) Add(path string, symbols map[string]uintptr) *Loader {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	f := &file{path: path, handle: l.next, symbols: make(map[string]uintptr, len(symbols))}
	for k, v := range symbols {
		f.symbols[k] = v
	}
	l.paths[path] = f
	l.handles[f.handle] = f
	return l
}

// Alias makes alias another path of the file declared at path.
func (l *Loader) Alias(alias, path string) *Loader {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths[alias] = l.must(path)
	return l
}

// Break declares a file that exists but fails to load with cause.
func (l *Loader) Break(path string, cause error) *Loader {
	l.Add(path, nil)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths[path].broken = cause
	return l
}

// FailClose makes every Close of the file at path fail with cause.
func (l *Loader) FailClose(path string, cause error) *Loader {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.must(path).closing = cause
	return l
}

// Define adds or replaces a symbol of the file at path, visible to later lookups.
func (l *Loader) Define(path, symbol string, addr uintptr) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.must(path).symbols[symbol] = addr
}

func (l *Loader) must(path string) *file {
	f, ok := l.paths[path]
	if !ok {
		panic("dylinktest: undeclared file " + path)
	}
	return f
}

func (l *Loader) Open(path string) (dylink.Handle, error) {
	l.sleep()
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.paths[path]
	if !ok {
		l.failed.Add(1)
		return 0, dylink.NewLoadFailure(path, true, fs.ErrNotExist)
	}
	if f.broken != nil {
		l.failed.Add(1)
		return 0, dylink.NewLoadFailure(path, false, f.broken)
	}
	f.refs++
	l.opens.Add(1)
	return f.handle, nil
}

func (l *Loader) Symbol(h dylink.Handle, name string) (uintptr, error) {
	l.sleep()
	l.lookups.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.handles[h]
	if !ok || f.refs == 0 {
		return 0, dylink.NewSymbolNotFound("", name, ErrBadHandle)
	}
	addr, ok := f.symbols[name]
	if !ok {
		return 0, dylink.NewSymbolNotFound("", name, ErrUndefined)
	}
	return addr, nil
}

func (l *Loader) Close(h dylink.Handle) error {
	l.closes.Add(1)
	l.mu.Lock()
	defer l.mu.Unlock()
	f, ok := l.handles[h]
	if !ok || f.refs == 0 {
		return ErrBadHandle
	}
	f.refs--
	return f.closing
}

func (l *Loader) sleep() {
	if l.Delay > 0 {
		time.Sleep(l.Delay)
	}
}

// Opens counts successful Open calls.
func (l *Loader) Opens() int { return int(l.opens.Load()) }

// FailedOpens counts failed Open calls.
func (l *Loader) FailedOpens() int { return int(l.failed.Load()) }

// Lookups counts Symbol calls.
func (l *Loader) Lookups() int { return int(l.lookups.Load()) }

// Closes counts Close calls.
func (l *Loader) Closes() int { return int(l.closes.Load()) }

// Refs is the number of open references the file at path holds.
func (l *Loader) Refs(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.must(path).refs
}

// Live is the number of files with at least one open reference.
func (l *Loader) Live() (n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.handles {
		if f.refs > 0 {
			n++
		}
	}
	return
}

// Handle is the handle of the file at path.
func (l *Loader) Handle(path string) dylink.Handle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.must(path).handle
}

// Reset zeroes the counters.
func (l *Loader) Reset() {
	l.opens.Store(0)
	l.failed.Store(0)
	l.lookups.Store(0)
	l.closes.Store(0)
}
