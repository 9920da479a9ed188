//go:build goloader

package goself

import (
	"errors"
	"sync"

	"github.com/ZenLiuCN/dylink"
	"github.com/pkujhd/goloader"
	"go.uber.org/zap"
)

var (
	// ErrClosedTable occurs when a handle was closed or never opened.
	ErrClosedTable = errors.New("symbol table closed")
	// ErrUndefined is the cause of a lookup for a symbol missing from the table.
	ErrUndefined = errors.New("undefined go symbol")
)

// Loader keeps one symbol table per opened image.
type Loader struct {
	mu     sync.Mutex
	tables map[dylink.Handle]map[string]uintptr
	refs   map[dylink.Handle]int
	paths  map[string]dylink.Handle
	next   dylink.Handle
}

// New creates an empty Loader.
func New() *Loader {
	return &Loader{
		tables: make(map[dylink.Handle]map[string]uintptr),
		refs:   make(map[dylink.Handle]int),
		paths:  make(map[string]dylink.Handle),
	}
}

// Open reads the symbol table of path, dylink.Self is the running image.
// Opening a path again shares its table.
func (l *Loader) Open(path string) (h dylink.Handle, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.paths[path]; ok {
		l.refs[h]++
		return h, nil
	}
	symbols := make(map[string]uintptr)
	if path == dylink.Self || path == "" {
		err = goloader.RegSymbol(symbols)
	} else {
		err = goloader.RegSymbolWithPath(symbols, path)
	}
	if err != nil {
		return 0, dylink.NewLoadFailure(path, false, err)
	}
	l.next++
	h = l.next
	l.tables[h] = symbols
	l.refs[h] = 1
	l.paths[path] = h
	dylink.Logger().Debug("go symbol table read", zap.String("path", path), zap.Int("symbols", len(symbols)))
	return
}

func (l *Loader) Symbol(h dylink.Handle, name string) (uintptr, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.tables[h]
	if !ok {
		return 0, dylink.NewSymbolNotFound("", name, ErrClosedTable)
	}
	if a, ok := t[name]; ok && a != 0 {
		return a, nil
	}
	return 0, dylink.NewSymbolNotFound("", name, ErrUndefined)
}

// Close drops the table with its last reference, the image itself stays mapped.
func (l *Loader) Close(h dylink.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.tables[h]; !ok {
		return ErrClosedTable
	}
	if l.refs[h]--; l.refs[h] > 0 {
		return nil
	}
	delete(l.refs, h)
	delete(l.tables, h)
	for p, v := range l.paths {
		if v == h {
			delete(l.paths, p)
		}
	}
	return nil
}

// Registry creates a dylink.Registry over a new Loader.
func Registry() *dylink.Registry {
	return dylink.NewRegistry(dylink.Options{Loader: New()})
}
