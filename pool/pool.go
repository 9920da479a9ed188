// Package pool groups native libraries under aliases together with the cells declared against them.
package pool

import (
	"errors"
	"slices"
	"sync"

	"github.com/ZenLiuCN/dylink"
	"github.com/ZenLiuCN/fn"
	"go.uber.org/multierr"
)

// Pool is a Registry with named libraries and deduplicated cells.
type Pool struct {
	*dylink.Registry
	Names map[string]dylink.LibraryName // alias to candidates
	Cells map[Key]*dylink.Cell          // declared cells
	sync.RWMutex
}

// Key identifies a declared cell, symbols may contain dots such as go linker names.
type Key struct {
	Alias, Symbol string
}

func (k Key) String() string {
	return k.Alias + "." + k.Symbol
}

var (
	ErrAlreadyRegistered = errors.New("library alias already registered")
	ErrMissingLibrary    = errors.New("library alias not registered")
)

// NewPool create new pool over its own Registry
func NewPool(opts dylink.Options) *Pool {
	return &Pool{
		Registry: dylink.NewRegistry(opts),
		Names:    make(map[string]dylink.LibraryName),
		Cells:    make(map[Key]*dylink.Cell),
	}
}

// Register declares alias for the candidates, nothing is opened.
func (p *Pool) Register(alias string, candidates ...string) error {
	name, err := dylink.NewLibraryName(candidates...)
	if err != nil {
		return err
	}
	p.Lock()
	defer p.Unlock()
	if _, ok := p.Names[alias]; ok {
		return ErrAlreadyRegistered
	}
	p.Names[alias] = name
	return nil
}

// Lookup returns the cell of symbol in the aliased library, declaring it on first use.
func (p *Pool) Lookup(alias, symbol string) (*dylink.Cell, error) {
	key := Key{Alias: alias, Symbol: symbol}
	p.RLock()
	c, ok := p.Cells[key]
	p.RUnlock()
	if ok {
		return c, nil
	}
	p.Lock()
	defer p.Unlock()
	if c, ok = p.Cells[key]; ok {
		return c, nil
	}
	name, ok := p.Names[alias]
	if !ok {
		return nil, ErrMissingLibrary
	}
	c = p.Registry.Cell(name, symbol)
	p.Cells[key] = c
	return c, nil
}

// Require fetch cell from library alias, panics with ErrMissingLibrary
func (p *Pool) Require(alias, symbol string) *dylink.Cell {
	return fn.Panic1(p.Lookup(alias, symbol))
}

// Preload links every cell declared under alias. Without cells it only checks the library opens.
func (p *Pool) Preload(alias string) (err error) {
	p.RLock()
	name, ok := p.Names[alias]
	var cells []*dylink.Cell
	for k, c := range p.Cells {
		if k.Alias == alias {
			cells = append(cells, c)
		}
	}
	p.RUnlock()
	if !ok {
		return ErrMissingLibrary
	}
	if len(cells) == 0 {
		var l *dylink.Library
		if l, err = p.Acquire(name); err != nil {
			return
		}
		return p.Release(l)
	}
	for _, c := range cells {
		err = multierr.Append(err, c.TryLink())
	}
	return
}

// Missing lists the declared cells that fail to link, as sorted alias.symbol keys.
func (p *Pool) Missing() (v []string) {
	p.RLock()
	keys := fn.MapKeys(p.Cells)
	cells := make([]*dylink.Cell, len(keys))
	for i, k := range keys {
		cells[i] = p.Cells[k]
	}
	p.RUnlock()
	for i, c := range cells {
		if c.TryLink() != nil {
			v = append(v, keys[i].String())
		}
	}
	slices.Sort(v)
	return
}

// Aliases are the registered aliases, sorted.
func (p *Pool) Aliases() []string {
	p.RLock()
	defer p.RUnlock()
	v := fn.MapKeys(p.Names)
	slices.Sort(v)
	return v
}

// Close the registry, every library is closed and the declarations are dropped.
func (p *Pool) Close() error {
	p.Lock()
	defer p.Unlock()
	clear(p.Names)
	clear(p.Cells)
	return p.Registry.Close()
}
