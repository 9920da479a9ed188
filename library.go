package dylink

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Library is one opened native library shared by every Cell resolved through it.
// Only the reference count changes after creation.
type Library struct {
	name   LibraryName
	path   string
	handle Handle
	loader Loader
	refs   atomic.Int32
}

// Name is the LibraryName that first opened the library.
func (l *Library) Name() LibraryName { return l.name }

// Path is the candidate that opened.
func (l *Library) Path() string { return l.path }

// Handle is the platform handle.
func (l *Library) Handle() Handle { return l.handle }

// Refs is the current reference count.
func (l *Library) Refs() int { return int(l.refs.Load()) }

// Symbol looks up an exported symbol by exact name.
func (l *Library) Symbol(name string) (uintptr, error) {
	addr, err := l.loader.Symbol(l.handle, name)
	if err != nil {
		return 0, symbolFailure(l.path, name, err)
	}
	if addr == 0 {
		return 0, NewSymbolNotFound(l.path, name, ErrNotResolved)
	}
	Logger().Debug("symbol found", zap.String("library", l.path), zap.String("symbol", name), zap.Uintptr("addr", addr))
	return addr, nil
}

func (l *Library) String() string {
	return l.path
}
