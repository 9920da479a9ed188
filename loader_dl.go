//go:build darwin || freebsd || linux

package dylink

import (
	"github.com/ebitengine/purego"
)

type (
	systemLoader struct{}
	selfLoader   struct{}
)

// selfHandle marks the global namespace pseudo handle, RTLD_DEFAULT is zero on linux.
const selfHandle = ^Handle(0)

func (systemLoader) Open(path string) (Handle, error) {
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return 0, NewLoadFailure(path, isMissing(path, err.Error()), diagnostic(err.Error()))
	}
	if h == 0 {
		return 0, NewLoadFailure(path, false, diagnostic("dlopen returned a null handle"))
	}
	return Handle(h), nil
}

func (systemLoader) Symbol(h Handle, name string) (uintptr, error) {
	return dlsym(uintptr(h), name)
}

func (systemLoader) Close(h Handle) error {
	if err := purego.Dlclose(uintptr(h)); err != nil {
		return diagnostic(err.Error())
	}
	return nil
}

func (selfLoader) Open(path string) (Handle, error) {
	if path == "" || path == Self {
		return selfHandle, nil
	}
	h, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL|rtldNoload)
	if err != nil {
		return 0, NewLoadFailure(path, true, diagnostic(err.Error()))
	}
	if h == 0 {
		return 0, NewLoadFailure(path, true, diagnostic("not loaded"))
	}
	return Handle(h), nil
}

func (selfLoader) Symbol(h Handle, name string) (uintptr, error) {
	if h == selfHandle {
		return dlsym(purego.RTLD_DEFAULT, name)
	}
	return dlsym(uintptr(h), name)
}

func (selfLoader) Close(h Handle) error {
	if h == selfHandle {
		return nil
	}
	return systemLoader{}.Close(h)
}

func dlsym(h uintptr, name string) (uintptr, error) {
	addr, err := purego.Dlsym(h, name)
	if err != nil {
		return 0, NewSymbolNotFound("", name, diagnostic(err.Error()))
	}
	if addr == 0 {
		return 0, NewSymbolNotFound("", name, ErrNotResolved)
	}
	return addr, nil
}
