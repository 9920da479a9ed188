//go:build !darwin && !freebsd && !linux && !windows

package dylink

type (
	systemLoader struct{}
	selfLoader   struct{}
)

func (systemLoader) Open(path string) (Handle, error) {
	return 0, NewLoadFailure(path, false, ErrUnsupported)
}

func (systemLoader) Symbol(_ Handle, name string) (uintptr, error) {
	return 0, NewSymbolNotFound("", name, ErrUnsupported)
}

func (systemLoader) Close(Handle) error {
	return ErrUnsupported
}

func (selfLoader) Open(path string) (Handle, error) {
	return systemLoader{}.Open(path)
}

func (selfLoader) Symbol(h Handle, name string) (uintptr, error) {
	return systemLoader{}.Symbol(h, name)
}

func (selfLoader) Close(h Handle) error {
	return systemLoader{}.Close(h)
}
