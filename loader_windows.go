//go:build windows

package dylink

import (
	"errors"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/windows"
)

type (
	systemLoader struct{}
	selfLoader   struct{}
)

func (systemLoader) Open(path string) (Handle, error) {
	flags := uintptr(windows.LOAD_LIBRARY_SEARCH_DEFAULT_DIRS)
	if filepath.IsAbs(path) {
		flags |= windows.LOAD_LIBRARY_SEARCH_DLL_LOAD_DIR
	}
	h, err := windows.LoadLibraryEx(path, 0, flags)
	if err != nil {
		return 0, NewLoadFailure(path, isMissing(path, err), err)
	}
	return Handle(h), nil
}

func (systemLoader) Symbol(h Handle, name string) (uintptr, error) {
	addr, err := windows.GetProcAddress(windows.Handle(h), name)
	if err != nil {
		return 0, NewSymbolNotFound("", name, err)
	}
	if addr == 0 {
		return 0, NewSymbolNotFound("", name, ErrNotResolved)
	}
	return addr, nil
}

func (systemLoader) Close(h Handle) error {
	return windows.FreeLibrary(windows.Handle(h))
}

// isMissing: ERROR_MOD_NOT_FOUND is also reported for an absent dependency of an existing file.
func isMissing(path string, err error) bool {
	if !errors.Is(err, windows.ERROR_MOD_NOT_FOUND) &&
		!errors.Is(err, windows.ERROR_FILE_NOT_FOUND) &&
		!errors.Is(err, windows.ERROR_PATH_NOT_FOUND) {
		return false
	}
	if filepath.Base(path) == path {
		return true
	}
	_, serr := os.Stat(path)
	return serr != nil
}

var (
	exe     windows.Handle
	exeErr  error
	exeOnce sync.Once
)

func (selfLoader) Open(path string) (Handle, error) {
	if path == "" || path == Self {
		exeOnce.Do(func() {
			exeErr = windows.GetModuleHandleEx(windows.GET_MODULE_HANDLE_EX_FLAG_UNCHANGED_REFCOUNT, nil, &exe)
		})
		if exeErr != nil {
			return 0, NewLoadFailure(path, false, exeErr)
		}
		return Handle(exe), nil
	}
	name, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, NewLoadFailure(path, false, err)
	}
	var h windows.Handle
	if err = windows.GetModuleHandleEx(0, name, &h); err != nil {
		return 0, NewLoadFailure(path, true, err)
	}
	return Handle(h), nil
}

func (selfLoader) Symbol(h Handle, name string) (uintptr, error) {
	return systemLoader{}.Symbol(h, name)
}

func (selfLoader) Close(h Handle) error {
	if exe != 0 && windows.Handle(h) == exe {
		return nil
	}
	return windows.FreeLibrary(windows.Handle(h))
}
