//go:build !darwin && !freebsd && !linux && !windows

package dylink

func call(uintptr, ...uintptr) uintptr {
	panic(ErrUnsupported)
}

func registerFunc(any, uintptr) {
	panic(ErrUnsupported)
}
