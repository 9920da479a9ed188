//go:build darwin || freebsd || linux || windows

package dylink

import "github.com/ebitengine/purego"

func call(addr uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(addr, args...)
	return r1
}

func registerFunc(fptr any, addr uintptr) {
	purego.RegisterFunc(fptr, addr)
}
