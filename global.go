package dylink

import "sync/atomic"

var global atomic.Pointer[Registry]

func init() {
	global.Store(NewRegistry(DefaultOptions()))
}

// Global is the process-wide registry used by NewCell, it uses DefaultOptions.
func Global() *Registry {
	return global.Load()
}

// CloseGlobal tears the process-wide registry down and installs a fresh one for later declarations.
// Cells already declared keep the closed registry: unresolved ones fail with ErrClosed,
// resolved ones hold addresses that are no longer valid. This should only be used at process teardown.
func CloseGlobal() error {
	return global.Swap(NewRegistry(DefaultOptions())).Close()
}
