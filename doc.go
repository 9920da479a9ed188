/*
Package dylink is a lazy run-time dynamic linker based on [purego].

Foreign functions of shared libraries (.so, .dylib, .dll) are declared as Cells without loading anything.
The first use of a Cell opens its library, looks the symbol up and publishes the address; every later use
is one atomic load and one branch.

# Declaring

	var libm = dylink.MustLibraryName("libm.so.6", "libm.so")
	var cos = dylink.Bind[func(float64) float64](dylink.NewCell(libm, "cos"))

	func Cos(x float64) float64 { return cos.MustGet()(x) }

A LibraryName is an ordered list of candidates, the first one that opens wins and the others are never tried,
even when the symbol turns out to be missing from it. WithExtension appends the platform extension.

# Underwater

 1. A Registry keeps one Library per opened file, shared by every Cell resolved through it,
    whether it was reached by the same LibraryName, the same candidate or another name of the same file.
 2. Concurrent first calls may each look the symbol up, a compare-and-set elects one address and the
    losers drop their library references. An address never changes once published.
 3. Failures are returned to the caller and never stored in a Cell: the next call retries from scratch,
    unless Options.FailureBackoff asks to replay failures for a while.
 4. A resolved Cell pins its Library for the lifetime of its Registry. Registry.Close, or CloseGlobal for
    the process registry, is the only teardown point.

# Notes

 1. Cell.Call passes uintptr arguments with the platform C calling convention, Func builds a typed
    function with [purego.RegisterFunc] and supports what it supports.
 2. SelfLoader resolves from images already mapped into the process, use the Self candidate to search
    all of them.
 3. The goself package resolves Go symbols of the running executable through goloader.

# Compile tool

The dylink command probes library candidates, resolves and calls symbols:

	go install github.com/ZenLiuCN/dylink/cmd/dylink@latest
	dylink probe -l libm.so.6 -l libm.so
	dylink resolve -l libc.so.6 --dump getpid strlen

[purego]: https://github.com/ebitengine/purego
*/
package dylink
