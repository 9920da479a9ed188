/*
Package goself resolves Go symbols of the running executable through [goloader]'s symbol table.

Its Loader plugs into a dylink.Registry: the candidate dylink.Self reads the symbol table of the
running image, any other candidate is the path of the executable file to read it from.
Symbols are named by their linker names, such as "main.main" or "fmt.Sprint".
Only symbols the executable actually links can be found.

# Build

[goloader] reads internals of the go sdk, so this package only builds with the goloader tag
after the sdk is prepared:

	dylink prepare
	go build -tags goloader ./...
	dylink clean

[goloader]: https://github.com/pkujhd/goloader
*/
package goself
