package dylink

type (
	// Handle is an opaque platform library handle.
	Handle uintptr
	// Loader is the uniform contract over the native dynamic loading APIs.
	//
	// Implementations never retry. Open failures are reported as *Error of KindLoadFailure
	// (see NewLoadFailure), Symbol failures as *Error of KindSymbolNotFound (see NewSymbolNotFound).
	// The Registry guarantees Close is called at most once per successful Open.
	Loader interface {
		Open(path string) (Handle, error)              //map the library into the process
		Symbol(h Handle, name string) (uintptr, error) //exact name lookup, zero is never a valid result
		Close(h Handle) error                          //release one mapping
	}
)

// SystemLoader returns the native loader of the running platform:
// dlopen/dlsym/dlclose on linux, freebsd and darwin, LoadLibraryEx/GetProcAddress/FreeLibrary on windows.
func SystemLoader() Loader {
	return systemLoader{}
}

// Self is the candidate naming every image already mapped into the process, see SelfLoader.
const Self = "@self"

// SelfLoader returns a loader that only resolves from images already mapped into the process.
//
// Open(Self) or Open("") yields a pseudo handle searching every loaded image (the executable module on windows),
// closing it is a no-op. Open(name) succeeds only when name is already loaded and never maps anything new.
func SelfLoader() Loader {
	return selfLoader{}
}
