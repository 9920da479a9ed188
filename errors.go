package dylink

import (
	"errors"
	"strings"
)

// Kind categorizes a resolution failure.
type Kind uint8

const (
	KindLibraryNotFound Kind = iota + 1 // no candidate of a LibraryName could be opened
	KindSymbolNotFound                  // the library opened but does not export the symbol
	KindLoadFailure                     // the platform loader refused one candidate
)

func (k Kind) String() string {
	switch k {
	case KindLibraryNotFound:
		return "library not found"
	case KindSymbolNotFound:
		return "symbol not found"
	case KindLoadFailure:
		return "load failure"
	default:
		return "unknown"
	}
}

// Error is the failure reported by loaders, the Registry and Cell resolution.
type Error struct {
	Kind    Kind
	Library string // candidate path, or the candidate list for KindLibraryNotFound
	Symbol  string
	Missing bool // KindLoadFailure only: the file itself is absent
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("dylink: ")
	b.WriteString(e.Kind.String())
	if e.Library != "" {
		b.WriteByte(' ')
		b.WriteString(e.Library)
	}
	if e.Symbol != "" {
		b.WriteString(" symbol ")
		b.WriteString(e.Symbol)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

var (
	// ErrLibraryNotFound matches any error where no candidate of a LibraryName opened.
	ErrLibraryNotFound error = &Error{Kind: KindLibraryNotFound}
	// ErrSymbolNotFound matches any error where a library lacks the requested export.
	ErrSymbolNotFound error = &Error{Kind: KindSymbolNotFound}
	// ErrLoadFailure matches any error the platform loader reported while opening a candidate.
	ErrLoadFailure error = &Error{Kind: KindLoadFailure}

	// ErrEmptyName occurs when a LibraryName is built without candidates or with an empty one.
	ErrEmptyName = errors.New("empty library name")
	// ErrClosed occurs when acquiring from a closed Registry.
	ErrClosed = errors.New("registry closed")
	// ErrNotAcquired occurs when releasing a Library that holds no reference.
	ErrNotAcquired = errors.New("library not acquired")
	// ErrUnsupported occurs on platforms without a native loader backend.
	ErrUnsupported = errors.New("dynamic loading unsupported on this platform")
	// ErrTooManyArgs occurs when Call is given more than MaxArgs arguments.
	ErrTooManyArgs = errors.New("too many call arguments")
	// ErrNotResolved occurs when a resolution yields no usable address.
	ErrNotResolved = errors.New("symbol not resolved")
)

// NewLoadFailure builds the error a Loader returns when Open fails.
// missing is true only when the file itself does not exist.
func NewLoadFailure(path string, missing bool, cause error) *Error {
	return &Error{Kind: KindLoadFailure, Library: path, Missing: missing, Cause: cause}
}

// NewSymbolNotFound builds the error a Loader returns when Symbol fails.
func NewSymbolNotFound(library, symbol string, cause error) *Error {
	return &Error{Kind: KindSymbolNotFound, Library: library, Symbol: symbol, Cause: cause}
}

// diagnostic is a platform loader message.
type diagnostic string

func (d diagnostic) Error() string { return string(d) }

// loadFailure normalizes whatever a Loader returned from Open.
func loadFailure(path string, err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindLoadFailure {
		return e
	}
	return NewLoadFailure(path, false, err)
}

// symbolFailure normalizes whatever a Loader returned from Symbol.
func symbolFailure(library, symbol string, err error) *Error {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindSymbolNotFound {
		if e.Library != "" {
			return e
		}
		c := *e
		c.Library = library
		return &c
	}
	return NewSymbolNotFound(library, symbol, err)
}
