package dylink

import (
	"path/filepath"
	"runtime"
	"strings"
)

// LibraryName is an ordered list of candidate file names or paths for one logical library.
// The first candidate that opens wins; the rest are not tried.
type LibraryName struct {
	candidates []string
	key        string
}

// NewLibraryName creates a LibraryName from candidates in search order.
func NewLibraryName(candidates ...string) (n LibraryName, err error) {
	if len(candidates) == 0 {
		return n, ErrEmptyName
	}
	for _, c := range candidates {
		if c == "" {
			return n, ErrEmptyName
		}
	}
	n.candidates = append([]string(nil), candidates...)
	n.key = strings.Join(n.candidates, "\x00")
	return
}

// MustLibraryName is NewLibraryName for static declarations, it panics with ErrEmptyName.
func MustLibraryName(candidates ...string) LibraryName {
	n, err := NewLibraryName(candidates...)
	if err != nil {
		panic(err)
	}
	return n
}

// Candidates returns a copy of the candidate list.
func (n LibraryName) Candidates() []string {
	return append([]string(nil), n.candidates...)
}

// IsZero reports whether n was not built by NewLibraryName.
func (n LibraryName) IsZero() bool {
	return len(n.candidates) == 0
}

// Equal reports whether both names list the same candidates in the same order.
func (n LibraryName) Equal(o LibraryName) bool {
	return n.key == o.key
}

func (n LibraryName) String() string {
	return "[" + strings.Join(n.candidates, " ") + "]"
}

// WithExtension returns a LibraryName whose candidates all carry the platform's conventional
// shared library extension, appending Ext() where it is absent. Self is left untouched.
func (n LibraryName) WithExtension() LibraryName {
	if n.IsZero() {
		return n
	}
	c := make([]string, len(n.candidates))
	for i, s := range n.candidates {
		if s == Self || hasLibraryExt(runtime.GOOS, s) {
			c[i] = s
		} else {
			c[i] = s + extOf(runtime.GOOS)
		}
	}
	return MustLibraryName(c...)
}

// Ext is the conventional shared library extension of the running platform.
func Ext() string {
	return extOf(runtime.GOOS)
}

func extOf(goos string) string {
	switch goos {
	case "windows":
		return ".dll"
	case "darwin", "ios":
		return ".dylib"
	default:
		return ".so"
	}
}

// hasLibraryExt accepts versioned unix names such as libfoo.so.1 and libfoo.1.dylib.
func hasLibraryExt(goos, name string) bool {
	base := filepath.Base(name)
	switch goos {
	case "windows":
		return strings.EqualFold(filepath.Ext(base), ".dll")
	case "darwin", "ios":
		return strings.HasSuffix(base, ".dylib") || strings.HasSuffix(base, ".so") ||
			strings.HasSuffix(base, ".framework") || strings.Contains(base, ".so.")
	default:
		return strings.HasSuffix(base, ".so") || strings.Contains(base, ".so.")
	}
}
