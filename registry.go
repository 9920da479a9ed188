package dylink

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Options configures a Registry.
type Options struct {
	Loader Loader // nil means SystemLoader()
	// FailureBackoff replays a failed resolution for this long before a Cell retries.
	// Zero never caches failures: every call on an unresolved Cell resolves from scratch.
	FailureBackoff time.Duration
}

// DefaultOptions returns the native loader without failure caching.
func DefaultOptions() Options {
	return Options{Loader: SystemLoader()}
}

// Registry is a deduplicating, reference counted cache of opened libraries.
//
// Libraries are keyed by LibraryName identity, by the candidate that opened and by handle,
// so two names that reach the same file share one Library. Registry is safe for concurrent use;
// a single mutex serializes opens and closes, lookups on resolved Cells never touch it.
type Registry struct {
	loader  Loader
	backoff time.Duration

	mu       sync.Mutex
	byName   map[string]*Library
	byPath   map[string]*Library
	byHandle map[Handle]*Library
	closed   bool
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts Options) *Registry {
	if opts.Loader == nil {
		opts.Loader = SystemLoader()
	}
	return &Registry{
		loader:   opts.Loader,
		backoff:  opts.FailureBackoff,
		byName:   make(map[string]*Library),
		byPath:   make(map[string]*Library),
		byHandle: make(map[Handle]*Library),
	}
}

// Loader returns the loader the registry opens libraries with.
func (r *Registry) Loader() Loader {
	return r.loader
}

// Acquire returns the shared Library for name, opening the first candidate that opens when it is not cached.
// Every successful Acquire must be paired with one Release.
func (r *Registry) Acquire(name LibraryName) (*Library, error) {
	if name.IsZero() {
		return nil, ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if l, ok := r.byName[name.key]; ok {
		l.refs.Add(1)
		return l, nil
	}
	var errs error
	for _, path := range name.candidates {
		if l, ok := r.byPath[path]; ok {
			r.byName[name.key] = l
			l.refs.Add(1)
			return l, nil
		}
		h, err := r.loader.Open(path)
		if err != nil {
			e := loadFailure(path, err)
			Logger().Debug("candidate failed", zap.String("candidate", path), zap.Bool("missing", e.Missing), zap.Error(e.Cause))
			errs = multierr.Append(errs, e)
			continue
		}
		if l, ok := r.byHandle[h]; ok {
			// same file under another name: drop the extra OS reference
			if err = r.loader.Close(h); err != nil {
				Logger().Warn("failed to close duplicate handle", zap.String("candidate", path), zap.Error(err))
			}
			r.byName[name.key] = l
			r.byPath[path] = l
			l.refs.Add(1)
			Logger().Debug("library shared", zap.String("candidate", path), zap.String("library", l.path))
			return l, nil
		}
		l := &Library{name: name, path: path, handle: h, loader: r.loader}
		l.refs.Store(1)
		r.byName[name.key] = l
		r.byPath[path] = l
		r.byHandle[h] = l
		Logger().Debug("library opened", zap.String("library", path), zap.Stringer("name", name))
		return l, nil
	}
	return nil, &Error{Kind: KindLibraryNotFound, Library: name.String(), Cause: errs}
}

// Release drops one reference, the last one removes the Library from the cache and closes it.
func (r *Registry) Release(l *Library) error {
	if l == nil {
		return ErrNotAcquired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byHandle[l.handle] != l {
		return ErrNotAcquired
	}
	if l.refs.Add(-1) > 0 {
		return nil
	}
	r.evict(l)
	return r.close(l)
}

// evict removes every cache entry of l, callers hold mu.
func (r *Registry) evict(l *Library) {
	for k, v := range r.byName {
		if v == l {
			delete(r.byName, k)
		}
	}
	for k, v := range r.byPath {
		if v == l {
			delete(r.byPath, k)
		}
	}
	delete(r.byHandle, l.handle)
}

func (r *Registry) close(l *Library) error {
	if err := r.loader.Close(l.handle); err != nil {
		Logger().Warn("failed to close library", zap.String("library", l.path), zap.Error(err))
		return fmt.Errorf("dylink: close %s: %w", l.path, err)
	}
	Logger().Debug("library closed", zap.String("library", l.path))
	return nil
}

// Libraries returns the live libraries ordered by path.
func (r *Registry) Libraries() []*Library {
	r.mu.Lock()
	v := make([]*Library, 0, len(r.byHandle))
	for _, l := range r.byHandle {
		v = append(v, l)
	}
	r.mu.Unlock()
	slices.SortFunc(v, func(a, b *Library) int { return strings.Compare(a.path, b.path) })
	return v
}

// Cell declares symbol in name, resolved through this registry on first use.
func (r *Registry) Cell(name LibraryName, symbol string) *Cell {
	return &Cell{name: name, symbol: symbol, reg: r}
}

// Close is the teardown point: every live library is closed regardless of its references
// and later Acquire calls fail with ErrClosed. Close errors do not stop the cleanup, they are returned together.
// Addresses held by resolved Cells are invalid afterwards.
func (r *Registry) Close() (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	for _, l := range r.byHandle {
		l.refs.Store(0)
		err = multierr.Append(err, r.close(l))
	}
	clear(r.byName)
	clear(r.byPath)
	clear(r.byHandle)
	return
}
