package blockfs

import "sync"

// Gate is the single process-wide mutual-exclusion token that serializes
// every image-mutating operation across worker goroutines. It mirrors
// original_source/main.py's `filesystem_lock = threading.Lock()` held for
// the duration of each dispatched command via `with filesystem_lock:`.
type Gate struct {
	mu sync.Mutex
}

// WithLock runs fn with the gate held, releasing it even if fn panics.
func (g *Gate) WithLock(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}

// Lock and Unlock are exposed directly for callers (e.g. a future external
// driver) that need to hold the gate across more than one engine call.
func (g *Gate) Lock()   { g.mu.Lock() }
func (g *Gate) Unlock() { g.mu.Unlock() }
