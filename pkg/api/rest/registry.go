package rest

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/therealutkarshpriyadarshi/lvq/pkg/lvq"
)

// codebookEntry pairs a codebook with its own lock. The engine itself
// is single-threaded by contract, so the binding serialises access:
// training takes the write lock, lookups take the read lock.
type codebookEntry struct {
	mu sync.RWMutex
	cb *lvq.Codebook
}

// statsEntry holds the result of a test run. Exactly one of the two
// fields is set.
type statsEntry struct {
	classifier *lvq.ClassifierStats
	clustering *lvq.ClusteringStats
}

// Registry maps opaque string handles to live codebooks and evaluation
// results on behalf of the HTTP surface.
type Registry struct {
	mu           sync.RWMutex
	codebooks    map[string]*codebookEntry
	stats        map[string]*statsEntry
	maxCodebooks int
	maxStats     int
}

// NewRegistry creates a registry bounded by the given handle caps.
func NewRegistry(maxCodebooks, maxStats int) *Registry {
	return &Registry{
		codebooks:    make(map[string]*codebookEntry),
		stats:        make(map[string]*statsEntry),
		maxCodebooks: maxCodebooks,
		maxStats:     maxStats,
	}
}

// newHandle mints a short random hex identifier.
func newHandle() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("reading random handle bytes: %v", err))
	}
	return hex.EncodeToString(b[:])
}

var errRegistryFull = fmt.Errorf("registry is full")

// AddCodebook registers a codebook and returns its new handle.
func (r *Registry) AddCodebook(cb *lvq.Codebook) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.codebooks) >= r.maxCodebooks {
		return "", fmt.Errorf("%w: %d codebooks held", errRegistryFull, len(r.codebooks))
	}

	h := newHandle()
	for r.codebooks[h] != nil {
		h = newHandle()
	}
	r.codebooks[h] = &codebookEntry{cb: cb}
	return h, nil
}

// Codebook resolves a handle to its entry.
func (r *Registry) Codebook(handle string) (*codebookEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.codebooks[handle]
	return e, ok
}

// RemoveCodebook drops a handle. It reports whether the handle existed.
func (r *Registry) RemoveCodebook(handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.codebooks[handle]; !ok {
		return false
	}
	delete(r.codebooks, handle)
	return true
}

// CodebookCount returns the number of held codebook handles.
func (r *Registry) CodebookCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.codebooks)
}

// AddStats registers an evaluation result and returns its handle.
func (r *Registry) AddStats(e *statsEntry) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.stats) >= r.maxStats {
		return "", fmt.Errorf("%w: %d stats handles held", errRegistryFull, len(r.stats))
	}

	h := newHandle()
	for r.stats[h] != nil {
		h = newHandle()
	}
	r.stats[h] = e
	return h, nil
}

// Stats resolves a stats handle.
func (r *Registry) Stats(handle string) (*statsEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.stats[handle]
	return e, ok
}

// RemoveStats drops a stats handle. It reports whether the handle
// existed.
func (r *Registry) RemoveStats(handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.stats[handle]; !ok {
		return false
	}
	delete(r.stats, handle)
	return true
}

// StatsCount returns the number of held stats handles.
func (r *Registry) StatsCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.stats)
}
