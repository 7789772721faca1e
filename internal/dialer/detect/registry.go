// Package detect finds the country input as it appears and hands each new
// element to the fill scheduler exactly once.
package detect

import (
	"sync"

	"github.com/grez-lucas/dialer-helper/internal/dialer/dom"
)

// Registry is the set of elements already handed off. Membership is
// permanent until Reset, which is called when the document is replaced.
type Registry struct {
	mu   sync.Mutex
	seen map[dom.NodeID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[dom.NodeID]struct{})}
}

// Add records id and reports whether it was new. Check and insert happen
// under one lock, so concurrent callers racing on the same id see exactly
// one true.
func (r *Registry) Add(id dom.NodeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[id]; ok {
		return false
	}
	r.seen[id] = struct{}{}
	return true
}

func (r *Registry) Has(id dom.NodeID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

// Reset forgets every element.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.seen)
}
