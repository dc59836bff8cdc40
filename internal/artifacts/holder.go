package artifacts

import (
	"sync/atomic"

	"github.com/bankops/retail-analytics/internal/risk"
)

// Holder shares the active artifact pair across concurrent scoring requests.
// Readers take the pointer lock-free; replacing the pair after retraining is
// a single atomic swap, so an in-flight request never observes a
// partially-written pair.
type Holder struct {
	current atomic.Pointer[risk.ArtifactPair]
}

// NewHolder creates an empty holder
func NewHolder() *Holder {
	return &Holder{}
}

// Get returns the active pair, or nil if none has been loaded
func (h *Holder) Get() *risk.ArtifactPair {
	return h.current.Load()
}

// Swap atomically replaces the active pair
func (h *Holder) Swap(pair *risk.ArtifactPair) {
	h.current.Store(pair)
}
