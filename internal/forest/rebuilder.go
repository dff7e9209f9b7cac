package forest

import (
	"sync"
	"time"
)

// Rebuilder coalesces a burst of file-change notifications into a
// single rebuild callback, fired debounceTime after the last change.
// It uses a pending-map-plus-time.AfterFunc shape: each flush makes a
// single onRebuild call carrying every URI scheduled since the previous
// flush.
type Rebuilder struct {
	debounce time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]bool

	onRebuild func(uris []string)
}

// NewRebuilder creates a Rebuilder that waits debounce after the last
// scheduled change before invoking onRebuild with the batch of
// affected URIs. debounce <= 0 defaults to 200ms, the diagnostics
// debounce floor.
func NewRebuilder(debounce time.Duration, onRebuild func(uris []string)) *Rebuilder {
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Rebuilder{debounce: debounce, pending: make(map[string]bool), onRebuild: onRebuild}
}

// Schedule marks uri as changed and (re)starts the debounce timer.
func (r *Rebuilder) Schedule(uri string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[uri] = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.flush)
}

func (r *Rebuilder) flush() {
	r.mu.Lock()
	uris := make([]string, 0, len(r.pending))
	for u := range r.pending {
		uris = append(uris, u)
	}
	r.pending = make(map[string]bool)
	callback := r.onRebuild
	r.mu.Unlock()

	if callback != nil && len(uris) > 0 {
		callback(uris)
	}
}

// Stop cancels any pending debounce timer without firing it.
func (r *Rebuilder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
}
