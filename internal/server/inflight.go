package server

import "sync"

// inflight tracks items with a regeneration in progress so a duplicate
// request for the same item is rejected instead of racing the first.
type inflight struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{busy: make(map[string]struct{})}
}

// acquire marks every key busy, or none of them if any already is.
// The returned release func must be called when the work is done.
func (f *inflight) acquire(keys []string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, k := range keys {
		if _, taken := f.busy[k]; taken {
			return nil, false
		}
	}
	for _, k := range keys {
		f.busy[k] = struct{}{}
	}
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, k := range keys {
			delete(f.busy, k)
		}
	}, true
}

func (f *inflight) isBusy(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.busy[key]
	return ok
}
