package orchestrator

import (
	"errors"
	"sync"
)

var ErrAlreadyInProgress = errors.New("item is already being processed")

// inFlight tracks entity keys under active processing so the same ticket or
// email is never triaged twice concurrently.
type inFlight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInFlight() *inFlight {
	return &inFlight{keys: make(map[string]struct{})}
}

// begin claims key for the caller. The caller must call end when finished.
func (f *inFlight) begin(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.keys[key]; busy {
		return ErrAlreadyInProgress
	}
	f.keys[key] = struct{}{}
	return nil
}

func (f *inFlight) end(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
}
