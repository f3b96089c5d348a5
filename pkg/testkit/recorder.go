// Package testkit provides helpers for testing event listeners: an ordered
// effect recorder, testify-backed call mocks and a context-aware sleep.
package testkit

import (
	"slices"
	"sync"
)

// Recorder is a concurrency-safe, append-only log of listener effects.
// Listeners push a label when they run; tests compare the final order.
type Recorder struct {
	mu      sync.Mutex
	entries []string
}

// Push appends entry.
func (r *Recorder) Push(entry string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
}

// Entries returns a copy of everything pushed so far, in push order.
func (r *Recorder) Entries() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.entries)
}

// Len returns the number of entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Reset clears the log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
