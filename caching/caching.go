// Package caching holds short-lived in-process counters.
package caching

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// WindowCounter counts hits per key in fixed windows. The window of a key
// starts at its first hit and is not extended by later hits.
type WindowCounter struct {
	memory *cache.Cache
}

func NewWindowCounter(cleanup time.Duration) *WindowCounter {
	return &WindowCounter{memory: cache.New(cache.NoExpiration, cleanup)}
}

// Incr adds one hit to key and returns the count in the current window.
func (w *WindowCounter) Incr(key string, window time.Duration) int64 {
	// Add only succeeds for a new window; the expiry is fixed at that point.
	_ = w.memory.Add(key, int64(0), window)
	n, err := w.memory.IncrementInt64(key, 1)
	if err != nil {
		// The window expired between Add and IncrementInt64.
		w.memory.Set(key, int64(1), window)
		return 1
	}
	return n
}

// Reset forgets every window.
func (w *WindowCounter) Reset() {
	w.memory.Flush()
}
