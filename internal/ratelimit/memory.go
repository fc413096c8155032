package ratelimit

import (
	"context"
	"sync"
	"time"
)

// maxTrackedKeys bounds the window map; stale entries are dropped once the
// map grows past it so a churn of client addresses cannot grow it unbounded.
const maxTrackedKeys = 4096

type window struct {
	epoch int64 // window start, unix seconds
	hits  int
}

// MemoryLimiter is the in-process fixed-window limiter used when no Redis
// address is configured. Each key gets an independent one-second window.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]window
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string]window)}
}

// Allow records a hit for key and reports whether it fits the per-second
// budget. A non-positive limit disables limiting.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, now time.Time) (Result, error) {
	if limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	epoch := now.Unix()
	reset := time.Unix(epoch+1, 0).UTC()

	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[key]
	if w.epoch != epoch {
		w = window{epoch: epoch}
	}
	if w.hits >= limit {
		l.windows[key] = w
		return Result{Allowed: false, Reset: reset}, nil
	}
	w.hits++
	l.windows[key] = w

	if len(l.windows) > maxTrackedKeys {
		l.prune(epoch)
	}
	return Result{Allowed: true, Remaining: limit - w.hits, Reset: reset}, nil
}

// prune drops windows from past epochs. Callers hold mu.
func (l *MemoryLimiter) prune(epoch int64) {
	for key, w := range l.windows {
		if w.epoch != epoch {
			delete(l.windows, key)
		}
	}
}
