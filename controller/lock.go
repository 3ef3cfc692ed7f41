// Package controller implements the four lifecycle controllers — LRU
// eviction, cache-expiration, object-expiration, and read-only-after —
// that move bytes and metadata between the hot and cold tiers.
/*
 * Copyright (c) 2019-2024, FORTH-ICS. All rights reserved.
 */
package controller

import "sync"

// Lock is the storage lock of spec §5: a single mutex shared by the
// Eviction and Cache-Expiration controllers so their passes over the
// same hot tier never interleave. Object-expiration and read-only-after
// never take it — both are idempotent and operate on cold alone.
type Lock struct {
	mu sync.Mutex
}

// NewLock returns an unlocked storage lock.
func NewLock() *Lock { return &Lock{} }

// Acquire blocks until the lock is held, returning a release func meant
// to be deferred at the call site (the target language's idiom for
// scoped release, per spec §9).
func (l *Lock) Acquire() (release func()) {
	l.mu.Lock()
	return l.mu.Unlock
}
