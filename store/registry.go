package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// registry resolves a scheme (the part of a URI before "://") to the
// Constructor registered for it. Concrete drivers call Register from an
// init() func, the same dynamic-dispatch-by-scheme idea the teacher uses
// to pick a backend provider from a bucket's Provider field.
type registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

var global = &registry{ctors: make(map[string]Constructor)}

// Register associates scheme with the given Constructor. Registering the
// same scheme twice panics, matching the teacher's fail-fast init()-time
// registration style (e.g. xaction provider registration in the lru
// reference).
func Register(scheme string, ctor Constructor) {
	global.mu.Lock()
	defer global.mu.Unlock()
	if _, dup := global.ctors[scheme]; dup {
		panic(fmt.Sprintf("store: scheme %q already registered", scheme))
	}
	global.ctors[scheme] = ctor
}

// Open parses a "scheme://location" URI and builds the registered Driver
// for it.
func Open(uri string) (Driver, error) {
	scheme, location, ok := splitSchemeLocation(uri)
	if !ok {
		return nil, errors.Errorf("store: malformed URI %q, want scheme://location", uri)
	}
	global.mu.RLock()
	ctor, ok := global.ctors[scheme]
	global.mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("store: no driver registered for scheme %q", scheme)
	}
	return ctor(location)
}

func splitSchemeLocation(uri string) (scheme, location string, ok bool) {
	const sep = "://"
	i := strings.Index(uri, sep)
	if i <= 0 {
		return "", "", false
	}
	return uri[:i], uri[i+len(sep):], true
}
