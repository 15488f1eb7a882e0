package datalog

import (
	"sync"
)

// KeywordIntern provides keyword interning to avoid repeated allocations
// Uses sync.Map for lock-free concurrent reads
type KeywordIntern struct {
	cache sync.Map // map[string]Keyword
}

// Global keyword intern instance
var keywordIntern = &KeywordIntern{}

// InternKeyword returns the canonical keyword for s. Parsed programs and
// triple files repeat the same handful of predicates, so the backing
// strings are shared.
func InternKeyword(s string) Keyword {
	// Fast path: load existing (lock-free)
	if val, ok := keywordIntern.cache.Load(s); ok {
		return val.(Keyword)
	}

	// Slow path: create and store
	actual, _ := keywordIntern.cache.LoadOrStore(s, Keyword{value: s})
	return actual.(Keyword)
}
