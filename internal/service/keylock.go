package service

import (
	"sort"
	"sync"
)

// keyedMutex serialises writers touching the same scheduling resource
// (a room, a lecturer or a cohort on a given date) within this process.
// Keys are always acquired in sorted order so two writers overlapping on
// several resources cannot deadlock each other.
type keyedMutex struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{entries: make(map[string]*lockEntry)}
}

// Lock acquires every key and returns the release function. Duplicate keys
// are collapsed before acquisition.
func (k *keyedMutex) Lock(keys ...string) func() {
	uniq := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		uniq = append(uniq, key)
	}
	sort.Strings(uniq)

	acquired := make([]*lockEntry, 0, len(uniq))
	for _, key := range uniq {
		k.mu.Lock()
		entry, ok := k.entries[key]
		if !ok {
			entry = &lockEntry{}
			k.entries[key] = entry
		}
		entry.refs++
		k.mu.Unlock()

		entry.mu.Lock()
		acquired = append(acquired, entry)
	}

	released := uniq
	return func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			entry := acquired[i]
			entry.mu.Unlock()

			k.mu.Lock()
			entry.refs--
			if entry.refs == 0 {
				delete(k.entries, released[i])
			}
			k.mu.Unlock()
		}
	}
}
