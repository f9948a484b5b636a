package services

import (
	"sort"
	"sync"
)

// accountLocks serializes balance mutations per account within the process.
// Entries are reference counted and dropped once no caller holds or waits on them.
type accountLocks struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[string]*accountLock)}
}

// Lock acquires the locks for ids in ascending order, so two callers locking
// the same pair in opposite directions cannot deadlock. Empty and repeated ids
// are ignored. The returned func releases everything.
func (l *accountLocks) Lock(ids ...string) (unlock func()) {
	keys := uniqueSorted(ids)

	held := make([]*accountLock, 0, len(keys))
	for _, id := range keys {
		entry := l.acquire(id)
		entry.mu.Lock()
		held = append(held, entry)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(keys[i])
		}
	}
}

func (l *accountLocks) acquire(id string) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.locks[id]
	if !ok {
		entry = &accountLock{}
		l.locks[id] = entry
	}
	entry.refs++
	return entry
}

func (l *accountLocks) release(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.locks[id]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, id)
	}
}

// size reports the number of live entries.
func (l *accountLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
