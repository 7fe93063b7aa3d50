package archiver

import "sync"

// pathLocks serializes read-mutate-write cycles per document path. Two
// concurrent operations targeting the same destination take turns instead of
// clobbering each other's writes.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for path, creating it on first use, and returns
// the matching unlock.
func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	m, ok := p.locks[path]
	if !ok {
		m = &sync.Mutex{}
		p.locks[path] = m
	}
	p.mu.Unlock()
	m.Lock()
	return m.Unlock
}
