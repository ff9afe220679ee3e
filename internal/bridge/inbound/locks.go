package inbound

import "sync"

// pathLocks serializes work per note path while letting distinct paths run
// concurrently. Entries are never reclaimed; the key space is bounded by the
// number of notes on the device.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (p *pathLocks) acquire(path string) (unlock func()) {
	p.mu.Lock()
	if p.locks == nil {
		p.locks = make(map[string]*sync.Mutex)
	}
	l, ok := p.locks[path]
	if !ok {
		l = &sync.Mutex{}
		p.locks[path] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
