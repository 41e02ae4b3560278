package locking

import "sync"

// MemLock is a Group implementation backed by in-process mutexes. It only
// serializes goroutines within one talkify process; backends that can be
// shared between processes pair it with a file lock.
type MemLock struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func NewMemLock() *MemLock {
	return &MemLock{
		locks: make(map[string]*keyLock),
	}
}

func (m *MemLock) DoWithLock(key string, fn func() error) error {
	m.mu.Lock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &keyLock{}
		m.locks[key] = lock
	}
	lock.refs++
	m.mu.Unlock()

	lock.Lock()
	defer func() {
		lock.Unlock()
		m.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}()
	return fn()
}

// size reports how many keys currently have a live lock entry.
func (m *MemLock) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
