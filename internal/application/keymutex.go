package application

import "sync"

// KeyedMutex serializes writers per batch id without blocking. A second
// writer arriving for the same key is turned away immediately so the caller
// can surface a retryable conflict instead of queueing.
type KeyedMutex struct {
	mu    sync.Mutex
	inUse map[string]struct{}
}

// NewKeyedMutex creates an empty keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{inUse: make(map[string]struct{})}
}

// TryAcquire claims the key. It returns a release func and true on success,
// or nil and false when the key is already held. Distinct keys never contend.
func (m *KeyedMutex) TryAcquire(key string) (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, held := m.inUse[key]; held {
		return nil, false
	}
	m.inUse[key] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.inUse, key)
			m.mu.Unlock()
		})
	}
	return release, true
}

// Held reports whether the key is currently claimed
func (m *KeyedMutex) Held(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.inUse[key]
	return held
}
