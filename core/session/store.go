package session

import "sync"

// Store is a concurrency-safe mapping from session key to Session.
//
// Operations on different keys proceed independently. Update serializes
// read-modify-write cycles per key: at most one in-flight transition per
// session key, applied in arrival order.
type Store interface {
	// Get returns the session for a key, or a default idle session if absent.
	Get(key int64) Session
	// Set overwrites the session for a key.
	Set(key int64, s Session)
	// Clear resets the session for a key back to the default.
	Clear(key int64)
	// Update runs fn with exclusive access to the key's session and commits
	// the mutated value when fn returns nil. When fn returns an error the
	// session is left exactly as it was before the call.
	Update(key int64, fn func(*Session) error) error
}

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	locks    map[int64]*sync.Mutex
}

// NewMemoryStore constructs an in-memory Store. Sessions live for the process
// lifetime; memory is bounded by the number of distinct users.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// keyLock returns the per-key mutex, creating it on first use.
func (m *memoryStore) keyLock(key int64) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

func (m *memoryStore) load(key int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[key]; ok {
		return s
	}
	return defaultSession()
}

func (m *memoryStore) store(key int64, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[key] = s
}

// Get returns the session for a key, creating the default entry lazily.
func (m *memoryStore) Get(key int64) Session {
	lock := m.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	return m.load(key)
}

// Set overwrites the session for a key.
func (m *memoryStore) Set(key int64, s Session) {
	lock := m.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	m.store(key, s)
}

// Clear resets the session for a key to the default idle state.
func (m *memoryStore) Clear(key int64) {
	lock := m.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	m.store(key, defaultSession())
}

// Update applies fn under the key's lock. The lock is held for the whole
// callback, so a turn's side effects performed inside fn are serialized with
// other turns for the same key while other keys proceed in parallel.
func (m *memoryStore) Update(key int64, fn func(*Session) error) error {
	lock := m.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	s := m.load(key)
	if err := fn(&s); err != nil {
		return err
	}
	m.store(key, s)
	return nil
}
