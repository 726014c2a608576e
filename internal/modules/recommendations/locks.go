package recommendations

import "sync"

// productLocks serialises work per product id.
// Entries are reference counted and dropped once no caller holds or waits on them.
type productLocks struct {
	mu    sync.Mutex
	locks map[int64]*productLock
}

type productLock struct {
	mu   sync.Mutex
	refs int
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[int64]*productLock)}
}

// Lock blocks until the product's lock is held and returns its release func
func (l *productLocks) Lock(productID int64) func() {
	l.mu.Lock()
	lock, ok := l.locks[productID]
	if !ok {
		lock = &productLock{}
		l.locks[productID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, productID)
		}
		l.mu.Unlock()
	}
}

func (l *productLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
