package inventory

import (
	"context"
	"sync"
)

// KeyLock serialises work per key. Different keys never block each other and
// entries are dropped once nobody holds or waits for them.
type KeyLock[K comparable] struct {
	mu    sync.Mutex
	slots map[K]*slot
}

type slot struct {
	sem  chan struct{}
	refs int
}

func NewKeyLock[K comparable]() *KeyLock[K] {
	return &KeyLock[K]{slots: make(map[K]*slot)}
}

// Lock blocks until key is free or ctx is done. The returned function
// releases the key and must be called exactly once.
func (l *KeyLock[K]) Lock(ctx context.Context, key K) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{sem: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.sem
				l.release(key, s)
			})
		}, nil
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}
}

func (l *KeyLock[K]) release(key K, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Len returns the number of keys currently held or waited for
func (l *KeyLock[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
