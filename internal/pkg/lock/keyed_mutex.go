package lock

import (
	"context"
	"sync"
)

// KeyedMutex is an in-process Locker. Entries are reference counted and
// removed when the last holder or waiter leaves.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		k.leave(key, entry)
		return nil, ErrNotAcquired
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			k.leave(key, entry)
		})
	}, nil
}

func (k *KeyedMutex) leave(key string, entry *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.locks, key)
	}
}

// size is the number of tracked keys.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

var _ Locker = (*KeyedMutex)(nil)
