package collection

import (
	"hash/maphash"
	"sync"
)

const lockStripes = 256

// KeyLocks serializes writers of one backend key across Store instances, so
// a Store rebuilt for the same scope still waits for a write started by the
// old one. Keys hash onto a fixed set of mutexes: memory stays bounded and
// unrelated keys occasionally share a mutex.
type KeyLocks struct {
	seed  maphash.Seed
	locks [lockStripes]sync.Mutex
}

// NewKeyLocks returns an empty lock set.
func NewKeyLocks() *KeyLocks {
	return &KeyLocks{seed: maphash.MakeSeed()}
}

// For returns the mutex guarding key.
func (l *KeyLocks) For(key string) sync.Locker {
	return &l.locks[maphash.String(l.seed, key)%lockStripes]
}
