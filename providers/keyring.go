package providers

import "sync"

// KeyRing is an explicit rotation cursor over a set of API keys. Rotation is
// advanced by the owner, never implicitly, so rotation order is reproducible
// in tests.
type KeyRing struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewKeyRing builds a ring over the given keys.
func NewKeyRing(keys []string) *KeyRing {
	return &KeyRing{keys: keys}
}

// Len returns the number of keys in the ring.
func (r *KeyRing) Len() int {
	return len(r.keys)
}

// Current returns the key at the cursor, or "" when the ring is empty.
func (r *KeyRing) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	return r.keys[r.cursor]
}

// Advance moves the cursor to the next key round-robin and returns it.
func (r *KeyRing) Advance() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return ""
	}
	r.cursor = (r.cursor + 1) % len(r.keys)
	return r.keys[r.cursor]
}
