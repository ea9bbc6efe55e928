package llm

import "sync"

// KeyPool is an ordered credential list with a wrapping cursor.
// The cursor always points at the key to try next.
type KeyPool struct {
	mu     sync.Mutex
	keys   []string
	cursor int
}

// NewKeyPool drops empty entries and keeps the configured order.
func NewKeyPool(keys []string) *KeyPool {
	clean := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			clean = append(clean, k)
		}
	}
	return &KeyPool{keys: clean}
}

func (p *KeyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Current returns the key under the cursor and its index.
func (p *KeyPool) Current() (string, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return "", -1
	}
	return p.keys[p.cursor], p.cursor
}

// Advance moves the cursor to the next key, wrapping at the end.
func (p *KeyPool) Advance() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.keys) == 0 {
		return -1
	}
	p.cursor = (p.cursor + 1) % len(p.keys)
	return p.cursor
}

// Reset puts the cursor back on the primary key.
func (p *KeyPool) Reset() {
	p.mu.Lock()
	p.cursor = 0
	p.mu.Unlock()
}
