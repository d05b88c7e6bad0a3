package semantic

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Memo caches embeddings in memory for the lifetime of one evaluation run.
// Concurrent requests for the same text share one upstream call. Errors are
// not cached.
type Memo struct {
	next  Embedder
	group singleflight.Group

	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewMemo wraps next.
func NewMemo(next Embedder) *Memo {
	return &Memo{next: next, vectors: make(map[string][]float32)}
}

// Embed implements Embedder.
func (m *Memo) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.RLock()
	v, ok := m.vectors[text]
	m.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := m.group.Do(text, func() (any, error) {
		m.mu.RLock()
		v, ok := m.vectors[text]
		m.mu.RUnlock()
		if ok {
			return v, nil
		}
		v, err := m.next.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.vectors[text] = v
		m.mu.Unlock()
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]float32), nil
}

// Len returns the number of cached vectors.
func (m *Memo) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.vectors)
}
