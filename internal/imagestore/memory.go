package imagestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/dalanapp/dalan-go/internal/errors"
)

// MemoryStore keeps images in process memory, keyed by their fake URL.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, kind Kind, userID string, imageData []byte) (string, error) {
	url := "memory://" + objectKey(kind, userID)

	data := make([]byte, len(imageData))
	copy(data, imageData)

	m.mu.Lock()
	m.objects[url] = data
	m.mu.Unlock()

	return url, nil
}

func (m *MemoryStore) Get(_ context.Context, url string) ([]byte, error) {
	m.mu.RLock()
	data, ok := m.objects[url]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.New(fmt.Errorf("object not found: %s", url)).
			Component("imagestore").
			Category(errors.CategoryImageStore).
			Context("url", url).
			Build()
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Len reports the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
