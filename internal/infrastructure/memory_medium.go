package infrastructure

import (
	"context"
	"sync"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
)

// InMemoryMedium guarda os registros num mapa do processo.
type InMemoryMedium struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewInMemoryMedium() *InMemoryMedium {
	return &InMemoryMedium{
		data: make(map[string][]byte),
	}
}

func (m *InMemoryMedium) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("get", key, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.data[key]
	if !exists {
		return nil, domain.ErrRecordNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *InMemoryMedium) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("put", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *InMemoryMedium) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("delete", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *InMemoryMedium) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("clear", "*", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
	return nil
}

// Keys lista as chaves presentes; usado para inspeção em testes e depuração.
func (m *InMemoryMedium) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
