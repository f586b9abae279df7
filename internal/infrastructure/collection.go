package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	"github.com/mateusmacedo/carpool-bff/pkg/application"
)

// Collection guarda uma sequência ordenada de T como um único array JSON sob key.
// Toda chamada relê o meio; nada é mantido em cache, então escritas de outros processos
// que compartilham o meio são vistas (vence o último a escrever).
type Collection[T any] struct {
	medium domain.Medium
	key    string
	idOf   func(T) string
	seed   []T
	mu     sync.Mutex
	logger application.AppLogger
}

// NewCollection cria a coleção. Quando seed não é nil, ela é devolvida e persistida no
// primeiro acesso a um registro inexistente.
func NewCollection[T any](medium domain.Medium, key string, idOf func(T) string, seed []T, logger application.AppLogger) *Collection[T] {
	return &Collection[T]{
		medium: medium,
		key:    key,
		idOf:   idOf,
		seed:   seed,
		logger: logger,
	}
}

// ListAll devolve os itens na ordem de inserção.
func (c *Collection[T]) ListAll(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.load(ctx)
}

// Add anexa item ao final sem checar duplicidade.
func (c *Collection[T]) Add(ctx context.Context, item T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	return c.save(ctx, append(items, item))
}

// Remove apaga o primeiro item com o id informado. Um id ausente não provoca escrita;
// o retorno indica se algo foi removido.
func (c *Collection[T]) Remove(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return false, err
	}

	for i, item := range items {
		if c.idOf(item) == id {
			remaining := append(items[:i:i], items[i+1:]...)
			return true, c.save(ctx, remaining)
		}
	}
	return false, nil
}

// Replace reescreve o registro inteiro com items.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, items)
}

func (c *Collection[T]) load(ctx context.Context) ([]T, error) {
	data, err := c.medium.Get(ctx, c.key)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return c.open(ctx)
	}
	if err != nil {
		return nil, err
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		application.LogError(ctx, c.logger, "Registro da coleção corrompido", err, map[string]interface{}{"key": c.key})
		return nil, domain.NewStorageError("decode", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (c *Collection[T]) open(ctx context.Context) ([]T, error) {
	if c.seed == nil {
		return []T{}, nil
	}

	items := append([]T(nil), c.seed...)
	if err := c.save(ctx, items); err != nil {
		return nil, err
	}

	application.LogInfo(ctx, c.logger, "Coleção inicializada com dados padrão", map[string]interface{}{
		"key":   c.key,
		"count": len(items),
	})
	return items, nil
}

func (c *Collection[T]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return domain.NewStorageError("encode", c.key, err)
	}
	return c.medium.Put(ctx, c.key, data)
}
