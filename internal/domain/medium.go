package domain

import (
	"context"
	"errors"
)

// ErrRecordNotFound é retornado por Medium.Get quando a chave não tem registro.
var ErrRecordNotFound = errors.New("record not found")

// Medium é o armazenamento de registros por chave compartilhado por um namespace. As
// coleções do marketplace e os escalares da sessão vivem nele.
type Medium interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	// Remover uma chave ausente não é erro.
	Delete(ctx context.Context, key string) error
	// Clear remove todos os registros do namespace.
	Clear(ctx context.Context) error
}
