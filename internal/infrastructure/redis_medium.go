package infrastructure

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	"github.com/mateusmacedo/carpool-bff/pkg/application"
)

const redisScanBatch = 100

// RedisMedium compartilha os registros entre processos sob as chaves <namespace>:<key>.
type RedisMedium struct {
	client    redis.UniversalClient
	namespace string
	logger    application.AppLogger
}

func NewRedisMedium(client redis.UniversalClient, namespace string, logger application.AppLogger) *RedisMedium {
	return &RedisMedium{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (m *RedisMedium) redisKey(key string) string {
	return m.namespace + ":" + key
}

func (m *RedisMedium) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := m.client.Get(ctx, m.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		application.LogError(ctx, m.logger, "Erro ao ler registro", err, map[string]interface{}{"key": key})
		return nil, domain.NewStorageError("get", key, err)
	}
	return value, nil
}

func (m *RedisMedium) Put(ctx context.Context, key string, value []byte) error {
	if err := m.client.Set(ctx, m.redisKey(key), value, 0).Err(); err != nil {
		application.LogError(ctx, m.logger, "Erro ao gravar registro", err, map[string]interface{}{"key": key})
		return domain.NewStorageError("put", key, err)
	}
	return nil
}

func (m *RedisMedium) Delete(ctx context.Context, key string) error {
	if err := m.client.Del(ctx, m.redisKey(key)).Err(); err != nil {
		application.LogError(ctx, m.logger, "Erro ao remover registro", err, map[string]interface{}{"key": key})
		return domain.NewStorageError("delete", key, err)
	}
	return nil
}

// Clear percorre o namespace com SCAN e remove as chaves em lotes.
func (m *RedisMedium) Clear(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := m.client.Scan(ctx, cursor, m.redisKey("*"), redisScanBatch).Result()
		if err != nil {
			application.LogError(ctx, m.logger, "Erro ao varrer namespace", err, map[string]interface{}{"namespace": m.namespace})
			return domain.NewStorageError("clear", "*", err)
		}

		if len(keys) > 0 {
			if err := m.client.Del(ctx, keys...).Err(); err != nil {
				application.LogError(ctx, m.logger, "Erro ao limpar namespace", err, map[string]interface{}{"namespace": m.namespace})
				return domain.NewStorageError("clear", "*", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
