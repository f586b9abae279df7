package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	"github.com/mateusmacedo/carpool-bff/pkg/application"
)

// FileMedium grava um arquivo JSON por chave em <basePath>/<namespace>/.
type FileMedium struct {
	dir    string
	mu     sync.RWMutex
	logger application.AppLogger
}

func NewFileMedium(basePath, namespace string, logger application.AppLogger) (*FileMedium, error) {
	dir := filepath.Join(basePath, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create medium directory: %w", err)
	}
	return &FileMedium{dir: dir, logger: logger}, nil
}

func (m *FileMedium) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(m.dir, key+".json"), nil
}

func (m *FileMedium) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := m.path(key)
	if err != nil {
		return nil, domain.NewStorageError("get", key, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		application.LogError(ctx, m.logger, "Erro ao ler registro", err, map[string]interface{}{"key": key})
		return nil, domain.NewStorageError("get", key, err)
	}
	return data, nil
}

// Put grava num arquivo temporário e renomeia, para que leitores nunca vejam um registro pela metade.
func (m *FileMedium) Put(ctx context.Context, key string, value []byte) error {
	path, err := m.path(key)
	if err != nil {
		return domain.NewStorageError("put", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tmp, err := os.CreateTemp(m.dir, key+".*.tmp")
	if err != nil {
		return m.putFailed(ctx, key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return m.putFailed(ctx, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return m.putFailed(ctx, key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return m.putFailed(ctx, key, err)
	}
	return nil
}

func (m *FileMedium) putFailed(ctx context.Context, key string, err error) error {
	application.LogError(ctx, m.logger, "Erro ao escrever registro", err, map[string]interface{}{"key": key})
	return domain.NewStorageError("put", key, err)
}

func (m *FileMedium) Delete(ctx context.Context, key string) error {
	path, err := m.path(key)
	if err != nil {
		return domain.NewStorageError("delete", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		application.LogError(ctx, m.logger, "Erro ao remover registro", err, map[string]interface{}{"key": key})
		return domain.NewStorageError("delete", key, err)
	}
	return nil
}

func (m *FileMedium) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return domain.NewStorageError("clear", "*", err)
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, entry.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		application.LogError(ctx, m.logger, "Erro ao limpar registros", err, map[string]interface{}{"dir": m.dir})
		return domain.NewStorageError("clear", "*", err)
	}
	return nil
}
