package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	"github.com/mateusmacedo/carpool-bff/pkg/application"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS client_records (
	namespace  TEXT     NOT NULL,
	"key"      TEXT     NOT NULL,
	value      BLOB     NOT NULL,
	updated_at DATETIME NOT NULL,
	PRIMARY KEY (namespace, "key")
)`

// SQLiteMedium mantém a tabela client_records num arquivo SQLite local.
type SQLiteMedium struct {
	db        *sql.DB
	namespace string
	logger    application.AppLogger
}

// OpenSQLiteMedium abre (ou cria) o banco em path com WAL habilitado.
func OpenSQLiteMedium(path, namespace string, logger application.AppLogger) (*SQLiteMedium, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create client_records: %w", err)
	}

	return &SQLiteMedium{db: db, namespace: namespace, logger: logger}, nil
}

func (m *SQLiteMedium) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx,
		`SELECT value FROM client_records WHERE namespace = ? AND "key" = ?`,
		m.namespace, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		application.LogError(ctx, m.logger, "Erro ao ler registro", err, map[string]interface{}{"key": key})
		return nil, domain.NewStorageError("get", key, err)
	}
	return value, nil
}

func (m *SQLiteMedium) Put(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO client_records (namespace, "key", value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, "key") DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		m.namespace, key, value, time.Now().UTC(),
	)
	if err != nil {
		application.LogError(ctx, m.logger, "Erro ao gravar registro", err, map[string]interface{}{"key": key})
		return domain.NewStorageError("put", key, err)
	}
	return nil
}

func (m *SQLiteMedium) Delete(ctx context.Context, key string) error {
	_, err := m.db.ExecContext(ctx,
		`DELETE FROM client_records WHERE namespace = ? AND "key" = ?`,
		m.namespace, key,
	)
	if err != nil {
		application.LogError(ctx, m.logger, "Erro ao remover registro", err, map[string]interface{}{"key": key})
		return domain.NewStorageError("delete", key, err)
	}
	return nil
}

func (m *SQLiteMedium) Clear(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM client_records WHERE namespace = ?`, m.namespace); err != nil {
		application.LogError(ctx, m.logger, "Erro ao limpar registros", err, map[string]interface{}{"namespace": m.namespace})
		return domain.NewStorageError("clear", "*", err)
	}
	return nil
}

func (m *SQLiteMedium) Close() error {
	return m.db.Close()
}
