package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mateusmacedo/carpool-bff/internal/domain"
	"github.com/mateusmacedo/carpool-bff/pkg/application"
)

// ClientRecord é a linha da tabela client_records.
type ClientRecord struct {
	Namespace string `gorm:"primaryKey;size:128"`
	Key       string `gorm:"primaryKey;size:128"`
	Value     []byte
	UpdatedAt time.Time
}

func (ClientRecord) TableName() string {
	return "client_records"
}

type GormMedium struct {
	db        *gorm.DB
	namespace string
	logger    application.AppLogger
}

// OpenPostgres abre a conexão gorm com o Postgres descrito por dsn.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

func NewGormMedium(db *gorm.DB, namespace string, logger application.AppLogger) (*GormMedium, error) {
	if err := db.AutoMigrate(&ClientRecord{}); err != nil {
		return nil, err
	}

	return &GormMedium{
		db:        db,
		namespace: namespace,
		logger:    logger,
	}, nil
}

func (m *GormMedium) Get(ctx context.Context, key string) ([]byte, error) {
	var record ClientRecord
	err := m.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", m.namespace, key).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		application.LogError(ctx, m.logger, "Erro ao buscar registro", err, map[string]interface{}{"key": key})
		return nil, domain.NewStorageError("get", key, err)
	}
	return record.Value, nil
}

func (m *GormMedium) Put(ctx context.Context, key string, value []byte) error {
	record := ClientRecord{
		Namespace: m.namespace,
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	err := m.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&record).Error
	if err != nil {
		application.LogError(ctx, m.logger, "Erro ao salvar registro", err, map[string]interface{}{"key": key})
		return domain.NewStorageError("put", key, err)
	}
	return nil
}

func (m *GormMedium) Delete(ctx context.Context, key string) error {
	err := m.db.WithContext(ctx).
		Where("namespace = ? AND key = ?", m.namespace, key).
		Delete(&ClientRecord{}).Error
	if err != nil {
		application.LogError(ctx, m.logger, "Erro ao remover registro", err, map[string]interface{}{"key": key})
		return domain.NewStorageError("delete", key, err)
	}
	return nil
}

func (m *GormMedium) Clear(ctx context.Context) error {
	err := m.db.WithContext(ctx).
		Where("namespace = ?", m.namespace).
		Delete(&ClientRecord{}).Error
	if err != nil {
		application.LogError(ctx, m.logger, "Erro ao limpar registros", err, map[string]interface{}{"namespace": m.namespace})
		return domain.NewStorageError("clear", "*", err)
	}
	return nil
}
