package kv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type entry struct {
	StorageKey string `gorm:"column:storage_key;primaryKey"`
	Value      string `gorm:"column:value;not null"`
	UpdatedAt  time.Time
}

func (entry) TableName() string { return "local_storage" }

// SQLite persists values in a single-table sqlite database on disk.
type SQLite struct {
	conn *gorm.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	gormLogger := gormlogger.New(
		log.New(io.Discard, "", log.LstdFlags),
		gormlogger.Config{LogLevel: gormlogger.Silent},
	)
	conn, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 gormLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite storage: %w", err)
	}
	return NewSQLite(conn)
}

// NewSQLite wraps an existing connection and ensures the table exists.
func NewSQLite(conn *gorm.DB) (*SQLite, error) {
	if conn == nil {
		return nil, errors.New("sqlite connection required")
	}
	if err := conn.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("migrating sqlite storage: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var row entry
	err := s.conn.WithContext(ctx).Where("storage_key = ?", key).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	row := entry{StorageKey: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	return s.conn.WithContext(ctx).Where("storage_key = ?", key).Delete(&entry{}).Error
}

func (s *SQLite) Close() error {
	sqlDB, err := s.conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
