package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// entry is the row model for the gorm backend.
type entry struct {
	Key   string `gorm:"primaryKey"`
	Value string `gorm:"not null"`
}

func (entry) TableName() string { return "kv_entries" }

// Gorm stores values through gorm on the pure-Go sqlite driver, for builds
// without cgo.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(dbPath string) (*Gorm, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &Gorm{db: db}, nil
}

func (g *Gorm) Get(ctx context.Context, key string) (string, bool, error) {
	var e entry
	err := g.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return e.Value, true, nil
}

func (g *Gorm) Apply(ctx context.Context, ops ...Op) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range ops {
			if op.Delete {
				if err := tx.Where("key = ?", op.Key).Delete(&entry{}).Error; err != nil {
					return fmt.Errorf("failed to delete %q: %w", op.Key, err)
				}
				continue
			}
			e := entry{Key: op.Key, Value: op.Value}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value"}),
			}).Create(&e).Error
			if err != nil {
				return fmt.Errorf("failed to write %q: %w", op.Key, err)
			}
		}
		return nil
	})
}

func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
