package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormStore keeps records in a relational table. Ids come from the table's
// auto-increment primary key.
type GormStore[T any, P Record[T]] struct {
	db *gorm.DB
}

func NewGormStore[T any, P Record[T]](db *gorm.DB) *GormStore[T, P] {
	return &GormStore[T, P]{db: db}
}

// Migrate creates or alters the table backing T.
func (s *GormStore[T, P]) Migrate() error {
	return s.db.AutoMigrate(new(T))
}

func (s *GormStore[T, P]) List(ctx context.Context) ([]T, error) {
	var rows []T
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

func (s *GormStore[T, P]) Get(ctx context.Context, id int) (T, error) {
	var rec T
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		var zero T
		return zero, translate(err)
	}
	return rec, nil
}

func (s *GormStore[T, P]) Create(ctx context.Context, rec T) (T, error) {
	P(&rec).SetKey(0)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		var zero T
		return zero, fmt.Errorf("create record: %w", err)
	}
	return rec, nil
}

func (s *GormStore[T, P]) Update(ctx context.Context, id int, mutate func(*T) error) (T, error) {
	var rec T
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rec, id).Error; err != nil {
			return translate(err)
		}
		if err := mutate(&rec); err != nil {
			return err
		}
		P(&rec).SetKey(id)
		return tx.Save(&rec).Error
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

func (s *GormStore[T, P]) Delete(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).Delete(new(T), id)
	if res.Error != nil {
		return fmt.Errorf("delete record %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore[T, P]) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
