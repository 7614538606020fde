package store

import (
	"context"
	"time"

	"github.com/pathakanu/remindme/internal/model"
	"gorm.io/gorm"
)

// Gorm stores reminders in a SQL database through GORM.
// Due times are written in UTC so that comparisons stay consistent.
type Gorm struct {
	db *gorm.DB
}

// NewGorm wraps an already migrated GORM connection.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) Add(ctx context.Context, r model.Reminder) (string, error) {
	if err := validate(r); err != nil {
		return "", err
	}
	r.ID = ""
	r.DueAt = r.DueAt.UTC()
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return "", err
	}
	return r.ID, nil
}

func (s *Gorm) DueBefore(ctx context.Context, asOf time.Time) ([]model.Reminder, error) {
	var reminders []model.Reminder
	err := s.db.WithContext(ctx).
		Where("due_at <= ?", asOf.UTC()).
		Order("due_at ASC, created_at ASC").
		Find(&reminders).Error
	if err != nil {
		return nil, err
	}
	return reminders, nil
}

func (s *Gorm) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Reminder{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Gorm) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
