package repository

import (
	"context"
	"errors"

	"egg-trading/internal/model"
	"egg-trading/pkg/utils"

	"gorm.io/gorm"
)

type StatusRepository interface {
	Get(ctx context.Context) (*model.Status, error)
	Upsert(ctx context.Context, status *model.Status, opts ...utils.DBOption) error
}

type statusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &statusRepository{db: db}
}

func (r *statusRepository) Get(ctx context.Context) (*model.Status, error) {
	var status model.Status
	err := r.db.WithContext(ctx).First(&status).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Status{ID: 1}, nil
	}
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *statusRepository) Upsert(ctx context.Context, status *model.Status, opts ...utils.DBOption) error {
	if status.ID == 0 {
		status.ID = 1
	}
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Save(status).Error
}
