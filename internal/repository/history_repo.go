package repository

import (
	"context"
	"time"

	"egg-trading/internal/model"
	"egg-trading/pkg/utils"

	"gorm.io/gorm"
)

type HistoryRepository interface {
	Insert(ctx context.Context, h *model.History, opts ...utils.DBOption) error
	// HasSellToday reports whether the bot realized any sell on the given
	// day; used by the buy gate.
	HasSellToday(ctx context.Context, name string, day time.Time) (bool, error)
	// ListByCycle returns every row of the cycle identified by its start
	// date; used for the cycle-close summary.
	ListByCycle(ctx context.Context, name string, dateAdded time.Time) ([]model.History, error)
	TotalSellProfit(ctx context.Context, name string, day time.Time) (float64, error)
	ListRange(ctx context.Context, from, to time.Time) ([]model.History, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Insert(ctx context.Context, h *model.History, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Create(h).Error
}

func (r *historyRepository) HasSellToday(ctx context.Context, name string, day time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.History{}).
		Where("name = ? AND trade_type IN (?) AND trade_date >= ? AND trade_date < ?",
			name, sellOrderTypes, day, day.AddDate(0, 0, 1)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *historyRepository) ListByCycle(ctx context.Context, name string, dateAdded time.Time) ([]model.History, error) {
	var rows []model.History
	err := r.db.WithContext(ctx).
		Where("name = ? AND date_added = ?", name, dateAdded).
		Order("trade_date").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *historyRepository) TotalSellProfit(ctx context.Context, name string, day time.Time) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(&model.History{}).
		Where("name = ? AND trade_type IN (?) AND trade_date >= ? AND trade_date < ?",
			name, sellOrderTypes, day, day.AddDate(0, 0, 1)).
		Select("COALESCE(SUM(profit), 0)").Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r *historyRepository) ListRange(ctx context.Context, from, to time.Time) ([]model.History, error) {
	var rows []model.History
	err := r.db.WithContext(ctx).
		Where("trade_date >= ? AND trade_date < ?", from, to).
		Order("trade_date, name").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
