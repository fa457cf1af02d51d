package repository

import (
	"context"
	"errors"

	"egg-trading/internal/model"
	"egg-trading/pkg/utils"

	"gorm.io/gorm"
)

type TradeRepository interface {
	FindByName(ctx context.Context, name string, opts ...utils.DBOption) (*model.Trade, error)
	FindBySymbol(ctx context.Context, symbol string) ([]model.Trade, error)
	Upsert(ctx context.Context, trade *model.Trade, opts ...utils.DBOption) error
	Delete(ctx context.Context, name string, opts ...utils.DBOption) error
	TotalInvestment(ctx context.Context, name string) (float64, error)
	AveragePurchasePrice(ctx context.Context, name string) (float64, error)
	TotalAmount(ctx context.Context, name string) (int64, error)
}

type tradeRepository struct {
	db *gorm.DB
}

func NewTradeRepository(db *gorm.DB) TradeRepository {
	return &tradeRepository{db: db}
}

func (r *tradeRepository) FindByName(ctx context.Context, name string, opts ...utils.DBOption) (*model.Trade, error) {
	var trade model.Trade
	err := utils.ApplyOptions(r.db, opts...).WithContext(ctx).
		Where("name = ?", name).First(&trade).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &trade, nil
}

func (r *tradeRepository) FindBySymbol(ctx context.Context, symbol string) ([]model.Trade, error) {
	var trades []model.Trade
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Order("name").Find(&trades).Error; err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *tradeRepository) Upsert(ctx context.Context, trade *model.Trade, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Save(trade).Error
}

func (r *tradeRepository) Delete(ctx context.Context, name string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).
		Where("name = ?", name).Delete(&model.Trade{}).Error
}

func (r *tradeRepository) TotalInvestment(ctx context.Context, name string) (float64, error) {
	trade, err := r.FindByName(ctx, name)
	if err != nil || trade == nil {
		return 0, err
	}
	return trade.TotalPrice, nil
}

func (r *tradeRepository) AveragePurchasePrice(ctx context.Context, name string) (float64, error) {
	trade, err := r.FindByName(ctx, name)
	if err != nil || trade == nil {
		return 0, err
	}
	return trade.PurchasePrice, nil
}

func (r *tradeRepository) TotalAmount(ctx context.Context, name string) (int64, error) {
	trade, err := r.FindByName(ctx, name)
	if err != nil || trade == nil {
		return 0, err
	}
	return trade.Amount, nil
}
