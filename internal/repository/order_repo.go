package repository

import (
	"context"
	"errors"
	"time"

	"egg-trading/internal/model"
	"egg-trading/pkg/utils"

	"gorm.io/gorm"
)

var sellOrderTypes = []model.OrderType{
	model.OrderTypeSell,
	model.OrderTypeSell14,
	model.OrderTypeSell34,
	model.OrderTypeSellPart,
}

type OrderRepository interface {
	FindByName(ctx context.Context, name string, opts ...utils.DBOption) (*model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
	ListBySymbol(ctx context.Context, symbol string) ([]model.Order, error)
	// ListStale returns parents created before the given day.
	ListStale(ctx context.Context, before time.Time) ([]model.Order, error)
	Upsert(ctx context.Context, order *model.Order, opts ...utils.DBOption) error
	DeleteByName(ctx context.Context, name string, opts ...utils.DBOption) error
	DeleteMany(ctx context.Context, names []string, opts ...utils.DBOption) error
	// HasSellOrderToday reports whether an open sell parent dated the given
	// day exists for the bot; used by the buy gate.
	HasSellOrderToday(ctx context.Context, name string, day time.Time) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindByName(ctx context.Context, name string, opts ...utils.DBOption) (*model.Order, error) {
	var order model.Order
	err := utils.ApplyOptions(r.db, opts...).WithContext(ctx).
		Where("name = ?", name).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListAll(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).Order("name").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListBySymbol(ctx context.Context, symbol string) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Order("name").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) ListStale(ctx context.Context, before time.Time) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).Where("date_added < ?", before).Order("name").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) Upsert(ctx context.Context, order *model.Order, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Save(order).Error
}

func (r *orderRepository) DeleteByName(ctx context.Context, name string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).
		Where("name = ?", name).Delete(&model.Order{}).Error
}

func (r *orderRepository) DeleteMany(ctx context.Context, names []string, opts ...utils.DBOption) error {
	if len(names) == 0 {
		return nil
	}
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).
		Where("name IN (?)", names).Delete(&model.Order{}).Error
}

func (r *orderRepository) HasSellOrderToday(ctx context.Context, name string, day time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("name = ? AND order_type IN (?) AND date_added >= ? AND date_added < ?",
			name, sellOrderTypes, day, day.AddDate(0, 0, 1)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
