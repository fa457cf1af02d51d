package repository

import (
	"context"
	"errors"
	"time"

	"egg-trading/internal/model"
	"egg-trading/pkg/utils"

	"gorm.io/gorm"
)

type BotRepository interface {
	GetAll(ctx context.Context) ([]model.BotInfo, error)
	GetActive(ctx context.Context) ([]model.BotInfo, error)
	GetByName(ctx context.Context, name string) (*model.BotInfo, error)
	GetBySymbol(ctx context.Context, symbol string) ([]model.BotInfo, error)
	Create(ctx context.Context, bot *model.BotInfo, opts ...utils.DBOption) error
	Update(ctx context.Context, bot *model.BotInfo, opts ...utils.DBOption) error
	Delete(ctx context.Context, name string, opts ...utils.DBOption) error
	SetActive(ctx context.Context, name string, active bool, opts ...utils.DBOption) error
	// BumpSeed records a dynamic seed change together with the trading day
	// it happened on.
	BumpSeed(ctx context.Context, name string, seed float64, day time.Time, opts ...utils.DBOption) error
	// AddRealizedProfit carries realized profit into added_seed, clamped at
	// zero so a losing partial sell can never push it negative.
	AddRealizedProfit(ctx context.Context, name string, delta float64, opts ...utils.DBOption) error
	ResetAddedSeed(ctx context.Context, name string, opts ...utils.DBOption) error
}

type botRepository struct {
	db *gorm.DB
}

func NewBotRepository(db *gorm.DB) BotRepository {
	return &botRepository{db: db}
}

func (r *botRepository) GetAll(ctx context.Context) ([]model.BotInfo, error) {
	var bots []model.BotInfo
	if err := r.db.WithContext(ctx).Order("name").Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

func (r *botRepository) GetActive(ctx context.Context) ([]model.BotInfo, error) {
	var bots []model.BotInfo
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("name").Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

func (r *botRepository) GetByName(ctx context.Context, name string) (*model.BotInfo, error) {
	var bot model.BotInfo
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&bot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func (r *botRepository) GetBySymbol(ctx context.Context, symbol string) ([]model.BotInfo, error) {
	var bots []model.BotInfo
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Order("priority, name").Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}

func (r *botRepository) Create(ctx context.Context, bot *model.BotInfo, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Create(bot).Error
}

func (r *botRepository) Update(ctx context.Context, bot *model.BotInfo, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Save(bot).Error
}

func (r *botRepository) Delete(ctx context.Context, name string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).
		Where("name = ?", name).Delete(&model.BotInfo{}).Error
}

func (r *botRepository) SetActive(ctx context.Context, name string, active bool, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Model(&model.BotInfo{}).
		Where("name = ?", name).Update("active", active).Error
}

func (r *botRepository) BumpSeed(ctx context.Context, name string, seed float64, day time.Time, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Model(&model.BotInfo{}).
		Where("name = ?", name).
		Updates(map[string]interface{}{"seed": seed, "last_dynamic_bump": day}).Error
}

func (r *botRepository) AddRealizedProfit(ctx context.Context, name string, delta float64, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Model(&model.BotInfo{}).
		Where("name = ?", name).
		Update("added_seed", gorm.Expr("GREATEST(added_seed + ?, 0)", delta)).Error
}

func (r *botRepository) ResetAddedSeed(ctx context.Context, name string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db, opts...).WithContext(ctx).Model(&model.BotInfo{}).
		Where("name = ?", name).Update("added_seed", 0).Error
}
