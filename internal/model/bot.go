package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// BotInfo is a named strategy instance owning a ticker, a seed amount, a
// target profit rate and a maximum tier depth.
type BotInfo struct {
	Name       string  `gorm:"primaryKey;type:varchar(64)" json:"name"`
	Symbol     string  `gorm:"not null;index" json:"symbol"`
	Seed       float64 `gorm:"not null" json:"seed"`
	ProfitRate float64 `gorm:"not null" json:"profit_rate"`
	TDiv       int     `gorm:"not null" json:"t_div"`
	MaxTier    int     `gorm:"not null" json:"max_tier"`
	Active     bool    `gorm:"not null;default:false" json:"active"`
	// Priority orders siblings on the same symbol for auto-activation.
	Priority int `gorm:"not null;default:0" json:"priority"`

	CheckBuyAvgPrice  bool     `gorm:"column:is_check_buy_avr_price" json:"is_check_buy_avr_price"`
	CheckBuyTDivPrice bool     `gorm:"column:is_check_buy_t_div_price" json:"is_check_buy_t_div_price"`
	PointLoc          PointLoc `gorm:"type:varchar(8);default:'P1'" json:"point_loc"`

	// AddedSeed carries realized profit from partial sells within a cycle;
	// clamped to >= 0 on write and reset to 0 at cycle close.
	AddedSeed float64 `gorm:"not null;default:0" json:"added_seed"`
	SkipSell  bool    `gorm:"not null;default:false" json:"skip_sell"`

	DynamicSeedEnabled    bool    `gorm:"not null;default:false" json:"dynamic_seed_enabled"`
	DynamicSeedMax        float64 `gorm:"not null;default:0" json:"dynamic_seed_max"`
	DynamicSeedMultiplier float64 `gorm:"not null;default:0" json:"dynamic_seed_multiplier"`
	DynamicSeedTThreshold float64 `gorm:"not null;default:0" json:"dynamic_seed_t_threshold"`
	DynamicSeedDropRate   float64 `gorm:"not null;default:0" json:"dynamic_seed_drop_rate"`
	// LastDynamicBump is the trading day of the most recent seed bump; the
	// daily pass never bumps the same bot twice on one day.
	LastDynamicBump time.Time `gorm:"column:last_dynamic_bump" json:"last_dynamic_bump"`

	// ClosingBuyConditions is carried through configuration but not consumed
	// by the decision path.
	ClosingBuyConditions datatypes.JSON `gorm:"type:jsonb" json:"closing_buy_conditions"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (BotInfo) TableName() string {
	return "bot_infos"
}

// ClosingBuyCondition pairs a drawdown trigger with a seed scaling.
type ClosingBuyCondition struct {
	DropRate float64 `json:"drop_rate"`
	SeedRate float64 `json:"seed_rate"`
}

func (b *BotInfo) ClosingBuyConditionList() []ClosingBuyCondition {
	var conds []ClosingBuyCondition
	if len(b.ClosingBuyConditions) == 0 {
		return conds
	}
	_ = json.Unmarshal(b.ClosingBuyConditions, &conds)
	return conds
}

// MaxInvestment is the capital ceiling of the tier ladder.
func (b *BotInfo) MaxInvestment() float64 {
	return b.Seed * float64(b.MaxTier)
}
