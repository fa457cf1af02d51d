package model

import "time"

// Trade is the open position of one bot cycle: one row per bot name, created
// on the first buy, deleted on full sell.
type Trade struct {
	Name   string `gorm:"primaryKey;type:varchar(64)" json:"name"`
	Symbol string `gorm:"not null;index" json:"symbol"`
	// PurchasePrice is the average cost, stored to 2 decimal places.
	PurchasePrice float64   `gorm:"not null" json:"purchase_price"`
	Amount        int64     `gorm:"not null" json:"amount"`
	TotalPrice    float64   `gorm:"not null" json:"total_price"`
	TradeType     OrderType `gorm:"type:varchar(16)" json:"trade_type"`
	// DateAdded marks the start of the cycle and is preserved across every
	// rebalance.
	DateAdded       time.Time `gorm:"not null" json:"date_added"`
	LatestDateTrade time.Time `json:"latest_date_trade"`
}

func (Trade) TableName() string {
	return "trades"
}

// TierProgress is total invested capital over one seed.
func (t *Trade) TierProgress(seed float64) float64 {
	if seed <= 0 {
		return 0
	}
	return t.TotalPrice / seed
}
