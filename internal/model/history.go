package model

import "time"

// History is the append-only realized-trade ledger. The composite key keeps a
// sell instant from being recorded twice; rows are never mutated.
type History struct {
	// DateAdded is the cycle start date of the Trade the row belongs to.
	DateAdded time.Time `gorm:"primaryKey" json:"date_added"`
	TradeDate time.Time `gorm:"primaryKey" json:"trade_date"`
	TradeType OrderType `gorm:"primaryKey;type:varchar(16)" json:"trade_type"`
	Name      string    `gorm:"primaryKey;type:varchar(64)" json:"name"`

	Symbol    string  `gorm:"not null" json:"symbol"`
	BuyPrice  float64 `gorm:"not null" json:"buy_price"`
	SellPrice float64 `gorm:"not null" json:"sell_price"`
	Amount    int64   `gorm:"not null" json:"amount"`
	// Profit is (sell - buy) x amount; ProfitRate is signed.
	Profit     float64 `gorm:"not null" json:"profit"`
	ProfitRate float64 `gorm:"not null" json:"profit_rate"`
}

func (History) TableName() string {
	return "histories"
}
