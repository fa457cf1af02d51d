package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Order is an open TWAP parent: one per bot, advanced one slice per tick.
// RemainValue is dollars for buys and units for sells.
type Order struct {
	Name       string    `gorm:"primaryKey;type:varchar(64)" json:"name"`
	Symbol     string    `gorm:"not null;index" json:"symbol"`
	OrderType  OrderType `gorm:"not null;type:varchar(16)" json:"order_type"`
	TradeCount int       `gorm:"not null" json:"trade_count"`
	TotalCount int       `gorm:"not null" json:"total_count"`

	RemainValue float64 `gorm:"not null" json:"remain_value"`
	TotalValue  float64 `gorm:"not null" json:"total_value"`

	// TradeResults accumulates per-slice fills, null fills included, in
	// submission order.
	TradeResults datatypes.JSON `gorm:"type:jsonb" json:"trade_result_list"`

	DateAdded time.Time `gorm:"not null" json:"date_added"`
}

func (Order) TableName() string {
	return "orders"
}

// Fill is one slice's execution result. A null fill (Amount == 0) records a
// slice whose wire order never executed.
type Fill struct {
	Type       OrderType `json:"type"`
	Amount     int64     `json:"amount"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
}

func (f Fill) IsNull() bool {
	return f.Amount == 0
}

// Fills decodes the accumulated slice results.
func (o *Order) Fills() []Fill {
	var fills []Fill
	if len(o.TradeResults) == 0 {
		return fills
	}
	_ = json.Unmarshal(o.TradeResults, &fills)
	return fills
}

// AppendFill records one slice result. Encoding a []Fill cannot fail.
func (o *Order) AppendFill(f Fill) {
	fills := append(o.Fills(), f)
	raw, _ := json.Marshal(fills)
	o.TradeResults = raw
}

// RequestedUnits is the unit count a sell parent was created for. Zero for
// buy parents, whose total value is in dollars.
func (o *Order) RequestedUnits() int64 {
	if o.OrderType.IsBuy() {
		return 0
	}
	return int64(o.TotalValue)
}

// MergeFills aggregates the non-null fills of a finished parent.
func (o *Order) MergeFills() (totalUnits int64, totalCost float64, avgUnit float64) {
	for _, f := range o.Fills() {
		if f.IsNull() {
			continue
		}
		totalUnits += f.Amount
		totalCost += f.TotalPrice
	}
	if totalUnits > 0 {
		avgUnit = totalCost / float64(totalUnits)
	}
	return totalUnits, totalCost, avgUnit
}
