package model

import "time"

// Status is the singleton deposit/withdraw ledger, mutated only through the
// admin API.
type Status struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DepositKRW  float64   `gorm:"not null;default:0" json:"deposit_krw"`
	DepositUSD  float64   `gorm:"not null;default:0" json:"deposit_usd"`
	WithdrawKRW float64   `gorm:"not null;default:0" json:"withdraw_krw"`
	WithdrawUSD float64   `gorm:"not null;default:0" json:"withdraw_usd"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Status) TableName() string {
	return "statuses"
}
