package repository

import (
	"gorm.io/gorm"
)

// Repository bundles every store contract over one shared connection.
type Repository struct {
	BotRepo     BotRepository
	TradeRepo   TradeRepository
	OrderRepo   OrderRepository
	HistoryRepo HistoryRepository
	StatusRepo  StatusRepository
	UnitOfWork  UnitOfWork
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		BotRepo:     NewBotRepository(db),
		TradeRepo:   NewTradeRepository(db),
		OrderRepo:   NewOrderRepository(db),
		HistoryRepo: NewHistoryRepository(db),
		StatusRepo:  NewStatusRepository(db),
		UnitOfWork:  NewUnitOfWork(db),
	}
}
