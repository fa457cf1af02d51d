package engine

import (
	"context"
	"fmt"
	"time"

	"egg-trading/internal/model"
	"egg-trading/internal/repository"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/utils"
)

// Rebalancer applies merged fills to the trade ledger. Every method writes
// through the DBOptions the caller passes, so a TWAP merge can fold the
// ledger update, the history row and the added_seed carry into one
// transaction.
type Rebalancer struct {
	botRepo     repository.BotRepository
	tradeRepo   repository.TradeRepository
	historyRepo repository.HistoryRepository
	log         *logger.Logger
}

func NewRebalancer(botRepo repository.BotRepository, tradeRepo repository.TradeRepository, historyRepo repository.HistoryRepository, log *logger.Logger) *Rebalancer {
	return &Rebalancer{
		botRepo:     botRepo,
		tradeRepo:   tradeRepo,
		historyRepo: historyRepo,
		log:         log,
	}
}

// RebalanceBuy folds a merged buy fill into the bot's open trade, creating
// the cycle on its first buy. Average cost is recomputed; the cycle start
// date is preserved.
func (r *Rebalancer) RebalanceBuy(ctx context.Context, bot *model.BotInfo, units int64, cost float64, now time.Time, opts ...utils.DBOption) (*model.Trade, error) {
	if units <= 0 {
		return nil, fmt.Errorf("buy rebalance with %d units", units)
	}

	trade, err := r.tradeRepo.FindByName(ctx, bot.Name, opts...)
	if err != nil {
		return nil, fmt.Errorf("find trade for %s: %w", bot.Name, err)
	}
	if trade == nil {
		trade = &model.Trade{
			Name:      bot.Name,
			Symbol:    bot.Symbol,
			DateAdded: now,
		}
	}

	newAmount := trade.Amount + units
	newTotal := trade.TotalPrice + cost
	newAvg := utils.Round2(newTotal / float64(newAmount))

	trade.Amount = newAmount
	trade.PurchasePrice = newAvg
	// Re-derived from the rounded average so total == round(avg x amount)
	// holds between jobs.
	trade.TotalPrice = utils.Round2(newAvg * float64(newAmount))
	trade.TradeType = model.OrderTypeBuy
	trade.LatestDateTrade = now

	if err := r.tradeRepo.Upsert(ctx, trade, opts...); err != nil {
		return nil, fmt.Errorf("upsert trade for %s: %w", bot.Name, err)
	}
	return trade, nil
}

// RebalancePartialSell removes units at the fill price while preserving the
// average cost, writes the history row, and carries the realized profit into
// added_seed. The remaining amount must stay positive.
func (r *Rebalancer) RebalancePartialSell(ctx context.Context, bot *model.BotInfo, trade *model.Trade, tradeType model.OrderType, units int64, avgUnit float64, now time.Time, opts ...utils.DBOption) (*model.History, error) {
	if units <= 0 || units >= trade.Amount {
		return nil, fmt.Errorf("partial sell of %d units against %d held", units, trade.Amount)
	}

	hist, err := r.writeHistory(ctx, trade, tradeType, units, avgUnit, now, opts...)
	if err != nil {
		return nil, err
	}

	trade.Amount -= units
	trade.TotalPrice = utils.Round2(float64(trade.Amount) * trade.PurchasePrice)
	trade.TradeType = tradeType
	trade.LatestDateTrade = now
	if err := r.tradeRepo.Upsert(ctx, trade, opts...); err != nil {
		return nil, fmt.Errorf("upsert trade for %s: %w", bot.Name, err)
	}

	if err := r.botRepo.AddRealizedProfit(ctx, bot.Name, hist.Profit, opts...); err != nil {
		return nil, fmt.Errorf("carry realized profit for %s: %w", bot.Name, err)
	}
	return hist, nil
}

// RebalanceFullSell closes the cycle: the trade row is removed and added_seed
// reset to zero.
func (r *Rebalancer) RebalanceFullSell(ctx context.Context, bot *model.BotInfo, trade *model.Trade, units int64, avgUnit float64, now time.Time, opts ...utils.DBOption) (*model.History, error) {
	if units != trade.Amount {
		return nil, fmt.Errorf("full sell of %d units against %d held", units, trade.Amount)
	}

	hist, err := r.writeHistory(ctx, trade, model.OrderTypeSell, units, avgUnit, now, opts...)
	if err != nil {
		return nil, err
	}

	if err := r.tradeRepo.Delete(ctx, trade.Name, opts...); err != nil {
		return nil, fmt.Errorf("delete trade for %s: %w", trade.Name, err)
	}
	if err := r.botRepo.ResetAddedSeed(ctx, bot.Name, opts...); err != nil {
		return nil, fmt.Errorf("reset added seed for %s: %w", bot.Name, err)
	}
	return hist, nil
}

func (r *Rebalancer) writeHistory(ctx context.Context, trade *model.Trade, tradeType model.OrderType, units int64, avgUnit float64, now time.Time, opts ...utils.DBOption) (*model.History, error) {
	sellPrice := utils.Round2(avgUnit)
	profit := utils.Round2((sellPrice - trade.PurchasePrice) * float64(units))
	profitRate := 0.0
	if trade.PurchasePrice > 0 {
		profitRate = (sellPrice - trade.PurchasePrice) / trade.PurchasePrice
	}

	hist := &model.History{
		DateAdded:  trade.DateAdded,
		TradeDate:  now,
		TradeType:  tradeType,
		Name:       trade.Name,
		Symbol:     trade.Symbol,
		BuyPrice:   trade.PurchasePrice,
		SellPrice:  sellPrice,
		Amount:     units,
		Profit:     profit,
		ProfitRate: profitRate,
	}
	if err := r.historyRepo.Insert(ctx, hist, opts...); err != nil {
		return nil, fmt.Errorf("insert history for %s: %w", trade.Name, err)
	}
	return hist, nil
}
