package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egg-trading/internal/model"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/utils"
)

func newRebalancerFixture(bots []model.BotInfo, trades []model.Trade) (*Rebalancer, *fakeBotRepo, *fakeTradeRepo, *fakeHistoryRepo) {
	botRepo := newFakeBotRepo(bots...)
	tradeRepo := newFakeTradeRepo(trades...)
	histRepo := &fakeHistoryRepo{}
	return NewRebalancer(botRepo, tradeRepo, histRepo, logger.NewNop()), botRepo, tradeRepo, histRepo
}

func TestRebalanceBuyCreatesCycle(t *testing.T) {
	bot := baseBot()
	r, _, tradeRepo, _ := newRebalancerFixture([]model.BotInfo{bot}, nil)
	now := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	trade, err := r.RebalanceBuy(context.Background(), &bot, 10, 1002.50, now)
	require.NoError(t, err)

	assert.Equal(t, int64(10), trade.Amount)
	assert.Equal(t, 100.25, trade.PurchasePrice)
	assert.Equal(t, 1002.50, trade.TotalPrice)
	assert.Equal(t, now, trade.DateAdded)

	stored, _ := tradeRepo.FindByName(context.Background(), bot.Name)
	require.NotNil(t, stored)
	assert.Equal(t, trade.TotalPrice, stored.TotalPrice)
}

func TestRebalanceBuyRecomputesAverage(t *testing.T) {
	bot := baseBot()
	start := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	r, _, _, _ := newRebalancerFixture([]model.BotInfo{bot}, []model.Trade{{
		Name:          bot.Name,
		Symbol:        bot.Symbol,
		PurchasePrice: 100,
		Amount:        10,
		TotalPrice:    1000,
		DateAdded:     start,
	}})

	now := start.Add(24 * time.Hour)
	trade, err := r.RebalanceBuy(context.Background(), &bot, 15, 1350, now)
	require.NoError(t, err)

	// 2350 / 25 = 94.
	assert.Equal(t, int64(25), trade.Amount)
	assert.Equal(t, 94.0, trade.PurchasePrice)
	// Total is re-derived from the rounded average.
	assert.Equal(t, utils.Round2(94.0*25), trade.TotalPrice)
	// The cycle keeps its original start date.
	assert.Equal(t, start, trade.DateAdded)
}

func TestRebalanceBuyTotalTracksRoundedAverage(t *testing.T) {
	bot := baseBot()
	r, _, _, _ := newRebalancerFixture([]model.BotInfo{bot}, nil)
	now := time.Now()

	// 1000 / 3 rounds to 333.33; the stored total must follow the average.
	trade, err := r.RebalanceBuy(context.Background(), &bot, 3, 1000, now)
	require.NoError(t, err)
	assert.Equal(t, 333.33, trade.PurchasePrice)
	assert.Equal(t, 999.99, trade.TotalPrice)
}

func TestRebalanceBuyRejectsZeroUnits(t *testing.T) {
	bot := baseBot()
	r, _, _, _ := newRebalancerFixture([]model.BotInfo{bot}, nil)

	_, err := r.RebalanceBuy(context.Background(), &bot, 0, 100, time.Now())
	assert.Error(t, err)
}

func TestRebalancePartialSellKeepsAverageAndCarriesProfit(t *testing.T) {
	bot := baseBot()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	r, botRepo, tradeRepo, histRepo := newRebalancerFixture([]model.BotInfo{bot}, []model.Trade{{
		Name:          bot.Name,
		Symbol:        bot.Symbol,
		PurchasePrice: 100,
		Amount:        40,
		TotalPrice:    4000,
		DateAdded:     start,
	}})

	trade, _ := tradeRepo.FindByName(context.Background(), bot.Name)
	now := start.Add(48 * time.Hour)
	hist, err := r.RebalancePartialSell(context.Background(), &bot, trade, model.OrderTypeSell34, 30, 120, now)
	require.NoError(t, err)

	assert.Equal(t, 600.0, hist.Profit)
	stored, _ := tradeRepo.FindByName(context.Background(), bot.Name)
	require.NotNil(t, stored)
	assert.Equal(t, int64(10), stored.Amount)
	assert.Equal(t, 100.0, stored.PurchasePrice)
	assert.Equal(t, 1000.0, stored.TotalPrice)

	b, _ := botRepo.GetByName(context.Background(), bot.Name)
	assert.Equal(t, hist.Profit, b.AddedSeed)
	assert.Len(t, histRepo.rows, 1)
	assert.Equal(t, start, histRepo.rows[0].DateAdded)
}

func TestRebalancePartialSellLossDoesNotGoNegative(t *testing.T) {
	bot := baseBot()
	start := time.Now()
	r, botRepo, tradeRepo, _ := newRebalancerFixture([]model.BotInfo{bot}, []model.Trade{{
		Name:          bot.Name,
		Symbol:        bot.Symbol,
		PurchasePrice: 100,
		Amount:        40,
		TotalPrice:    4000,
		DateAdded:     start,
	}})

	trade, _ := tradeRepo.FindByName(context.Background(), bot.Name)
	hist, err := r.RebalancePartialSell(context.Background(), &bot, trade, model.OrderTypeSellPart, 10, 90, start)
	require.NoError(t, err)
	assert.Equal(t, -100.0, hist.Profit)

	b, _ := botRepo.GetByName(context.Background(), bot.Name)
	assert.Equal(t, 0.0, b.AddedSeed)
}

func TestRebalancePartialSellRejectsFullQuantity(t *testing.T) {
	bot := baseBot()
	start := time.Now()
	r, _, tradeRepo, _ := newRebalancerFixture([]model.BotInfo{bot}, []model.Trade{{
		Name: bot.Name, Symbol: bot.Symbol, PurchasePrice: 100, Amount: 40, TotalPrice: 4000, DateAdded: start,
	}})

	trade, _ := tradeRepo.FindByName(context.Background(), bot.Name)
	_, err := r.RebalancePartialSell(context.Background(), &bot, trade, model.OrderTypeSellPart, 40, 120, start)
	assert.Error(t, err)
}

func TestRebalanceFullSellClosesCycle(t *testing.T) {
	bot := baseBot()
	bot.AddedSeed = 600
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	r, botRepo, tradeRepo, histRepo := newRebalancerFixture([]model.BotInfo{bot}, []model.Trade{{
		Name:          bot.Name,
		Symbol:        bot.Symbol,
		PurchasePrice: 100,
		Amount:        10,
		TotalPrice:    1000,
		DateAdded:     start,
	}})

	trade, _ := tradeRepo.FindByName(context.Background(), bot.Name)
	hist, err := r.RebalanceFullSell(context.Background(), &bot, trade, 10, 115, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 150.0, hist.Profit)

	stored, _ := tradeRepo.FindByName(context.Background(), bot.Name)
	assert.Nil(t, stored)

	b, _ := botRepo.GetByName(context.Background(), bot.Name)
	assert.Equal(t, 0.0, b.AddedSeed)
	assert.Len(t, histRepo.rows, 1)
}

func TestRebalanceFullSellRequiresExactQuantity(t *testing.T) {
	bot := baseBot()
	start := time.Now()
	r, _, tradeRepo, _ := newRebalancerFixture([]model.BotInfo{bot}, []model.Trade{{
		Name: bot.Name, Symbol: bot.Symbol, PurchasePrice: 100, Amount: 10, TotalPrice: 1000, DateAdded: start,
	}})

	trade, _ := tradeRepo.FindByName(context.Background(), bot.Name)
	_, err := r.RebalanceFullSell(context.Background(), &bot, trade, 8, 115, start)
	assert.Error(t, err)
}
