package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egg-trading/internal/exchange"
	"egg-trading/internal/model"
	"egg-trading/pkg/logger"
)

var dynDay = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func dynBot(name string, seed float64) model.BotInfo {
	b := baseBot()
	b.Name = name
	b.Seed = seed
	b.DynamicSeedEnabled = true
	b.DynamicSeedMax = 2000
	b.DynamicSeedMultiplier = 0.20
	b.DynamicSeedTThreshold = 0.5
	b.DynamicSeedDropRate = 0.08
	return b
}

func newDynFixture(bots []model.BotInfo, trades []model.Trade) (*DynamicSeed, *fakeBotRepo, settableExchange, *recordingMessenger) {
	botRepo := newFakeBotRepo(bots...)
	tradeRepo := newFakeTradeRepo(trades...)
	ex := exchange.NewFixture()
	messenger := &recordingMessenger{}
	return NewDynamicSeed(botRepo, tradeRepo, ex, messenger, logger.NewNop()), botRepo, ex, messenger
}

func TestDynamicSeedBumpOnTierThreshold(t *testing.T) {
	bot := dynBot("tqqq-a", 1000)
	// Invested 6000 at seed 1000: T = 6 clears maxTier x 0.5 = 5.
	d, botRepo, _, messenger := newDynFixture(
		[]model.BotInfo{bot},
		[]model.Trade{{Name: bot.Name, Symbol: bot.Symbol, TotalPrice: 6000, Amount: 60, PurchasePrice: 100}},
	)

	require.NoError(t, d.Run(context.Background(), []model.BotInfo{bot}, dynDay))

	b, _ := botRepo.GetByName(context.Background(), bot.Name)
	assert.Equal(t, 1200.0, b.Seed)
	assert.NotEmpty(t, messenger.messages)
}

func TestDynamicSeedBumpOnDrop(t *testing.T) {
	bot := dynBot("tqqq-a", 1000)
	d, botRepo, ex, _ := newDynFixture([]model.BotInfo{bot}, nil)
	ex.SetPrevClose("TQQQ", 100)
	ex.SetPrice("TQQQ", 90) // 10% drop clears the 8% trigger

	require.NoError(t, d.Run(context.Background(), []model.BotInfo{bot}, dynDay))

	b, _ := botRepo.GetByName(context.Background(), bot.Name)
	assert.Equal(t, 1200.0, b.Seed)
}

func TestDynamicSeedNoTrigger(t *testing.T) {
	bot := dynBot("tqqq-a", 1000)
	// T = 2 under the threshold, flat tape.
	d, botRepo, _, messenger := newDynFixture(
		[]model.BotInfo{bot},
		[]model.Trade{{Name: bot.Name, Symbol: bot.Symbol, TotalPrice: 2000, Amount: 20, PurchasePrice: 100}},
	)

	require.NoError(t, d.Run(context.Background(), []model.BotInfo{bot}, dynDay))

	b, _ := botRepo.GetByName(context.Background(), bot.Name)
	assert.Equal(t, 1000.0, b.Seed)
	assert.Empty(t, messenger.messages)
}

func TestDynamicSeedClampsAtMax(t *testing.T) {
	bot := dynBot("tqqq-a", 1900)
	d, botRepo, ex, _ := newDynFixture([]model.BotInfo{bot}, nil)
	ex.SetPrevClose("TQQQ", 100)
	ex.SetPrice("TQQQ", 90)

	require.NoError(t, d.Run(context.Background(), []model.BotInfo{bot}, dynDay))

	b, _ := botRepo.GetByName(context.Background(), bot.Name)
	assert.Equal(t, 2000.0, b.Seed)
}

func TestDynamicSeedSkipsWhenAtMax(t *testing.T) {
	bot := dynBot("tqqq-a", 2000)
	d, botRepo, ex, messenger := newDynFixture([]model.BotInfo{bot}, nil)
	ex.SetPrevClose("TQQQ", 100)
	ex.SetPrice("TQQQ", 50)

	require.NoError(t, d.Run(context.Background(), []model.BotInfo{bot}, dynDay))

	b, _ := botRepo.GetByName(context.Background(), bot.Name)
	assert.Equal(t, 2000.0, b.Seed)
	assert.Empty(t, messenger.messages)
}

func TestDynamicSeedOncePerDay(t *testing.T) {
	bot := dynBot("tqqq-a", 1000)
	d, botRepo, ex, _ := newDynFixture([]model.BotInfo{bot}, nil)
	ex.SetPrevClose("TQQQ", 100)
	ex.SetPrice("TQQQ", 90)

	ctx := context.Background()
	require.NoError(t, d.Run(ctx, []model.BotInfo{bot}, dynDay))
	after1, _ := botRepo.GetByName(ctx, bot.Name)
	require.Equal(t, 1200.0, after1.Seed)

	// The second pass of the day sees the bump stamp and leaves the seed
	// alone, even though the trigger inputs are unchanged.
	bots, _ := botRepo.GetAll(ctx)
	require.NoError(t, d.Run(ctx, bots, dynDay))
	after2, _ := botRepo.GetByName(ctx, bot.Name)
	assert.Equal(t, after1.Seed, after2.Seed)

	// The next trading day is free to bump again.
	bots, _ = botRepo.GetAll(ctx)
	require.NoError(t, d.Run(ctx, bots, dynDay.AddDate(0, 0, 1)))
	after3, _ := botRepo.GetByName(ctx, bot.Name)
	assert.Equal(t, 1440.0, after3.Seed)
}

func TestDynamicSeedOneBumpPerSymbol(t *testing.T) {
	small := dynBot("tqqq-a", 800)
	big := dynBot("tqqq-b", 1200)
	d, botRepo, ex, _ := newDynFixture([]model.BotInfo{small, big}, nil)
	ex.SetPrevClose("TQQQ", 100)
	ex.SetPrice("TQQQ", 90)

	require.NoError(t, d.Run(context.Background(), []model.BotInfo{small, big}, dynDay))

	// The smaller seed wins the symbol for the day.
	a, _ := botRepo.GetByName(context.Background(), "tqqq-a")
	b, _ := botRepo.GetByName(context.Background(), "tqqq-b")
	assert.Equal(t, 960.0, a.Seed)
	assert.Equal(t, 1200.0, b.Seed)
}
