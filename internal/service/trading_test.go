package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"egg-trading/config"
	"egg-trading/internal/exchange"
	"egg-trading/internal/model"
	"egg-trading/internal/repository"
	"egg-trading/pkg/cache"
	"egg-trading/pkg/logger"
)

// fixedClock pins the trading day to Monday 2026-03-02.
type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) Today() time.Time {
	y, m, d := c.now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.now.Location())
}
func (c fixedClock) IsTradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func (c fixedClock) Location() *time.Location { return c.now.Location() }

type recordingMessenger struct {
	messages []string
}

func (m *recordingMessenger) Send(ctx context.Context, text string) {
	m.messages = append(m.messages, text)
}

func (m *recordingMessenger) SendPhoto(ctx context.Context, text, photoPath string) {
	m.messages = append(m.messages, text)
}

// settableExchange is the fixture exchange surface the tests drive.
type settableExchange interface {
	exchange.Exchange
	SetPrice(symbol string, px float64)
	SetPrevClose(symbol string, px float64)
	SetBalance(v float64)
}

type serviceFixture struct {
	svc       *Service
	repo      *repository.Repository
	exchange  settableExchange
	messenger *recordingMessenger
	clock     fixedClock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.BotInfo{}, &model.Trade{}, &model.Order{}, &model.History{}, &model.Status{},
	))

	repo := repository.NewRepository(db)
	ex := exchange.NewFixture()
	messenger := &recordingMessenger{}
	clock := fixedClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	cfg := &config.Config{}
	cfg.Scheduler.TWAPCount = 2
	cfg.Trading.DropIntervalDefault = 5.0
	cfg.Trading.SmallProfitMin = 100
	cfg.Trading.FillWaitTimeout = time.Second
	cfg.Cache.DefaultExpiration = time.Minute
	cfg.Cache.CleanupInterval = time.Minute

	svc := NewService(cfg, logger.NewNop(), repo, ex, messenger, clock,
		cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval))

	return &serviceFixture{
		svc:       svc,
		repo:      repo,
		exchange:  ex,
		messenger: messenger,
		clock:     clock,
	}
}

func activeBot(name string) *model.BotInfo {
	return &model.BotInfo{
		Name:       name,
		Symbol:     "TQQQ",
		Seed:       1000,
		ProfitRate: 0.10,
		TDiv:       20,
		MaxTier:    10,
		Active:     true,
		PointLoc:   model.PointLocP1,
	}
}

func TestRunDailyCreatesBuyParentOnce(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.BotRepo.Create(ctx, activeBot("tqqq-a")))

	require.NoError(t, f.svc.TradingService.RunDaily(ctx))

	order, err := f.repo.OrderRepo.FindByName(ctx, "tqqq-a")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, model.OrderTypeBuy, order.OrderType)
	assert.Equal(t, 1000.0, order.TotalValue)
	assert.Equal(t, 2, order.TradeCount)
	first := *order

	// A rerun finds the parent and changes nothing.
	require.NoError(t, f.svc.TradingService.RunDaily(ctx))
	again, err := f.repo.OrderRepo.FindByName(ctx, "tqqq-a")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, first.TradeCount, again.TradeCount)
	assert.Equal(t, first.TotalValue, again.TotalValue)

	orders, _ := f.repo.OrderRepo.ListAll(ctx)
	assert.Len(t, orders, 1)
}

func TestRunDailySkipsSellDayBuys(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.BotRepo.Create(ctx, activeBot("tqqq-a")))

	// A realized sell earlier today blocks the buy arm.
	require.NoError(t, f.repo.HistoryRepo.Insert(ctx, &model.History{
		DateAdded: f.clock.Today().AddDate(0, 0, -10),
		TradeDate: f.clock.Today(),
		TradeType: model.OrderTypeSell14,
		Name:      "tqqq-a",
		Symbol:    "TQQQ",
		BuyPrice:  100,
		SellPrice: 110,
		Amount:    5,
		Profit:    50,
	}))

	require.NoError(t, f.svc.TradingService.RunDaily(ctx))

	order, err := f.repo.OrderRepo.FindByName(ctx, "tqqq-a")
	require.NoError(t, err)
	assert.Nil(t, order)
}

func TestRunDailyPurgesStaleParents(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.BotRepo.Create(ctx, activeBot("tqqq-a")))

	// A leftover parent from friday is discarded, then today's decision
	// creates a fresh one.
	stale := &model.Order{
		Name:        "tqqq-a",
		Symbol:      "TQQQ",
		OrderType:   model.OrderTypeBuy,
		TradeCount:  1,
		TotalCount:  2,
		RemainValue: 500,
		TotalValue:  1000,
		DateAdded:   f.clock.Today().AddDate(0, 0, -3),
	}
	require.NoError(t, f.repo.OrderRepo.Upsert(ctx, stale))

	require.NoError(t, f.svc.TradingService.RunDaily(ctx))

	order, err := f.repo.OrderRepo.FindByName(ctx, "tqqq-a")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.True(t, order.DateAdded.Equal(f.clock.Today()))
	assert.Equal(t, 1000.0, order.RemainValue)
}

func TestDailyThenTicksBuildPosition(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.BotRepo.Create(ctx, activeBot("tqqq-a")))
	f.exchange.SetPrice("TQQQ", 100)

	require.NoError(t, f.svc.TradingService.RunDaily(ctx))
	require.NoError(t, f.svc.TradingService.RunTWAPTick(ctx, false))
	require.NoError(t, f.svc.TradingService.RunTWAPTick(ctx, false))

	// Both slices filled at the 102 marked price and merged into a cycle.
	order, err := f.repo.OrderRepo.FindByName(ctx, "tqqq-a")
	require.NoError(t, err)
	assert.Nil(t, order)

	trade, err := f.repo.TradeRepo.FindByName(ctx, "tqqq-a")
	require.NoError(t, err)
	require.NotNil(t, trade)
	assert.Equal(t, int64(9), trade.Amount)
	assert.Equal(t, 102.0, trade.PurchasePrice)
}

func TestRunDailyInsufficientBalanceNotifies(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.BotRepo.Create(ctx, activeBot("tqqq-a")))
	f.exchange.SetBalance(100)

	require.NoError(t, f.svc.TradingService.RunDaily(ctx))

	order, _ := f.repo.OrderRepo.FindByName(ctx, "tqqq-a")
	assert.Nil(t, order)
	assert.NotEmpty(t, f.messenger.messages)
}

func TestRunDailySkipsWeekend(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.BotRepo.Create(ctx, activeBot("tqqq-a")))

	sat := fixedClock{now: time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC)}
	svc := NewService(&config.Config{Scheduler: config.Scheduler{TWAPCount: 2}}, logger.NewNop(),
		f.repo, f.exchange, f.messenger, sat,
		cache.NewCache(time.Minute, time.Minute))

	require.NoError(t, svc.TradingService.RunDaily(ctx))
	order, _ := f.repo.OrderRepo.FindByName(ctx, "tqqq-a")
	assert.Nil(t, order)
}

func TestRunDailyRerunKeepsDynamicSeed(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	bot := activeBot("tqqq-a")
	bot.DynamicSeedEnabled = true
	bot.DynamicSeedMax = 3000
	bot.DynamicSeedMultiplier = 0.3
	bot.DynamicSeedDropRate = 0.03
	require.NoError(t, f.repo.BotRepo.Create(ctx, bot))

	f.exchange.SetPrevClose("TQQQ", 100)
	f.exchange.SetPrice("TQQQ", 95)
	f.exchange.SetBalance(10000)

	require.NoError(t, f.svc.TradingService.RunDaily(ctx))
	after1, err := f.repo.BotRepo.GetByName(ctx, "tqqq-a")
	require.NoError(t, err)
	require.Equal(t, 1300.0, after1.Seed)

	// A repeated daily run on the same inputs must not bump again.
	require.NoError(t, f.svc.TradingService.RunDaily(ctx))
	after2, err := f.repo.BotRepo.GetByName(ctx, "tqqq-a")
	require.NoError(t, err)
	assert.Equal(t, after1.Seed, after2.Seed)
}

func TestForceBuyQueuesParent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.BotRepo.Create(ctx, activeBot("tqqq-a")))
	f.exchange.SetBalance(10000)

	require.NoError(t, f.svc.TradingService.ForceBuy(ctx, "tqqq-a", 500))

	order, err := f.repo.OrderRepo.FindByName(ctx, "tqqq-a")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, model.OrderTypeBuyForce, order.OrderType)
	assert.Equal(t, 500.0, order.TotalValue)
	assert.Equal(t, 2, order.TotalCount)
}

func TestForceBuyDefaultsToSeed(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	bot := activeBot("tqqq-a")
	bot.AddedSeed = 250
	require.NoError(t, f.repo.BotRepo.Create(ctx, bot))
	f.exchange.SetBalance(10000)

	require.NoError(t, f.svc.TradingService.ForceBuy(ctx, "tqqq-a", 0))

	order, err := f.repo.OrderRepo.FindByName(ctx, "tqqq-a")
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, 1250.0, order.TotalValue)
}

func TestForceBuyRejectedWhileParentOpen(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	require.NoError(t, f.repo.BotRepo.Create(ctx, activeBot("tqqq-a")))
	f.exchange.SetBalance(10000)

	require.NoError(t, f.svc.TradingService.ForceBuy(ctx, "tqqq-a", 500))
	err := f.svc.TradingService.ForceBuy(ctx, "tqqq-a", 500)
	assert.Error(t, err)
}
