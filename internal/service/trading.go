package service

import (
	"context"
	"fmt"
	"time"

	"egg-trading/config"
	"egg-trading/internal/engine"
	"egg-trading/internal/exchange"
	"egg-trading/internal/model"
	"egg-trading/internal/repository"
	"egg-trading/pkg/cache"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/marketclock"
	"egg-trading/pkg/telegram"
)

// TradingService drives the trading day: the decision pass in the morning and
// one TWAP slice per scheduled tick.
type TradingService interface {
	RunDaily(ctx context.Context) error
	RunTWAPTick(ctx context.Context, final bool) error
	// ForceBuy queues a manual buy parent outside the decision pass. A zero
	// seed means the bot's configured seed.
	ForceBuy(ctx context.Context, name string, seed float64) error
}

type tradingService struct {
	cfg        *config.Config
	log        *logger.Logger
	repo       *repository.Repository
	exchange   exchange.Exchange
	messenger  telegram.Messenger
	clock      marketclock.Clock
	quoteCache cache.Cache

	netting    *engine.Netting
	twap       *engine.TWAPExecutor
	dynSeed    *engine.DynamicSeed
	activation *engine.AutoActivation
	report     ReportService
}

func NewTradingService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	ex exchange.Exchange,
	messenger telegram.Messenger,
	clock marketclock.Clock,
	quoteCache cache.Cache,
	netting *engine.Netting,
	twap *engine.TWAPExecutor,
	dynSeed *engine.DynamicSeed,
	activation *engine.AutoActivation,
	report ReportService,
) TradingService {
	return &tradingService{
		cfg:        cfg,
		log:        log,
		repo:       repo,
		exchange:   ex,
		messenger:  messenger,
		clock:      clock,
		quoteCache: quoteCache,
		netting:    netting,
		twap:       twap,
		dynSeed:    dynSeed,
		activation: activation,
		report:     report,
	}
}

// RunDaily is the once-per-trading-day decision job. Idempotent: a second run
// on the same inputs finds every parent already created and changes nothing.
func (s *tradingService) RunDaily(ctx context.Context) error {
	now := s.clock.Now()
	if !s.clock.IsTradingDay(now) {
		s.log.InfoContext(ctx, "not a trading day, skipping daily job")
		return nil
	}
	today := s.clock.Today()

	if err := s.activation.Run(ctx); err != nil {
		s.log.ErrorContext(ctx, "auto activation pass failed", logger.ErrorField(err))
	}

	bots, err := s.repo.BotRepo.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("list active bots: %w", err)
	}

	if err := s.dynSeed.Run(ctx, bots, today); err != nil {
		s.log.ErrorContext(ctx, "dynamic seed pass failed", logger.ErrorField(err))
	}
	// Seeds may have moved; decisions must see the updated values.
	bots, err = s.repo.BotRepo.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("reload active bots: %w", err)
	}

	if err := s.purgeStaleOrders(ctx, today); err != nil {
		s.log.ErrorContext(ctx, "stale order purge failed", logger.ErrorField(err))
	}

	for i := range bots {
		bot := &bots[i]
		if err := s.decideBot(ctx, bot, today); err != nil {
			s.log.ErrorContext(ctx, "decision failed",
				logger.StringField("name", bot.Name),
				logger.ErrorField(err),
			)
			s.messenger.Send(ctx, fmt.Sprintf("[%s] daily decision failed: %v", bot.Name, err))
		}
	}
	return nil
}

// purgeStaleOrders discards parents left over from a prior day; their
// unprocessed slices are gone for good, so the operator is told.
func (s *tradingService) purgeStaleOrders(ctx context.Context, today time.Time) error {
	stale, err := s.repo.OrderRepo.ListStale(ctx, today)
	if err != nil {
		return fmt.Errorf("list stale orders: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	names := make([]string, 0, len(stale))
	for _, o := range stale {
		names = append(names, o.Name)
	}
	if err := s.repo.OrderRepo.DeleteMany(ctx, names); err != nil {
		return fmt.Errorf("delete stale orders: %w", err)
	}

	for _, o := range stale {
		s.messenger.Send(ctx, fmt.Sprintf("[%s] stale %s parent from %s discarded (%d slices unprocessed)",
			o.Name, o.OrderType, o.DateAdded.Format("2006-01-02"), o.TradeCount))
	}
	return nil
}

func (s *tradingService) decideBot(ctx context.Context, bot *model.BotInfo, today time.Time) error {
	// Create-if-absent: at most one open parent per bot.
	existing, err := s.repo.OrderRepo.FindByName(ctx, bot.Name)
	if err != nil {
		return fmt.Errorf("find open parent: %w", err)
	}
	if existing != nil {
		s.log.InfoContext(ctx, "parent already open, decision skipped",
			logger.StringField("name", bot.Name),
		)
		return nil
	}

	price, err := s.price(ctx, bot.Symbol)
	if err != nil {
		return fmt.Errorf("price for %s: %w", bot.Symbol, err)
	}
	prevClose, err := s.prevClose(ctx, bot.Symbol)
	if err != nil {
		return fmt.Errorf("prev close for %s: %w", bot.Symbol, err)
	}

	trade, err := s.repo.TradeRepo.FindByName(ctx, bot.Name)
	if err != nil {
		return fmt.Errorf("find trade: %w", err)
	}

	soldInHistory, err := s.repo.HistoryRepo.HasSellToday(ctx, bot.Name, today)
	if err != nil {
		return fmt.Errorf("check sell history: %w", err)
	}
	sellOrderToday, err := s.repo.OrderRepo.HasSellOrderToday(ctx, bot.Name, today)
	if err != nil {
		return fmt.Errorf("check sell orders: %w", err)
	}

	balance, err := s.exchange.AvailableBalance(ctx)
	if err != nil {
		return fmt.Errorf("available balance: %w", err)
	}

	decision := engine.Decide(engine.DecideInput{
		Bot:            *bot,
		Trade:          trade,
		Price:          price,
		PrevClose:      prevClose,
		SoldToday:      soldInHistory || sellOrderToday,
		Balance:        balance,
		DropStep:       s.cfg.DropIntervalRate(bot.Symbol),
		SmallProfitMin: s.cfg.Trading.SmallProfitMin,
	})

	if decision.IsHold() {
		s.log.InfoContext(ctx, "holding",
			logger.StringField("name", bot.Name),
			logger.StringField("reason", decision.Reason),
		)
		if decision.InsufficientBalance {
			s.messenger.Send(ctx, fmt.Sprintf("[%s] buy aborted: seed exceeds available cash %.2f", bot.Name, balance))
		}
		return nil
	}

	order := s.newParent(bot, decision, today)
	if err := s.repo.OrderRepo.Upsert(ctx, order); err != nil {
		return fmt.Errorf("create parent order: %w", err)
	}

	s.log.InfoContext(ctx, "parent order created",
		logger.StringField("name", bot.Name),
		logger.StringField("type", string(order.OrderType)),
		logger.FloatField("total_value", order.TotalValue),
		logger.StringField("reason", decision.Reason),
	)
	s.messenger.Send(ctx, fmt.Sprintf("[%s] %s %s queued: %.2f over %d slices (%s)",
		bot.Name, order.OrderType, bot.Symbol, order.TotalValue, order.TotalCount, decision.Reason))
	return nil
}

// newParent writes the decision down as a TWAP parent before anything touches
// the wire.
func (s *tradingService) newParent(bot *model.BotInfo, d model.Decision, today time.Time) *model.Order {
	value := d.Seed
	if d.IsSell() {
		value = float64(d.Qty)
	}
	return &model.Order{
		Name:        bot.Name,
		Symbol:      bot.Symbol,
		OrderType:   d.OrderType(),
		TradeCount:  s.cfg.Scheduler.TWAPCount,
		TotalCount:  s.cfg.Scheduler.TWAPCount,
		RemainValue: value,
		TotalValue:  value,
		DateAdded:   today,
	}
}

// ForceBuy bypasses every buy gate except the one-parent rule and the balance
// check. The parent is typed Buy_Force so the ledger records the operator's
// hand in it.
func (s *tradingService) ForceBuy(ctx context.Context, name string, seed float64) error {
	bot, err := s.repo.BotRepo.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("find bot: %w", err)
	}
	if bot == nil {
		return fmt.Errorf("bot %s not found", name)
	}
	if seed <= 0 {
		seed = bot.Seed + bot.AddedSeed
	}

	existing, err := s.repo.OrderRepo.FindByName(ctx, name)
	if err != nil {
		return fmt.Errorf("find open parent: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("bot %s already has an open %s parent", name, existing.OrderType)
	}

	balance, err := s.exchange.AvailableBalance(ctx)
	if err != nil {
		return fmt.Errorf("available balance: %w", err)
	}
	if seed > balance {
		return fmt.Errorf("seed %.2f exceeds available cash %.2f", seed, balance)
	}

	order := &model.Order{
		Name:        name,
		Symbol:      bot.Symbol,
		OrderType:   model.OrderTypeBuyForce,
		TradeCount:  s.cfg.Scheduler.TWAPCount,
		TotalCount:  s.cfg.Scheduler.TWAPCount,
		RemainValue: seed,
		TotalValue:  seed,
		DateAdded:   s.clock.Today(),
	}
	if err := s.repo.OrderRepo.Upsert(ctx, order); err != nil {
		return fmt.Errorf("create parent order: %w", err)
	}

	s.log.InfoContext(ctx, "forced buy queued",
		logger.StringField("name", name),
		logger.FloatField("seed", seed),
	)
	s.messenger.Send(ctx, fmt.Sprintf("[%s] forced buy of %s queued: %.2f over %d slices",
		name, bot.Symbol, seed, order.TotalCount))
	return nil
}

// RunTWAPTick nets opposing parents, then advances each open parent by one
// slice. The final tick of the day also sends the operator report.
func (s *tradingService) RunTWAPTick(ctx context.Context, final bool) error {
	now := s.clock.Now()
	if !s.clock.IsTradingDay(now) {
		return nil
	}

	if err := s.netting.Run(ctx); err != nil {
		s.log.ErrorContext(ctx, "netting pass failed", logger.ErrorField(err))
		s.messenger.Send(ctx, fmt.Sprintf("netting pass failed: %v", err))
	}

	orders, err := s.repo.OrderRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list open parents: %w", err)
	}

	for i := range orders {
		order := &orders[i]
		if err := s.twap.Advance(ctx, order, now); err != nil {
			s.log.ErrorContext(ctx, "slice advance failed",
				logger.StringField("name", order.Name),
				logger.ErrorField(err),
			)
			s.messenger.Send(ctx, fmt.Sprintf("[%s] slice advance failed: %v", order.Name, err))
		}
	}

	if final {
		if err := s.report.SendDailyReport(ctx); err != nil {
			s.log.WarnContext(ctx, "daily report failed", logger.ErrorField(err))
		}
	}
	return nil
}

// price caches quotes for the duration of one job so sibling bots on a symbol
// share a single exchange call.
func (s *tradingService) price(ctx context.Context, symbol string) (float64, error) {
	key := "quote:price:" + symbol
	if v, ok := s.quoteCache.Get(key); ok {
		return v.(float64), nil
	}
	px, err := s.exchange.Price(ctx, symbol)
	if err != nil {
		return 0, err
	}
	s.quoteCache.Set(key, px, time.Minute)
	return px, nil
}

func (s *tradingService) prevClose(ctx context.Context, symbol string) (float64, error) {
	key := "quote:prev:" + symbol
	if v, ok := s.quoteCache.Get(key); ok {
		return v.(float64), nil
	}
	px, err := s.exchange.PrevClose(ctx, symbol)
	if err != nil {
		return 0, err
	}
	s.quoteCache.Set(key, px, time.Hour)
	return px, nil
}
