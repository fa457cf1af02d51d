package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"egg-trading/config"
	"egg-trading/internal/exchange"
	"egg-trading/internal/model"
	"egg-trading/internal/repository"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/telegram"
	"egg-trading/pkg/utils"
)

const (
	// Limit prices are marked inside the book to cross: buys 2% above the
	// tape, sells 2% below.
	buyPriceMarkup    = 1.02
	sellPriceMarkdown = 0.98
)

// TWAPExecutor advances open parent orders one slice per tick and merges the
// accumulated fills into the ledger when the last slice completes.
type TWAPExecutor struct {
	cfg         *config.Config
	botRepo     repository.BotRepository
	tradeRepo   repository.TradeRepository
	orderRepo   repository.OrderRepository
	historyRepo repository.HistoryRepository
	uow         repository.UnitOfWork
	exchange    exchange.Exchange
	rebalancer  *Rebalancer
	messenger   telegram.Messenger
	log         *logger.Logger
}

func NewTWAPExecutor(
	cfg *config.Config,
	repo *repository.Repository,
	ex exchange.Exchange,
	rebalancer *Rebalancer,
	messenger telegram.Messenger,
	log *logger.Logger,
) *TWAPExecutor {
	return &TWAPExecutor{
		cfg:         cfg,
		botRepo:     repo.BotRepo,
		tradeRepo:   repo.TradeRepo,
		orderRepo:   repo.OrderRepo,
		historyRepo: repo.HistoryRepo,
		uow:         repo.UnitOfWork,
		exchange:    ex,
		rebalancer:  rebalancer,
		messenger:   messenger,
		log:         log,
	}
}

// Advance executes one slice of the parent. A tick that cannot size a slice
// (zero units at the marked price) leaves the parent untouched so a later
// tick can retry; everything else records a fill or a null fill and
// decrements the slice counter exactly once.
func (e *TWAPExecutor) Advance(ctx context.Context, order *model.Order, now time.Time) error {
	if order.TradeCount == 0 {
		// A crash between the final decrement and the merge leaves a
		// finished parent behind; merge it now.
		return e.merge(ctx, order, now)
	}

	fill := e.executeSlice(ctx, order)

	if fill == nil {
		// Unsizeable slice: skip the tick without consuming a slice.
		return nil
	}

	order.AppendFill(*fill)
	order.TradeCount--
	if !fill.IsNull() {
		if order.OrderType.IsBuy() {
			order.RemainValue = utils.Round2(order.RemainValue - fill.TotalPrice)
		} else {
			order.RemainValue -= float64(fill.Amount)
		}
		if order.RemainValue < 0 {
			order.RemainValue = 0
		}
	}

	if err := e.orderRepo.Upsert(ctx, order); err != nil {
		return fmt.Errorf("persist slice for %s: %w", order.Name, err)
	}

	if order.TradeCount == 0 {
		return e.merge(ctx, order, now)
	}
	return nil
}

// executeSlice sizes, submits and polls one child order. A nil return means
// the slice could not be sized and the tick must not count; a null fill
// records a slice whose wire order never executed.
func (e *TWAPExecutor) executeSlice(ctx context.Context, order *model.Order) *model.Fill {
	nullFill := &model.Fill{Type: order.OrderType}

	price, err := e.exchange.Price(ctx, order.Symbol)
	if err != nil || price <= 0 {
		e.log.WarnContext(ctx, "slice skipped, no price",
			logger.StringField("name", order.Name),
			logger.StringField("symbol", order.Symbol),
			logger.ErrorField(err),
		)
		return nullFill
	}

	var units int64
	var marked float64
	if order.OrderType.IsBuy() {
		sliceValue := order.RemainValue / float64(order.TradeCount)
		marked = price * buyPriceMarkup
		units = utils.FloorDiv(sliceValue, marked)
	} else {
		remainUnits := int64(order.RemainValue)
		if order.TradeCount == 1 {
			units = remainUnits
		} else {
			units = utils.CeilDivInt(remainUnits, order.TradeCount)
		}
		marked = price * sellPriceMarkdown
	}
	if units <= 0 {
		return nil
	}

	var orderID string
	if order.OrderType.IsBuy() {
		orderID, err = e.exchange.SubmitBuy(ctx, order.Symbol, units, marked)
	} else {
		orderID, err = e.exchange.SubmitSell(ctx, order.Symbol, units, marked)
	}
	if err != nil {
		e.log.WarnContext(ctx, "slice submit failed",
			logger.StringField("name", order.Name),
			logger.ErrorField(err),
		)
		e.messenger.Send(ctx, fmt.Sprintf("[%s] slice rejected: %v", order.Name, err))
		return nullFill
	}

	fill, err := e.exchange.WaitFill(ctx, orderID, order.Symbol, e.cfg.Trading.FillWaitTimeout)
	if err != nil {
		e.log.WarnContext(ctx, "fill poll failed",
			logger.StringField("name", order.Name),
			logger.ErrorField(err),
		)
		return nullFill
	}
	if fill == nil {
		return nullFill
	}
	fill.Type = order.OrderType
	return fill
}

// merge folds the finished parent's fills into the ledger and removes it.
// A full sell that under-filled is demoted to a retained partial sell.
func (e *TWAPExecutor) merge(ctx context.Context, order *model.Order, now time.Time) error {
	units, cost, avgUnit := order.MergeFills()

	if units == 0 {
		if err := e.orderRepo.DeleteByName(ctx, order.Name); err != nil {
			return fmt.Errorf("delete unfilled parent for %s: %w", order.Name, err)
		}
		e.messenger.Send(ctx, fmt.Sprintf("[%s] no fills: %s parent for %s discarded", order.Name, order.OrderType, order.Symbol))
		return nil
	}

	bot, err := e.botRepo.GetByName(ctx, order.Name)
	if err != nil {
		return fmt.Errorf("find bot %s: %w", order.Name, err)
	}
	if bot == nil {
		// Bot deleted mid-flight; drop the parent rather than orphan it.
		e.messenger.Send(ctx, fmt.Sprintf("[%s] parent order without bot discarded", order.Name))
		return e.orderRepo.DeleteByName(ctx, order.Name)
	}

	if order.OrderType.IsBuy() {
		return e.mergeBuy(ctx, bot, order, units, cost, now)
	}
	return e.mergeSell(ctx, bot, order, units, avgUnit, now)
}

func (e *TWAPExecutor) mergeBuy(ctx context.Context, bot *model.BotInfo, order *model.Order, units int64, cost float64, now time.Time) error {
	var trade *model.Trade
	err := e.uow.Run(func(opts ...utils.DBOption) error {
		var err error
		trade, err = e.rebalancer.RebalanceBuy(ctx, bot, units, cost, now, opts...)
		if err != nil {
			return err
		}
		return e.orderRepo.DeleteByName(ctx, order.Name, opts...)
	})
	if err != nil {
		return fmt.Errorf("merge buy for %s: %w", order.Name, err)
	}

	e.messenger.Send(ctx, fmt.Sprintf("[%s] bought %d %s, avg %.2f, position %d @ %.2f",
		bot.Name, units, bot.Symbol, cost/float64(units), trade.Amount, trade.PurchasePrice))
	return nil
}

func (e *TWAPExecutor) mergeSell(ctx context.Context, bot *model.BotInfo, order *model.Order, units int64, avgUnit float64, now time.Time) error {
	trade, err := e.tradeRepo.FindByName(ctx, order.Name)
	if err != nil {
		return fmt.Errorf("find trade for %s: %w", order.Name, err)
	}
	if trade == nil {
		e.messenger.Send(ctx, fmt.Sprintf("[%s] sell fills with no open trade discarded", order.Name))
		return e.orderRepo.DeleteByName(ctx, order.Name)
	}

	sellType := order.OrderType
	demoted := false
	if sellType.IsFullSell() && units < order.RequestedUnits() {
		sellType = model.OrderTypeSellPart
		demoted = true
	}

	closesCycle := units >= trade.Amount
	cycleStart := trade.DateAdded

	var hist *model.History
	err = e.uow.Run(func(opts ...utils.DBOption) error {
		var err error
		if closesCycle {
			hist, err = e.rebalancer.RebalanceFullSell(ctx, bot, trade, units, avgUnit, now, opts...)
		} else {
			hist, err = e.rebalancer.RebalancePartialSell(ctx, bot, trade, sellType, units, avgUnit, now, opts...)
		}
		if err != nil {
			return err
		}
		return e.orderRepo.DeleteByName(ctx, order.Name, opts...)
	})
	if err != nil {
		return fmt.Errorf("merge sell for %s: %w", order.Name, err)
	}

	if demoted {
		e.messenger.Send(ctx, fmt.Sprintf("[%s] only %d of %d units sold; trade retained with %d units",
			bot.Name, units, order.RequestedUnits(), trade.Amount))
	}
	if closesCycle {
		e.notifyCycleClose(ctx, bot, cycleStart, hist)
	} else {
		e.messenger.Send(ctx, fmt.Sprintf("[%s] sold %d %s @ %.2f, profit %.2f, %d units kept",
			bot.Name, units, bot.Symbol, hist.SellPrice, hist.Profit, trade.Amount))
	}
	return nil
}

func (e *TWAPExecutor) notifyCycleClose(ctx context.Context, bot *model.BotInfo, cycleStart time.Time, last *model.History) {
	rows, err := e.historyRepo.ListByCycle(ctx, bot.Name, cycleStart)
	if err != nil {
		e.log.WarnContext(ctx, "cycle summary unavailable",
			logger.StringField("name", bot.Name),
			logger.ErrorField(err),
		)
		rows = []model.History{*last}
	}

	var b strings.Builder
	total := 0.0
	fmt.Fprintf(&b, "[%s] cycle closed on %s\n", bot.Name, bot.Symbol)
	for _, h := range rows {
		total += h.Profit
		fmt.Fprintf(&b, "%s %s %d @ %.2f → %.2f (%.2f)\n",
			h.TradeDate.Format("01/02"), h.TradeType, h.Amount, h.BuyPrice, h.SellPrice, h.Profit)
	}
	fmt.Fprintf(&b, "cycle profit: %.2f", total)
	e.messenger.Send(ctx, b.String())
}
