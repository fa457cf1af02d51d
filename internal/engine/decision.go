package engine

import (
	"egg-trading/internal/model"
)

// DecideInput is everything the daily decision depends on. The engine itself
// performs no I/O; the caller resolves prices, balances and the sold-today
// flag up front.
type DecideInput struct {
	Bot       model.BotInfo
	Trade     *model.Trade // nil when no cycle is open
	Price     float64
	PrevClose float64
	// SoldToday is true when today's history already contains a sell for
	// this bot, or a sell parent dated today exists.
	SoldToday bool
	Balance   float64
	// DropStep is the big-drop step for the bot's symbol, in percent.
	DropStep float64
	// SmallProfitMin suppresses sells whose positive realized profit would
	// fall below it.
	SmallProfitMin float64
}

// Decide evaluates one bot's daily action. Pure: equal inputs yield equal
// outputs.
func Decide(in DecideInput) model.Decision {
	if in.Price <= 0 || in.PrevClose <= 0 {
		return model.Decision{Kind: model.DecisionHold, Reason: "no usable price"}
	}

	if !in.Bot.SkipSell {
		if d, done := decideSell(in); done {
			return d
		}
	}
	return decideBuy(in)
}

// decideSell runs the sell arm. done is false when the evaluation falls
// through to the buy arm.
func decideSell(in DecideInput) (model.Decision, bool) {
	trade := in.Trade
	if trade == nil || trade.Amount == 0 {
		return model.Decision{}, false
	}

	bot := in.Bot
	avg := trade.PurchasePrice
	t := trade.TierProgress(bot.Seed)

	// Stop-loss override: a ladder one tier from full is closed out at any
	// price.
	if t >= float64(bot.MaxTier-1) {
		return model.Decision{
			Kind:   model.DecisionSellFull,
			Qty:    trade.Amount,
			Reason: "stop-loss override",
		}, true
	}

	point := PointFn(bot.TDiv, bot.MaxTier, t, bot.PointLoc)
	pointPrice := avg * (1 + point)
	profitPrice := avg * (1 + bot.ProfitRate)

	aboveProfit := in.Price > profitPrice
	abovePoint := in.Price > pointPrice

	var d model.Decision
	switch {
	case aboveProfit && abovePoint:
		d = model.Decision{Kind: model.DecisionSellFull, Qty: trade.Amount, Reason: "profit and point targets hit"}
	case aboveProfit:
		d = model.Decision{Kind: model.DecisionSell34, Qty: 3 * trade.Amount / 4, Reason: "profit target hit"}
	case abovePoint:
		d = model.Decision{Kind: model.DecisionSell14, Qty: trade.Amount / 4, Reason: "point target hit"}
	default:
		return model.Decision{}, false
	}

	if d.Qty <= 0 {
		return model.Decision{}, false
	}

	// Small-profit skip: a positive gain below the threshold is not worth
	// burning the sell-day buy gate on.
	profit := (in.Price - avg) * float64(d.Qty)
	if profit > 0 && profit < in.SmallProfitMin {
		return model.Decision{}, false
	}

	return d, true
}

func decideBuy(in DecideInput) model.Decision {
	bot := in.Bot
	trade := in.Trade

	if in.SoldToday {
		return model.Decision{Kind: model.DecisionHold, Reason: "sold today"}
	}
	if trade != nil && trade.TotalPrice > bot.MaxInvestment()-bot.Seed {
		return model.Decision{Kind: model.DecisionHold, Reason: "max investment reached"}
	}

	// First buy of a cycle (skip-sell bots re-enter with the base seed).
	if trade == nil || trade.Amount == 0 || bot.SkipSell {
		return buyWithBalance(in, bot.Seed+bot.AddedSeed, "first buy of cycle")
	}

	avg := trade.PurchasePrice
	t := trade.TierProgress(bot.Seed)
	point := PointFn(bot.TDiv, bot.MaxTier, t, bot.PointLoc)
	pointPrice := avg * (1 + point)

	enabled, sat := 0, 0
	if bot.CheckBuyAvgPrice {
		enabled++
		if in.Price < avg {
			sat++
		}
	}
	if bot.CheckBuyTDivPrice {
		enabled++
		if in.Price < pointPrice {
			sat++
		}
	}
	if enabled == 0 || sat == 0 {
		return model.Decision{Kind: model.DecisionHold, Reason: "no buy condition met"}
	}

	seed := bot.Seed
	if t < float64(bot.MaxTier)*2.0/3.0 {
		seed *= BigDropMultiplier(in.PrevClose, in.Price, in.DropStep)
	}
	seed += bot.AddedSeed

	return buyWithBalance(in, seed*float64(sat)/float64(enabled), "buy condition met")
}

func buyWithBalance(in DecideInput, amount float64, reason string) model.Decision {
	if amount > in.Balance {
		return model.Decision{Kind: model.DecisionHold, InsufficientBalance: true, Reason: "insufficient balance"}
	}
	return model.Decision{Kind: model.DecisionBuy, Seed: amount, Reason: reason}
}

// PointFn derives the fractional sell target above average cost from the tier
// ladder: the band fraction of the point location scaled by T^2 over the tier
// subdivisions. Monotone increasing in T, zero at an empty ladder.
func PointFn(tDiv, maxTier int, t float64, loc model.PointLoc) float64 {
	if tDiv <= 0 {
		return 0
	}
	if t < 0 {
		t = 0
	}
	if maxTier > 0 && t > float64(maxTier) {
		t = float64(maxTier)
	}
	return loc.Fraction() * t * t / float64(tDiv)
}

// BigDropMultiplier amplifies the buy seed on a prior-close drawdown. step is
// the per-symbol drop interval in percent.
func BigDropMultiplier(prevClose, price, step float64) float64 {
	if prevClose <= 0 || step <= 0 {
		return 1.0
	}
	r := (prevClose - price) / prevClose * 100
	switch {
	case r >= 3*step:
		return 1.50
	case r >= 2*step:
		return 1.40
	case r >= step:
		return 1.30
	}
	return 1.0
}
