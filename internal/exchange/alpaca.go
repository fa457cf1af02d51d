package exchange

import (
	"context"
	"fmt"
	"time"

	"egg-trading/config"
	"egg-trading/internal/model"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/utils"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

type alpacaExchange struct {
	trading   *alpaca.Client
	data      *marketdata.Client
	feed      marketdata.Feed
	pollEvery time.Duration
	log       *logger.Logger
}

// NewAlpaca builds the live Exchange over the Alpaca trading and market data
// APIs.
func NewAlpaca(cfg *config.Config, log *logger.Logger) Exchange {
	trading := alpaca.NewClient(alpaca.ClientOpts{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		BaseURL:   cfg.Exchange.BaseURL,
	})
	data := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
	})

	feed := marketdata.IEX
	if cfg.Exchange.Feed != "" {
		feed = marketdata.Feed(cfg.Exchange.Feed)
	}

	return &alpacaExchange{
		trading:   trading,
		data:      data,
		feed:      feed,
		pollEvery: cfg.Trading.FillPollEvery,
		log:       log,
	}
}

func (e *alpacaExchange) Price(ctx context.Context, symbol string) (float64, error) {
	trade, err := e.data.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{Feed: e.feed})
	if err != nil {
		return 0, fmt.Errorf("latest trade for %s: %w", symbol, err)
	}
	if trade.Price <= 0 {
		return 0, fmt.Errorf("no usable price for %s", symbol)
	}
	return trade.Price, nil
}

func (e *alpacaExchange) PrevClose(ctx context.Context, symbol string) (float64, error) {
	end := time.Now()
	bars, err := e.data.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     end.AddDate(0, 0, -7),
		End:       end,
		Feed:      e.feed,
	})
	if err != nil {
		return 0, fmt.Errorf("daily bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no daily bars for %s", symbol)
	}

	// The last bar may belong to the current session; the previous close is
	// the newest bar dated before today.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].Timestamp.Before(today) {
			return bars[i].Close, nil
		}
	}
	return bars[len(bars)-1].Close, nil
}

func (e *alpacaExchange) AvailableBalance(ctx context.Context) (float64, error) {
	account, err := e.trading.GetAccount()
	if err != nil {
		return 0, fmt.Errorf("get account: %w", err)
	}
	cash, _ := account.Cash.Float64()
	return cash, nil
}

func (e *alpacaExchange) SubmitBuy(ctx context.Context, symbol string, qty int64, px float64) (string, error) {
	return e.submit(ctx, symbol, alpaca.Buy, qty, px)
}

func (e *alpacaExchange) SubmitSell(ctx context.Context, symbol string, qty int64, px float64) (string, error) {
	return e.submit(ctx, symbol, alpaca.Sell, qty, px)
}

func (e *alpacaExchange) submit(ctx context.Context, symbol string, side alpaca.Side, qty int64, px float64) (string, error) {
	quantity := decimal.NewFromInt(qty)
	limit := decimal.NewFromFloat(utils.Round2(px))

	order, err := e.trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      symbol,
		Qty:         &quantity,
		Side:        side,
		Type:        alpaca.Limit,
		TimeInForce: alpaca.Day,
		LimitPrice:  &limit,
	})
	if err != nil {
		return "", fmt.Errorf("place %s order for %s: %w", side, symbol, err)
	}

	e.log.Info("submitted order",
		logger.StringField("symbol", symbol),
		logger.StringField("side", string(side)),
		logger.Int64Field("qty", qty),
		logger.FloatField("limit", utils.Round2(px)),
		logger.StringField("order_id", order.ID),
	)
	return order.ID, nil
}

func (e *alpacaExchange) WaitFill(ctx context.Context, orderID, symbol string, deadline time.Duration) (*model.Fill, error) {
	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(e.pollEvery)
	defer ticker.Stop()

	for {
		order, err := e.trading.GetOrder(orderID)
		if err != nil {
			e.log.Warn("poll order failed",
				logger.StringField("order_id", orderID),
				logger.ErrorField(err),
			)
		} else if order.Status == "filled" {
			return fillFromOrder(order), nil
		} else if order.Status == "canceled" || order.Status == "rejected" || order.Status == "expired" {
			return fillFromOrder(order), nil
		}

		select {
		case <-waitCtx.Done():
			// Deadline: cancel the remainder and take whatever executed.
			if err := e.trading.CancelOrder(orderID); err != nil {
				e.log.Warn("cancel order failed",
					logger.StringField("order_id", orderID),
					logger.ErrorField(err),
				)
			}
			order, err := e.trading.GetOrder(orderID)
			if err != nil {
				return nil, nil
			}
			return fillFromOrder(order), nil
		case <-ticker.C:
		}
	}
}

func fillFromOrder(order *alpaca.Order) *model.Fill {
	if order == nil {
		return nil
	}
	filled, _ := order.FilledQty.Float64()
	if filled <= 0 {
		return nil
	}
	avg := 0.0
	if order.FilledAvgPrice != nil {
		avg, _ = order.FilledAvgPrice.Float64()
	}
	units := int64(filled)
	fillType := model.OrderTypeBuy
	if order.Side == alpaca.Sell {
		fillType = model.OrderTypeSell
	}
	return &model.Fill{
		Type:       fillType,
		Amount:     units,
		UnitPrice:  utils.Round2(avg),
		TotalPrice: utils.Round2(avg * float64(units)),
	}
}
