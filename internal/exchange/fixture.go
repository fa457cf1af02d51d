package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"egg-trading/internal/model"
	"egg-trading/pkg/utils"
)

// fixtureExchange is the deterministic Exchange substituted when app.is_test
// is set: every submitted order fills completely at its limit price.
type fixtureExchange struct {
	mu        sync.Mutex
	prices    map[string]float64
	prevClose map[string]float64
	balance   float64
	orders    map[string]fixtureOrder
	nextID    int
}

type fixtureOrder struct {
	symbol string
	side   model.OrderType
	qty    int64
	px     float64
}

// NewFixture returns a fixture exchange with a flat $100 tape and a large
// cash balance.
func NewFixture() *fixtureExchange {
	return &fixtureExchange{
		prices:    map[string]float64{},
		prevClose: map[string]float64{},
		balance:   1_000_000,
		orders:    map[string]fixtureOrder{},
	}
}

// SetPrice pins the current price for a symbol.
func (e *fixtureExchange) SetPrice(symbol string, px float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prices[symbol] = px
}

// SetPrevClose pins the previous close for a symbol.
func (e *fixtureExchange) SetPrevClose(symbol string, px float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prevClose[symbol] = px
}

// SetBalance pins the available cash balance.
func (e *fixtureExchange) SetBalance(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.balance = v
}

func (e *fixtureExchange) Price(ctx context.Context, symbol string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if px, ok := e.prices[symbol]; ok {
		return px, nil
	}
	return 100, nil
}

func (e *fixtureExchange) PrevClose(ctx context.Context, symbol string) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if px, ok := e.prevClose[symbol]; ok {
		return px, nil
	}
	return 100, nil
}

func (e *fixtureExchange) AvailableBalance(ctx context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance, nil
}

func (e *fixtureExchange) SubmitBuy(ctx context.Context, symbol string, qty int64, px float64) (string, error) {
	return e.submit(symbol, model.OrderTypeBuy, qty, px)
}

func (e *fixtureExchange) SubmitSell(ctx context.Context, symbol string, qty int64, px float64) (string, error) {
	return e.submit(symbol, model.OrderTypeSell, qty, px)
}

func (e *fixtureExchange) submit(symbol string, side model.OrderType, qty int64, px float64) (string, error) {
	if qty <= 0 {
		return "", fmt.Errorf("invalid quantity %d for %s", qty, symbol)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := fmt.Sprintf("fixture-%d", e.nextID)
	e.orders[id] = fixtureOrder{symbol: symbol, side: side, qty: qty, px: px}
	return id, nil
}

func (e *fixtureExchange) WaitFill(ctx context.Context, orderID, symbol string, deadline time.Duration) (*model.Fill, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	order, ok := e.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("unknown order %s", orderID)
	}
	delete(e.orders, orderID)
	px := utils.Round2(order.px)
	return &model.Fill{
		Type:       order.side,
		Amount:     order.qty,
		UnitPrice:  px,
		TotalPrice: utils.Round2(px * float64(order.qty)),
	}, nil
}
