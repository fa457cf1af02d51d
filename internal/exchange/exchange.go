package exchange

import (
	"context"
	"time"

	"egg-trading/internal/model"
)

// Exchange is the brokerage gateway. All operations are synchronous and may
// fail; failures are non-fatal to the scheduler.
type Exchange interface {
	// Price returns the last trade price for the symbol.
	Price(ctx context.Context, symbol string) (float64, error)
	// PrevClose returns the previous session's close.
	PrevClose(ctx context.Context, symbol string) (float64, error)
	// AvailableBalance returns settled cash in the account currency.
	AvailableBalance(ctx context.Context) (float64, error)
	SubmitBuy(ctx context.Context, symbol string, qty int64, px float64) (orderID string, err error)
	SubmitSell(ctx context.Context, symbol string, qty int64, px float64) (orderID string, err error)
	// WaitFill polls the order until it fills or the deadline passes. A nil
	// fill with nil error is a null fill: the wire order never executed.
	WaitFill(ctx context.Context, orderID, symbol string, deadline time.Duration) (*model.Fill, error)
}
