package engine

import (
	"context"
	"fmt"
	"sort"

	"egg-trading/internal/exchange"
	"egg-trading/internal/model"
	"egg-trading/internal/repository"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/utils"
)

// NettingPair is one internal cancellation of opposing parents: amount units
// netted at the marked price, no wire order involved.
type NettingPair struct {
	BuyName  string
	SellName string
	Amount   int64
	Price    float64
}

// Netting cancels offsetting buy/sell parents on the same symbol before any
// wire orders go out. It is side-effect-free on the exchange: only the order
// book is reshaped. No internal fill is synthesized for the netted quantity,
// so no realized P&L attaches until real fills occur.
type Netting struct {
	orderRepo repository.OrderRepository
	uow       repository.UnitOfWork
	exchange  exchange.Exchange
	log       *logger.Logger
}

func NewNetting(orderRepo repository.OrderRepository, uow repository.UnitOfWork, ex exchange.Exchange, log *logger.Logger) *Netting {
	return &Netting{
		orderRepo: orderRepo,
		uow:       uow,
		exchange:  ex,
		log:       log,
	}
}

// Run nets every symbol group with at least one buy and one sell parent.
// Price-fetch failures skip the group; they do not fail the pass.
func (n *Netting) Run(ctx context.Context) error {
	orders, err := n.orderRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list open orders: %w", err)
	}

	groups := map[string][]model.Order{}
	symbols := []string{}
	for _, o := range orders {
		if _, ok := groups[o.Symbol]; !ok {
			symbols = append(symbols, o.Symbol)
		}
		groups[o.Symbol] = append(groups[o.Symbol], o)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		var buys, sells []model.Order
		for _, o := range groups[sym] {
			if o.OrderType.IsBuy() {
				buys = append(buys, o)
			} else {
				sells = append(sells, o)
			}
		}
		if len(buys) == 0 || len(sells) == 0 {
			continue
		}

		price, err := n.exchange.Price(ctx, sym)
		if err != nil || price <= 0 {
			n.log.WarnContext(ctx, "netting skipped symbol, no price",
				logger.StringField("symbol", sym),
				logger.ErrorField(err),
			)
			continue
		}

		pairs := BuildNettingPairs(buys, sells, price)
		if len(pairs) == 0 {
			continue
		}
		if err := n.apply(ctx, buys, sells, pairs, price); err != nil {
			return fmt.Errorf("apply netting for %s: %w", sym, err)
		}

		for _, p := range pairs {
			n.log.InfoContext(ctx, "netted opposing parents",
				logger.StringField("symbol", sym),
				logger.StringField("buy", p.BuyName),
				logger.StringField("sell", p.SellName),
				logger.Int64Field("amount", p.Amount),
				logger.FloatField("price", p.Price),
			)
		}
	}
	return nil
}

// BuildNettingPairs greedily pairs buy and sell parents of one symbol at the
// given price. Deterministic: the largest pairable quantity wins each round,
// ties broken by larger buy remainder, then by name.
func BuildNettingPairs(buys, sells []model.Order, price float64) []NettingPair {
	if price <= 0 {
		return nil
	}

	type side struct {
		name   string
		units  int64
		remain float64
	}

	bs := make([]side, 0, len(buys))
	for _, b := range buys {
		bs = append(bs, side{name: b.Name, units: utils.FloorDiv(b.RemainValue, price), remain: b.RemainValue})
	}
	ss := make([]side, 0, len(sells))
	for _, s := range sells {
		ss = append(ss, side{name: s.Name, units: int64(s.RemainValue), remain: s.RemainValue})
	}

	// Pre-sorting encodes the tie-break: larger buy remainder first, then
	// name. The scan below then only needs a strict max.
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].remain != bs[j].remain {
			return bs[i].remain > bs[j].remain
		}
		return bs[i].name < bs[j].name
	})
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].units != ss[j].units {
			return ss[i].units > ss[j].units
		}
		return ss[i].name < ss[j].name
	})

	var pairs []NettingPair
	for {
		bi, si := -1, -1
		var best int64
		for i := range bs {
			for j := range ss {
				m := bs[i].units
				if ss[j].units < m {
					m = ss[j].units
				}
				if m > best {
					best, bi, si = m, i, j
				}
			}
		}
		if bi < 0 {
			break
		}
		pairs = append(pairs, NettingPair{
			BuyName:  bs[bi].name,
			SellName: ss[si].name,
			Amount:   best,
			Price:    price,
		})
		bs[bi].units -= best
		ss[si].units -= best
	}
	return pairs
}

// apply persists one symbol group's pairs in a single transaction: buy
// parents lose amount x price dollars, sell parents lose amount units, and
// exhausted parents are deleted.
func (n *Netting) apply(ctx context.Context, buys, sells []model.Order, pairs []NettingPair, price float64) error {
	byName := map[string]*model.Order{}
	for i := range buys {
		byName[buys[i].Name] = &buys[i]
	}
	for i := range sells {
		byName[sells[i].Name] = &sells[i]
	}

	for _, p := range pairs {
		byName[p.BuyName].RemainValue = utils.Round2(byName[p.BuyName].RemainValue - float64(p.Amount)*price)
		byName[p.SellName].RemainValue -= float64(p.Amount)
	}

	return n.uow.Run(func(opts ...utils.DBOption) error {
		for _, o := range byName {
			if o.RemainValue <= 0 {
				if err := n.orderRepo.DeleteByName(ctx, o.Name, opts...); err != nil {
					return err
				}
				continue
			}
			if err := n.orderRepo.Upsert(ctx, o, opts...); err != nil {
				return err
			}
		}
		return nil
	})
}
