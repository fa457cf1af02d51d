package engine

import (
	"context"
	"sort"
	"time"

	"egg-trading/internal/model"
	"egg-trading/pkg/marketclock"
	"egg-trading/pkg/utils"
)

// In-memory repository fakes. They mirror the SQL semantics the real
// repositories carry, including the zero clamp on added_seed.

type fakeBotRepo struct {
	bots map[string]*model.BotInfo
}

func newFakeBotRepo(bots ...model.BotInfo) *fakeBotRepo {
	r := &fakeBotRepo{bots: map[string]*model.BotInfo{}}
	for i := range bots {
		b := bots[i]
		r.bots[b.Name] = &b
	}
	return r
}

func (r *fakeBotRepo) sorted() []model.BotInfo {
	names := make([]string, 0, len(r.bots))
	for n := range r.bots {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]model.BotInfo, 0, len(names))
	for _, n := range names {
		out = append(out, *r.bots[n])
	}
	return out
}

func (r *fakeBotRepo) GetAll(ctx context.Context) ([]model.BotInfo, error) {
	return r.sorted(), nil
}

func (r *fakeBotRepo) GetActive(ctx context.Context) ([]model.BotInfo, error) {
	var out []model.BotInfo
	for _, b := range r.sorted() {
		if b.Active {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBotRepo) GetByName(ctx context.Context, name string) (*model.BotInfo, error) {
	if b, ok := r.bots[name]; ok {
		c := *b
		return &c, nil
	}
	return nil, nil
}

func (r *fakeBotRepo) GetBySymbol(ctx context.Context, symbol string) ([]model.BotInfo, error) {
	var out []model.BotInfo
	for _, b := range r.sorted() {
		if b.Symbol == symbol {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *fakeBotRepo) Create(ctx context.Context, bot *model.BotInfo, opts ...utils.DBOption) error {
	c := *bot
	r.bots[bot.Name] = &c
	return nil
}

func (r *fakeBotRepo) Update(ctx context.Context, bot *model.BotInfo, opts ...utils.DBOption) error {
	return r.Create(ctx, bot)
}

func (r *fakeBotRepo) Delete(ctx context.Context, name string, opts ...utils.DBOption) error {
	delete(r.bots, name)
	return nil
}

func (r *fakeBotRepo) SetActive(ctx context.Context, name string, active bool, opts ...utils.DBOption) error {
	if b, ok := r.bots[name]; ok {
		b.Active = active
	}
	return nil
}

func (r *fakeBotRepo) BumpSeed(ctx context.Context, name string, seed float64, day time.Time, opts ...utils.DBOption) error {
	if b, ok := r.bots[name]; ok {
		b.Seed = seed
		b.LastDynamicBump = day
	}
	return nil
}

func (r *fakeBotRepo) AddRealizedProfit(ctx context.Context, name string, delta float64, opts ...utils.DBOption) error {
	if b, ok := r.bots[name]; ok {
		b.AddedSeed += delta
		if b.AddedSeed < 0 {
			b.AddedSeed = 0
		}
	}
	return nil
}

func (r *fakeBotRepo) ResetAddedSeed(ctx context.Context, name string, opts ...utils.DBOption) error {
	if b, ok := r.bots[name]; ok {
		b.AddedSeed = 0
	}
	return nil
}

type fakeTradeRepo struct {
	trades map[string]*model.Trade
}

func newFakeTradeRepo(trades ...model.Trade) *fakeTradeRepo {
	r := &fakeTradeRepo{trades: map[string]*model.Trade{}}
	for i := range trades {
		t := trades[i]
		r.trades[t.Name] = &t
	}
	return r
}

func (r *fakeTradeRepo) FindByName(ctx context.Context, name string, opts ...utils.DBOption) (*model.Trade, error) {
	if t, ok := r.trades[name]; ok {
		c := *t
		return &c, nil
	}
	return nil, nil
}

func (r *fakeTradeRepo) FindBySymbol(ctx context.Context, symbol string) ([]model.Trade, error) {
	var out []model.Trade
	for _, t := range r.trades {
		if t.Symbol == symbol {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeTradeRepo) Upsert(ctx context.Context, trade *model.Trade, opts ...utils.DBOption) error {
	c := *trade
	r.trades[trade.Name] = &c
	return nil
}

func (r *fakeTradeRepo) Delete(ctx context.Context, name string, opts ...utils.DBOption) error {
	delete(r.trades, name)
	return nil
}

func (r *fakeTradeRepo) TotalInvestment(ctx context.Context, name string) (float64, error) {
	if t, ok := r.trades[name]; ok {
		return t.TotalPrice, nil
	}
	return 0, nil
}

func (r *fakeTradeRepo) AveragePurchasePrice(ctx context.Context, name string) (float64, error) {
	if t, ok := r.trades[name]; ok {
		return t.PurchasePrice, nil
	}
	return 0, nil
}

func (r *fakeTradeRepo) TotalAmount(ctx context.Context, name string) (int64, error) {
	if t, ok := r.trades[name]; ok {
		return t.Amount, nil
	}
	return 0, nil
}

type fakeHistoryRepo struct {
	rows []model.History
}

func (r *fakeHistoryRepo) Insert(ctx context.Context, h *model.History, opts ...utils.DBOption) error {
	r.rows = append(r.rows, *h)
	return nil
}

func (r *fakeHistoryRepo) HasSellToday(ctx context.Context, name string, day time.Time) (bool, error) {
	for _, h := range r.rows {
		if h.Name == name && marketclock.SameDay(h.TradeDate, day) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeHistoryRepo) ListByCycle(ctx context.Context, name string, dateAdded time.Time) ([]model.History, error) {
	var out []model.History
	for _, h := range r.rows {
		if h.Name == name && h.DateAdded.Equal(dateAdded) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeHistoryRepo) TotalSellProfit(ctx context.Context, name string, day time.Time) (float64, error) {
	total := 0.0
	for _, h := range r.rows {
		if h.Name == name && marketclock.SameDay(h.TradeDate, day) {
			total += h.Profit
		}
	}
	return total, nil
}

func (r *fakeHistoryRepo) ListRange(ctx context.Context, from, to time.Time) ([]model.History, error) {
	var out []model.History
	for _, h := range r.rows {
		if !h.TradeDate.Before(from) && !h.TradeDate.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

type fakeOrderRepo struct {
	orders map[string]*model.Order
}

func newFakeOrderRepo(orders ...model.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: map[string]*model.Order{}}
	for i := range orders {
		o := orders[i]
		r.orders[o.Name] = &o
	}
	return r
}

func (r *fakeOrderRepo) FindByName(ctx context.Context, name string, opts ...utils.DBOption) (*model.Order, error) {
	if o, ok := r.orders[name]; ok {
		c := *o
		return &c, nil
	}
	return nil, nil
}

func (r *fakeOrderRepo) ListAll(ctx context.Context) ([]model.Order, error) {
	names := make([]string, 0, len(r.orders))
	for n := range r.orders {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]model.Order, 0, len(names))
	for _, n := range names {
		out = append(out, *r.orders[n])
	}
	return out, nil
}

func (r *fakeOrderRepo) ListBySymbol(ctx context.Context, symbol string) ([]model.Order, error) {
	all, _ := r.ListAll(ctx)
	var out []model.Order
	for _, o := range all {
		if o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListStale(ctx context.Context, before time.Time) ([]model.Order, error) {
	all, _ := r.ListAll(ctx)
	var out []model.Order
	for _, o := range all {
		if o.DateAdded.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Upsert(ctx context.Context, order *model.Order, opts ...utils.DBOption) error {
	c := *order
	r.orders[order.Name] = &c
	return nil
}

func (r *fakeOrderRepo) DeleteByName(ctx context.Context, name string, opts ...utils.DBOption) error {
	delete(r.orders, name)
	return nil
}

func (r *fakeOrderRepo) DeleteMany(ctx context.Context, names []string, opts ...utils.DBOption) error {
	for _, n := range names {
		delete(r.orders, n)
	}
	return nil
}

func (r *fakeOrderRepo) HasSellOrderToday(ctx context.Context, name string, day time.Time) (bool, error) {
	o, ok := r.orders[name]
	if !ok {
		return false, nil
	}
	return o.OrderType.IsSell() && marketclock.SameDay(o.DateAdded, day), nil
}

// fakeUOW runs the callback without a transaction.
type fakeUOW struct{}

func (fakeUOW) Run(fn func(opts ...utils.DBOption) error) error {
	return fn()
}

// recordingMessenger captures operator notifications for assertions.
type recordingMessenger struct {
	messages []string
}

func (m *recordingMessenger) Send(ctx context.Context, text string) {
	m.messages = append(m.messages, text)
}

func (m *recordingMessenger) SendPhoto(ctx context.Context, text, photoPath string) {
	m.messages = append(m.messages, text)
}
