package engine

import (
	"context"
	"fmt"
	"sort"

	"egg-trading/internal/model"
	"egg-trading/internal/repository"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/telegram"
)

// AutoActivation ramps capital into a symbol: once the least-invested active
// sibling has climbed halfway up its ladder, the next inactive bot for the
// symbol is switched on.
type AutoActivation struct {
	botRepo   repository.BotRepository
	tradeRepo repository.TradeRepository
	messenger telegram.Messenger
	log       *logger.Logger
}

func NewAutoActivation(botRepo repository.BotRepository, tradeRepo repository.TradeRepository, messenger telegram.Messenger, log *logger.Logger) *AutoActivation {
	return &AutoActivation{
		botRepo:   botRepo,
		tradeRepo: tradeRepo,
		messenger: messenger,
		log:       log,
	}
}

func (a *AutoActivation) Run(ctx context.Context) error {
	bots, err := a.botRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("list bots: %w", err)
	}

	bySymbol := map[string][]model.BotInfo{}
	symbols := []string{}
	for _, b := range bots {
		if _, ok := bySymbol[b.Symbol]; !ok {
			symbols = append(symbols, b.Symbol)
		}
		bySymbol[b.Symbol] = append(bySymbol[b.Symbol], b)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		if err := a.activateSymbol(ctx, sym, bySymbol[sym]); err != nil {
			a.log.WarnContext(ctx, "auto activation failed",
				logger.StringField("symbol", sym),
				logger.ErrorField(err),
			)
		}
	}
	return nil
}

func (a *AutoActivation) activateSymbol(ctx context.Context, symbol string, siblings []model.BotInfo) error {
	var lowest *model.BotInfo
	lowestT := 0.0
	hasActive := false
	for i := range siblings {
		b := &siblings[i]
		if !b.Active {
			continue
		}
		t, err := a.tierProgress(ctx, b)
		if err != nil {
			return err
		}
		if !hasActive || t < lowestT {
			lowest, lowestT = b, t
			hasActive = true
		}
	}
	if !hasActive {
		return nil
	}
	if lowestT < float64(lowest.MaxTier)/2 {
		return nil
	}

	// Next inactive sibling by configured priority.
	sort.SliceStable(siblings, func(i, j int) bool {
		if siblings[i].Priority != siblings[j].Priority {
			return siblings[i].Priority < siblings[j].Priority
		}
		return siblings[i].Name < siblings[j].Name
	})
	for i := range siblings {
		b := &siblings[i]
		if b.Active {
			continue
		}
		if err := a.botRepo.SetActive(ctx, b.Name, true); err != nil {
			return fmt.Errorf("activate %s: %w", b.Name, err)
		}
		a.messenger.Send(ctx, fmt.Sprintf("[%s] activated on %s (sibling %s at T=%.2f)",
			b.Name, symbol, lowest.Name, lowestT))
		a.log.InfoContext(ctx, "bot auto-activated",
			logger.StringField("name", b.Name),
			logger.StringField("symbol", symbol),
		)
		return nil
	}
	return nil
}

func (a *AutoActivation) tierProgress(ctx context.Context, bot *model.BotInfo) (float64, error) {
	invested, err := a.tradeRepo.TotalInvestment(ctx, bot.Name)
	if err != nil {
		return 0, err
	}
	if bot.Seed <= 0 {
		return 0, nil
	}
	return invested / bot.Seed, nil
}
