package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"egg-trading/internal/exchange"
	"egg-trading/internal/model"
	"egg-trading/internal/repository"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/marketclock"
	"egg-trading/pkg/telegram"
	"egg-trading/pkg/utils"
)

// DynamicSeed rescales bot seeds once per trading day, before decisions run.
// Bots are visited in ascending seed order so the smaller sibling on a symbol
// gets priority; at most one bot per symbol is bumped per day.
type DynamicSeed struct {
	botRepo   repository.BotRepository
	tradeRepo repository.TradeRepository
	exchange  exchange.Exchange
	messenger telegram.Messenger
	log       *logger.Logger
}

func NewDynamicSeed(botRepo repository.BotRepository, tradeRepo repository.TradeRepository, ex exchange.Exchange, messenger telegram.Messenger, log *logger.Logger) *DynamicSeed {
	return &DynamicSeed{
		botRepo:   botRepo,
		tradeRepo: tradeRepo,
		exchange:  ex,
		messenger: messenger,
		log:       log,
	}
}

// Run applies the daily pass over the given active bots. Rerunning on the
// same trading day is a no-op: bumps are stamped with the day they happened
// on, and a stamped symbol stays settled until the next day.
func (d *DynamicSeed) Run(ctx context.Context, bots []model.BotInfo, today time.Time) error {
	processed := map[string]bool{}
	candidates := make([]model.BotInfo, 0, len(bots))
	for _, b := range bots {
		if marketclock.SameDay(b.LastDynamicBump, today) {
			processed[b.Symbol] = true
			continue
		}
		if b.DynamicSeedEnabled && b.Seed < b.DynamicSeedMax {
			candidates = append(candidates, b)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Seed != candidates[j].Seed {
			return candidates[i].Seed < candidates[j].Seed
		}
		return candidates[i].Name < candidates[j].Name
	})

	for i := range candidates {
		bot := &candidates[i]
		if processed[bot.Symbol] {
			continue
		}

		triggered, err := d.evaluate(ctx, bot, today)
		if err != nil {
			d.log.WarnContext(ctx, "dynamic seed evaluation failed",
				logger.StringField("name", bot.Name),
				logger.ErrorField(err),
			)
			continue
		}
		if triggered {
			processed[bot.Symbol] = true
		}
	}
	return nil
}

func (d *DynamicSeed) evaluate(ctx context.Context, bot *model.BotInfo, today time.Time) (bool, error) {
	price, err := d.exchange.Price(ctx, bot.Symbol)
	if err != nil || price <= 0 {
		return false, fmt.Errorf("price for %s: %w", bot.Symbol, err)
	}
	prevClose, err := d.exchange.PrevClose(ctx, bot.Symbol)
	if err != nil || prevClose <= 0 {
		return false, fmt.Errorf("prev close for %s: %w", bot.Symbol, err)
	}

	invested, err := d.tradeRepo.TotalInvestment(ctx, bot.Name)
	if err != nil {
		return false, fmt.Errorf("total investment for %s: %w", bot.Name, err)
	}

	drop := (prevClose - price) / prevClose
	t := invested / bot.Seed
	tThreshold := float64(bot.MaxTier) * bot.DynamicSeedTThreshold

	if t < tThreshold && drop < bot.DynamicSeedDropRate {
		return false, nil
	}

	newSeed := utils.Round2(bot.Seed * (1 + bot.DynamicSeedMultiplier))
	if newSeed > bot.DynamicSeedMax {
		newSeed = bot.DynamicSeedMax
	}
	if newSeed > bot.Seed {
		if err := d.botRepo.BumpSeed(ctx, bot.Name, newSeed, today); err != nil {
			return false, fmt.Errorf("update seed for %s: %w", bot.Name, err)
		}
		d.messenger.Send(ctx, fmt.Sprintf("[%s] dynamic seed %.2f → %.2f (T=%.2f, drop=%.2f%%)",
			bot.Name, bot.Seed, newSeed, t, drop*100))
		d.log.InfoContext(ctx, "dynamic seed bumped",
			logger.StringField("name", bot.Name),
			logger.FloatField("old_seed", bot.Seed),
			logger.FloatField("new_seed", newSeed),
		)
		bot.Seed = newSeed
	}
	return true, nil
}
