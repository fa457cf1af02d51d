package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"egg-trading/config"
	"egg-trading/internal/indicator"
	"egg-trading/internal/model"
	"egg-trading/internal/repository"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/marketclock"
	"egg-trading/pkg/telegram"
)

const rsiPeriod = 14

// ReportService sends the end-of-day summary to the operator channel.
type ReportService interface {
	SendDailyReport(ctx context.Context) error
}

type reportService struct {
	cfg       *config.Config
	log       *logger.Logger
	repo      *repository.Repository
	indicator indicator.Fetcher
	messenger telegram.Messenger
	clock     marketclock.Clock
}

func NewReportService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	fetcher indicator.Fetcher,
	messenger telegram.Messenger,
	clock marketclock.Clock,
) ReportService {
	return &reportService{
		cfg:       cfg,
		log:       log,
		repo:      repo,
		indicator: fetcher,
		messenger: messenger,
		clock:     clock,
	}
}

func (r *reportService) SendDailyReport(ctx context.Context) error {
	today := r.clock.Today()

	bots, err := r.repo.BotRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("list bots: %w", err)
	}

	symbols := make(map[string]struct{})
	for _, b := range bots {
		symbols[b.Symbol] = struct{}{}
	}

	vix, rsis := r.fetchIndicators(ctx, symbols)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Daily report %s\n", today.Format("2006-01-02")))
	if vix > 0 {
		sb.WriteString(fmt.Sprintf("VIX %.2f\n", vix))
	}

	names := make([]string, 0, len(rsis))
	for s := range rsis {
		names = append(names, s)
	}
	sort.Strings(names)
	for _, s := range names {
		sb.WriteString(fmt.Sprintf("%s RSI(%d) %.1f\n", s, rsiPeriod, rsis[s]))
	}
	sb.WriteString("\n")

	for i := range bots {
		bot := &bots[i]
		line, err := r.botLine(ctx, bot, today)
		if err != nil {
			r.log.WarnContext(ctx, "report line failed",
				logger.StringField("name", bot.Name),
				logger.ErrorField(err),
			)
			line = fmt.Sprintf("%s: unavailable", bot.Name)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	r.messenger.Send(ctx, sb.String())
	return nil
}

// fetchIndicators gathers VIX and per-symbol RSI concurrently. Any failure is
// logged and leaves a gap in the report.
func (r *reportService) fetchIndicators(ctx context.Context, symbols map[string]struct{}) (float64, map[string]float64) {
	var (
		mu   sync.Mutex
		vix  float64
		rsis = make(map[string]float64)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := r.indicator.VIX(gctx)
		if err != nil {
			r.log.WarnContext(gctx, "vix fetch failed", logger.ErrorField(err))
			return nil
		}
		mu.Lock()
		vix = v
		mu.Unlock()
		return nil
	})
	for symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			v, err := r.indicator.RSI(gctx, symbol, rsiPeriod)
			if err != nil {
				r.log.WarnContext(gctx, "rsi fetch failed",
					logger.StringField("symbol", symbol),
					logger.ErrorField(err),
				)
				return nil
			}
			mu.Lock()
			rsis[symbol] = v
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return vix, rsis
}

func (r *reportService) botLine(ctx context.Context, bot *model.BotInfo, today time.Time) (string, error) {
	trade, err := r.repo.TradeRepo.FindByName(ctx, bot.Name)
	if err != nil {
		return "", fmt.Errorf("find trade: %w", err)
	}

	profit, err := r.repo.HistoryRepo.TotalSellProfit(ctx, bot.Name, today)
	if err != nil {
		return "", fmt.Errorf("today's profit: %w", err)
	}

	state := "idle"
	if !bot.Active {
		state = "inactive"
	}
	if trade == nil {
		return fmt.Sprintf("%s (%s): %s, realized today %.2f", bot.Name, bot.Symbol, state, profit), nil
	}

	// Same denominator the decision and seed passes use, so the reported T
	// matches what the engine acts on.
	t := trade.TierProgress(bot.Seed)
	return fmt.Sprintf("%s (%s): %d @ %.2f, invested %.2f, T %.2f/%d, realized today %.2f",
		bot.Name, bot.Symbol, trade.Amount, trade.PurchasePrice,
		trade.TotalPrice, t, bot.MaxTier, profit), nil
}
