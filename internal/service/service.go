package service

import (
	"egg-trading/config"
	"egg-trading/internal/engine"
	"egg-trading/internal/exchange"
	"egg-trading/internal/indicator"
	"egg-trading/internal/repository"
	"egg-trading/pkg/cache"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/marketclock"
	"egg-trading/pkg/telegram"
)

type Service struct {
	SchedulerService SchedulerService
	TradingService   TradingService
	ReportService    ReportService
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	ex exchange.Exchange,
	messenger telegram.Messenger,
	clock marketclock.Clock,
	inmemoryCache cache.Cache,
) *Service {
	fetcher := indicator.NewYahooFetcher(&cfg.Indicator, inmemoryCache, log)

	rebalancer := engine.NewRebalancer(repo.BotRepo, repo.TradeRepo, repo.HistoryRepo, log)
	netting := engine.NewNetting(repo.OrderRepo, repo.UnitOfWork, ex, log)
	twap := engine.NewTWAPExecutor(cfg, repo, ex, rebalancer, messenger, log)
	dynSeed := engine.NewDynamicSeed(repo.BotRepo, repo.TradeRepo, ex, messenger, log)
	activation := engine.NewAutoActivation(repo.BotRepo, repo.TradeRepo, messenger, log)

	reportService := NewReportService(cfg, log, repo, fetcher, messenger, clock)
	tradingService := NewTradingService(cfg, log, repo, ex, messenger, clock, inmemoryCache,
		netting, twap, dynSeed, activation, reportService)
	schedulerService := NewSchedulerService(cfg, log, tradingService, messenger, clock)

	return &Service{
		SchedulerService: schedulerService,
		TradingService:   tradingService,
		ReportService:    reportService,
	}
}
