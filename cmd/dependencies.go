package cmd

import (
	"context"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"egg-trading/config"
	"egg-trading/internal/exchange"
	"egg-trading/pkg/cache"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/marketclock"
	"egg-trading/pkg/postgres"
	"egg-trading/pkg/telegram"
)

type AppDependency struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *postgres.DB
	validator *goValidator.Validate
	echo      *echo.Echo
	cache     cache.Cache
	clock     marketclock.Clock
	exchange  exchange.Exchange
	messenger telegram.Messenger
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg, log)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return nil, err
	}

	clock, err := marketclock.New(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, err
	}

	// IS_TEST swaps the paper wiring in: deterministic exchange, silent
	// messenger. Everything else runs the production path.
	var (
		ex        exchange.Exchange
		messenger telegram.Messenger
	)
	if cfg.App.IsTest {
		ex = exchange.NewFixture()
		messenger = telegram.NewNoop(log)
	} else {
		ex = exchange.NewAlpaca(cfg, log)
		messenger, err = telegram.New(&cfg.Telegram, log)
		if err != nil {
			log.Error("Failed to create telegram messenger", zap.Error(err))
			return nil, err
		}
	}

	return &AppDependency{
		cfg:       cfg,
		log:       log,
		db:        db,
		validator: goValidator.New(),
		echo:      echo.New(),
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
		clock:     clock,
		exchange:  ex,
		messenger: messenger,
	}, nil
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
