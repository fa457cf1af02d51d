package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"egg-trading/config"
	"egg-trading/pkg/logger"
	"egg-trading/pkg/marketclock"
	"egg-trading/pkg/telegram"
)

// SchedulerService owns the cron plan for a trading day: the decision job at
// trade_time and twap_count slice ticks spread over the execution window, all
// in the market timezone.
type SchedulerService interface {
	Start(ctx context.Context) error
	Stop()
}

type schedulerService struct {
	cfg       *config.Config
	log       *logger.Logger
	trading   TradingService
	messenger telegram.Messenger
	clock     marketclock.Clock

	cron *cron.Cron
	// Jobs never overlap: a slow decision pass delays the first tick
	// instead of racing it.
	semaphore chan struct{}
}

func NewSchedulerService(
	cfg *config.Config,
	log *logger.Logger,
	trading TradingService,
	messenger telegram.Messenger,
	clock marketclock.Clock,
) SchedulerService {
	return &schedulerService{
		cfg:       cfg,
		log:       log,
		trading:   trading,
		messenger: messenger,
		clock:     clock,
		cron:      cron.New(cron.WithLocation(clock.Location())),
		semaphore: make(chan struct{}, 1),
	}
}

func (s *schedulerService) Start(ctx context.Context) error {
	tradeAt, err := marketclock.ParseTimeOfDay(s.cfg.Scheduler.TradeTime)
	if err != nil {
		return fmt.Errorf("parse trade_time: %w", err)
	}
	ticks, err := marketclock.TickTimes(s.cfg.Scheduler.TWAPStart, s.cfg.Scheduler.TWAPEnd, s.cfg.Scheduler.TWAPCount)
	if err != nil {
		return fmt.Errorf("build tick times: %w", err)
	}

	if _, err := s.cron.AddFunc(tradeAt.CronSpec(), func() {
		s.runJob(ctx, "daily_decision", s.trading.RunDaily)
	}); err != nil {
		return fmt.Errorf("schedule daily job: %w", err)
	}

	for i, tick := range ticks {
		final := i == len(ticks)-1
		name := fmt.Sprintf("twap_tick_%d", i+1)
		if _, err := s.cron.AddFunc(tick.CronSpec(), func() {
			s.runJob(ctx, name, func(jctx context.Context) error {
				return s.trading.RunTWAPTick(jctx, final)
			})
		}); err != nil {
			return fmt.Errorf("schedule %s: %w", name, err)
		}
	}

	s.log.InfoContext(ctx, "scheduler started",
		logger.StringField("trade_time", tradeAt.String()),
		logger.IntField("twap_ticks", len(ticks)),
		logger.StringField("timezone", s.cfg.Scheduler.Timezone),
	)
	s.cron.Start()
	return nil
}

func (s *schedulerService) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

func (s *schedulerService) runJob(ctx context.Context, name string, fn func(context.Context) error) {
	select {
	case s.semaphore <- struct{}{}:
	case <-ctx.Done():
		return
	}
	defer func() { <-s.semaphore }()

	defer func() {
		if r := recover(); r != nil {
			s.log.ErrorContext(ctx, "job panicked",
				logger.StringField("job", name),
				logger.StringField("panic", fmt.Sprint(r)),
			)
			s.messenger.Send(ctx, fmt.Sprintf("job %s panicked: %v", name, r))
		}
	}()

	jctx, cancel := context.WithTimeout(ctx, s.cfg.Scheduler.TimeoutDuration)
	defer cancel()

	start := time.Now()
	s.log.InfoContext(jctx, "job started", logger.StringField("job", name))
	if err := fn(jctx); err != nil {
		s.log.ErrorContext(jctx, "job failed",
			logger.StringField("job", name),
			logger.ErrorField(err),
		)
		s.messenger.Send(jctx, fmt.Sprintf("job %s failed: %v", name, err))
		return
	}
	s.log.InfoContext(jctx, "job completed",
		logger.StringField("job", name),
		logger.StringField("took", time.Since(start).String()),
	)
}
