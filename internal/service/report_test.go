package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egg-trading/config"
	"egg-trading/internal/model"
	"egg-trading/pkg/logger"
)

// stubFetcher serves fixed indicator values without touching the network.
type stubFetcher struct {
	vix float64
	rsi float64
}

func (f stubFetcher) VIX(ctx context.Context) (float64, error) { return f.vix, nil }

func (f stubFetcher) RSI(ctx context.Context, symbol string, period int) (float64, error) {
	return f.rsi, nil
}

func (f stubFetcher) Closes(ctx context.Context, symbol string, days int) ([]float64, error) {
	return nil, nil
}

func TestDailyReportTierUsesBaseSeed(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	bot := activeBot("tqqq-a")
	bot.AddedSeed = 500
	require.NoError(t, f.repo.BotRepo.Create(ctx, bot))
	require.NoError(t, f.repo.TradeRepo.Upsert(ctx, &model.Trade{
		Name: "tqqq-a", Symbol: "TQQQ", Amount: 30, PurchasePrice: 100, TotalPrice: 3000,
		DateAdded: f.clock.Today(),
	}))

	report := NewReportService(&config.Config{}, logger.NewNop(), f.repo,
		stubFetcher{vix: 18.5, rsi: 55}, f.messenger, f.clock)
	require.NoError(t, report.SendDailyReport(ctx))

	require.NotEmpty(t, f.messenger.messages)
	msg := f.messenger.messages[len(f.messenger.messages)-1]
	assert.Contains(t, msg, "VIX 18.50")
	assert.Contains(t, msg, "TQQQ RSI(14) 55.0")
	// T is invested over the base seed; the realized-profit carry does not
	// dilute it.
	assert.True(t, strings.Contains(msg, "T 3.00/10"), msg)
}
