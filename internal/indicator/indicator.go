package indicator

import (
	"context"
	"fmt"
	"time"

	"egg-trading/config"
	"egg-trading/pkg/cache"
	"egg-trading/pkg/httpclient"
	"egg-trading/pkg/logger"

	"golang.org/x/time/rate"
)

// Fetcher supplies the market indicators used only for reporting: the VIX
// level, a symbol's RSI and its recent closes. Failures degrade the report,
// never trading.
type Fetcher interface {
	VIX(ctx context.Context) (float64, error)
	RSI(ctx context.Context, symbol string, period int) (float64, error)
	Closes(ctx context.Context, symbol string, days int) ([]float64, error)
}

type yahooFetcher struct {
	httpClient httpclient.HTTPClient
	cfg        *config.IndicatorConfig
	cache      cache.Cache
	limiter    *rate.Limiter
	log        *logger.Logger
}

// NewYahooFetcher reads daily chart data from the Yahoo finance chart API.
func NewYahooFetcher(cfg *config.IndicatorConfig, c cache.Cache, log *logger.Logger) Fetcher {
	perMinute := cfg.MaxRequestPerMinute
	if perMinute <= 0 {
		perMinute = 1
	}
	perRequest := time.Minute / time.Duration(perMinute)
	return &yahooFetcher{
		httpClient: httpclient.New(cfg.BaseURL, cfg.Timeout),
		cfg:        cfg,
		cache:      c,
		limiter:    rate.NewLimiter(rate.Every(perRequest), 1),
		log:        log,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"chart"`
}

func (f *yahooFetcher) VIX(ctx context.Context) (float64, error) {
	closes, err := f.Closes(ctx, "^VIX", 5)
	if err != nil {
		return 0, err
	}
	if len(closes) == 0 {
		return 0, fmt.Errorf("no VIX data")
	}
	return closes[len(closes)-1], nil
}

// RSI computes Wilder's relative strength index over daily closes.
func (f *yahooFetcher) RSI(ctx context.Context, symbol string, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("invalid RSI period %d", period)
	}
	closes, err := f.Closes(ctx, symbol, period*3)
	if err != nil {
		return 0, err
	}
	if len(closes) < period+1 {
		return 0, fmt.Errorf("not enough closes for RSI(%d) on %s: %d", period, symbol, len(closes))
	}

	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		diff := closes[i] - closes[i-1]
		if diff > 0 {
			avgGain += diff
		} else {
			avgLoss -= diff
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period + 1; i < len(closes); i++ {
		diff := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if diff > 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), nil
}

func (f *yahooFetcher) Closes(ctx context.Context, symbol string, days int) ([]float64, error) {
	key := fmt.Sprintf("indicator:closes:%s:%d", symbol, days)
	if v, ok := f.cache.Get(key); ok {
		return v.([]float64), nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var out chartResponse
	resp, err := f.httpClient.Get(ctx, "/v8/finance/chart/"+symbol, map[string]string{
		"range":    fmt.Sprintf("%dd", days),
		"interval": "1d",
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("chart request for %s: %w", symbol, err)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("chart request for %s: status %d", symbol, resp.StatusCode)
	}
	if len(out.Chart.Result) == 0 || len(out.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("empty chart for %s", symbol)
	}

	closes := []float64{}
	for _, c := range out.Chart.Result[0].Indicators.Quote[0].Close {
		if c != nil {
			closes = append(closes, *c)
		}
	}
	f.cache.Set(key, closes, f.cfg.CacheDuration)
	return closes, nil
}
