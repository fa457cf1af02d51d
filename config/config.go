package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       App             `mapstructure:"app"`
	Log       Logger          `mapstructure:"logger"`
	DB        Database        `mapstructure:"database"`
	API       API             `mapstructure:"api"`
	Exchange  Exchange        `mapstructure:"exchange"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Scheduler Scheduler       `mapstructure:"scheduler"`
	Trading   Trading         `mapstructure:"trading"`
	Indicator IndicatorConfig `mapstructure:"indicator"`
	Cache     Cache           `mapstructure:"cache"`
}

type App struct {
	// Admin namespaces the persisted state: the process uses database
	// egg_<admin>.
	Admin  string `mapstructure:"admin"`
	IsTest bool   `mapstructure:"is_test"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type API struct {
	Port int `mapstructure:"port"`
}

type Exchange struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	BaseURL   string `mapstructure:"base_url"`
	Feed      string `mapstructure:"feed"`
}

type TelegramConfig struct {
	BotToken            string        `mapstructure:"bot_token"`
	ChatID              int64         `mapstructure:"chat_id"`
	TimeoutDuration     time.Duration `mapstructure:"timeout_duration"`
	MaxRequestPerSecond int           `mapstructure:"max_request_per_second"`
	MaxMessageLength    int           `mapstructure:"max_message_length"`
}

type Scheduler struct {
	// TradeTime is the wall-clock HH:MM (market timezone) of the daily
	// decision job.
	TradeTime string `mapstructure:"trade_time"`
	// TWAPStart/TWAPEnd bound the execution window; TWAPCount ticks are
	// spaced evenly across it.
	TWAPStart       string        `mapstructure:"twap_start"`
	TWAPEnd         string        `mapstructure:"twap_end"`
	TWAPCount       int           `mapstructure:"twap_count"`
	Timezone        string        `mapstructure:"timezone"`
	TimeoutDuration time.Duration `mapstructure:"timeout_duration"`
}

type Trading struct {
	// DropIntervalRates maps symbol to the big-drop step in percent.
	DropIntervalRates   map[string]float64 `mapstructure:"drop_interval_rates"`
	DropIntervalDefault float64            `mapstructure:"drop_interval_default"`
	// SmallProfitMin suppresses sells whose realized profit would be a
	// positive amount below this threshold.
	SmallProfitMin  float64       `mapstructure:"small_profit_min"`
	FillWaitTimeout time.Duration `mapstructure:"fill_wait_timeout"`
	FillPollEvery   time.Duration `mapstructure:"fill_poll_every"`
}

type IndicatorConfig struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	CacheDuration       time.Duration `mapstructure:"cache_duration"`
}

type Cache struct {
	DefaultExpiration time.Duration `mapstructure:"default_expiration"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

func Load() (*Config, error) {
	viper.SetConfigType("yaml")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("app.admin", "default")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "json")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("api.port", 8080)
	viper.SetDefault("scheduler.trade_time", "09:40")
	viper.SetDefault("scheduler.twap_start", "10:00")
	viper.SetDefault("scheduler.twap_end", "15:30")
	viper.SetDefault("scheduler.twap_count", 5)
	viper.SetDefault("scheduler.timezone", "America/New_York")
	viper.SetDefault("scheduler.timeout_duration", 40*time.Minute)
	viper.SetDefault("trading.drop_interval_default", 5.0)
	viper.SetDefault("trading.small_profit_min", 100.0)
	viper.SetDefault("trading.fill_wait_timeout", 5*time.Minute)
	viper.SetDefault("trading.fill_poll_every", 10*time.Second)
	viper.SetDefault("telegram.timeout_duration", 30*time.Second)
	viper.SetDefault("telegram.max_request_per_second", 1)
	viper.SetDefault("telegram.max_message_length", 3000)
	viper.SetDefault("indicator.base_url", "https://query1.finance.yahoo.com")
	viper.SetDefault("indicator.timeout", 15*time.Second)
	viper.SetDefault("indicator.max_request_per_minute", 30)
	viper.SetDefault("indicator.cache_duration", 10*time.Minute)
	viper.SetDefault("cache.default_expiration", 5*time.Minute)
	viper.SetDefault("cache.cleanup_interval", 10*time.Minute)
}

// Validate rejects configurations the scheduler cannot run with. Time format
// and window errors are fatal at startup only; nothing here is re-checked at
// steady state.
func (c *Config) Validate() error {
	if c.App.Admin == "" {
		return fmt.Errorf("app.admin must be set")
	}
	if c.Scheduler.TWAPCount < 1 {
		return fmt.Errorf("scheduler.twap_count must be >= 1, got %d", c.Scheduler.TWAPCount)
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("invalid scheduler.timezone %q: %w", c.Scheduler.Timezone, err)
	}
	for _, v := range []struct{ key, val string }{
		{"scheduler.trade_time", c.Scheduler.TradeTime},
		{"scheduler.twap_start", c.Scheduler.TWAPStart},
		{"scheduler.twap_end", c.Scheduler.TWAPEnd},
	} {
		if _, err := time.Parse("15:04", v.val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", v.key, v.val, err)
		}
	}
	start, _ := time.Parse("15:04", c.Scheduler.TWAPStart)
	end, _ := time.Parse("15:04", c.Scheduler.TWAPEnd)
	if !end.After(start) {
		return fmt.Errorf("scheduler.twap_end %q must be after twap_start %q", c.Scheduler.TWAPEnd, c.Scheduler.TWAPStart)
	}
	return nil
}

// DropIntervalRate returns the big-drop step in percent for a symbol.
func (c *Config) DropIntervalRate(symbol string) float64 {
	if r, ok := c.Trading.DropIntervalRates[symbol]; ok {
		return r
	}
	return c.Trading.DropIntervalDefault
}

// AdminDBName is the per-admin database name.
func (c *Config) AdminDBName() string {
	if c.DB.DBName != "" {
		return c.DB.DBName
	}
	return "egg_" + c.App.Admin
}
