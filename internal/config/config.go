package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Cron     CronConfig     `mapstructure:"cron"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Broker   BrokerConfig   `mapstructure:"broker"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

type CronConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Iteration  string `mapstructure:"iteration"`
	DailyReset string `mapstructure:"daily_reset"`
}

type TradingConfig struct {
	Mode           string  `mapstructure:"mode"` // dry_run | live | backtest
	AutoStart      bool    `mapstructure:"auto_start"`
	InitialBalance float64 `mapstructure:"initial_balance"`
}

type StrategyConfig struct {
	Symbols               []string `mapstructure:"symbols"`
	EntryDropPercent      float64  `mapstructure:"entry_drop_percent"`
	ExitProfitPercent     float64  `mapstructure:"exit_profit_percent"`
	StopLossPercent       float64  `mapstructure:"stop_loss_percent"`
	UseTrailingStop       bool     `mapstructure:"use_trailing_stop"`
	TrailingStopPercent   float64  `mapstructure:"trailing_stop_percent"`
	EntryTimeframeMinutes int      `mapstructure:"entry_timeframe_minutes"`
	AvoidFirstMinutes     int      `mapstructure:"avoid_first_minutes"`
	AvoidLastMinutes      int      `mapstructure:"avoid_last_minutes"`
	ClosePositionsAtEOD   bool     `mapstructure:"close_positions_at_eod"`
	ExchangeTimezone      string   `mapstructure:"exchange_timezone"`
}

type RiskConfig struct {
	PositionSizePercent           float64 `mapstructure:"position_size_percent"`
	MaxPositions                  int     `mapstructure:"max_positions"`
	MaxPositionValueDollars       float64 `mapstructure:"max_position_value_dollars"`
	MaxSharesPerTrade             int64   `mapstructure:"max_shares_per_trade"`
	MaxDailyLossPercent           float64 `mapstructure:"max_daily_loss_percent"`
	MaxDailyLossDollars           float64 `mapstructure:"max_daily_loss_dollars"`
	MaxDailyTrades                int     `mapstructure:"max_daily_trades"`
	MaxConsecutiveLosses          int     `mapstructure:"max_consecutive_losses"`
	MaxAccountDrawdownPercent     float64 `mapstructure:"max_account_drawdown_percent"`
	MaxTradeFrequencySeconds      int     `mapstructure:"max_trade_frequency_seconds"`
	CooldownMinutes               int     `mapstructure:"cooldown_minutes"`
	RequireManualRestartAfterStop bool    `mapstructure:"require_manual_restart_after_stop"`
}

type BrokerConfig struct {
	BasePrices      map[string]float64 `mapstructure:"base_prices"`
	StreamURL       string             `mapstructure:"stream_url"`
	StreamReconnect time.Duration      `mapstructure:"stream_reconnect"`
	QuoteStaleAfter time.Duration      `mapstructure:"quote_stale_after"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.iteration", "@every 1s")
	v.SetDefault("cron.daily_reset", "0 0 0 * * *")
	v.SetDefault("trading.mode", "dry_run")
	v.SetDefault("trading.auto_start", false)
	v.SetDefault("trading.initial_balance", 10000)
	v.SetDefault("strategy.symbols", []string{"AAPL"})
	v.SetDefault("strategy.entry_drop_percent", 0.5)
	v.SetDefault("strategy.exit_profit_percent", 0.5)
	v.SetDefault("strategy.stop_loss_percent", 1.0)
	v.SetDefault("strategy.use_trailing_stop", true)
	v.SetDefault("strategy.trailing_stop_percent", 0.3)
	v.SetDefault("strategy.entry_timeframe_minutes", 5)
	v.SetDefault("strategy.avoid_first_minutes", 15)
	v.SetDefault("strategy.avoid_last_minutes", 15)
	v.SetDefault("strategy.close_positions_at_eod", true)
	v.SetDefault("strategy.exchange_timezone", "America/New_York")
	v.SetDefault("risk.position_size_percent", 10)
	v.SetDefault("risk.max_positions", 1)
	v.SetDefault("risk.max_position_value_dollars", 0)
	v.SetDefault("risk.max_shares_per_trade", 0)
	v.SetDefault("risk.max_daily_loss_percent", 3)
	v.SetDefault("risk.max_daily_loss_dollars", 0)
	v.SetDefault("risk.max_daily_trades", 50)
	v.SetDefault("risk.max_consecutive_losses", 3)
	v.SetDefault("risk.max_account_drawdown_percent", 10)
	v.SetDefault("risk.max_trade_frequency_seconds", 30)
	v.SetDefault("risk.cooldown_minutes", 30)
	v.SetDefault("risk.require_manual_restart_after_stop", false)
	v.SetDefault("broker.stream_url", "")
	v.SetDefault("broker.stream_reconnect", "5s")
	v.SetDefault("broker.quote_stale_after", "10s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects out-of-range values instead of clamping them.
func (c Config) Validate() error {
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(c.Trading.Mode)) {
	case "dry_run", "live", "backtest":
	default:
		return fmt.Errorf("trading.mode %q is not one of dry_run, live, backtest", c.Trading.Mode)
	}
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("trading.initial_balance must be positive, got %v", c.Trading.InitialBalance)
	}
	return nil
}

func (c StrategyConfig) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("strategy.symbols must not be empty")
	}
	if err := inRangeFloat("strategy.entry_drop_percent", c.EntryDropPercent, 0, 10); err != nil {
		return err
	}
	if err := inRangeFloat("strategy.exit_profit_percent", c.ExitProfitPercent, 0, 10); err != nil {
		return err
	}
	if err := inRangeFloat("strategy.stop_loss_percent", c.StopLossPercent, 0, 10); err != nil {
		return err
	}
	if err := inRangeFloat("strategy.trailing_stop_percent", c.TrailingStopPercent, 0, 10); err != nil {
		return err
	}
	if err := inRangeInt("strategy.entry_timeframe_minutes", c.EntryTimeframeMinutes, 1, 60); err != nil {
		return err
	}
	if err := inRangeInt("strategy.avoid_first_minutes", c.AvoidFirstMinutes, 0, 60); err != nil {
		return err
	}
	if err := inRangeInt("strategy.avoid_last_minutes", c.AvoidLastMinutes, 0, 60); err != nil {
		return err
	}
	if strings.TrimSpace(c.ExchangeTimezone) == "" {
		return fmt.Errorf("strategy.exchange_timezone must not be empty")
	}
	if _, err := time.LoadLocation(c.ExchangeTimezone); err != nil {
		return fmt.Errorf("strategy.exchange_timezone %q: %w", c.ExchangeTimezone, err)
	}
	return nil
}

func (c RiskConfig) Validate() error {
	if err := inRangeFloat("risk.position_size_percent", c.PositionSizePercent, 1, 50); err != nil {
		return err
	}
	if err := inRangeInt("risk.max_positions", c.MaxPositions, 1, 5); err != nil {
		return err
	}
	if c.MaxPositionValueDollars < 0 {
		return fmt.Errorf("risk.max_position_value_dollars must not be negative, got %v", c.MaxPositionValueDollars)
	}
	if c.MaxSharesPerTrade < 0 {
		return fmt.Errorf("risk.max_shares_per_trade must not be negative, got %d", c.MaxSharesPerTrade)
	}
	if err := inRangeFloat("risk.max_daily_loss_percent", c.MaxDailyLossPercent, 0, 20); err != nil {
		return err
	}
	if c.MaxDailyLossDollars < 0 {
		return fmt.Errorf("risk.max_daily_loss_dollars must not be negative, got %v", c.MaxDailyLossDollars)
	}
	if err := inRangeInt("risk.max_daily_trades", c.MaxDailyTrades, 1, 500); err != nil {
		return err
	}
	if err := inRangeInt("risk.max_consecutive_losses", c.MaxConsecutiveLosses, 1, 20); err != nil {
		return err
	}
	if err := inRangeFloat("risk.max_account_drawdown_percent", c.MaxAccountDrawdownPercent, 1, 30); err != nil {
		return err
	}
	if err := inRangeInt("risk.max_trade_frequency_seconds", c.MaxTradeFrequencySeconds, 1, 300); err != nil {
		return err
	}
	if err := inRangeInt("risk.cooldown_minutes", c.CooldownMinutes, 0, 1440); err != nil {
		return err
	}
	return nil
}

func inRangeFloat(key string, v, min, max float64) error {
	if v < min || v > max {
		return fmt.Errorf("%s must be between %v and %v, got %v", key, min, max, v)
	}
	return nil
}

func inRangeInt(key string, v, min, max int) error {
	if v < min || v > max {
		return fmt.Errorf("%s must be between %d and %d, got %d", key, min, max, v)
	}
	return nil
}
