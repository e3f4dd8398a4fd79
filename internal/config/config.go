// Package config provides configuration management using viper.
// It supports loading from YAML files, a .env file and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Daily    DailyConfig    `mapstructure:"daily"`
	Payments PaymentsConfig `mapstructure:"payments"`
	Donation DonationConfig `mapstructure:"donation"`
	Games    GamesConfig    `mapstructure:"games"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Timezone string         `mapstructure:"timezone"`
}

// BotConfig holds Telegram bot configuration.
type BotConfig struct {
	Token    string `mapstructure:"token"`
	Username string `mapstructure:"username"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the game session store connection. An empty Addr
// selects the in-process session store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AdminConfig holds the bootstrap admin list. Accounts flagged admin in the
// database are admins as well.
type AdminConfig struct {
	IDs []int64 `mapstructure:"ids"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LedgerConfig holds account and referral policy constants.
type LedgerConfig struct {
	StartBalance  int64 `mapstructure:"start_balance"`
	ReferrerBonus int64 `mapstructure:"referrer_bonus"`
	ReferredBonus int64 `mapstructure:"referred_bonus"`
}

// DailyConfig holds daily bonus configuration.
type DailyConfig struct {
	Base      int64 `mapstructure:"base"`
	Increment int64 `mapstructure:"increment"`
}

// PaymentsConfig holds deposit and withdrawal policy.
type PaymentsConfig struct {
	DepositRate   string        `mapstructure:"deposit_rate"`
	WithdrawRate  string        `mapstructure:"withdraw_rate"`
	DepositExpiry time.Duration `mapstructure:"deposit_expiry"`
	MinDeposit    string        `mapstructure:"min_deposit"`
	MinWithdraw   string        `mapstructure:"min_withdraw"`
	CardDetails   string        `mapstructure:"card_details"`
	SweepExpired  bool          `mapstructure:"sweep_expired"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// DonationConfig holds the third-party donation feed configuration.
type DonationConfig struct {
	URL          string        `mapstructure:"url"`
	Token        string        `mapstructure:"token"`
	PageURL      string        `mapstructure:"page_url"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	AutoConfirm  bool          `mapstructure:"auto_confirm"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	Dice       DiceConfig    `mapstructure:"dice"`
}

// DiceConfig holds dice game configuration.
type DiceConfig struct {
	MinBet          int64 `mapstructure:"min_bet"`
	MaxBet          int64 `mapstructure:"max_bet"`
	CooldownSeconds int   `mapstructure:"cooldown_seconds"`
}

// MetricsConfig holds the ops HTTP server configuration.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Rates returns the parsed deposit and withdrawal exchange rates.
func (p *PaymentsConfig) Rates() (deposit, withdraw decimal.Decimal, err error) {
	deposit, err = decimal.NewFromString(p.DepositRate)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid deposit_rate: %w", err)
	}
	withdraw, err = decimal.NewFromString(p.WithdrawRate)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid withdraw_rate: %w", err)
	}
	return deposit, withdraw, nil
}

// Minimums returns the parsed minimum deposit and withdrawal fiat amounts.
func (p *PaymentsConfig) Minimums() (deposit, withdraw decimal.Decimal, err error) {
	deposit, err = decimal.NewFromString(p.MinDeposit)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid min_deposit: %w", err)
	}
	withdraw, err = decimal.NewFromString(p.MinWithdraw)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("invalid min_withdraw: %w", err)
	}
	return deposit, withdraw, nil
}

// Location returns the configured timezone used for calendar-day policies.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	// A missing .env file is fine, real env vars win anyway.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, DATABASE_HOST, PAYMENTS_DEPOSIT_RATE
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks policy values that would break ledger invariants.
func (c *Config) Validate() error {
	if c.Ledger.StartBalance < 0 || c.Ledger.ReferrerBonus < 0 || c.Ledger.ReferredBonus < 0 {
		return errors.New("ledger amounts must not be negative")
	}
	if c.Daily.Base <= 0 || c.Daily.Increment < 0 {
		return errors.New("daily.base must be positive and daily.increment not negative")
	}
	dep, wd, err := c.Payments.Rates()
	if err != nil {
		return err
	}
	if !dep.IsPositive() || !wd.IsPositive() {
		return errors.New("exchange rates must be positive")
	}
	if _, _, err := c.Payments.Minimums(); err != nil {
		return err
	}
	if c.Payments.DepositExpiry <= 0 {
		return errors.New("payments.deposit_expiry must be positive")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "casino")
	v.SetDefault("database.name", "casino")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")

	v.SetDefault("ledger.start_balance", 1000)
	v.SetDefault("ledger.referrer_bonus", 100)
	v.SetDefault("ledger.referred_bonus", 50)

	v.SetDefault("daily.base", 100)
	v.SetDefault("daily.increment", 50)

	v.SetDefault("payments.deposit_rate", "10")
	v.SetDefault("payments.withdraw_rate", "10")
	v.SetDefault("payments.deposit_expiry", "24h")
	v.SetDefault("payments.min_deposit", "50")
	v.SetDefault("payments.min_withdraw", "100")
	v.SetDefault("payments.sweep_expired", false)
	v.SetDefault("payments.sweep_interval", "10m")

	v.SetDefault("donation.poll_interval", "30s")
	v.SetDefault("donation.timeout", "10s")
	v.SetDefault("donation.auto_confirm", true)

	v.SetDefault("games.session_ttl", "2m")
	v.SetDefault("games.dice.min_bet", 10)
	v.SetDefault("games.dice.max_bet", 100000)
	v.SetDefault("games.dice.cooldown_seconds", 3)

	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("timezone", "UTC")
}

// IsBootstrapAdmin checks if a user ID is in the configured admin list.
func (c *Config) IsBootstrapAdmin(userID int64) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}
