// Package config defines the top-level configuration for the interval
// sniper and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by SNIPER_* environment
// variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Builder    BuilderConfig    `toml:"builder"`
	Redis      RedisConfig      `toml:"redis"`
	Strategy   StrategyConfig   `toml:"strategy"`
	Rotation   RotationConfig   `toml:"rotation"`
	Session    SessionConfig    `toml:"session"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds Ethereum wallet credentials.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	SafeAddress      string `toml:"safe_address"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// PolymarketConfig holds Polymarket API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost      string `toml:"clob_host"`
	GammaHost     string `toml:"gamma_host"`
	WsHost        string `toml:"ws_host"`
	ChainID       int    `toml:"chain_id"`
	SignatureType int    `toml:"signature_type"`
}

// BuilderConfig holds Polymarket builder-program API credentials.
type BuilderConfig struct {
	ApiKey        string `toml:"api_key"`
	ApiSecret     string `toml:"api_secret"`
	ApiPassphrase string `toml:"api_passphrase"`
}

// RedisConfig holds Redis connection parameters for the optional resting-
// buy state cache.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	KeyPrefix  string `toml:"key_prefix"`
}

// StrategyConfig holds the interval sniper's decision parameters, per the
// configuration surface.
type StrategyConfig struct {
	Market            string  `toml:"market"` // "btc_5m" or "sol_5m"
	OrderSize         float64 `toml:"order_size"`
	MaxPosition       float64 `toml:"max_position"`
	BuyMin            float64 `toml:"buy_min"`
	BuyMax            float64 `toml:"buy_max"`
	TakeProfitTrigger float64 `toml:"take_profit_trigger"`
	StopLossTrigger   float64 `toml:"stop_loss_trigger"`
	TickSize          float64 `toml:"tick_size"`
	DedupTTL          duration `toml:"dedupe_ttl"`
	StaleThreshold    duration `toml:"stale_threshold"`
}

// RotationConfig holds market-rotation parameters.
type RotationConfig struct {
	AutoRotateInterval duration `toml:"auto_rotate_interval"`
	GammaSlugPrefix    string   `toml:"gamma_slug_prefix"`
	Outcome            string   `toml:"outcome"` // "up" or "down"
}

// SessionConfig controls the JSONL session-summary log.
type SessionConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "50ms", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "50ms" or "5m".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the values named in the
// configuration surface.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:      "https://clob.polymarket.com",
			GammaHost:     "https://gamma-api.polymarket.com",
			WsHost:        "wss://ws-subscriptions-clob.polymarket.com/ws/market",
			ChainID:       137,
			SignatureType: 2,
		},
		Redis: RedisConfig{
			Enabled:   false,
			Addr:      "localhost:6379",
			DB:        0,
			KeyPrefix: "sniper",
		},
		Strategy: StrategyConfig{
			Market:            "btc_5m",
			OrderSize:         5.0,
			MaxPosition:       5.0,
			BuyMin:            0.10,
			BuyMax:            0.90,
			TakeProfitTrigger: 0.95,
			StopLossTrigger:   0.05,
			TickSize:          0.01,
			DedupTTL:          duration{50 * time.Millisecond},
			StaleThreshold:    duration{200 * time.Millisecond},
		},
		Rotation: RotationConfig{
			AutoRotateInterval: duration{300 * time.Second},
			GammaSlugPrefix:    "bitcoin-up-or-down",
			Outcome:            "up",
		},
		Session: SessionConfig{
			Enabled: true,
			Dir:     "./sessions",
		},
		LogLevel: "info",
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		errs = append(errs, "wallet: either private_key or encrypted_key_path must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	if c.Polymarket.ClobHost == "" {
		errs = append(errs, "polymarket: clob_host must not be empty")
	}
	if c.Polymarket.GammaHost == "" {
		errs = append(errs, "polymarket: gamma_host must not be empty")
	}
	if c.Polymarket.WsHost == "" {
		errs = append(errs, "polymarket: ws_host must not be empty")
	}
	if c.Polymarket.ChainID <= 0 {
		errs = append(errs, "polymarket: chain_id must be positive")
	}
	if c.Polymarket.SignatureType != 1 && c.Polymarket.SignatureType != 2 {
		errs = append(errs, fmt.Sprintf("polymarket: signature_type must be 1 (POLY_PROXY) or 2 (POLY_GNOSIS_SAFE), got %d", c.Polymarket.SignatureType))
	}

	bk := c.Builder.ApiKey != ""
	bs := c.Builder.ApiSecret != ""
	bp := c.Builder.ApiPassphrase != ""
	if (bk || bs || bp) && !(bk && bs && bp) {
		errs = append(errs, "builder: api_key, api_secret, and api_passphrase must all be set together")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when enabled")
	}

	s := c.Strategy
	if s.OrderSize <= 0 {
		errs = append(errs, "strategy: order_size must be > 0")
	}
	if s.MaxPosition <= 0 {
		errs = append(errs, "strategy: max_position must be > 0")
	}
	if s.BuyMin < 0 || s.BuyMin > 1 {
		errs = append(errs, "strategy: buy_min must be in [0,1]")
	}
	if s.BuyMax < 0 || s.BuyMax > 1 {
		errs = append(errs, "strategy: buy_max must be in [0,1]")
	}
	if s.BuyMin >= s.BuyMax {
		errs = append(errs, "strategy: buy_min must be < buy_max")
	}
	if s.TakeProfitTrigger < 0 || s.TakeProfitTrigger > 1 {
		errs = append(errs, "strategy: take_profit_trigger must be in [0,1]")
	}
	if s.StopLossTrigger < 0 || s.StopLossTrigger > 1 {
		errs = append(errs, "strategy: stop_loss_trigger must be in [0,1]")
	}
	if s.StopLossTrigger >= s.TakeProfitTrigger {
		errs = append(errs, "strategy: stop_loss_trigger must be < take_profit_trigger")
	}
	if s.TickSize <= 0 {
		errs = append(errs, "strategy: tick_size must be > 0")
	}
	if s.DedupTTL.Duration < 20*time.Millisecond || s.DedupTTL.Duration > 80*time.Millisecond {
		errs = append(errs, "strategy: dedupe_ttl must be between 20ms and 80ms")
	}
	if s.StaleThreshold.Duration < 100*time.Millisecond || s.StaleThreshold.Duration > 250*time.Millisecond {
		errs = append(errs, "strategy: stale_threshold must be between 100ms and 250ms")
	}

	if c.Rotation.AutoRotateInterval.Duration <= 0 {
		errs = append(errs, "rotation: auto_rotate_interval must be > 0")
	}
	if c.Rotation.GammaSlugPrefix == "" {
		errs = append(errs, "rotation: gamma_slug_prefix must not be empty")
	}
	if c.Rotation.Outcome != "up" && c.Rotation.Outcome != "down" {
		errs = append(errs, `rotation: outcome must be "up" or "down"`)
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
