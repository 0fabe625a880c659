package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies SNIPER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known SNIPER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "SNIPER_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.SafeAddress, "SNIPER_WALLET_SAFE_ADDRESS")
	setStr(&cfg.Wallet.EncryptedKeyPath, "SNIPER_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "SNIPER_WALLET_KEY_PASSWORD")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "SNIPER_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "SNIPER_POLYMARKET_GAMMA_HOST")
	setStr(&cfg.Polymarket.WsHost, "SNIPER_POLYMARKET_WS_HOST")
	setInt(&cfg.Polymarket.ChainID, "SNIPER_POLYMARKET_CHAIN_ID")
	setInt(&cfg.Polymarket.SignatureType, "SNIPER_POLYMARKET_SIGNATURE_TYPE")

	// ── Builder ──
	setStr(&cfg.Builder.ApiKey, "SNIPER_BUILDER_API_KEY")
	setStr(&cfg.Builder.ApiSecret, "SNIPER_BUILDER_API_SECRET")
	setStr(&cfg.Builder.ApiPassphrase, "SNIPER_BUILDER_API_PASSPHRASE")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "SNIPER_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "SNIPER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SNIPER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SNIPER_REDIS_DB")
	setStr(&cfg.Redis.KeyPrefix, "SNIPER_REDIS_KEY_PREFIX")

	// ── Strategy ──
	setStr(&cfg.Strategy.Market, "SNIPER_STRATEGY_MARKET")
	setFloat64(&cfg.Strategy.OrderSize, "SNIPER_STRATEGY_ORDER_SIZE")
	setFloat64(&cfg.Strategy.MaxPosition, "SNIPER_STRATEGY_MAX_POSITION")
	setFloat64(&cfg.Strategy.BuyMin, "SNIPER_STRATEGY_BUY_MIN")
	setFloat64(&cfg.Strategy.BuyMax, "SNIPER_STRATEGY_BUY_MAX")
	setFloat64(&cfg.Strategy.TakeProfitTrigger, "SNIPER_STRATEGY_TAKE_PROFIT_TRIGGER")
	setFloat64(&cfg.Strategy.StopLossTrigger, "SNIPER_STRATEGY_STOP_LOSS_TRIGGER")
	setFloat64(&cfg.Strategy.TickSize, "SNIPER_STRATEGY_TICK_SIZE")
	setDuration(&cfg.Strategy.DedupTTL, "SNIPER_STRATEGY_DEDUPE_TTL")
	setDuration(&cfg.Strategy.StaleThreshold, "SNIPER_STRATEGY_STALE_THRESHOLD")

	// ── Rotation ──
	setDuration(&cfg.Rotation.AutoRotateInterval, "SNIPER_ROTATION_AUTO_ROTATE_INTERVAL")
	setStr(&cfg.Rotation.GammaSlugPrefix, "SNIPER_ROTATION_GAMMA_SLUG_PREFIX")
	setStr(&cfg.Rotation.Outcome, "SNIPER_ROTATION_OUTCOME")

	// ── Session ──
	setBool(&cfg.Session.Enabled, "SNIPER_SESSION_ENABLED")
	setStr(&cfg.Session.Dir, "SNIPER_SESSION_DIR")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SNIPER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
