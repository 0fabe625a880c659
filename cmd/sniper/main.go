// Command sniper is the entry point for the interval-market trading agent.
// It loads configuration, validates it, wires the exchange collaborators
// and the single-threaded tick driver, and runs until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gozuray/sniper/internal/config"
	"github.com/gozuray/sniper/internal/crypto"
	"github.com/gozuray/sniper/internal/driver"
	"github.com/gozuray/sniper/internal/domain"
	"github.com/gozuray/sniper/internal/execution"
	"github.com/gozuray/sniper/internal/market"
	"github.com/gozuray/sniper/internal/platform/polymarket"
	"github.com/gozuray/sniper/internal/session"
	"github.com/gozuray/sniper/internal/signing"
	"github.com/gozuray/sniper/internal/statecache"
	"github.com/gozuray/sniper/internal/strategy"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("path", *configPath), slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("sniper starting", slog.String("market", cfg.Strategy.Market), slog.String("config", *configPath))

	if cfg.Wallet.PrivateKey == "" {
		logger.Error("wallet.private_key must be set; encrypted key files are not wired in this build")
		os.Exit(1)
	}
	signer, err := crypto.NewSigner(cfg.Wallet.PrivateKey, cfg.Polymarket.ChainID)
	if err != nil {
		logger.Error("failed to create signer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var hmacAuth *crypto.HMACAuth
	if cfg.Builder.ApiKey != "" {
		hmacAuth = &crypto.HMACAuth{Key: cfg.Builder.ApiKey, Secret: cfg.Builder.ApiSecret, Passphrase: cfg.Builder.ApiPassphrase}
	}

	wallet := cfg.Wallet.SafeAddress
	if wallet == "" {
		wallet = signer.Address().Hex()
	}

	clobClient := polymarket.NewClobClient(cfg.Polymarket.ClobHost, wallet, signer, hmacAuth)
	gammaClient := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)
	wsClient := polymarket.NewWSClient(cfg.Polymarket.WsHost)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if hmacAuth == nil {
		if err := clobClient.DeriveAPIKey(ctx); err != nil {
			logger.Error("failed to derive CLOB API key", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	var cache *statecache.Cache
	if cfg.Redis.Enabled {
		cache = statecache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix)
		defer cache.Close()
	}

	sessionLog, err := session.Open(cfg.Session.Dir, cfg.Session.Enabled)
	if err != nil {
		logger.Error("failed to open session log", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sessionLog.Close()

	orderSigner := signing.New(signer, wallet)
	exec := execution.New(clobClient, orderSigner, wallet, logger)
	resolver := market.New(gammaClient)

	outcome := market.OutcomeUp
	if cfg.Rotation.Outcome == "down" {
		outcome = market.OutcomeDown
	}
	slugPrefix := cfg.Rotation.GammaSlugPrefix
	windowSlugFn := func(t time.Time) string {
		bucket := t.UTC().Truncate(cfg.Rotation.AutoRotateInterval.Duration)
		return fmt.Sprintf("%s-%s", slugPrefix, bucket.Format("20060102-1504"))
	}

	initialSlug := windowSlugFn(time.Now())
	assetID, _, err := resolver.Resolve(ctx, initialSlug, outcome)
	if err != nil {
		logger.Error("failed to resolve initial market", slog.String("slug", initialSlug), slog.String("error", err.Error()))
		os.Exit(1)
	}

	driverCfg := driver.Config{
		Strategy: strategy.Config{
			BuyMin:     domain.NewPriceFromFloat(cfg.Strategy.BuyMin),
			BuyMax:     domain.NewPriceFromFloat(cfg.Strategy.BuyMax),
			TakeProfit: domain.NewPriceFromFloat(cfg.Strategy.TakeProfitTrigger),
			StopLoss:   domain.NewPriceFromFloat(cfg.Strategy.StopLossTrigger),
			OrderSize:  domain.NewSizeFromFloat(cfg.Strategy.OrderSize),
			TickSize:   domain.NewPriceFromFloat(cfg.Strategy.TickSize),
		},
		StaleThreshold:     cfg.Strategy.StaleThreshold.Duration,
		AutoRotateInterval: cfg.Rotation.AutoRotateInterval.Duration,
		WindowSlugFn:       windowSlugFn,
		Outcome:            outcome,
		DedupTTL:           cfg.Strategy.DedupTTL.Duration,
	}
	maxPosition := domain.NewSizeFromFloat(cfg.Strategy.MaxPosition)

	d := driver.New(driverCfg, assetID, maxPosition, exec, resolver, wsClient, clobClient, sessionLog, logger)
	if cache != nil {
		d.SetCache(cache)
	}

	// The feed and the tick driver are supervised together: either one
	// returning an error cancels the other via the shared group context.
	// The feed itself reconnects with backoff for as long as the context
	// lives, so a lost WS connection is retried rather than ending the run.
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return wsClient.Run(gctx, []string{"book", "price_change"}, []string{string(assetID)})
	})
	group.Go(func() error {
		return d.Run(gctx)
	})

	if err := group.Wait(); err != nil && ctx.Err() == nil && !errors.Is(err, context.Canceled) {
		logger.Error("sniper exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("sniper stopped")
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
