// Package driver runs the single cooperative tick loop: it consumes
// streaming feed events, drives Book/Position/Dedup through Strategy,
// carries out the resulting Action via Execution, and performs market
// rotation at fixed window boundaries. There is exactly one instance of
// this loop per process; nothing here is safe for concurrent use by
// design (see the concurrency model).
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gozuray/sniper/internal/book"
	"github.com/gozuray/sniper/internal/dedup"
	"github.com/gozuray/sniper/internal/domain"
	"github.com/gozuray/sniper/internal/execution"
	"github.com/gozuray/sniper/internal/market"
	"github.com/gozuray/sniper/internal/platform/polymarket"
	"github.com/gozuray/sniper/internal/position"
	"github.com/gozuray/sniper/internal/session"
	"github.com/gozuray/sniper/internal/strategy"
)

const (
	// maxSLRetries bounds the in-tick stop-loss partial-fill retry loop.
	// Any remainder still open after this many retries (on top of the
	// first send) carries to the next tick's book read instead of looping
	// indefinitely.
	maxSLRetries = 3
	// fakRetryDelay is the pause between successive FAK retries within
	// the same tick, giving the book a moment to refresh.
	fakRetryDelay = 30 * time.Millisecond
)

// Config bundles the strategy parameters with the rotation and freshness
// parameters read from the configuration surface.
type Config struct {
	Strategy           strategy.Config
	StaleThreshold     time.Duration
	AutoRotateInterval time.Duration
	WindowSlugFn       func(t time.Time) string // produces the next window's Gamma slug
	Outcome            market.Outcome
	DedupTTL           time.Duration
}

// BalanceFetcher supplies the authoritative exchange share balance for an
// asset, used to reseed Position on startup, rotation, and after an
// underflow. polymarket.ClobClient.FetchBalance is the implementation
// cmd/sniper wires in; tests supply a stub.
type BalanceFetcher interface {
	FetchBalance(ctx context.Context, assetID domain.AssetId) (domain.Size, error)
}

// RestingBuyCache optionally persists the single resting buy order across
// process restarts, keyed by asset id. internal/statecache.Cache is the
// only implementation; a nil RestingBuyCache disables the behaviour
// entirely and the driver always starts believing it has no resting buy.
type RestingBuyCache interface {
	SaveRestingBuy(ctx context.Context, assetID, orderID string, priceTicks, sizeUnits int64) error
	ClearRestingBuy(ctx context.Context, assetID string) error
	LoadRestingBuy(ctx context.Context, assetID string) (orderID string, priceTicks, sizeUnits int64, ok bool, err error)
}

// Driver owns the book, position, dedup, and execution state for the
// currently tracked asset and runs the event loop.
type Driver struct {
	cfg      Config
	logger   *slog.Logger
	book     *book.Book
	pos      *position.Position
	dd       *dedup.Dedup
	exec     *execution.Execution
	resolver *market.Resolver
	feed     *polymarket.WSClient
	balances BalanceFetcher
	sessionL *session.Log
	cache    RestingBuyCache

	resting     *domain.RestingBuy
	windowSlug  string
	windowStart time.Time
}

// New creates a Driver already tracking assetID.
func New(cfg Config, assetID domain.AssetId, cap domain.Size, exec *execution.Execution, resolver *market.Resolver, feed *polymarket.WSClient, balances BalanceFetcher, sessionL *session.Log, logger *slog.Logger) *Driver {
	logger = logger.With(slog.String("component", "driver"))
	return &Driver{
		cfg:      cfg,
		logger:   logger,
		book:     book.New(assetID, cfg.StaleThreshold),
		pos:      position.New(assetID, cap, logger),
		dd:       dedup.New(cfg.DedupTTL),
		exec:     exec,
		resolver: resolver,
		feed:     feed,
		balances: balances,
		sessionL: sessionL,
	}
}

// SetCache attaches an optional resting-buy persistence layer. When set,
// the driver saves or clears the cached order alongside every buy
// placement, cancellation, and replacement, and tries to re-adopt a
// still-live order from it once at startup instead of assuming a cold
// start after every restart.
func (d *Driver) SetCache(cache RestingBuyCache) {
	d.cache = cache
}

// Run drives the event loop until ctx is cancelled. It reseeds the
// position from exchange truth before entering the loop.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.reseedPosition(ctx); err != nil {
		d.logger.Error("initial position reseed failed", slog.String("error", err.Error()))
	}
	d.loadCachedRestingBuy(ctx)

	rotationTimer := time.NewTimer(d.cfg.AutoRotateInterval)
	defer rotationTimer.Stop()
	purgeTicker := time.NewTicker(d.cfg.DedupTTL * 10)
	defer purgeTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-d.feed.Events:
			if !ok {
				return fmt.Errorf("driver: feed events channel closed")
			}
			d.handleFeedEvent(ctx, ev)

		case <-rotationTimer.C:
			if err := d.rotate(ctx); err != nil {
				d.logger.Error("rotation failed", slog.String("error", err.Error()))
			}
			rotationTimer.Reset(d.cfg.AutoRotateInterval)

		case <-purgeTicker.C:
			d.dd.PurgeExpired()
		}
	}
}

func (d *Driver) handleFeedEvent(ctx context.Context, ev polymarket.Event) {
	switch {
	case ev.Book != nil:
		d.book.Apply(*ev.Book)
	case ev.PriceChange != nil:
		snap := d.book.Snapshot()
		snap = polymarket.PriceChangeAppliedTo(snap, ev.PriceChange)
		d.book.Apply(snap)
	default:
		return
	}
	d.tick(ctx)
}

// tick evaluates the strategy exactly once against the current state and
// carries out the resulting action, if any.
func (d *Driver) tick(ctx context.Context) {
	snap := d.book.Snapshot()
	stale := d.book.IsStale()

	if stale && (d.pos.HasPosition()) {
		fallback, err := d.exec.FetchTopOfBook(ctx, d.book.AssetID())
		if err != nil {
			d.logger.Warn("stale-book REST fallback failed", slog.String("error", err.Error()))
		} else {
			snap = d.book.ApplyFallback(fallback)
		}
	}

	action := strategy.Evaluate(d.cfg.Strategy, snap, d.pos, d.dd, d.resting, stale)
	d.applyAction(ctx, action)
}

func (d *Driver) applyAction(ctx context.Context, action domain.Action) {
	switch action.Kind {
	case domain.ActionNothing:
		return

	case domain.ActionSendStopLoss:
		d.sendStopLoss(ctx, action.Size, action.LimitPrice)

	case domain.ActionSendTakeProfit:
		outcome, err := d.exec.PostSellFOK(ctx, d.book.AssetID(), action.Size, action.LimitPrice)
		if err != nil {
			d.logger.Warn("take-profit rejected or killed", slog.String("error", err.Error()))
			return
		}
		if err := d.pos.OnSellFill(outcome.FilledSize, outcome.FilledPrice); err != nil {
			d.handleUnderflow(ctx, err)
		}

	case domain.ActionPlaceBuy:
		outcome, err := d.exec.PostBuyGTC(ctx, d.book.AssetID(), action.Size, action.LimitPrice)
		if err != nil {
			d.logger.Warn("buy placement failed", slog.String("error", err.Error()))
			return
		}
		d.resting = &domain.RestingBuy{OrderID: outcome.OrderID, Price: action.LimitPrice, Size: action.Size}
		d.saveResting(ctx)
		if outcome.FilledSize > 0 {
			if accepted := d.pos.OnBuyFill(outcome.FilledSize, outcome.FilledPrice); accepted < outcome.FilledSize {
				d.logger.Error("buy fill exceeded position cap, excess left unaccounted",
					slog.Float64("filled", outcome.FilledSize.Float()),
					slog.Float64("accepted", accepted.Float()))
			}
		}

	case domain.ActionCancelBuy:
		if err := d.exec.Cancel(ctx, action.CancelOrderID); err != nil {
			d.logger.Warn("cancel buy failed", slog.String("error", err.Error()))
			return
		}
		d.resting = nil
		d.clearResting(ctx)

	case domain.ActionCancelAndReplaceBuy:
		if err := d.exec.Cancel(ctx, action.ReplaceOrderID); err != nil {
			d.logger.Warn("cancel-before-replace failed", slog.String("error", err.Error()))
			return
		}
		outcome, err := d.exec.PostBuyGTC(ctx, d.book.AssetID(), action.NewSize, action.NewPrice)
		if err != nil {
			d.logger.Warn("replace buy placement failed", slog.String("error", err.Error()))
			d.resting = nil
			d.clearResting(ctx)
			return
		}
		d.resting = &domain.RestingBuy{OrderID: outcome.OrderID, Price: action.NewPrice, Size: action.NewSize}
		d.saveResting(ctx)
	}
}

// sendStopLoss drives the in-tick stop-loss partial-fill recovery loop.
// strategy.Evaluate has already admitted the original (SellSL, size)
// intent into Dedup before returning the Action, so the first attempt is
// sent as-is; each subsequent retry covers a strictly smaller remainder
// and must independently clear Dedup before it is sent, since it is a
// genuinely new intent, not a repeat of the first. The loop stops as soon
// as the remainder is zero, the venue reports a zero fill (deferred to
// next tick), an error occurs, or maxSLRetries retries after the first
// send have been made.
func (d *Driver) sendStopLoss(ctx context.Context, size domain.Size, price domain.Price) {
	remaining := size

	for attempt := 0; attempt <= maxSLRetries; attempt++ {
		if remaining <= 0 {
			return
		}
		if attempt > 0 && !d.dd.CheckAndRecord(domain.IntentStopLoss, remaining) {
			return
		}

		outcome, err := d.exec.PostSellFAK(ctx, d.book.AssetID(), remaining, price, d.pos.AvailableToSell())
		if err != nil {
			d.logger.Error("stop-loss send failed", slog.String("error", err.Error()), slog.Int("attempt", attempt))
			return
		}

		if outcome.FilledSize > 0 {
			if err := d.pos.OnSellFill(outcome.FilledSize, outcome.FilledPrice); err != nil {
				d.handleUnderflow(ctx, err)
				return
			}
		}

		if outcome.FilledSize == 0 {
			d.logger.Info("stop-loss unfilled, deferring remainder to next tick",
				slog.Float64("remaining", remaining.Float()))
			return
		}

		remaining = remaining.Sub(outcome.FilledSize)
		if remaining <= 0 {
			return
		}
		if attempt == maxSLRetries {
			d.logger.Warn("stop-loss retries exhausted, carrying remainder to next tick",
				slog.Float64("remaining", remaining.Float()))
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(fakRetryDelay):
		}
	}
}

// saveResting persists the current resting buy, if a cache is attached.
func (d *Driver) saveResting(ctx context.Context) {
	if d.cache == nil || d.resting == nil {
		return
	}
	r := d.resting
	if err := d.cache.SaveRestingBuy(ctx, string(d.book.AssetID()), r.OrderID, int64(r.Price), int64(r.Size)); err != nil {
		d.logger.Warn("cache resting buy failed", slog.String("error", err.Error()))
	}
}

// clearResting drops the cached resting buy, if a cache is attached.
func (d *Driver) clearResting(ctx context.Context) {
	if d.cache == nil {
		return
	}
	if err := d.cache.ClearRestingBuy(ctx, string(d.book.AssetID())); err != nil {
		d.logger.Warn("clear cached resting buy failed", slog.String("error", err.Error()))
	}
}

// loadCachedRestingBuy re-adopts a still-live resting buy from a prior
// process, if a cache is attached and holds one for the current asset.
func (d *Driver) loadCachedRestingBuy(ctx context.Context) {
	if d.cache == nil {
		return
	}
	orderID, priceTicks, sizeUnits, ok, err := d.cache.LoadRestingBuy(ctx, string(d.book.AssetID()))
	if err != nil {
		d.logger.Warn("load cached resting buy failed", slog.String("error", err.Error()))
		return
	}
	if !ok {
		return
	}
	d.resting = &domain.RestingBuy{OrderID: orderID, Price: domain.Price(priceTicks), Size: domain.Size(sizeUnits)}
	d.logger.Info("re-adopted resting buy from cache", slog.String("order_id", orderID))
}

// handleUnderflow reseeds the position from exchange truth and aborts the
// current tick, per the error handling design.
func (d *Driver) handleUnderflow(ctx context.Context, cause error) {
	d.logger.Error("position underflow detected, resetting from exchange", slog.String("error", cause.Error()))
	if err := d.reseedPosition(ctx); err != nil {
		d.logger.Error("post-underflow reseed failed", slog.String("error", err.Error()))
	}
}

func (d *Driver) reseedPosition(ctx context.Context) error {
	shares, err := d.balances.FetchBalance(ctx, d.book.AssetID())
	if err != nil {
		return fmt.Errorf("driver: fetch balance: %w", err)
	}
	d.pos.ResetFromExchange(d.book.AssetID(), shares)
	return nil
}

// rotate cancels the resting buy, resolves the successor asset, and resets
// all per-asset state for it.
func (d *Driver) rotate(ctx context.Context) error {
	prevAsset := d.book.AssetID()
	d.logger.Info("rotating market", slog.String("previous_asset", string(prevAsset)))

	if d.resting != nil {
		if err := d.exec.Cancel(ctx, d.resting.OrderID); err != nil {
			d.logger.Warn("cancel resting buy on rotation failed", slog.String("error", err.Error()))
		}
		d.resting = nil
		d.clearResting(ctx)
	}

	if d.sessionL != nil {
		_ = d.sessionL.Write(session.WindowSummary{
			AssetID:      string(prevAsset),
			WindowSlug:   d.windowSlug,
			OpenedAt:     d.windowStart,
			ClosedAt:     time.Now(),
			RealizedPnL:  float64(d.pos.RealizedPnLTicks()) / 1e12,
			SharesTraded: d.pos.Shares().Float(),
		})
	}

	slug := d.cfg.WindowSlugFn(time.Now())
	nextAsset, _, err := d.resolver.Resolve(ctx, slug, d.cfg.Outcome)
	if err != nil {
		return fmt.Errorf("driver: resolve successor market: %w", err)
	}

	if err := d.feed.Unsubscribe([]string{"book", "price_change"}, []string{string(prevAsset)}); err != nil {
		d.logger.Warn("unsubscribe previous asset failed", slog.String("error", err.Error()))
	}
	if err := d.feed.Subscribe([]string{"book", "price_change"}, []string{string(nextAsset)}); err != nil {
		return fmt.Errorf("driver: subscribe successor asset: %w", err)
	}

	d.book.Reset(nextAsset)
	d.windowSlug = slug
	d.windowStart = time.Now()
	if err := d.reseedPosition(ctx); err != nil {
		d.logger.Error("post-rotation reseed failed", slog.String("error", err.Error()))
	}
	d.logger.Info("rotation complete", slog.String("new_asset", string(nextAsset)))
	return nil
}
