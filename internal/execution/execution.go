// Package execution wraps order submission with the venue-facing safety
// behaviour the strategy evaluator itself stays free of: balance-aware
// sell sizing and REST top-of-book fallback when the streaming book has
// gone stale. Each method issues exactly one order and reports its
// outcome; the in-tick stop-loss partial-fill retry loop lives in
// internal/driver, one level up, so each retry can be independently
// admitted through Dedup and applied to Position the same way the first
// attempt is.
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/gozuray/sniper/internal/domain"
)

// OrderPlacer is the venue interface Execution depends on. The concrete
// implementation is internal/platform/polymarket.ClobClient.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderOutcome, error)
	CancelOrder(ctx context.Context, orderID string) error
	FetchTopOfBook(ctx context.Context, assetID domain.AssetId) (domain.TopOfBook, error)
}

// Signer produces the EIP-712 signature and maker/taker amounts for an
// order before submission.
type Signer interface {
	Sign(order *domain.Order) error
}

const (
	orderPlacementTimeout = 1 * time.Second
	topOfBookTimeout      = 500 * time.Millisecond

	// sellSizeDecimals/minSellSize/balanceBuffer ground the balance-aware
	// sizing supplement on the original runner's constants.
	sellSizeDecimals = 4
	minSellSize      = 0.0001
	balanceBuffer    = 0.000001
)

// buyRejectionBackoff is a fixed ladder of delays for a balance/allowance
// rejection on a buy placement. No code path reads it: PostBuyGTC returns
// a rejection to the caller without waiting, and the next tick may place
// the buy again at once.
var buyRejectionBackoff = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}

// Execution issues orders against the venue and classifies their outcomes.
type Execution struct {
	placer OrderPlacer
	signer Signer
	wallet string
	logger *slog.Logger
}

// New creates an Execution wrapper.
func New(placer OrderPlacer, signer Signer, wallet string, logger *slog.Logger) *Execution {
	return &Execution{
		placer: placer,
		signer: signer,
		wallet: wallet,
		logger: logger.With(slog.String("component", "execution")),
	}
}

// PostBuyGTC places a resting GTC buy order.
func (e *Execution) PostBuyGTC(ctx context.Context, assetID domain.AssetId, size domain.Size, price domain.Price) (domain.OrderOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, orderPlacementTimeout)
	defer cancel()

	order := e.buildOrder(assetID, domain.OrderSideBuy, domain.OrderTypeGTC, size, price)
	if err := e.signer.Sign(&order); err != nil {
		return domain.OrderOutcome{}, fmt.Errorf("execution: sign buy: %w", err)
	}
	e.logger.Info("placing buy GTC", slog.String("asset_id", string(assetID)),
		slog.Float64("size", size.Float()), slog.Float64("price", price.Float()))
	return e.placer.PlaceOrder(ctx, order)
}

// PostSellFOK places a take-profit sell as Fill-Or-Kill: it either fully
// matches or is entirely killed, never partially filled.
func (e *Execution) PostSellFOK(ctx context.Context, assetID domain.AssetId, size domain.Size, price domain.Price) (domain.OrderOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, orderPlacementTimeout)
	defer cancel()

	clamped := ClampSellSize(size, size)
	order := e.buildOrder(assetID, domain.OrderSideSell, domain.OrderTypeFOK, clamped, price)
	if err := e.signer.Sign(&order); err != nil {
		return domain.OrderOutcome{}, fmt.Errorf("execution: sign take-profit: %w", err)
	}
	e.logger.Info("sending TP sell FOK", slog.String("asset_id", string(assetID)),
		slog.Float64("size", clamped.Float()), slog.Float64("price", price.Float()))
	return e.placer.PlaceOrder(ctx, order)
}

// PostSellFAK places a single stop-loss sell as Fill-And-Kill: it fills as
// much of size as immediately possible against availableBalance and
// reports the outcome. Driving the in-tick partial-fill remainder back
// through this method, under a freshly admitted Dedup intent, is the
// caller's responsibility (see internal/driver).
func (e *Execution) PostSellFAK(ctx context.Context, assetID domain.AssetId, size domain.Size, price domain.Price, availableBalance domain.Size) (domain.OrderOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, orderPlacementTimeout)
	defer cancel()

	clamped := ClampSellSize(size, availableBalance)
	order := e.buildOrder(assetID, domain.OrderSideSell, domain.OrderTypeFAK, clamped, price)
	if err := e.signer.Sign(&order); err != nil {
		return domain.OrderOutcome{}, fmt.Errorf("execution: sign stop-loss: %w", err)
	}
	e.logger.Info("sending SL sell FAK", slog.String("asset_id", string(assetID)),
		slog.Float64("size", clamped.Float()), slog.Float64("price", price.Float()))
	outcome, err := e.placer.PlaceOrder(ctx, order)
	if err != nil {
		return domain.OrderOutcome{}, fmt.Errorf("execution: stop-loss: %w", err)
	}
	return outcome, nil
}

// Cancel cancels a resting order by ID.
func (e *Execution) Cancel(ctx context.Context, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, orderPlacementTimeout)
	defer cancel()
	return e.placer.CancelOrder(ctx, orderID)
}

// FetchTopOfBook performs the REST fallback fetch used when the streaming
// book is stale, bounded by its own shorter timeout.
func (e *Execution) FetchTopOfBook(ctx context.Context, assetID domain.AssetId) (domain.TopOfBook, error) {
	ctx, cancel := context.WithTimeout(ctx, topOfBookTimeout)
	defer cancel()
	return e.placer.FetchTopOfBook(ctx, assetID)
}

func (e *Execution) buildOrder(assetID domain.AssetId, side domain.OrderSide, typ domain.OrderType, size domain.Size, price domain.Price) domain.Order {
	notional := new(big.Float).Mul(big.NewFloat(price.Float()), big.NewFloat(size.Float()))
	makerAmount, _ := notional.Int(nil)
	takerAmount := big.NewInt(int64(math.Round(size.Float() * 1e6)))

	return domain.Order{
		AssetID:     assetID,
		Side:        side,
		Type:        typ,
		LimitPrice:  price,
		Size:        size,
		MakerAmount: makerAmount,
		TakerAmount: takerAmount,
		CreatedAt:   time.Now(),
	}
}

// ClampSellSize caps requested against availableBalance minus a one
// base-unit safety buffer, floored to sellSizeDecimals, matching the
// original runner's effective_sell_size: the exchange rejects a sell that
// rounds to more than the wallet actually holds.
func ClampSellSize(requested, availableBalance domain.Size) domain.Size {
	avail := availableBalance.Float() - balanceBuffer
	if avail < 0 {
		avail = 0
	}
	capped := requested.Float()
	if capped > avail {
		capped = avail
	}
	capped = floorToDecimals(capped, sellSizeDecimals)
	if capped < minSellSize {
		return 0
	}
	return domain.NewSizeFromFloat(capped)
}

func floorToDecimals(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Floor(v*scale) / scale
}

// IsPositionClosedRejection reports whether a rejection reason indicates
// the position is already gone (balance/allowance exhausted), in which
// case further stop-loss retries this tick are pointless.
func IsPositionClosedRejection(reason string) bool {
	reason = strings.ToLower(reason)
	return strings.Contains(reason, "not enough balance") ||
		strings.Contains(reason, "insufficient balance") ||
		strings.Contains(reason, "allowance")
}
