// Package strategy implements the pure, single-threaded decision function
// at the heart of the agent: given the current book, position, dedup
// state, and any resting buy, it returns at most one Action per tick in
// strict Stop-Loss > Take-Profit > Buy priority order.
package strategy

import "github.com/gozuray/sniper/internal/domain"

// Config is the subset of the configuration surface the evaluator reads.
type Config struct {
	BuyMin         domain.Price
	BuyMax         domain.Price
	TakeProfit     domain.Price // trigger: best_bid >= TakeProfit
	StopLoss       domain.Price // trigger: best_bid <= StopLoss
	OrderSize      domain.Size
	TickSize       domain.Price
}

// Dedup is the interface Evaluate needs from internal/dedup.Dedup.
type Dedup interface {
	CheckAndRecord(kind domain.IntentKind, size domain.Size) bool
}

// Position is the interface Evaluate needs from internal/position.Position.
type Position interface {
	HasPosition() bool
	AvailableToSell() domain.Size
	HeadroomToBuy() domain.Size
}

// Evaluate applies strict Stop-Loss > Take-Profit > Buy priority and
// returns the single Action to take this tick. bookIsStale suppresses all
// new buys (SL/TP may still act, using whatever book or REST-fallback
// snapshot the caller passes in — Evaluate itself doesn't fetch).
func Evaluate(cfg Config, book domain.BookSnapshot, pos Position, dd Dedup, resting *domain.RestingBuy, bookIsStale bool) domain.Action {
	if !book.HasBid {
		return domain.Action{Kind: domain.ActionNothing}
	}
	bestBid := book.BestBid

	// 1. Stop-loss: highest priority, early return regardless of dedup outcome.
	if pos.HasPosition() && bestBid <= cfg.StopLoss {
		size := pos.AvailableToSell()
		if dd.CheckAndRecord(domain.IntentStopLoss, size) {
			return domain.Action{Kind: domain.ActionSendStopLoss, Size: size, LimitPrice: bestBid}
		}
		return domain.Action{Kind: domain.ActionNothing}
	}

	// 2. Take-profit.
	if pos.HasPosition() && bestBid >= cfg.TakeProfit {
		size := pos.AvailableToSell()
		if dd.CheckAndRecord(domain.IntentTakeProfit, size) {
			return domain.Action{Kind: domain.ActionSendTakeProfit, Size: size, LimitPrice: bestBid}
		}
		return domain.Action{Kind: domain.ActionNothing}
	}

	// 3. Buy management. Suppressed entirely while the book is stale: a
	// buy is only ever placed or replaced against a fresh streaming view.
	if bookIsStale {
		return domain.Action{Kind: domain.ActionNothing}
	}

	if !book.HasAsk {
		// No ask to clamp a buy target against; leave any resting buy alone.
		return domain.Action{Kind: domain.ActionNothing}
	}

	headroom := pos.HeadroomToBuy()
	if headroom <= 0 {
		if resting != nil {
			return domain.Action{Kind: domain.ActionCancelBuy, CancelOrderID: resting.OrderID}
		}
		return domain.Action{Kind: domain.ActionNothing}
	}

	targetPrice := book.BestAsk.Clamp(cfg.BuyMin, cfg.BuyMax).RoundToTick(cfg.TickSize)
	size := cfg.OrderSize.Min(headroom)
	if size <= 0 {
		return domain.Action{Kind: domain.ActionNothing}
	}

	outOfBand := book.BestAsk < cfg.BuyMin || book.BestAsk > cfg.BuyMax
	if outOfBand {
		if resting != nil {
			return domain.Action{Kind: domain.ActionCancelBuy, CancelOrderID: resting.OrderID}
		}
		return domain.Action{Kind: domain.ActionNothing}
	}

	if !dd.CheckAndRecord(domain.IntentBuy, size) {
		return domain.Action{Kind: domain.ActionNothing}
	}

	if resting == nil {
		return domain.Action{Kind: domain.ActionPlaceBuy, Size: size, LimitPrice: targetPrice}
	}

	if priceDrifted(resting.Price, targetPrice, cfg.TickSize) {
		return domain.Action{
			Kind:           domain.ActionCancelAndReplaceBuy,
			ReplaceOrderID: resting.OrderID,
			NewSize:        size,
			NewPrice:       targetPrice,
		}
	}
	return domain.Action{Kind: domain.ActionNothing}
}

// priceDrifted reports whether the resting buy's price differs from the
// new target by more than one tick.
func priceDrifted(resting, target, tick domain.Price) bool {
	diff := resting - target
	if diff < 0 {
		diff = -diff
	}
	return diff > tick
}
