// Package book holds the single-asset best-of-book view the strategy
// evaluator reads each tick.
package book

import (
	"time"

	"github.com/gozuray/sniper/internal/domain"
)

// Book tracks the current best bid/ask for one asset, keyed by a monotonic
// clock reading so staleness checks are immune to wall-clock adjustments.
// It is not safe for concurrent use — it is owned exclusively by the single
// cooperative tick loop, per the concurrency model.
type Book struct {
	assetID       domain.AssetId
	bestBid       domain.Price
	bestAsk       domain.Price
	hasBid        bool
	hasAsk        bool
	lastUpdate    time.Time
	staleAfter    time.Duration
	now           func() time.Time // overridable for tests
}

// New creates a Book for assetID that considers itself stale once staleAfter
// has elapsed since the last applied update.
func New(assetID domain.AssetId, staleAfter time.Duration) *Book {
	return &Book{
		assetID:    assetID,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Apply merges a new snapshot or incremental update into the book. Only
// updates for the tracked asset are applied; anything else is ignored
// (the caller is expected to only forward events for subscribed assets, but
// Apply defends against a stale subscription during rotation).
func (b *Book) Apply(snap domain.BookSnapshot) {
	if snap.AssetID != b.assetID {
		return
	}
	if snap.HasBid {
		b.bestBid = snap.BestBid
		b.hasBid = true
	}
	if snap.HasAsk {
		b.bestAsk = snap.BestAsk
		b.hasAsk = true
	}
	b.lastUpdate = b.now()
}

// Snapshot returns the current best-of-book view.
func (b *Book) Snapshot() domain.BookSnapshot {
	return domain.BookSnapshot{
		AssetID:   b.assetID,
		BestBid:   b.bestBid,
		BestAsk:   b.bestAsk,
		HasBid:    b.hasBid,
		HasAsk:    b.hasAsk,
		Timestamp: b.lastUpdate,
	}
}

// IsStale reports whether the book has gone staleAfter without an update,
// or has never received one at all.
func (b *Book) IsStale() bool {
	if b.lastUpdate.IsZero() {
		return true
	}
	return b.now().Sub(b.lastUpdate) > b.staleAfter
}

// Reset clears the book to its zero state, used on market rotation before
// the successor asset's first update arrives.
func (b *Book) Reset(assetID domain.AssetId) {
	b.assetID = assetID
	b.bestBid = 0
	b.bestAsk = 0
	b.hasBid = false
	b.hasAsk = false
	b.lastUpdate = time.Time{}
}

// AssetID returns the asset this book is currently tracking.
func (b *Book) AssetID() domain.AssetId {
	return b.assetID
}

// ApplyFallback overwrites the book from a REST top-of-book fetch without
// marking it fresh — the fallback is a one-shot read for a single SL/TP
// decision, not a substitute for the streaming feed's freshness guarantee.
// Sides present in top replace the book's; the returned snapshot holds
// only what top carried.
func (b *Book) ApplyFallback(top domain.TopOfBook) domain.BookSnapshot {
	snap := domain.BookSnapshot{AssetID: b.assetID, Timestamp: b.now()}
	if top.BestBid != nil {
		snap.BestBid = domain.NewPriceFromFloat(*top.BestBid)
		snap.HasBid = true
		b.bestBid = snap.BestBid
		b.hasBid = true
	}
	if top.BestAsk != nil {
		snap.BestAsk = domain.NewPriceFromFloat(*top.BestAsk)
		snap.HasAsk = true
		b.bestAsk = snap.BestAsk
		b.hasAsk = true
	}
	return snap
}
