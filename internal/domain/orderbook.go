package domain

import "time"

// BookSnapshot is the current best-of-book view for a single asset, as
// consumed by the strategy evaluator. Timestamp is captured from a
// monotonic clock source (time.Time values produced by time.Now() carry
// a monotonic reading on Go's runtime, and callers must never strip it
// with e.g. round-tripping through Unix()) so staleness checks are
// immune to wall-clock adjustments.
type BookSnapshot struct {
	AssetID   AssetId
	BestBid   Price
	BestAsk   Price
	HasBid    bool
	HasAsk    bool
	Timestamp time.Time
}

// PriceLevel is a single price+size entry of an orderbook. The REST
// fallback fetch and the streaming feed decoder use their own string-typed
// level types (polymarket.RawBookLevel, polymarket.WSPriceLevel), not this.
type PriceLevel struct {
	Price float64
	Size  float64
}

// TopOfBook is the REST fallback response shape for a single asset,
// mirroring the exchange's /book endpoint.
type TopOfBook struct {
	AssetID   AssetId
	BestBid   *float64
	BestAsk   *float64
	Timestamp time.Time
}
