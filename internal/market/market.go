// Package market is the market-discovery collaborator: it resolves a
// window identifier (e.g. a 5-minute interval slug) and desired outcome
// token to a concrete domain.AssetId, and offers ChooseEntrySide to pick
// between two correlated outcome tokens (the driver's rotation does not
// call it; it uses the configured outcome). It is treated as an external
// black box by the core decision loop (see spec scope): no pricing logic
// lives here.
package market

import (
	"context"
	"fmt"

	"github.com/gozuray/sniper/internal/domain"
)

// GammaClient is the interface Resolver needs from
// internal/platform/polymarket.GammaClient.
type GammaClient interface {
	GetMarketBySlug(ctx context.Context, slug string) (domain.Market, error)
}

// Outcome selects which of a market's two correlated tokens to track.
type Outcome int

const (
	OutcomeUp Outcome = iota
	OutcomeDown
)

// Resolver resolves window identifiers to tradable assets via the Gamma
// market-discovery API.
type Resolver struct {
	gamma GammaClient
}

// New creates a Resolver.
func New(gamma GammaClient) *Resolver {
	return &Resolver{gamma: gamma}
}

// Resolve looks up the market for windowSlug and returns the AssetId for
// the requested outcome token.
func (r *Resolver) Resolve(ctx context.Context, windowSlug string, outcome Outcome) (domain.AssetId, domain.Market, error) {
	m, err := r.gamma.GetMarketBySlug(ctx, windowSlug)
	if err != nil {
		return "", domain.Market{}, fmt.Errorf("market: resolve %s: %w", windowSlug, err)
	}
	idx := 0
	if outcome == OutcomeDown {
		idx = 1
	}
	if m.TokenIDs[idx] == "" {
		return "", m, fmt.Errorf("market: resolve %s: %w: no token for outcome %d", windowSlug, domain.ErrNotFound, outcome)
	}
	return domain.AssetId(m.TokenIDs[idx]), m, nil
}

// TopOfBookSide is the minimal book-side data ChooseEntrySide needs to
// compare two correlated tokens.
type TopOfBookSide struct {
	BestAsk      *float64
	BestAskSize  *float64
}

// ChooseEntrySide picks between the Up and Down token based on which has
// the higher in-band ask with sufficient resting size, mirroring the
// original runner's choose_side helper. It is an optional pre-rotation
// hook; the single-asset strategy evaluator never calls it directly.
func ChooseEntrySide(up, down TopOfBookSide, buyMin, buyMax, minSize float64) (Outcome, bool) {
	upOK := inBandWithSize(up, buyMin, buyMax, minSize)
	downOK := inBandWithSize(down, buyMin, buyMax, minSize)
	switch {
	case upOK && !downOK:
		return OutcomeUp, true
	case downOK && !upOK:
		return OutcomeDown, true
	case upOK && downOK:
		if *up.BestAsk >= *down.BestAsk {
			return OutcomeUp, true
		}
		return OutcomeDown, true
	default:
		return 0, false
	}
}

func inBandWithSize(side TopOfBookSide, lo, hi, minSize float64) bool {
	if side.BestAsk == nil || side.BestAskSize == nil {
		return false
	}
	if *side.BestAsk < lo || *side.BestAsk > hi {
		return false
	}
	return *side.BestAskSize >= minSize
}
