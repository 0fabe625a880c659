// Package position tracks this agent's believed holding in the single
// asset it is currently trading, reconciled against exchange truth rather
// than a persistent ledger (see Non-goals: no position accounting across
// restarts).
package position

import (
	"fmt"
	"log/slog"

	"github.com/gozuray/sniper/internal/domain"
)

// Position is the local share ledger for one asset.
type Position struct {
	logger *slog.Logger
	state  domain.Position
}

// New creates a Position for assetID with the given maximum holding cap.
func New(assetID domain.AssetId, cap domain.Size, logger *slog.Logger) *Position {
	return &Position{
		logger: logger.With(slog.String("component", "position")),
		state:  domain.Position{AssetID: assetID, Cap: cap},
	}
}

// Shares returns the currently tracked share count.
func (p *Position) Shares() domain.Size {
	return p.state.Shares
}

// HasPosition reports whether any shares are currently tracked.
func (p *Position) HasPosition() bool {
	return p.state.Shares > 0
}

// OnBuyFill records a completed or partial buy fill, clamping the
// resulting share count at Cap and updating the size-weighted average
// entry price over only the accepted portion. It returns the delta
// actually accepted, which is less than filled when the fill would have
// pushed shares past Cap.
func (p *Position) OnBuyFill(filled domain.Size, price domain.Price) domain.Size {
	if filled <= 0 {
		return 0
	}
	accepted := filled.Min(p.state.Cap.Sub(p.state.Shares))
	if accepted <= 0 {
		p.logger.Warn("buy fill rejected, position already at cap",
			slog.Float64("filled", filled.Float()),
			slog.Float64("cap", p.state.Cap.Float()),
			slog.Float64("shares", p.state.Shares.Float()),
		)
		return 0
	}

	totalCost := int64(p.state.EntryPrice)*int64(p.state.Shares) + int64(price)*int64(accepted)
	newShares := p.state.Shares + accepted
	if newShares > 0 {
		p.state.EntryPrice = domain.Price(totalCost / int64(newShares))
	}
	p.state.Shares = newShares
	if accepted < filled {
		p.logger.Warn("buy fill clamped to cap",
			slog.Float64("filled", filled.Float()),
			slog.Float64("accepted", accepted.Float()),
			slog.Float64("cap", p.state.Cap.Float()),
		)
	}
	p.logger.Info("buy fill applied",
		slog.Float64("accepted", accepted.Float()),
		slog.Float64("price", price.Float()),
		slog.Float64("shares_after", p.state.Shares.Float()),
	)
	return accepted
}

// OnSellFill records a completed or partial sell fill. If filled exceeds
// the tracked share count, the ledger has diverged from exchange truth:
// it returns domain.ErrUnderflow and does NOT mutate state — the caller
// must call ResetFromExchange and abort the current tick, per the error
// handling design.
func (p *Position) OnSellFill(filled domain.Size, price domain.Price) error {
	if filled <= 0 {
		return nil
	}
	if filled > p.state.Shares {
		return fmt.Errorf("position: sell fill %.6f exceeds tracked %.6f: %w",
			filled.Float(), p.state.Shares.Float(), domain.ErrUnderflow)
	}
	p.state.RealizedPnL += int64(price-p.state.EntryPrice) * int64(filled)
	p.state.Shares -= filled
	p.logger.Info("sell fill applied",
		slog.Float64("filled", filled.Float()),
		slog.Float64("price", price.Float()),
		slog.Float64("shares_after", p.state.Shares.Float()),
	)
	return nil
}

// ResetFromExchange reseeds the ledger from authoritative exchange state.
// The driver calls it at startup, on market rotation, and after an
// underflow; a reconnect of the streaming feed does not trigger it.
func (p *Position) ResetFromExchange(assetID domain.AssetId, shares domain.Size) {
	p.logger.Warn("position reset from exchange",
		slog.String("asset_id", string(assetID)),
		slog.Float64("shares", shares.Float()),
	)
	p.state.AssetID = assetID
	p.state.Shares = shares
	p.state.EntryPrice = 0
	p.state.RealizedPnL = 0
}

// AvailableToSell returns the size that may currently be sold: the full
// tracked holding.
func (p *Position) AvailableToSell() domain.Size {
	return p.state.Shares
}

// HeadroomToBuy returns how many more shares may be bought before hitting
// the configured position cap; zero or negative means no headroom.
func (p *Position) HeadroomToBuy() domain.Size {
	return p.state.Cap.Sub(p.state.Shares)
}

// RealizedPnLTicks returns the accumulated realized P&L in price-tick*size
// units, for session-summary reporting only.
func (p *Position) RealizedPnLTicks() int64 {
	return p.state.RealizedPnL
}

// AssetID returns the asset this ledger is currently tracking.
func (p *Position) AssetID() domain.AssetId {
	return p.state.AssetID
}
