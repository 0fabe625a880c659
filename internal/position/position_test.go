package position

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gozuray/sniper/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPositionOnBuyFillTracksWeightedEntry(t *testing.T) {
	p := New("asset-1", domain.NewSizeFromFloat(10), testLogger())

	p.OnBuyFill(domain.NewSizeFromFloat(2), domain.NewPriceFromFloat(0.40))
	p.OnBuyFill(domain.NewSizeFromFloat(2), domain.NewPriceFromFloat(0.60))

	if got := p.Shares().Float(); got != 4 {
		t.Fatalf("shares = %v, want 4", got)
	}
	if got := p.HeadroomToBuy().Float(); got != 6 {
		t.Fatalf("headroom = %v, want 6", got)
	}
	if got := p.state.EntryPrice; got != domain.NewPriceFromFloat(0.50) {
		t.Errorf("entry price = %v, want size-weighted 0.50", got.Float())
	}
}

func TestPositionOnBuyFillClampsToCapAndReturnsAcceptedDelta(t *testing.T) {
	p := New("asset-1", domain.NewSizeFromFloat(5), testLogger())
	p.OnBuyFill(domain.NewSizeFromFloat(4), domain.NewPriceFromFloat(0.40))

	accepted := p.OnBuyFill(domain.NewSizeFromFloat(3), domain.NewPriceFromFloat(0.60))

	if got := accepted.Float(); got != 1 {
		t.Fatalf("accepted delta = %v, want 1 (only 1 share of headroom left)", got)
	}
	if got := p.Shares().Float(); got != 5 {
		t.Fatalf("shares = %v, want clamped to cap 5", got)
	}
	if got := p.HeadroomToBuy().Float(); got != 0 {
		t.Fatalf("headroom = %v, want 0 once at cap", got)
	}
}

func TestPositionOnBuyFillAtCapReturnsZero(t *testing.T) {
	p := New("asset-1", domain.NewSizeFromFloat(2), testLogger())
	p.OnBuyFill(domain.NewSizeFromFloat(2), domain.NewPriceFromFloat(0.40))

	accepted := p.OnBuyFill(domain.NewSizeFromFloat(1), domain.NewPriceFromFloat(0.60))

	if accepted != 0 {
		t.Fatalf("accepted delta = %v, want 0 once already at cap", accepted.Float())
	}
	if got := p.Shares().Float(); got != 2 {
		t.Fatalf("shares = %v, should not move past cap", got)
	}
}

func TestPositionOnSellFillReducesShares(t *testing.T) {
	p := New("asset-1", domain.NewSizeFromFloat(10), testLogger())
	p.OnBuyFill(domain.NewSizeFromFloat(5), domain.NewPriceFromFloat(0.50))

	if err := p.OnSellFill(domain.NewSizeFromFloat(2), domain.NewPriceFromFloat(0.90)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := p.Shares().Float(); got != 3 {
		t.Fatalf("shares after sell = %v, want 3", got)
	}
	if got := p.RealizedPnLTicks(); got <= 0 {
		t.Errorf("expected positive realized pnl selling above entry, got %d", got)
	}
}

func TestPositionOnSellFillUnderflowLeavesStateUnchanged(t *testing.T) {
	p := New("asset-1", domain.NewSizeFromFloat(10), testLogger())
	p.OnBuyFill(domain.NewSizeFromFloat(1), domain.NewPriceFromFloat(0.50))

	err := p.OnSellFill(domain.NewSizeFromFloat(5), domain.NewPriceFromFloat(0.50))
	if !errors.Is(err, domain.ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if got := p.Shares().Float(); got != 1 {
		t.Errorf("shares must be unchanged after a rejected overflow sell, got %v", got)
	}
}

func TestPositionResetFromExchange(t *testing.T) {
	p := New("asset-1", domain.NewSizeFromFloat(10), testLogger())
	p.OnBuyFill(domain.NewSizeFromFloat(5), domain.NewPriceFromFloat(0.50))

	p.ResetFromExchange("asset-1", domain.NewSizeFromFloat(2))

	if got := p.Shares().Float(); got != 2 {
		t.Fatalf("shares after reset = %v, want 2", got)
	}
	if got := p.RealizedPnLTicks(); got != 0 {
		t.Errorf("realized pnl should reset to zero, got %d", got)
	}
}

func TestPositionHasPosition(t *testing.T) {
	p := New("asset-1", domain.NewSizeFromFloat(10), testLogger())
	if p.HasPosition() {
		t.Error("fresh position should report no holding")
	}
	p.OnBuyFill(domain.NewSizeFromFloat(1), domain.NewPriceFromFloat(0.5))
	if !p.HasPosition() {
		t.Error("position with shares should report a holding")
	}
}
