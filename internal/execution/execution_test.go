package execution

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/gozuray/sniper/internal/domain"
)

type fakePlacer struct {
	outcome domain.OrderOutcome
	err     error
	calls   []domain.Order
}

func (f *fakePlacer) PlaceOrder(_ context.Context, order domain.Order) (domain.OrderOutcome, error) {
	f.calls = append(f.calls, order)
	return f.outcome, f.err
}

func (f *fakePlacer) CancelOrder(context.Context, string) error { return nil }

func (f *fakePlacer) FetchTopOfBook(context.Context, domain.AssetId) (domain.TopOfBook, error) {
	return domain.TopOfBook{}, nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(order *domain.Order) error {
	order.ID = "signed-order"
	return nil
}

func testExecLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPostSellFAKIssuesExactlyOneOrderPerCall(t *testing.T) {
	placer := &fakePlacer{outcome: domain.OrderOutcome{FilledSize: 0, Status: domain.OrderStatusOpen}}
	e := New(placer, fakeSigner{}, "0xwallet", testExecLogger())

	outcome, err := e.PostSellFAK(context.Background(), "asset-1", domain.NewSizeFromFloat(5), domain.NewPriceFromFloat(0.5), domain.NewSizeFromFloat(5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(placer.calls) != 1 {
		t.Fatalf("PlaceOrder called %d times, want exactly 1 (PostSellFAK makes a single attempt)", len(placer.calls))
	}
	if placer.calls[0].Type != domain.OrderTypeFAK {
		t.Errorf("order type = %v, want FAK", placer.calls[0].Type)
	}
	if outcome.FilledSize != 0 {
		t.Errorf("filled size = %v, want 0 to match the fake placer's reported outcome", outcome.FilledSize.Float())
	}
}

func TestPostSellFAKClampsToAvailableBalance(t *testing.T) {
	placer := &fakePlacer{outcome: domain.OrderOutcome{FilledSize: domain.NewSizeFromFloat(3)}}
	e := New(placer, fakeSigner{}, "0xwallet", testExecLogger())

	_, err := e.PostSellFAK(context.Background(), "asset-1", domain.NewSizeFromFloat(10), domain.NewPriceFromFloat(0.5), domain.NewSizeFromFloat(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := placer.calls[0].Size.Float(); got >= 3 {
		t.Errorf("placed size %v should be clamped strictly below available balance 3", got)
	}
}

func TestClampSellSizeCapsToBalance(t *testing.T) {
	requested := domain.NewSizeFromFloat(5)
	available := domain.NewSizeFromFloat(3)

	got := ClampSellSize(requested, available)

	if got.Float() >= 3 {
		t.Errorf("clamped size %v should be strictly below the available balance (buffer subtracted)", got.Float())
	}
	if got.Float() <= 2.999 {
		t.Errorf("clamped size %v should be close to the available balance", got.Float())
	}
}

func TestClampSellSizeFloorsToFourDecimals(t *testing.T) {
	requested := domain.NewSizeFromFloat(1.123456)
	available := domain.NewSizeFromFloat(10)

	got := ClampSellSize(requested, available)

	want := domain.NewSizeFromFloat(1.1234)
	if got != want {
		t.Errorf("ClampSellSize = %v, want %v (floored to 4 decimals)", got.Float(), want.Float())
	}
}

func TestClampSellSizeBelowMinimumReturnsZero(t *testing.T) {
	requested := domain.NewSizeFromFloat(0.00005)
	available := domain.NewSizeFromFloat(1)

	if got := ClampSellSize(requested, available); got != 0 {
		t.Errorf("sub-minimum sell size should clamp to zero, got %v", got.Float())
	}
}

func TestClampSellSizeNegativeBalanceFloorsAtZero(t *testing.T) {
	requested := domain.NewSizeFromFloat(1)
	available := domain.Size(0)

	if got := ClampSellSize(requested, available); got != 0 {
		t.Errorf("zero balance should clamp sell size to zero, got %v", got.Float())
	}
}

func TestIsPositionClosedRejection(t *testing.T) {
	cases := []struct {
		reason string
		want   bool
	}{
		{"not enough balance / allowance", true},
		{"Insufficient Balance for order", true},
		{"allowance too low", true},
		{"order book empty", false},
		{"", false},
	}
	for _, c := range cases {
		if got := IsPositionClosedRejection(c.reason); got != c.want {
			t.Errorf("IsPositionClosedRejection(%q) = %v, want %v", c.reason, got, c.want)
		}
	}
}
