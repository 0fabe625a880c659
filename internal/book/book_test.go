package book

import (
	"testing"
	"time"

	"github.com/gozuray/sniper/internal/domain"
)

func TestBookIsStaleBeforeFirstUpdate(t *testing.T) {
	b := New("asset-1", 200*time.Millisecond)
	if !b.IsStale() {
		t.Error("book with no update should be stale")
	}
}

func TestBookApplyMarksFresh(t *testing.T) {
	now := time.Now()
	b := New("asset-1", 200*time.Millisecond)
	b.now = func() time.Time { return now }

	b.Apply(domain.BookSnapshot{
		AssetID: "asset-1",
		BestBid: domain.NewPriceFromFloat(0.40),
		BestAsk: domain.NewPriceFromFloat(0.42),
		HasBid:  true,
		HasAsk:  true,
	})

	if b.IsStale() {
		t.Error("book just updated should not be stale")
	}
	snap := b.Snapshot()
	if snap.BestBid.Float() != 0.40 || snap.BestAsk.Float() != 0.42 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestBookGoesStaleAfterThreshold(t *testing.T) {
	current := time.Now()
	b := New("asset-1", 200*time.Millisecond)
	b.now = func() time.Time { return current }

	b.Apply(domain.BookSnapshot{AssetID: "asset-1", BestBid: 1, HasBid: true})
	if b.IsStale() {
		t.Fatal("expected fresh immediately after apply")
	}

	current = current.Add(201 * time.Millisecond)
	if !b.IsStale() {
		t.Error("expected stale after threshold elapsed")
	}
}

func TestBookApplyIgnoresOtherAsset(t *testing.T) {
	b := New("asset-1", time.Second)
	b.Apply(domain.BookSnapshot{AssetID: "asset-2", BestBid: 1, HasBid: true})
	if !b.IsStale() {
		t.Error("update for a different asset must not mark this book fresh")
	}
	if b.Snapshot().HasBid {
		t.Error("update for a different asset must not be applied")
	}
}

func TestBookReset(t *testing.T) {
	b := New("asset-1", time.Second)
	b.Apply(domain.BookSnapshot{AssetID: "asset-1", BestBid: 1, BestAsk: 2, HasBid: true, HasAsk: true})

	b.Reset("asset-2")

	if b.AssetID() != "asset-2" {
		t.Errorf("AssetID after reset = %v, want asset-2", b.AssetID())
	}
	if !b.IsStale() {
		t.Error("book should be stale immediately after reset")
	}
	snap := b.Snapshot()
	if snap.HasBid || snap.HasAsk {
		t.Error("reset should clear bid/ask flags")
	}
}

func TestBookApplyFallbackDoesNotMarkFresh(t *testing.T) {
	current := time.Now()
	b := New("asset-1", time.Second)
	b.now = func() time.Time { return current }

	bid := 0.30
	ask := 0.35
	snap := b.ApplyFallback(domain.TopOfBook{AssetID: "asset-1", BestBid: &bid, BestAsk: &ask})

	if !snap.HasBid || snap.BestBid.Float() != 0.30 {
		t.Errorf("fallback snapshot bid = %+v, want 0.30", snap)
	}
	if !snap.HasAsk || snap.BestAsk.Float() != 0.35 {
		t.Errorf("fallback snapshot ask = %+v, want 0.35", snap)
	}
	// ApplyFallback must not persist into the book's own freshness state.
	if !b.IsStale() {
		t.Error("REST fallback must not mark the streaming book fresh")
	}
}
