package polymarket

import (
	"testing"

	"github.com/gozuray/sniper/internal/domain"
)

func TestBookToDomainSnapshotPicksBestLevels(t *testing.T) {
	msg := &BookMessage{
		AssetID: "asset-1",
		Bids:    []WSPriceLevel{{Price: "0.40", Size: "10"}, {Price: "0.45", Size: "5"}},
		Asks:    []WSPriceLevel{{Price: "0.55", Size: "10"}, {Price: "0.50", Size: "5"}},
	}

	snap := BookToDomainSnapshot(msg)

	if !snap.HasBid || snap.BestBid.Float() != 0.45 {
		t.Errorf("best bid = %v, want 0.45 (highest)", snap.BestBid.Float())
	}
	if !snap.HasAsk || snap.BestAsk.Float() != 0.50 {
		t.Errorf("best ask = %v, want 0.50 (lowest)", snap.BestAsk.Float())
	}
}

func TestRawOrderBookToTopOfBook(t *testing.T) {
	raw := &RawOrderBook{
		AssetID: "asset-1",
		Bids:    []RawBookLevel{{Price: "0.30", Size: "1"}, {Price: "0.35", Size: "1"}},
		Asks:    []RawBookLevel{{Price: "0.42", Size: "1"}, {Price: "0.40", Size: "1"}},
	}

	top := raw.ToTopOfBook()

	if top.BestBid == nil || *top.BestBid != 0.35 {
		t.Errorf("best bid = %v, want 0.35", top.BestBid)
	}
	if top.BestAsk == nil || *top.BestAsk != 0.40 {
		t.Errorf("best ask = %v, want 0.40", top.BestAsk)
	}
}

func TestPriceChangeAppliedToImproveBid(t *testing.T) {
	snap := domainSnapshot(0.40, 0.45)

	pc := &PriceChangeMessage{Side: "BUY", Price: "0.43", Size: "5"}
	out := PriceChangeAppliedTo(snap, pc)

	if out.BestBid.Float() != 0.43 {
		t.Errorf("best bid after improving price_change = %v, want 0.43", out.BestBid.Float())
	}
}

func TestPriceChangeAppliedToRemovesLevel(t *testing.T) {
	snap := domainSnapshot(0.40, 0.45)

	pc := &PriceChangeMessage{Side: "BUY", Price: "0.40", Size: "0"}
	out := PriceChangeAppliedTo(snap, pc)

	if out.HasBid {
		t.Error("a size-0 price_change for the current best bid should clear HasBid")
	}
}

func TestPriceChangeAppliedToIgnoresWorseLevel(t *testing.T) {
	snap := domainSnapshot(0.40, 0.45)

	pc := &PriceChangeMessage{Side: "BUY", Price: "0.30", Size: "5"}
	out := PriceChangeAppliedTo(snap, pc)

	if out.BestBid.Float() != 0.40 {
		t.Errorf("a worse bid level must not overwrite the current best, got %v", out.BestBid.Float())
	}
}

func domainSnapshot(bid, ask float64) domain.BookSnapshot {
	return domain.BookSnapshot{
		AssetID: "asset-1",
		BestBid: domain.NewPriceFromFloat(bid),
		BestAsk: domain.NewPriceFromFloat(ask),
		HasBid:  true,
		HasAsk:  true,
	}
}
