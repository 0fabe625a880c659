package dedup

import (
	"testing"
	"time"

	"github.com/gozuray/sniper/internal/domain"
)

func TestDedupSuppressesRepeatWithinTTL(t *testing.T) {
	current := time.Now()
	d := New(50 * time.Millisecond)
	d.now = func() time.Time { return current }

	size := domain.NewSizeFromFloat(5)
	if !d.CheckAndRecord(domain.IntentBuy, size) {
		t.Fatal("first send should be admitted")
	}
	if d.CheckAndRecord(domain.IntentBuy, size) {
		t.Fatal("repeat within TTL should be suppressed")
	}
}

func TestDedupAdmitsAfterTTLElapses(t *testing.T) {
	current := time.Now()
	d := New(50 * time.Millisecond)
	d.now = func() time.Time { return current }

	size := domain.NewSizeFromFloat(5)
	d.CheckAndRecord(domain.IntentBuy, size)

	current = current.Add(51 * time.Millisecond)
	if !d.CheckAndRecord(domain.IntentBuy, size) {
		t.Error("send after TTL elapsed should be admitted")
	}
}

func TestDedupDifferentSizeIsFreshIntent(t *testing.T) {
	current := time.Now()
	d := New(50 * time.Millisecond)
	d.now = func() time.Time { return current }

	d.CheckAndRecord(domain.IntentStopLoss, domain.NewSizeFromFloat(5))

	if !d.CheckAndRecord(domain.IntentStopLoss, domain.NewSizeFromFloat(2)) {
		t.Error("a stop-loss remainder of a different size must be admitted even within the original's TTL window")
	}
}

func TestDedupPurgeExpired(t *testing.T) {
	current := time.Now()
	d := New(10 * time.Millisecond)
	d.now = func() time.Time { return current }

	d.CheckAndRecord(domain.IntentBuy, domain.NewSizeFromFloat(5))
	if len(d.lastSent) != 1 {
		t.Fatalf("expected one entry, got %d", len(d.lastSent))
	}

	current = current.Add(101 * time.Millisecond) // > 10x ttl horizon
	d.PurgeExpired()

	if len(d.lastSent) != 0 {
		t.Errorf("expected entry purged past the 10x TTL horizon, got %d remaining", len(d.lastSent))
	}
}
