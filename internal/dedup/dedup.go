// Package dedup prevents the strategy evaluator from re-sending the same
// order intent more than once within a short TTL window, while still
// admitting a same-kind intent of a different size as a genuinely new
// attempt — this is what lets a stop-loss remainder retry after a partial
// fill within the same window that suppressed the original send.
package dedup

import (
	"time"

	"github.com/gozuray/sniper/internal/domain"
)

// Dedup is keyed by (IntentKind, Size). It is owned exclusively by the
// single cooperative tick loop and needs no internal locking.
type Dedup struct {
	lastSent map[domain.Intent]time.Time
	ttl      time.Duration
	now      func() time.Time
}

// New creates a Dedup with the given TTL (default 50ms, valid range
// 20ms-80ms per the configuration surface).
func New(ttl time.Duration) *Dedup {
	return &Dedup{
		lastSent: make(map[domain.Intent]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

// CheckAndRecord reports whether an intent of this (kind, size) may be sent
// now. If admitted, it records the send time so a repeat within the TTL
// window is suppressed. A different size for the same kind is always a
// fresh intent, regardless of how recently the old size was sent.
func (d *Dedup) CheckAndRecord(kind domain.IntentKind, size domain.Size) bool {
	key := domain.Intent{Kind: kind, Size: size}
	now := d.now()
	if last, ok := d.lastSent[key]; ok && now.Sub(last) < d.ttl {
		return false
	}
	d.lastSent[key] = now
	return true
}

// PurgeExpired removes dedup entries older than 10x the TTL, matching the
// original runner's cleanup horizon: entries are kept somewhat longer than
// their TTL so a burst of retries doesn't repeatedly re-allocate map slots,
// but the map is still bounded.
func (d *Dedup) PurgeExpired() {
	now := d.now()
	horizon := d.ttl * 10
	for key, ts := range d.lastSent {
		if now.Sub(ts) >= horizon {
			delete(d.lastSent, key)
		}
	}
}
