package statecache

import "testing"

func TestDecodeRestingBuyRoundTrip(t *testing.T) {
	orderID, price, size, err := decodeRestingBuy("order-abc-123|450000|5000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if orderID != "order-abc-123" {
		t.Errorf("orderID = %q, want order-abc-123", orderID)
	}
	if price != 450000 {
		t.Errorf("priceTicks = %d, want 450000", price)
	}
	if size != 5000000 {
		t.Errorf("sizeUnits = %d, want 5000000", size)
	}
}

func TestDecodeRestingBuyMalformed(t *testing.T) {
	if _, _, _, err := decodeRestingBuy("not-enough-fields"); err == nil {
		t.Fatal("expected error for a value missing the '|' delimiters")
	}
}

func TestDecodeRestingBuyNonNumericField(t *testing.T) {
	if _, _, _, err := decodeRestingBuy("order-1|not-a-number|5000000"); err == nil {
		t.Fatal("expected error for a non-numeric price field")
	}
}

func TestKeyNamespacesByPrefix(t *testing.T) {
	c := &Cache{prefix: "sniper"}
	if got := c.key("resting_buy", "asset-1"); got != "sniper:resting_buy:asset-1" {
		t.Errorf("key = %q, want sniper:resting_buy:asset-1", got)
	}
}
