package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	c := Defaults()
	c.Wallet.PrivateKey = "0xabc123"
	return c
}

func TestDefaultsPlusWalletValidates(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected defaults + wallet to validate, got: %v", err)
	}
}

func TestValidateRejectsMissingWallet(t *testing.T) {
	c := Defaults()
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "wallet") {
		t.Fatalf("expected a wallet validation error, got: %v", err)
	}
}

func TestValidateRejectsInvertedBuyBand(t *testing.T) {
	c := validConfig()
	c.Strategy.BuyMin = 0.80
	c.Strategy.BuyMax = 0.20

	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "buy_min must be < buy_max") {
		t.Fatalf("expected buy_min/buy_max ordering error, got: %v", err)
	}
}

func TestValidateRejectsStopLossAboveTakeProfit(t *testing.T) {
	c := validConfig()
	c.Strategy.StopLossTrigger = 0.99
	c.Strategy.TakeProfitTrigger = 0.10

	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "stop_loss_trigger must be < take_profit_trigger") {
		t.Fatalf("expected stop_loss/take_profit ordering error, got: %v", err)
	}
}

func TestValidateRejectsUnknownLogLevel(t *testing.T) {
	c := validConfig()
	c.LogLevel = "verbose"

	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "log_level") {
		t.Fatalf("expected log_level validation error, got: %v", err)
	}
}

func TestValidateRejectsPartialBuilderCreds(t *testing.T) {
	c := validConfig()
	c.Builder.ApiKey = "key-only"

	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "builder") {
		t.Fatalf("expected builder validation error, got: %v", err)
	}
}

func TestValidateRejectsDedupTTLOutOfRange(t *testing.T) {
	c := validConfig()
	c.Strategy.DedupTTL.Duration = 5 * time.Millisecond

	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "dedupe_ttl") {
		t.Fatalf("expected dedupe_ttl range error, got: %v", err)
	}
}
