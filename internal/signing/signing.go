// Package signing adapts the EIP-712 order signer (internal/crypto) to the
// execution.Signer interface, filling in the salt/expiration/nonce fields
// the exchange's order schema requires and producing the final hex
// signature. Wire-level serialization and key custody live entirely in
// internal/crypto and go-ethereum; this package only bridges domain.Order
// to that signer's payload shape.
package signing

import (
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/gozuray/sniper/internal/crypto"
	"github.com/gozuray/sniper/internal/domain"
)

// OrderSigner signs domain.Order values for submission to the CLOB.
type OrderSigner struct {
	signer *crypto.Signer
	wallet string
}

// New creates an OrderSigner backed by signer, using wallet as both maker
// and signer address (no proxy/Gnosis-safe signature types in this core).
func New(signer *crypto.Signer, wallet string) *OrderSigner {
	return &OrderSigner{signer: signer, wallet: wallet}
}

// Sign populates order.ID and order.Signature via EIP-712. The order id is
// a client-generated UUID, used only for correlating this order across log
// lines before the exchange assigns its own order id in the response; the
// same random bytes double as the EIP-712 salt, which must be unique per
// order and is cheaper to draw from a UUID than to guard against
// wall-clock collisions across same-tick stop-loss retries.
func (s *OrderSigner) Sign(order *domain.Order) error {
	id := uuid.New()
	order.ID = id.String()

	side := 0
	if order.Side == domain.OrderSideSell {
		side = 1
	}
	payload := crypto.OrderPayload{
		Salt:          new(big.Int).SetBytes(id[:]).String(),
		Maker:         s.wallet,
		Signer:        s.wallet,
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenID:       string(order.AssetID),
		MakerAmount:   safeString(order.MakerAmount),
		TakerAmount:   safeString(order.TakerAmount),
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		Side:          side,
		SignatureType: 0,
	}
	sig, err := s.signer.SignOrder(payload)
	if err != nil {
		return fmt.Errorf("signing: %w: %v", domain.ErrSigningFailed, err)
	}
	order.Signature = sig
	return nil
}

func safeString(n *big.Int) string {
	if n == nil {
		return "0"
	}
	return n.String()
}
