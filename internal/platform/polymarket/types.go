package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/gozuray/sniper/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// --------------------------------------------------------------------------
// Gamma API DTOs (market discovery)
// --------------------------------------------------------------------------

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	ConditionID   string   `json:"condition_id"`
	Slug          string   `json:"slug"`
	ActiveFromAPI flexBool `json:"active"`
	Closed        bool     `json:"closed"`
	Tokens        []Token  `json:"tokens"`
	Volume        string   `json:"volume"`
	NegRisk       bool     `json:"neg_risk"`
	EndDateISO    string   `json:"end_date_iso"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// Token represents a token entry inside the Gamma API market response.
type Token struct {
	TokenID string `json:"token_id"`
	Outcome string `json:"outcome"`
	Winner  bool   `json:"winner"`
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:          m.ID,
		Question:    m.Question,
		Slug:        m.Slug,
		ConditionID: m.ConditionID,
		NegRisk:     m.NegRisk,
		Outcomes:    [2]string{"Up", "Down"},
	}
	if dm.Question == "" {
		dm.Question = "Unknown"
	}
	if v, err := strconv.ParseFloat(m.Volume, 64); err == nil {
		dm.Volume = v
	}
	if m.Closed {
		dm.Status = domain.MarketStatusClosed
	} else if bool(m.ActiveFromAPI) {
		dm.Status = domain.MarketStatusActive
	} else {
		dm.Status = domain.MarketStatusSettled
	}
	for i, tok := range m.Tokens {
		if i >= 2 {
			break
		}
		dm.TokenIDs[i] = tok.TokenID
		if tok.Outcome != "" {
			dm.Outcomes[i] = tok.Outcome
		}
	}
	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		dm.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		dm.UpdatedAt = t
	}
	if m.EndDateISO != "" {
		if t, err := time.Parse(time.RFC3339, m.EndDateISO); err == nil {
			dm.ClosedAt = &t
		}
	}
	return dm
}

// --------------------------------------------------------------------------
// CLOB REST DTOs (order placement/cancellation/top-of-book)
// --------------------------------------------------------------------------

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success     bool   `json:"success"`
	ErrorMsg    string `json:"errorMsg,omitempty"`
	OrderID     string `json:"orderID,omitempty"`
	Status      string `json:"status,omitempty"`
	SizeMatched string `json:"sizeMatched,omitempty"`
	MatchedAt   string `json:"matchedPrice,omitempty"`
	ShouldRetry bool   `json:"shouldRetry,omitempty"`
}

// ToDomainOutcome converts an APIOrderResult to a domain.OrderOutcome.
func (r *APIOrderResult) ToDomainOutcome() domain.OrderOutcome {
	out := domain.OrderOutcome{
		OrderID:     r.OrderID,
		Rejected:    !r.Success,
		RejectMsg:   r.ErrorMsg,
		ShouldRetry: r.ShouldRetry,
	}
	switch r.Status {
	case "live", "open":
		out.Status = domain.OrderStatusOpen
	case "matched", "filled":
		out.Status = domain.OrderStatusMatched
	case "delayed":
		out.Status = domain.OrderStatusPending
	default:
		if r.Success {
			out.Status = domain.OrderStatusPending
		} else {
			out.Status = domain.OrderStatusFailed
		}
	}
	if sz, err := strconv.ParseFloat(r.SizeMatched, 64); err == nil {
		out.FilledSize = domain.NewSizeFromFloat(sz)
	}
	if px, err := strconv.ParseFloat(r.MatchedAt, 64); err == nil {
		out.FilledPrice = domain.NewPriceFromFloat(px)
	}
	return out
}

// RawBookLevel is a single price+size entry in a REST /book response.
type RawBookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// RawOrderBook is the REST /book response shape.
type RawOrderBook struct {
	AssetID string         `json:"asset_id"`
	Bids    []RawBookLevel `json:"bids"`
	Asks    []RawBookLevel `json:"asks"`
}

// ToTopOfBook reduces a raw REST orderbook into best bid/ask, robust to
// whatever sort order the API returns levels in.
func (b *RawOrderBook) ToTopOfBook() domain.TopOfBook {
	top := domain.TopOfBook{AssetID: domain.AssetId(b.AssetID), Timestamp: time.Now()}
	for _, lvl := range b.Bids {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		if top.BestBid == nil || p > *top.BestBid {
			top.BestBid = &p
		}
	}
	for _, lvl := range b.Asks {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		if top.BestAsk == nil || p < *top.BestAsk {
			top.BestAsk = &p
		}
	}
	return top
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// WSPriceLevel is a single bid/ask level in the WebSocket orderbook data.
type WSPriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// BookMessage represents a full orderbook snapshot delivered over WebSocket.
type BookMessage struct {
	AssetID   string         `json:"asset_id"`
	Bids      []WSPriceLevel `json:"bids"`
	Asks      []WSPriceLevel `json:"asks"`
	Timestamp string         `json:"timestamp"`
}

// PriceChangeMessage represents an incremental orderbook price-level update.
type PriceChangeMessage struct {
	AssetID   string `json:"asset_id"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Size      string `json:"size"`
	Timestamp string `json:"timestamp"`
}

// WSCommand is the JSON payload sent to the WebSocket to subscribe/unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
}

// BookToDomainSnapshot converts a BookMessage to a domain.BookSnapshot.
// The Timestamp here is the local receive time (time.Now(), which carries a
// monotonic reading), never the exchange's wall-clock field — the book's
// staleness check must never be fooled by clock skew or an exchange replay.
func BookToDomainSnapshot(b *BookMessage) domain.BookSnapshot {
	snap := domain.BookSnapshot{AssetID: domain.AssetId(b.AssetID), Timestamp: time.Now()}
	for _, lvl := range b.Bids {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		price := domain.NewPriceFromFloat(p)
		if !snap.HasBid || price > snap.BestBid {
			snap.BestBid = price
			snap.HasBid = true
		}
	}
	for _, lvl := range b.Asks {
		p, err := strconv.ParseFloat(lvl.Price, 64)
		if err != nil {
			continue
		}
		price := domain.NewPriceFromFloat(p)
		if !snap.HasAsk || price < snap.BestAsk {
			snap.BestAsk = price
			snap.HasAsk = true
		}
	}
	return snap
}

// PriceChangeAppliedTo returns a copy of snap with the incremental price
// change pc applied: size 0 removes the level; otherwise it replaces the
// current best on that side if the new level improves it, or re-derives
// nothing further (a full book snapshot refresh supersedes this on the next
// "book" message, matching the exchange's own incremental-update contract).
func PriceChangeAppliedTo(snap domain.BookSnapshot, pc *PriceChangeMessage) domain.BookSnapshot {
	price, err := strconv.ParseFloat(pc.Price, 64)
	if err != nil {
		return snap
	}
	size, _ := strconv.ParseFloat(pc.Size, 64)
	p := domain.NewPriceFromFloat(price)
	removed := size == 0

	switch strings.ToUpper(pc.Side) {
	case "BUY":
		if removed {
			if snap.HasBid && p == snap.BestBid {
				snap.HasBid = false
			}
			return snap
		}
		if !snap.HasBid || p > snap.BestBid {
			snap.BestBid = p
			snap.HasBid = true
		}
	case "SELL":
		if removed {
			if snap.HasAsk && p == snap.BestAsk {
				snap.HasAsk = false
			}
			return snap
		}
		if !snap.HasAsk || p < snap.BestAsk {
			snap.BestAsk = p
			snap.HasAsk = true
		}
	}
	return snap
}
