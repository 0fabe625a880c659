package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gozuray/sniper/internal/crypto"
	"github.com/gozuray/sniper/internal/domain"
)

// ClobClient is the REST client for the Polymarket CLOB API: order
// placement, cancellation, and the top-of-book fallback fetch used when the
// streaming book goes stale.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	signer     *crypto.Signer
	hmacAuth   *crypto.HMACAuth
	wallet     string
}

// NewClobClient creates a new CLOB REST client.
func NewClobClient(baseURL, wallet string, signer *crypto.Signer, hmac *crypto.HMACAuth) *ClobClient {
	return &ClobClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		signer:     signer,
		hmacAuth:   hmac,
		wallet:     wallet,
	}
}

// PlaceOrder submits a signed order and returns its outcome. The order's
// Type (GTC/FOK/FAK) is forwarded verbatim; the caller (internal/execution)
// is responsible for choosing the right type per intent.
func (c *ClobClient) PlaceOrder(ctx context.Context, order domain.Order) (domain.OrderOutcome, error) {
	body := map[string]any{
		"order": map[string]any{
			"tokenID":       string(order.AssetID),
			"makerAmount":   order.MakerAmount.String(),
			"takerAmount":   order.TakerAmount.String(),
			"side":          string(order.Side),
			"feeRateBps":    "0",
			"nonce":         "0",
			"expiration":    "0",
			"signatureType": 0,
			"signature":     order.Signature,
			"maker":         c.wallet,
			"signer":        c.wallet,
			"taker":         "0x0000000000000000000000000000000000000000",
		},
		"owner":     c.wallet,
		"orderType": string(order.Type),
	}

	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodPost, "/order", body)
	if err != nil {
		return domain.OrderOutcome{}, fmt.Errorf("polymarket/clob: place order: %w", err)
	}

	var apiResult APIOrderResult
	if err := json.Unmarshal(respBody, &apiResult); err != nil {
		return domain.OrderOutcome{}, fmt.Errorf("polymarket/clob: decode order result: %w", err)
	}
	return apiResult.ToDomainOutcome(), nil
}

// CancelOrder cancels a single order by its ID.
func (c *ClobClient) CancelOrder(ctx context.Context, orderID string) error {
	body := map[string]any{"orderID": orderID}
	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodDelete, "/order", body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: cancel order %s: %w", orderID, err)
	}
	var result struct {
		Success  bool   `json:"success"`
		ErrorMsg string `json:"errorMsg"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return fmt.Errorf("polymarket/clob: decode cancel response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("polymarket/clob: cancel failed: %s", result.ErrorMsg)
	}
	return nil
}

// FetchTopOfBook fetches the current best bid/ask for assetID over REST.
// Used as the stale-book fallback before issuing a stop-loss or
// take-profit sell; buys are never placed from this path.
func (c *ClobClient) FetchTopOfBook(ctx context.Context, assetID domain.AssetId) (domain.TopOfBook, error) {
	path := fmt.Sprintf("/book?token_id=%s", assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.TopOfBook{}, fmt.Errorf("polymarket/clob: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.TopOfBook{}, fmt.Errorf("polymarket/clob: fetch top of book: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TopOfBook{}, fmt.Errorf("polymarket/clob: read top of book: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return domain.TopOfBook{}, err
	}

	var raw RawOrderBook
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return domain.TopOfBook{}, fmt.Errorf("polymarket/clob: decode top of book: %w", err)
	}
	return raw.ToTopOfBook(), nil
}

// FetchBalance returns the wallet's current conditional-token balance for
// assetID via the CLOB balance-allowance endpoint. It implements
// driver.BalanceFetcher, the sole source of truth Position is reseeded from.
func (c *ClobClient) FetchBalance(ctx context.Context, assetID domain.AssetId) (domain.Size, error) {
	path := fmt.Sprintf("/balance-allowance?asset_type=CONDITIONAL&token_id=%s", assetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: create balance request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.hmacAuth != nil {
		address := c.signer.Address().Hex()
		headers := c.hmacAuth.L2Headers(address, http.MethodGet, path, "")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: fetch balance: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("polymarket/clob: read balance response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return 0, err
	}

	var parsed struct {
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return 0, fmt.Errorf("polymarket/clob: decode balance response: %w", err)
	}
	var units float64
	if _, err := fmt.Sscanf(parsed.Balance, "%f", &units); err != nil {
		return 0, fmt.Errorf("polymarket/clob: parse balance %q: %w", parsed.Balance, err)
	}
	// The endpoint reports raw conditional-token units (6 decimals).
	return domain.NewSizeFromFloat(units / 1e6), nil
}

// DeriveAPIKey performs the CLOB auth flow to obtain an HMAC API key.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) error {
	address := c.signer.Address().Hex()
	timestamp := time.Now().Unix()
	nonce := int64(0)

	sig, err := c.signer.SignAuthMessage(address, timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", address)
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", fmt.Sprintf("%d", timestamp))
	req.Header.Set("POLY_NONCE", fmt.Sprintf("%d", nonce))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket/clob: auth failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.hmacAuth = &crypto.HMACAuth{Key: authResp.APIKey, Secret: authResp.Secret, Passphrase: authResp.Passphrase}
	return nil
}

func (c *ClobClient) doAuthenticatedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.hmacAuth != nil {
		address := c.signer.Address().Hex()
		headers := c.hmacAuth.L2Headers(address, method, path, bodyStr)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}
	return respBody, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", domain.ErrOrderTimeout, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
