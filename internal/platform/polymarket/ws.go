package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gozuray/sniper/internal/domain"
)

const (
	writeWait = 10 * time.Second

	// pongWait and pingPeriod follow the exchange's documented heartbeat
	// cadence for the market data channel.
	pongWait   = 30 * time.Second
	pingPeriod = 10 * time.Second

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// Event is a single decoded message pushed onto WSClient's Events channel.
// Exactly one of Book or PriceChange is set.
type Event struct {
	Book        *domain.BookSnapshot
	PriceChange *PriceChangeMessage
}

// WSClient is a WebSocket client for the Polymarket CLOB real-time market
// data feed. Unlike a callback-based client, it publishes decoded events on
// a channel so a single cooperative tick driver can consume them in its own
// loop rather than being re-entered from a background goroutine.
type WSClient struct {
	wsURL string

	mu            sync.Mutex
	conn          *websocket.Conn
	closed        bool
	subscriptions []WSCommand

	Events chan Event
	done   chan struct{}

	readLoopDone sync.WaitGroup
}

// NewWSClient creates a new WebSocket client for the given market-data URL,
// e.g. "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL:  wsURL,
		Events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
}

// Connect dials the WebSocket and restores any prior subscriptions.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("polymarket/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}
	w.conn = conn
	w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop()
	go w.pingLoop()

	for _, cmd := range w.subscriptions {
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("polymarket/ws: restore subscription: %w", err)
		}
	}
	return nil
}

// Subscribe subscribes to the given channels ("book", "price_change") for
// the given asset IDs.
func (w *WSClient) Subscribe(channels []string, assetIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}
	for _, ch := range channels {
		cmd := WSCommand{Type: "subscribe", Channel: ch, Assets: assetIDs}
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("polymarket/ws: subscribe to %s: %w", ch, err)
		}
		w.subscriptions = append(w.subscriptions, cmd)
	}
	return nil
}

// Unsubscribe drops a prior subscription, used on market rotation before
// subscribing to the successor asset.
func (w *WSClient) Unsubscribe(channels []string, assetIDs []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}
	for _, ch := range channels {
		cmd := WSCommand{Type: "unsubscribe", Channel: ch, Assets: assetIDs}
		if err := w.sendCommand(cmd); err != nil {
			return fmt.Errorf("polymarket/ws: unsubscribe from %s: %w", ch, err)
		}
	}
	assetSet := make(map[string]struct{}, len(assetIDs))
	for _, a := range assetIDs {
		assetSet[a] = struct{}{}
	}
	chSet := make(map[string]struct{}, len(channels))
	for _, c := range channels {
		chSet[c] = struct{}{}
	}
	filtered := w.subscriptions[:0]
	for _, sub := range w.subscriptions {
		if _, match := chSet[sub.Channel]; !match {
			filtered = append(filtered, sub)
			continue
		}
		remaining := make([]string, 0, len(sub.Assets))
		for _, a := range sub.Assets {
			if _, drop := assetSet[a]; !drop {
				remaining = append(remaining, a)
			}
		}
		if len(remaining) > 0 {
			sub.Assets = remaining
			filtered = append(filtered, sub)
		}
	}
	w.subscriptions = filtered
	return nil
}

// Close shuts down the connection and stops all loops.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)
	if w.conn != nil {
		_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return w.conn.Close()
	}
	return nil
}

// Run connects and reconnects with exponential backoff until ctx is
// cancelled or Close is called, publishing decoded events on w.Events.
func (w *WSClient) Run(ctx context.Context, channels []string, assetIDs []string) error {
	delay := reconnectDelay
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		default:
		}

		if err := w.Connect(ctx); err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = nextDelay(delay)
			continue
		}
		if len(w.subscriptions) == 0 {
			if err := w.Subscribe(channels, assetIDs); err != nil {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
				delay = nextDelay(delay)
				continue
			}
		}
		delay = reconnectDelay

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case <-w.connClosed():
		}
	}
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxReconnectDelay {
		return maxReconnectDelay
	}
	return d
}

// connClosed returns a channel that's closed when the current connection's
// read loop exits, signalling Run to reconnect.
func (w *WSClient) connClosed() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		w.readLoopDone.Wait()
		close(ch)
	}()
	return ch
}

func (w *WSClient) sendCommand(cmd WSCommand) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *WSClient) readLoop() {
	w.readLoopDone.Add(1)
	defer w.readLoopDone.Done()
	defer func() {
		w.mu.Lock()
		conn := w.conn
		w.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-w.done:
			return
		default:
		}
		w.mu.Lock()
		conn := w.conn
		w.mu.Unlock()
		if conn == nil {
			return
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		w.handleMessage(message)
	}
}

func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			conn := w.conn
			w.mu.Unlock()
			if conn == nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (w *WSClient) handleMessage(raw []byte) {
	var envelope struct {
		MsgType string `json:"msg_type"`
		Event   string `json:"event_type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}
	msgType := envelope.MsgType
	if msgType == "" {
		msgType = envelope.Event
	}
	switch msgType {
	case "book":
		var book BookMessage
		if err := json.Unmarshal(raw, &book); err != nil {
			return
		}
		snap := BookToDomainSnapshot(&book)
		select {
		case w.Events <- Event{Book: &snap}:
		default:
		}
	case "price_change":
		var pc PriceChangeMessage
		if err := json.Unmarshal(raw, &pc); err != nil {
			return
		}
		select {
		case w.Events <- Event{PriceChange: &pc}:
		default:
		}
	}
}
