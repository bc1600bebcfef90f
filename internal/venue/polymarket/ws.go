package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings to the peer at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second
)

// PriceUpdate is a live midpoint change for one market outcome token.
type PriceUpdate struct {
	MarketID string
	Outcome  string // "yes" or "no"
	Price    float64
	At       time.Time
}

// PriceUpdateHandler is called for every parsed price change.
type PriceUpdateHandler func(PriceUpdate)

// wsCommand is the subscribe/unsubscribe envelope for the CLOB feed.
type wsCommand struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Assets  []string `json:"assets_ids"`
}

// Feed is a WebSocket client for the Polymarket CLOB real-time data feed
// used to keep the listing cache warm between REST scan cycles. It manages
// the connection lifecycle, subscriptions, and reconnection.
type Feed struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.RWMutex
	closed bool

	// Subscriptions to restore on reconnect.
	subscriptions []wsCommand

	handlerMu sync.RWMutex
	handlers  []PriceUpdateHandler

	// assetToMarket maps outcome token IDs back to market IDs and sides.
	assetToMarket map[string]assetBinding

	// done is closed when the client is shut down.
	done chan struct{}
}

type assetBinding struct {
	marketID string
	outcome  string
}

// NewFeed creates a feed client for the given WebSocket URL.
//
// wsURL is the CLOB WebSocket endpoint, e.g.
// "wss://ws-subscriptions-clob.polymarket.com/ws/market".
func NewFeed(wsURL string) *Feed {
	return &Feed{
		wsURL:         wsURL,
		assetToMarket: make(map[string]assetBinding),
		done:          make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (f *Feed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return fmt.Errorf("polymarket/ws: feed closed")
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return fmt.Errorf("polymarket/ws: connect: %w", err)
	}

	f.conn = conn

	// Keep-alive via pong deadline extension.
	f.conn.SetReadDeadline(time.Now().Add(pongWait))
	f.conn.SetPongHandler(func(string) error {
		f.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go f.readLoop()
	go f.pingLoop()

	// Restore any previous subscriptions after reconnect.
	for _, cmd := range f.subscriptions {
		if err := f.sendCommand(cmd); err != nil {
			return fmt.Errorf("polymarket/ws: restore subscription: %w", err)
		}
	}

	return nil
}

// Watch subscribes to price changes for a market's outcome tokens. yesAsset
// and noAsset are the CLOB token IDs for the two outcomes.
func (f *Feed) Watch(ctx context.Context, marketID, yesAsset, noAsset string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conn == nil {
		return fmt.Errorf("polymarket/ws: not connected")
	}

	f.assetToMarket[yesAsset] = assetBinding{marketID: marketID, outcome: "yes"}
	f.assetToMarket[noAsset] = assetBinding{marketID: marketID, outcome: "no"}

	cmd := wsCommand{
		Type:    "subscribe",
		Channel: "market",
		Assets:  []string{yesAsset, noAsset},
	}
	if err := f.sendCommand(cmd); err != nil {
		return fmt.Errorf("polymarket/ws: subscribe market %s: %w", marketID, err)
	}

	f.subscriptions = append(f.subscriptions, cmd)
	return nil
}

// OnPriceUpdate registers a handler that is called for every price change.
func (f *Feed) OnPriceUpdate(h PriceUpdateHandler) {
	f.handlerMu.Lock()
	defer f.handlerMu.Unlock()
	f.handlers = append(f.handlers, h)
}

// Close shuts down the WebSocket connection and stops the read loop.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true
	close(f.done)

	if f.conn != nil {
		_ = f.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return f.conn.Close()
	}

	return nil
}

// sendCommand sends a JSON command to the WebSocket. Caller must hold f.mu.
func (f *Feed) sendCommand(cmd wsCommand) error {
	f.conn.SetWriteDeadline(time.Now().Add(writeWait))

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	return f.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop continuously reads messages from the WebSocket and dispatches
// them. On disconnect it reconnects with exponential backoff.
func (f *Feed) readLoop() {
	defer func() {
		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		select {
		case <-f.done:
			return
		default:
		}

		f.mu.RLock()
		conn := f.conn
		f.mu.RUnlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-f.done:
				return
			default:
			}

			f.reconnect()
			return // readLoop is restarted by reconnect -> Connect
		}

		f.handleMessage(message)
	}
}

// pingLoop sends periodic ping messages to keep the WebSocket alive.
func (f *Feed) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.mu.RLock()
			conn := f.conn
			f.mu.RUnlock()

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

// handleMessage parses a raw WebSocket message and dispatches price changes.
func (f *Feed) handleMessage(raw []byte) {
	var envelope struct {
		Event   string `json:"event_type"`
		AssetID string `json:"asset_id"`
		Price   string `json:"price"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return // silently drop unparseable messages
	}
	if envelope.Event != "price_change" && envelope.Event != "last_trade_price" {
		return
	}

	price, err := strconv.ParseFloat(envelope.Price, 64)
	if err != nil || price <= 0 || price >= 1 {
		return
	}

	f.mu.RLock()
	binding, ok := f.assetToMarket[envelope.AssetID]
	f.mu.RUnlock()
	if !ok {
		return
	}

	update := PriceUpdate{
		MarketID: binding.marketID,
		Outcome:  binding.outcome,
		Price:    price,
		At:       time.Now().UTC(),
	}

	f.handlerMu.RLock()
	handlers := f.handlers
	f.handlerMu.RUnlock()

	for _, h := range handlers {
		h(update)
	}
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the feed is closed.
func (f *Feed) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-f.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := f.Connect(ctx)
		cancel()

		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}
