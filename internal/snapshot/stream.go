package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"fundamentals-lab/internal/observability"
)

// StreamConfig configures quote stream behavior.
type StreamConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultStreamConfig returns default stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// QuoteUpdate is one live price tick from the provider stream.
type QuoteUpdate struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	At     time.Time `json:"at"`
}

// QuoteHandler receives stream updates. Called from the read goroutine;
// handlers must not block.
type QuoteHandler func(QuoteUpdate)

// streamMessage is the provider's wire format for ticks and acks.
type streamMessage struct {
	Type   string  `json:"type"`
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Time   int64   `json:"time"` // Unix ms
}

// subscribeRequest is the wire format for symbol subscriptions.
type subscribeRequest struct {
	Subscribe []string `json:"subscribe"`
}

// StreamClient maintains a WebSocket connection to the provider quote
// stream, dispatching price ticks to a handler. Reconnects with exponential
// backoff and re-subscribes to all previously subscribed symbols.
type StreamClient struct {
	endpoint string
	config   StreamConfig
	handler  QuoteHandler

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	// symbols remembered for resubscription after reconnect
	symbols   map[string]struct{}
	symbolsMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	reconnecting atomic.Bool
}

// NewStreamClient creates a stream client, connects, and starts the read
// and ping goroutines.
func NewStreamClient(ctx context.Context, endpoint string, config *StreamConfig, handler QuoteHandler) (*StreamClient, error) {
	cfg := DefaultStreamConfig()
	if config != nil {
		cfg = *config
	}
	if handler == nil {
		handler = func(QuoteUpdate) {}
	}

	c := &StreamClient{
		endpoint: endpoint,
		config:   cfg,
		handler:  handler,
		symbols:  make(map[string]struct{}),
		done:     make(chan struct{}),
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.readLoop()

	c.wg.Add(1)
	go c.pingLoop()

	return c, nil
}

// connect establishes the WebSocket connection.
func (c *StreamClient) connect(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: websocket dial: %v", ErrUpstreamUnavailable, err)
	}

	c.conn = conn
	observability.SetStreamConnected(true)
	return nil
}

// Subscribe registers symbols for price updates. Symbols persist across
// reconnects until the client is closed.
func (c *StreamClient) Subscribe(symbols ...string) error {
	if c.closed.Load() {
		return fmt.Errorf("stream client closed")
	}

	c.symbolsMu.Lock()
	for _, s := range symbols {
		c.symbols[s] = struct{}{}
	}
	c.symbolsMu.Unlock()

	return c.writeSubscribe(symbols)
}

// writeSubscribe sends one subscribe frame for the given symbols.
func (c *StreamClient) writeSubscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(subscribeRequest{Subscribe: symbols}); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Close closes the connection and stops all goroutines. Idempotent.
func (c *StreamClient) Close() error {
	if c.closed.Swap(true) {
		return nil // Already closed
	}

	close(c.done)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.conn.Close()
	}
	c.connMu.Unlock()

	observability.SetStreamConnected(false)
	c.wg.Wait()
	return nil
}

// readLoop reads stream messages and dispatches price ticks.
func (c *StreamClient) readLoop() {
	defer c.wg.Done()

	reconnectDelay := c.config.ReconnectDelay

	for !c.closed.Load() {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}

			observability.SetStreamConnected(false)
			if !c.reconnecting.Swap(true) {
				go c.reconnect(reconnectDelay)
			}

			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > c.config.MaxReconnectDelay {
				reconnectDelay = c.config.MaxReconnectDelay
			}

			select {
			case <-c.done:
				return
			case <-time.After(100 * time.Millisecond):
				continue
			}
		}

		// Reset delay on successful read
		reconnectDelay = c.config.ReconnectDelay

		c.handleMessage(message)
	}
}

// handleMessage decodes one frame. Non-tick frames (acks, heartbeats) are
// ignored.
func (c *StreamClient) handleMessage(message []byte) {
	var msg streamMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Type != "quote" || msg.Symbol == "" {
		return
	}

	observability.RecordStreamMessage()
	c.handler(QuoteUpdate{
		Symbol: msg.Symbol,
		Price:  msg.Price,
		At:     time.UnixMilli(msg.Time),
	})
}

// reconnect waits, re-dials, and re-subscribes to all remembered symbols.
func (c *StreamClient) reconnect(delay time.Duration) {
	defer c.reconnecting.Store(false)

	if c.closed.Load() {
		return
	}

	select {
	case <-c.done:
		return
	case <-time.After(delay):
	}

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.connect(ctx); err != nil {
		// readLoop keeps retrying with increased backoff.
		return
	}

	c.symbolsMu.Lock()
	symbols := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		symbols = append(symbols, s)
	}
	c.symbolsMu.Unlock()

	if err := c.writeSubscribe(symbols); err != nil {
		c.connMu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.connMu.Unlock()
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *StreamClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
				c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.connMu.Unlock()
		}
	}
}
