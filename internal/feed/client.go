// Package feed streams live trade activity from the Polymarket real-time
// data socket into a bounded channel, reconnecting with backoff when the
// connection drops or goes quiet.
package feed

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/vikram1211/polymarket-whale-bot/internal/config"
	"github.com/vikram1211/polymarket-whale-bot/internal/domain"
	"github.com/vikram1211/polymarket-whale-bot/internal/stats"
	"github.com/vikram1211/polymarket-whale-bot/pkg/logger"
)

// State is the feed connection lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateStale
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStale:
		return "stale"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

const (
	handshakeTimeout   = 30 * time.Second
	pingInterval       = 5 * time.Second
	writeTimeout       = 10 * time.Second
	reconnectBaseDelay = 2 * time.Second
	parseLogSuppress   = 5 * time.Second
)

// Client owns one subscription to the activity trade stream. Parsed trades
// come out of Trades; when the consumer falls behind, trades are dropped
// and counted rather than backpressuring the socket.
type Client struct {
	url         string
	staleAfter  time.Duration
	maxDelay    time.Duration
	maxAttempts int

	out     chan *domain.Trade
	monitor *stats.Monitor

	mu    sync.RWMutex
	state State

	lastMsgMu sync.RWMutex
	lastMsg   time.Time

	// gorilla allows one concurrent writer; pings, heartbeat replies and
	// the subscribe frame all hold this.
	writeMu sync.Mutex

	parseErrMu    sync.Mutex
	parseErrCount uint64
	lastParseLog  time.Time

	rng *rand.Rand
}

func NewClient(cfg *config.Config, monitor *stats.Monitor) *Client {
	url := cfg.FeedURL
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		url:         url,
		staleAfter:  cfg.StaleAfter,
		maxDelay:    cfg.ReconnectMaxDelay,
		maxAttempts: cfg.ReconnectMaxAttempts,
		out:         make(chan *domain.Trade, cfg.TradeQueueSize),
		monitor:     monitor,
		state:       StateDisconnected,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Trades is the stream of parsed trades. It closes when Run returns.
func (c *Client) Trades() <-chan *domain.Trade {
	return c.out
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.monitor.SetFeedState(s.String())
	}
}

// Run drives the connect/read/reconnect loop. It returns nil on context
// cancellation and an error once the consecutive connection-failure
// ceiling is hit; a successful connection resets the count.
func (c *Client) Run(ctx context.Context) error {
	defer close(c.out)
	defer c.setState(StateDisconnected)

	attempts := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		c.setState(StateConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			attempts++
			if c.maxAttempts > 0 && attempts >= c.maxAttempts {
				return errors.Wrapf(err, "feed: %d consecutive connection failures", attempts)
			}
			delay := c.backoffDelay(attempts)
			logger.Warnf("feed: connect failed (attempt %d): %v, retrying in %s", attempts, err, delay.Round(time.Millisecond))
			c.setState(StateReconnecting)
			c.monitor.Reconnect()
			if !sleepCtx(ctx, delay) {
				return nil
			}
			continue
		}

		attempts = 0
		c.setState(StateConnected)
		logger.Infof("feed: connected to %s", c.url)

		err = c.pump(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}

		delay := c.backoffDelay(1)
		logger.Warnf("feed: connection lost: %v, reconnecting in %s", err, delay.Round(time.Millisecond))
		c.setState(StateReconnecting)
		c.monitor.Reconnect()
		if !sleepCtx(ctx, delay) {
			return nil
		}
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s (status %d)", c.url, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", c.url)
	}
	return conn, nil
}

// pump runs one connection: subscribe, then read until the socket fails,
// the feed goes stale, or ctx ends.
func (c *Client) pump(ctx context.Context, conn *websocket.Conn) error {
	if err := c.subscribe(conn); err != nil {
		return err
	}
	c.touch()

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		<-pctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer wg.Done()
		c.pingLoop(pctx, conn)
	}()
	go func() {
		defer wg.Done()
		c.staleLoop(pctx, conn)
	}()

	err := c.readLoop(pctx, conn)
	cancel()
	wg.Wait()
	return err
}

func (c *Client) subscribe(conn *websocket.Conn) error {
	req := SubscriptionRequest{
		Action:        ActionSubscribe,
		Subscriptions: []Subscription{{Topic: topicActivity, Type: typeTrades}},
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return errors.Wrap(err, "subscribe")
	}
	return nil
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				logger.Debugf("feed: ping failed: %v", err)
				return
			}
		}
	}
}

// staleLoop force-closes the connection when no message has arrived for
// staleAfter. The closed socket errors the read loop, which then takes the
// normal reconnect path.
func (c *Client) staleLoop(ctx context.Context, conn *websocket.Conn) {
	if c.staleAfter <= 0 {
		return
	}
	interval := c.staleAfter / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			idle := time.Since(c.lastMessageAt())
			if idle < c.staleAfter {
				continue
			}
			c.setState(StateStale)
			logger.Warnf("feed: no messages for %s, forcing reconnect", idle.Round(time.Second))
			_ = conn.Close()
			return
		}
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.readDeadline()))
	})

	for {
		_ = conn.SetReadDeadline(time.Now().Add(c.readDeadline()))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "read")
		}
		c.touch()
		c.handleFrame(conn, data)
	}
}

// readDeadline bounds the blocking read. Staleness normally fires first;
// the deadline is the backstop for a half-dead socket that still answers
// pings.
func (c *Client) readDeadline() time.Duration {
	if c.staleAfter > 0 {
		return 2 * c.staleAfter
	}
	return 60 * time.Second
}

// handleFrame classifies one socket frame. The live socket interleaves
// trade envelopes with empty frames, text heartbeats and subscription
// acks, so everything short of a well-formed activity trade is skipped
// quietly.
func (c *Client) handleFrame(conn *websocket.Conn, data []byte) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "PONG" {
		return
	}
	if trimmed == "PING" {
		c.writeMu.Lock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = conn.WriteMessage(websocket.TextMessage, []byte("PONG"))
		c.writeMu.Unlock()
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(trimmed), &msg); err != nil {
		c.noteParseError(err, trimmed)
		return
	}

	switch {
	case msg.Type == string(ActionSubscribe) || msg.Type == string(ActionUnsubscribe):
		logger.Debugf("feed: subscription ack: topic=%s type=%s", msg.Topic, msg.Type)
		return
	case msg.Topic == "error" || msg.Type == "error":
		logger.Warnf("feed: server error: %s", truncate(string(msg.Payload), 240))
		return
	case msg.Topic != topicActivity:
		return
	}

	trade, err := parseTrade(msg.Payload)
	if err != nil {
		if errors.Is(err, errSkip) {
			return
		}
		c.monitor.Malformed()
		logger.Debugf("feed: dropping malformed trade: %v", err)
		return
	}

	c.monitor.TradeReceived()
	select {
	case c.out <- trade:
	default:
		c.monitor.FeedDrop()
		logger.Warnf("feed: trade queue full, dropping %s", trade.ID)
	}
}

// noteParseError logs unparseable frames at most once per suppress window;
// proxies and gateways can spray these.
func (c *Client) noteParseError(err error, frame string) {
	c.parseErrMu.Lock()
	c.parseErrCount++
	count := c.parseErrCount
	shouldLog := c.lastParseLog.IsZero() || time.Since(c.lastParseLog) > parseLogSuppress
	if shouldLog {
		c.lastParseLog = time.Now()
	}
	c.parseErrMu.Unlock()

	if shouldLog {
		logger.Warnf("feed: unparseable frame (%d so far): %v preview=%q", count, err, truncate(frame, 240))
	}
}

func (c *Client) touch() {
	c.lastMsgMu.Lock()
	c.lastMsg = time.Now()
	c.lastMsgMu.Unlock()
}

func (c *Client) lastMessageAt() time.Time {
	c.lastMsgMu.RLock()
	defer c.lastMsgMu.RUnlock()
	return c.lastMsg
}

// backoffDelay grows exponentially from the base, caps at the configured
// maximum and carries jitter so restarts do not reconnect in lockstep.
func (c *Client) backoffDelay(attempt int) time.Duration {
	if attempt > 6 {
		attempt = 6
	}
	d := reconnectBaseDelay << (attempt - 1)
	if c.maxDelay > 0 && d > c.maxDelay {
		d = c.maxDelay
	}
	if d <= 0 {
		d = reconnectBaseDelay
	}
	if span := int64(d / 5); span > 0 {
		d = d - d/10 + time.Duration(c.rng.Int63n(span))
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
