package stream

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	baseRetryDelay   = 1 * time.Second
	maxRetryDelay    = 30 * time.Second
	handshakeTimeout = 10 * time.Second
)

// State of the logical connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

// Handler receives every raw inbound frame. It must swallow its own parse
// failures; an error inside a handler never tears the connection down.
type Handler func(message []byte)

// Client is a resilient streaming connection. It keeps at most one live
// websocket per instance and reconnects after a close with exponential
// backoff: min(1s * 2^attempt, 30s), attempt reset on a successful open.
// Disconnect is terminal and cancels any pending reconnect timer.
type Client struct {
	url     string
	handler Handler
	logger  *zap.Logger

	// retryDelay is swapped in tests to avoid real backoff waits.
	retryDelay func(attempt int) time.Duration

	mu         sync.Mutex
	conn       *websocket.Conn
	state      State
	attempts   int
	gen        int
	retryTimer *time.Timer
	stopped    bool
	onState    func(connected bool)
}

func NewClient(url string, handler Handler, logger *zap.Logger) *Client {
	return &Client{
		url:        url,
		handler:    handler,
		logger:     logger,
		retryDelay: RetryDelay,
	}
}

// RetryDelay is the reconnect backoff schedule.
func RetryDelay(attempt int) time.Duration {
	if attempt >= 5 {
		return maxRetryDelay
	}
	return baseRetryDelay << uint(attempt)
}

// OnStateChange registers a connected/disconnected callback. Set before
// Connect.
func (c *Client) OnStateChange(fn func(connected bool)) {
	c.mu.Lock()
	c.onState = fn
	c.mu.Unlock()
}

// Connect establishes the connection asynchronously. Calling it while the
// connection is open or already being established is a no-op; calling it
// after Disconnect is also a no-op.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.stopped || c.state == StateOpen || c.state == StateConnecting {
		c.mu.Unlock()
		return
	}
	c.state = StateConnecting
	c.mu.Unlock()

	go c.dial()
}

// Disconnect tears the connection down for good. Idempotent. A pending
// reconnect timer is cancelled so no zombie timer can reopen the
// connection after intentional shutdown.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.gen++
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	conn := c.conn
	c.conn = nil
	c.state = StateClosed
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.logger.Info("stream disconnected", zap.String("url", c.url))
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateOpen
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts reports the current consecutive-failure counter.
func (c *Client) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

func (c *Client) dial() {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.Dial(c.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		c.state = StateClosed
		delay := c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.logger.Warn("stream dial failed",
			zap.String("url", c.url),
			zap.Duration("retry_in", delay),
			zap.Error(err))
		return
	}

	c.conn = conn
	c.state = StateOpen
	c.attempts = 0
	gen := c.gen
	notify := c.onState
	c.mu.Unlock()

	c.logger.Info("stream connected", zap.String("url", c.url))
	if notify != nil {
		notify(true)
	}
	go c.readLoop(conn, gen)
}

func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.handleClose(gen, err)
			return
		}
		c.handler(payload)
	}
}

func (c *Client) handleClose(gen int, err error) {
	c.mu.Lock()
	if c.stopped || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateClosed
	notify := c.onState
	delay := c.scheduleReconnectLocked()
	c.mu.Unlock()

	c.logger.Warn("stream closed",
		zap.String("url", c.url),
		zap.Duration("retry_in", delay),
		zap.Error(err))
	if notify != nil {
		notify(false)
	}
}

// scheduleReconnectLocked arms the retry timer. Caller holds c.mu.
func (c *Client) scheduleReconnectLocked() time.Duration {
	delay := c.retryDelay(c.attempts)
	c.attempts++
	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		if c.stopped || c.state == StateOpen || c.state == StateConnecting {
			c.mu.Unlock()
			return
		}
		c.state = StateConnecting
		c.mu.Unlock()
		go c.dial()
	})
	return delay
}
