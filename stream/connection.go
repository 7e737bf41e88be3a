package stream

import (
	"bufio"
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Connection states.
const (
	StateDisconnected = "DISCONNECTED"
	StateConnecting   = "CONNECTING"
	StateConnected    = "CONNECTED"
)

type Config struct {
	// BaseDelay is the first reconnect delay; attempt n waits
	// BaseDelay * 2^(n-1).
	BaseDelay time.Duration
	// MaxAttempts is the reconnect budget. One failure past it fires the
	// terminal disconnect callback and stops all automatic attempts.
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		BaseDelay:   3 * time.Second,
		MaxAttempts: 5,
	}
}

// Connection owns one long-lived SSE subscription. It hands raw "data:"
// payloads to the dispatch callback; heartbeats and comments never reach it.
type Connection struct {
	url          string
	cfg          Config
	dispatch     func([]byte)
	onDisconnect func(error)
	log          *logrus.Logger
	client       *http.Client
	sleep        func(context.Context, time.Duration) error

	mu       sync.Mutex
	state    string
	attempts int
	cancel   context.CancelFunc
	gen      int
}

func NewConnection(url string, cfg Config, dispatch func([]byte), onDisconnect func(error), log *logrus.Logger) *Connection {
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig().BaseDelay
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Connection{
		url:          url,
		cfg:          cfg,
		dispatch:     dispatch,
		onDisconnect: onDisconnect,
		log:          log,
		client:       &http.Client{},
		sleep:        sleepContext,
		state:        StateDisconnected,
	}
}

// ReconnectDelay returns the backoff delay before reconnect attempt n
// (1-based): base * 2^(n-1).
func ReconnectDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// Connect opens the subscription and keeps it alive in a background
// goroutine until the retry budget is exhausted or Disconnect is called.
// Calling Connect on an already-running connection is a no-op.
func (c *Connection) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state = StateConnecting
	c.attempts = 0
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	go c.run(ctx, gen)
}

// Disconnect tears the subscription down idempotently. It cancels future
// reconnect attempts only; fetches already triggered by dispatched events
// are allowed to complete (state merges are idempotent).
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateDisconnected
}

func (c *Connection) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) IsConnected() bool {
	return c.State() == StateConnected
}

func (c *Connection) run(ctx context.Context, gen int) {
	defer c.releaseRun(gen)

	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return
		}

		c.mu.Lock()
		c.attempts++
		attempt := c.attempts
		c.state = StateConnecting
		c.mu.Unlock()

		if attempt > c.cfg.MaxAttempts {
			c.log.Printf("stream: reconnect budget exhausted after %d attempts: %v", c.cfg.MaxAttempts, err)
			c.setState(StateDisconnected)
			// Release before the callback so a handler may Connect again.
			c.releaseRun(gen)
			if c.onDisconnect != nil {
				c.onDisconnect(err)
			}
			return
		}

		delay := ReconnectDelay(c.cfg.BaseDelay, attempt)
		c.log.Printf("stream: connection lost (%v), reconnect attempt %d/%d in %s", err, attempt, c.cfg.MaxAttempts, delay)
		if err := c.sleep(ctx, delay); err != nil {
			c.setState(StateDisconnected)
			return
		}
	}
}

// consume opens the HTTP stream and pumps frames until a transport error.
func (c *Connection) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return errors.Wrap(err, "stream: build request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "stream: connect")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("stream: unexpected status %d", resp.StatusCode)
	}

	// Open succeeded: reset the retry counter.
	c.mu.Lock()
	c.attempts = 0
	c.state = StateConnected
	c.mu.Unlock()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		// Blank separators and ":" comment lines are the server heartbeat.
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}
		c.dispatch([]byte(data))
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrap(err, "stream: read")
	}
	return errors.New("stream: closed by server")
}

// releaseRun drops run's cancel handle so a later Connect is not a no-op
// after the retry budget is spent. A newer Connect owns a newer gen; its
// handle is left alone.
func (c *Connection) releaseRun(gen int) {
	c.mu.Lock()
	if c.gen == gen && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.mu.Unlock()
}

func (c *Connection) setState(state string) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
