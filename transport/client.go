package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// frameBacklog is how many undelivered frames a client holds before it starts
// dropping the oldest.
const frameBacklog = 32

// Client receives frames from a Server. Frames are read on a background
// goroutine and handed to the frame loop through Drain.
type Client struct {
	conn   *websocket.Conn
	clock  *ServerClock
	log    logrus.FieldLogger
	frames chan Frame
	done   chan struct{}

	mu      sync.Mutex
	err     error
	dropped int
}

// Dial connects to a Server's websocket endpoint, e.g. ws://host:port/ws.
func Dial(ctx context.Context, url string, log logrus.FieldLogger) (*Client, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:   conn,
		clock:  NewServerClock(nil),
		log:    log.WithField("component", "transport"),
		frames: make(chan Frame, frameBacklog),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.err = err
			c.mu.Unlock()
			c.log.WithError(err).Info("connection closed")
			return
		}
		f, err := Decode(data)
		if err != nil {
			c.log.WithError(err).Warn("discarding frame")
			continue
		}
		c.clock.Observe(f.ServerTime)
		c.push(f)
	}
}

func (c *Client) push(f Frame) {
	for {
		select {
		case c.frames <- f:
			return
		default:
		}
		select { // full, drop the oldest
		case <-c.frames:
			c.mu.Lock()
			c.dropped++
			c.mu.Unlock()
		default:
		}
	}
}

// Drain returns every frame received since the last call, oldest first.
// It never blocks.
func (c *Client) Drain() []Frame {
	var out []Frame
	for {
		select {
		case f := <-c.frames:
			out = append(out, f)
		default:
			return out
		}
	}
}

// Clock is the server time estimate fed by received frames.
func (c *Client) Clock() *ServerClock { return c.clock }

// WaitSynced blocks until the first frame has arrived.
func (c *Client) WaitSynced(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for !c.clock.Synced() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return fmt.Errorf("connection closed before first frame: %w", c.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} { return c.done }

func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Dropped counts frames discarded because the frame loop fell behind.
func (c *Client) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close sends a close frame and closes the connection. It returns the first
// error from either step.
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	werr := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	cerr := c.conn.Close()
	if werr != nil {
		return fmt.Errorf("close handshake: %w", werr)
	}
	return cerr
}
