package mpv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/jwulff/tubemarker/internal/logger"
)

// ErrClosed is returned by calls on a client whose connection has gone away.
var ErrClosed = errors.New("mpv connection closed")

const eventBuffer = 64

// Client communicates with one mpv instance over a Unix socket.
type Client struct {
	conn    net.Conn
	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan Response
	closed  bool

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// Connect dials the mpv IPC socket and starts reading replies and events.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to mpv: %w", err)
	}

	c := &Client{
		conn:    conn,
		pending: map[int64]chan Response{},
		events:  make(chan Event, eventBuffer),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the stream of mpv events. It is closed with the connection.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close shuts down the connection.
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) readLoop() {
	defer c.shutdown()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB buffer

	for scanner.Scan() {
		line := scanner.Bytes()

		if gjson.GetBytes(line, "event").Exists() {
			var ev Event
			if err := json.Unmarshal(line, &ev); err != nil {
				logger.Warnf("[mpv] unmarshal event: %v", err)
				continue
			}
			select {
			case c.events <- ev:
			case <-c.done:
				return
			}
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			logger.Warnf("[mpv] unmarshal response: %v", err)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.RequestID]
		delete(c.pending, resp.RequestID)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Debugf("[mpv] read: %v", err)
	}
}

// shutdown fails every waiting command and closes the event stream.
func (c *Client) shutdown() {
	c.mu.Lock()
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	close(c.events)
	c.Close()
}

// Command sends args as an mpv command and waits for its reply.
func (c *Client) Command(ctx context.Context, args ...any) (Response, error) {
	if len(args) == 0 {
		return Response{}, errors.New("empty mpv command")
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, ErrClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan Response, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	data, err := json.Marshal(Command{Command: args, RequestID: id})
	if err != nil {
		c.forget(id)
		return Response{}, fmt.Errorf("marshal command: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	_, err = c.conn.Write(data)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(id)
		return Response{}, fmt.Errorf("write command: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, ErrClosed
		}
		if !resp.OK() {
			return resp, &CommandError{Command: fmt.Sprint(args[0]), Reason: resp.Error}
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(id)
		return Response{}, ctx.Err()
	}
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// SetProperty sets an mpv property.
func (c *Client) SetProperty(ctx context.Context, name string, value any) error {
	_, err := c.Command(ctx, "set_property", name, value)
	return err
}

// GetProperty reads an mpv property into out.
func (c *Client) GetProperty(ctx context.Context, name string, out any) error {
	resp, err := c.Command(ctx, "get_property", name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// ObserveProperty subscribes to property-change events for name under id.
func (c *Client) ObserveProperty(ctx context.Context, id int, name string) error {
	_, err := c.Command(ctx, "observe_property", id, name)
	return err
}
