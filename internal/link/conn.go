package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

var ErrClosed = errors.New("link: connection closed")

// Loop is the subset of the dispatcher a connection needs: callbacks are
// posted to the loop goroutine and readers run as supervised sources.
type Loop interface {
	Post(fn func())
	Go(fn func(ctx context.Context) error)
}

// Conn is one framed unix-socket connection to a peer process.
type Conn struct {
	path   string
	conn   net.Conn
	limits Limits

	wmu       sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to the unix stream socket at path.
func Dial(path string) (*Conn, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("link: dial %s: %w", path, err)
	}
	return NewConn(path, conn, DefaultLimits()), nil
}

// NewConn wraps an established connection.
func NewConn(path string, conn net.Conn, limits Limits) *Conn {
	return &Conn{path: path, conn: conn, limits: limits}
}

func (c *Conn) Path() string {
	return c.path
}

// Send writes one frame; concurrent senders are serialized.
func (c *Conn) Send(payload []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteFrame(c.conn, payload, c.limits)
}

// Receive blocks for the next frame.
func (c *Conn) Receive() ([]byte, error) {
	return ReadFrame(c.conn, c.limits)
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Pump starts a reader source on l. Every frame is handed to handle on the
// loop goroutine; the first read failure is handed to lost, once, unless the
// loop is shutting down.
func (c *Conn) Pump(l Loop, handle func([]byte), lost func(error)) {
	l.Go(func(ctx context.Context) error {
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			select {
			case <-ctx.Done():
				_ = c.Close()
			case <-stop:
			}
		}()

		for {
			payload, err := c.Receive()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
					err = ErrClosed
				}
				l.Post(func() { lost(err) })
				return nil
			}
			l.Post(func() { handle(payload) })
		}
	})
}
