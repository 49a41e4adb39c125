package sap

import (
	"errors"
	"fmt"

	"github.com/danmuck/layer23/internal/link"
	"github.com/danmuck/layer23/internal/logging"
)

var ErrNotConnected = errors.New("sap: not connected")

// Client relays opaque SIM-access messages to the SIM reader process.
// Handler state is owned by the loop goroutine.
type Client struct {
	conn      *link.Conn
	handler   func([]byte)
	connected bool
	rx        uint64
	tx        uint64
}

// Open connects to the SIM reader socket at path.
func Open(path string, l link.Loop) (*Client, error) {
	conn, err := link.Dial(path)
	if err != nil {
		return nil, fmt.Errorf("sap: open: %w", err)
	}
	c := &Client{conn: conn, connected: true}
	conn.Pump(l, c.receive, c.lost)
	logging.Infof(logging.DSAP, "sap socket open path=%q", path)
	return c, nil
}

// OnMessage installs the receiver for inbound messages.
func (c *Client) OnMessage(fn func([]byte)) {
	c.handler = fn
}

func (c *Client) Connected() bool {
	return c != nil && c.connected
}

func (c *Client) Send(msg []byte) error {
	if !c.Connected() {
		return ErrNotConnected
	}
	if err := c.conn.Send(msg); err != nil {
		return fmt.Errorf("sap: send: %w", err)
	}
	c.tx++
	return nil
}

// Counters returns received and sent message counts.
func (c *Client) Counters() (rx uint64, tx uint64) {
	return c.rx, c.tx
}

func (c *Client) Close() error {
	c.connected = false
	return c.conn.Close()
}

func (c *Client) receive(msg []byte) {
	c.rx++
	if c.handler == nil {
		logging.Debugf(logging.DSAP, "no receiver for message len=%d", len(msg))
		return
	}
	c.handler(msg)
}

func (c *Client) lost(err error) {
	c.connected = false
	logging.Noticef(logging.DSAP, "sap socket lost path=%q err=%v", c.conn.Path(), err)
}
