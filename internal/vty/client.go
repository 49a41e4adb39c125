package vty

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"time"
)

const (
	dialTimeout = 3 * time.Second
	callTimeout = 5 * time.Second
)

type clientResponse struct {
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client keeps one persistent connection to a management endpoint.
type Client struct {
	addr string
	conn net.Conn
	r    *bufio.Reader
}

func NewClient(addr string) *Client {
	return &Client{addr: addr}
}

func (c *Client) Status() (Status, error) {
	var out Status
	err := c.Call("status", &out)
	return out, err
}

func (c *Client) Entities() ([]Entity, error) {
	var out []Entity
	err := c.Call("entities", &out)
	return out, err
}

func (c *Client) Quit() error {
	return c.Call("quit", nil)
}

// Call sends one action and decodes the response data into out.
func (c *Client) Call(action string, out any) error {
	if err := c.ensureConn(); err != nil {
		return err
	}
	payload, err := json.Marshal(controlRequest{Action: action})
	if err != nil {
		return err
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(callTimeout)); err != nil {
		return err
	}
	payload = append(payload, '\n')
	if _, err := c.conn.Write(payload); err != nil {
		c.resetConn()
		return err
	}
	if err := c.conn.SetReadDeadline(time.Now().Add(callTimeout)); err != nil {
		return err
	}
	line, err := c.r.ReadBytes('\n')
	if err != nil {
		c.resetConn()
		return err
	}
	var resp clientResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return errors.New(resp.Error)
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Data, out)
}

func (c *Client) ensureConn() error {
	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
	if err != nil {
		return err
	}
	c.conn = conn
	c.r = bufio.NewReader(conn)
	return nil
}

func (c *Client) resetConn() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = nil
	c.r = nil
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.r = nil
	return err
}
