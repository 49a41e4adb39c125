package fakepeer

import (
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/layer23/internal/link"
)

// Peer is a unix-socket stand-in for the radio firmware or SIM reader. It
// accepts one client and records every frame the client sends.
type Peer struct {
	path   string
	ln     net.Listener
	frames chan []byte

	mu   sync.Mutex
	conn net.Conn
	ok   chan struct{}
}

// Listen binds a peer socket under a fresh temp dir.
func Listen(t testing.TB, name string) *Peer {
	t.Helper()
	dir, err := os.MkdirTemp("", "l23")
	if err != nil {
		t.Fatalf("temp dir: %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, name)
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen %s: %v", path, err)
	}
	p := &Peer{
		path:   path,
		ln:     ln,
		frames: make(chan []byte, 64),
		ok:     make(chan struct{}),
	}
	go p.accept()
	t.Cleanup(p.Close)
	return p
}

func (p *Peer) Path() string {
	return p.path
}

func (p *Peer) accept() {
	conn, err := p.ln.Accept()
	if err != nil {
		return
	}
	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()
	close(p.ok)
	for {
		frame, err := link.ReadFrame(conn, link.DefaultLimits())
		if err != nil {
			return
		}
		p.frames <- frame
	}
}

// WaitConnected blocks until the client has connected.
func (p *Peer) WaitConnected(t testing.TB) {
	t.Helper()
	select {
	case <-p.ok:
	case <-time.After(2 * time.Second):
		t.Fatalf("peer %s: no client connected", p.path)
	}
}

// Connected reports, without blocking, whether a client has connected.
func (p *Peer) Connected() bool {
	select {
	case <-p.ok:
		return true
	default:
		return false
	}
}

// Send writes one frame to the connected client.
func (p *Peer) Send(t testing.TB, payload []byte) {
	t.Helper()
	p.WaitConnected(t)
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := link.WriteFrame(p.conn, payload, link.DefaultLimits()); err != nil {
		t.Fatalf("peer send: %v", err)
	}
}

// Next returns the next frame sent by the client.
func (p *Peer) Next(t testing.TB) []byte {
	t.Helper()
	select {
	case f := <-p.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("peer %s: no frame received", p.path)
		return nil
	}
}

// Hangup drops the client connection.
func (p *Peer) Hangup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

func (p *Peer) Close() {
	_ = p.ln.Close()
	p.Hangup()
}
