package sap

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/layer23/internal/loop"
	"github.com/danmuck/layer23/internal/testutil/fakepeer"
	"github.com/danmuck/layer23/internal/testutil/testlog"
)

func TestOpenMissingSocket(t *testing.T) {
	testlog.Start(t)
	d := loop.New()
	defer d.Close()
	if _, err := Open(filepath.Join(t.TempDir(), "sap"), d); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestSendAndReceive(t *testing.T) {
	testlog.Start(t)
	peer := fakepeer.Listen(t, "sap")
	d := loop.New()
	defer d.Close()

	c, err := Open(peer.Path(), d)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer c.Close()

	var got []byte
	c.OnMessage(func(msg []byte) { got = msg })
	if err := c.Send([]byte{0x00, 0x01}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if f := peer.Next(t); len(f) != 2 || f[1] != 0x01 {
		t.Fatalf("unexpected frame at peer: % x", f)
	}
	peer.Send(t, []byte{0x01, 0x00})

	deadline := time.Now().Add(2 * time.Second)
	for got == nil && time.Now().Before(deadline) {
		d.Wait(nil)
	}
	if len(got) != 2 || got[0] != 0x01 {
		t.Fatalf("unexpected message: % x", got)
	}
	rx, tx := c.Counters()
	if rx != 1 || tx != 1 {
		t.Fatalf("unexpected counters rx=%d tx=%d", rx, tx)
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	testlog.Start(t)
	peer := fakepeer.Listen(t, "sap")
	d := loop.New()
	defer d.Close()

	c, err := Open(peer.Path(), d)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = c.Close()
	if err := c.Send([]byte{1}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}
