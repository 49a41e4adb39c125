package loop

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/danmuck/layer23/internal/testutil/testlog"
)

func TestWaitRunsPostedCallbacksInOrder(t *testing.T) {
	testlog.Start(t)
	d := New()
	defer d.Close()

	got := make([]int, 0)
	d.Post(func() { got = append(got, 1) })
	d.Post(func() { got = append(got, 2) })

	sig, ok := d.Wait(nil)
	if ok || sig != nil {
		t.Fatalf("unexpected signal: %v", sig)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected callback order: %v", got)
	}
	if d.Dispatched() != 2 {
		t.Fatalf("unexpected dispatched count: %d", d.Dispatched())
	}
}

func TestWaitReturnsDeliveredSignal(t *testing.T) {
	testlog.Start(t)
	d := New()
	defer d.Close()

	signals := make(chan os.Signal, 1)
	signals <- syscall.SIGTERM
	sig, ok := d.Wait(signals)
	if !ok || sig != syscall.SIGTERM {
		t.Fatalf("expected SIGTERM, got %v ok=%v", sig, ok)
	}
}

func TestWaitWakesForSourcePost(t *testing.T) {
	testlog.Start(t)
	d := New()
	defer d.Close()

	ran := false
	d.Go(func(ctx context.Context) error {
		time.Sleep(10 * time.Millisecond)
		d.Post(func() { ran = true })
		return nil
	})
	d.Wait(nil)
	if !ran {
		t.Fatalf("expected source callback to run on Wait")
	}
}

func TestAfterFuncAndStop(t *testing.T) {
	testlog.Start(t)
	d := New()
	defer d.Close()

	fired := 0
	stopped := d.AfterFunc(5*time.Millisecond, func() { fired += 100 })
	if !stopped.Stop() {
		t.Fatalf("expected pending timer")
	}
	d.AfterFunc(10*time.Millisecond, func() { fired++ })

	deadline := time.Now().Add(2 * time.Second)
	for fired == 0 && time.Now().Before(deadline) {
		d.Wait(nil)
	}
	if fired != 1 {
		t.Fatalf("unexpected fired value: %d", fired)
	}
}

func TestCloseCancelsSourcesAndDropsPosts(t *testing.T) {
	testlog.Start(t)
	d := New()
	d.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	d.Post(func() { t.Fatalf("callback ran after close") })
	if sig, ok := d.Wait(nil); ok || sig != nil {
		t.Fatalf("unexpected signal after close")
	}
}
