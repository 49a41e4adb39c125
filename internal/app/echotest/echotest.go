package echotest

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/layer23/internal/app"
	"github.com/danmuck/layer23/internal/l1ctl"
	"github.com/danmuck/layer23/internal/logging"
	"github.com/danmuck/layer23/internal/loop"
	"github.com/danmuck/layer23/internal/ms"
)

const ID = "echo"

var ErrNoLink = errors.New("echotest: layer2 link not open")

// App periodically sends L1CTL echo requests and counts confirmations. The
// timer only marks a request as due; the request itself goes out from the
// work tick so it is written before the loop blocks again.
type App struct {
	Interval time.Duration
	Payload  []byte

	m     *ms.MobileStation
	sched app.Scheduler
	timer *loop.Timer

	due          bool
	stopping     bool
	exitRequests int
	outstanding  int
	sent         uint64
	confirmed    uint64
	failures     uint64
}

func New() *App {
	return &App{Interval: time.Second, Payload: []byte("l23 echo")}
}

func (a *App) ID() string {
	return ID
}

func (a *App) Init(env app.Env) error {
	if env.MS == nil || env.MS.L1 == nil {
		return ErrNoLink
	}
	if a.Interval <= 0 {
		return fmt.Errorf("echotest: invalid interval %s", a.Interval)
	}
	a.m = env.MS
	a.sched = env.Sched
	a.m.L1.Handle(l1ctl.MsgEchoConf, a.onEchoConf)
	a.due = true
	logging.Infof(logging.DSUM, "echo test started ms=%q interval=%s", a.m.Name, a.Interval)
	return nil
}

func (a *App) Work(m *ms.MobileStation) {
	if !a.due || a.stopping {
		return
	}
	a.due = false
	if err := m.L1.SendEchoReq(a.Payload); err != nil {
		a.failures++
		logging.Noticef(logging.DSUM, "echo request failed ms=%q err=%v", m.Name, err)
	} else {
		a.sent++
		a.outstanding++
	}
	a.timer = a.sched.AfterFunc(a.Interval, func() { a.due = true })
}

// Exit defers shutdown once while echo requests are still unanswered.
func (a *App) Exit(m *ms.MobileStation) error {
	a.stopping = true
	a.exitRequests++
	a.timer.Stop()
	if a.outstanding > 0 && a.exitRequests == 1 {
		logging.Infof(logging.DSUM, "exit deferred ms=%q outstanding=%d", m.Name, a.outstanding)
		return app.ErrBusy
	}
	logging.Infof(logging.DSUM, "echo test done ms=%q sent=%d confirmed=%d", m.Name, a.sent, a.confirmed)
	return nil
}

func (a *App) Status() map[string]any {
	return map[string]any{
		"sent":        a.sent,
		"confirmed":   a.confirmed,
		"outstanding": a.outstanding,
		"failures":    a.failures,
		"stopping":    a.stopping,
	}
}

func (a *App) onEchoConf(msg l1ctl.Message) {
	a.confirmed++
	if a.outstanding > 0 {
		a.outstanding--
	}
	logging.Debugf(logging.DSUM, "echo conf len=%d outstanding=%d", len(msg.Payload), a.outstanding)
}
