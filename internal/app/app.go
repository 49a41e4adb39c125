package app

import (
	"errors"
	"time"

	"github.com/danmuck/layer23/internal/loop"
	"github.com/danmuck/layer23/internal/ms"
)

var (
	// ErrBusy from Exit asks the host to stay running until the next
	// termination request.
	ErrBusy = errors.New("app: busy, exit deferred")

	ErrAlreadyBound = errors.New("app: binding already set")
	ErrNilApp       = errors.New("app: nil application")
)

// Scheduler is the loop surface an application may use.
type Scheduler interface {
	Post(fn func())
	AfterFunc(d time.Duration, fn func()) *loop.Timer
}

// Env is handed to Init once transports and data links are ready.
type Env struct {
	MS    *ms.MobileStation
	Sched Scheduler
}

// App is a layer-3 application hosted by the runtime. Every capability
// below is optional and discovered by type assertion.
type App interface {
	ID() string
}

// Initializer runs once before the loop starts; an error aborts startup.
type Initializer interface {
	Init(env Env) error
}

// WorkTicker runs once per loop iteration, before the loop blocks. It must
// return promptly.
type WorkTicker interface {
	Work(m *ms.MobileStation)
}

// ExitRequester is asked before the process terminates on SIGINT/SIGTERM.
type ExitRequester interface {
	Exit(m *ms.MobileStation) error
}

// Reporter exposes application counters to the management endpoint.
type Reporter interface {
	Status() map[string]any
}
