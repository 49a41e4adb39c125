package app

import (
	"github.com/danmuck/layer23/internal/ms"
	logs "github.com/danmuck/smplog"
)

// Binding holds the process-wide work/exit callbacks. It is set once during
// application initialization and never reassigned.
type Binding struct {
	id    string
	app   App
	work  WorkTicker
	exit  ExitRequester
	bound bool
}

// Bind captures the optional capabilities of a.
func (b *Binding) Bind(a App) error {
	if a == nil {
		return ErrNilApp
	}
	if b.bound {
		return ErrAlreadyBound
	}
	b.id = a.ID()
	b.app = a
	b.work, _ = a.(WorkTicker)
	b.exit, _ = a.(ExitRequester)
	b.bound = true
	logs.Debugf("app.Binding.Bind id=%q work=%v exit=%v", b.id, b.work != nil, b.exit != nil)
	return nil
}

// Initialize binds a and runs its Initializer, if any.
func (b *Binding) Initialize(a App, env Env) error {
	if err := b.Bind(a); err != nil {
		return err
	}
	if init, ok := a.(Initializer); ok {
		return init.Init(env)
	}
	return nil
}

func (b *Binding) Bound() bool {
	return b.bound
}

func (b *Binding) ID() string {
	return b.id
}

func (b *Binding) HasWork() bool {
	return b.work != nil
}

func (b *Binding) HasExit() bool {
	return b.exit != nil
}

// Tick invokes the work callback when one is bound.
func (b *Binding) Tick(m *ms.MobileStation) {
	if b.work != nil {
		b.work.Work(m)
	}
}

// RequestExit asks the application whether the process may terminate. An
// unbound callback always allows it.
func (b *Binding) RequestExit(m *ms.MobileStation) error {
	if b.exit == nil {
		return nil
	}
	return b.exit.Exit(m)
}

// Status returns application counters when the application reports any.
func (b *Binding) Status() map[string]any {
	r, ok := b.app.(Reporter)
	if !ok {
		return nil
	}
	return r.Status()
}
