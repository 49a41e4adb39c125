package host

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/danmuck/layer23/internal/app"
	"github.com/danmuck/layer23/internal/config"
	"github.com/danmuck/layer23/internal/gsmtap"
	"github.com/danmuck/layer23/internal/l1ctl"
	"github.com/danmuck/layer23/internal/lapdm"
	"github.com/danmuck/layer23/internal/logging"
	"github.com/danmuck/layer23/internal/loop"
	"github.com/danmuck/layer23/internal/ms"
	"github.com/danmuck/layer23/internal/sap"
	"github.com/danmuck/layer23/internal/vty"
	logs "github.com/danmuck/smplog"
	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

var (
	ErrEntity     = errors.New("host: entity creation failed")
	ErrLinkLayer  = errors.New("host: layer2 socket unavailable")
	ErrDataLink   = errors.New("host: data link init failed")
	ErrAppInit    = errors.New("host: application init failed")
	ErrCapture    = errors.New("host: gsmtap init failed")
	ErrManagement = errors.New("host: vty endpoint failed")
)

// Options adjusts process wiring. The zero value installs real signal
// handlers and logs to stderr only.
type Options struct {
	// Signals replaces the OS signal bridge when set.
	Signals <-chan os.Signal
	// LogWriter receives category records in place of the stderr target.
	LogWriter io.Writer
	// OnPhase is called on the loop goroutine after each phase change.
	OnPhase func(*RuntimeContext, Phase)
}

// RuntimeContext is the state of one process run. It is built once and
// every field is owned by the goroutine that calls Run.
type RuntimeContext struct {
	cfg     config.RuntimeConfig
	catalog *app.Catalog
	opts    Options
	runID   string

	loop     *loop.Dispatcher
	registry *ms.Registry
	binding  app.Binding
	exporter *gsmtap.Exporter
	vty      *vty.Server

	stderr      io.Writer
	signals     <-chan os.Signal
	stopSignals func()
	outputs     *logging.Attached

	phase Phase
	quit  bool
	ticks uint64
}

func newRuntimeContext(cfg config.RuntimeConfig, catalog *app.Catalog, opts Options, stderr io.Writer) *RuntimeContext {
	if stderr == nil {
		stderr = io.Discard
	}
	return &RuntimeContext{
		cfg:      cfg,
		catalog:  catalog,
		opts:     opts,
		stderr:   stderr,
		runID:    uuid.NewString(),
		loop:     loop.New(),
		registry: ms.NewRegistry(),
		phase:    PhaseBootstrapping,
	}
}

func (rt *RuntimeContext) Phase() Phase {
	return rt.phase
}

func (rt *RuntimeContext) RunID() string {
	return rt.runID
}

// Ticks counts work ticks issued by the loop.
func (rt *RuntimeContext) Ticks() uint64 {
	return rt.ticks
}

// VTYAddr is the bound management address, or nil when disabled.
func (rt *RuntimeContext) VTYAddr() net.Addr {
	if rt.vty == nil {
		return nil
	}
	return rt.vty.Addr()
}

func (rt *RuntimeContext) setPhase(to Phase) error {
	if rt.phase == to {
		return nil
	}
	if !canTransition(rt.phase, to) {
		return transitionError(rt.phase, to)
	}
	logs.Debugf("host.RuntimeContext.setPhase run_id=%s from=%s to=%s", rt.runID, rt.phase, to)
	rt.phase = to
	if rt.opts.OnPhase != nil {
		rt.opts.OnPhase(rt, to)
	}
	return nil
}

// Run bootstraps the runtime and drives the loop until shutdown is decided.
// It never releases resources; Close does.
func (rt *RuntimeContext) Run() error {
	if rt.phase != PhaseBootstrapping {
		return transitionError(rt.phase, PhaseRunning)
	}
	if err := rt.bootstrap(); err != nil {
		return err
	}
	return rt.serve()
}

func (rt *RuntimeContext) bootstrap() error {
	rt.configureLogging()
	logs.Infof("host.RuntimeContext.bootstrap run_id=%s app=%q arfcn=%d", rt.runID, rt.cfg.App, rt.cfg.ARFCN)

	m, err := rt.registry.Create(ms.Defaults{Name: ms.DefaultName, ARFCN: rt.cfg.ARFCN})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEntity, err)
	}

	l1, err := l1ctl.Open(rt.cfg.LinkSocketPath, rt.loop)
	if err != nil {
		logs.Errf("host.RuntimeContext.bootstrap layer2 socket=%q err=%v", rt.cfg.LinkSocketPath, err)
		return fmt.Errorf("%w: %w", ErrLinkLayer, err)
	}
	m.L1 = l1

	sim, err := sap.Open(rt.cfg.SAPSocketPath, rt.loop)
	if err != nil {
		logs.Warnf("host.RuntimeContext.bootstrap sim socket=%q unavailable, continuing without SIM err=%v", rt.cfg.SAPSocketPath, err)
	} else {
		m.SAP = sim
	}

	if err := m.DCCH.Init(lapdm.ChannelDCCH, m.Name, l1); err != nil {
		return fmt.Errorf("%w: %w", ErrDataLink, err)
	}
	if err := m.ACCH.Init(lapdm.ChannelACCH, m.Name, l1); err != nil {
		return fmt.Errorf("%w: %w", ErrDataLink, err)
	}

	a, err := rt.catalog.New(rt.cfg.App)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrAppInit, err)
	}
	if err := rt.binding.Initialize(a, app.Env{MS: m, Sched: rt.loop}); err != nil {
		logs.Errf("host.RuntimeContext.bootstrap app=%q init err=%v", a.ID(), err)
		return fmt.Errorf("%w: %w", ErrAppInit, err)
	}

	if rt.cfg.CaptureEnabled() {
		exp, err := gsmtap.Init(rt.cfg.CaptureAddr)
		if err != nil {
			logs.Errf("host.RuntimeContext.bootstrap gsmtap addr=%s err=%v", rt.cfg.CaptureAddr, err)
			return fmt.Errorf("%w: %w", ErrCapture, err)
		}
		rt.exporter = exp
		l1.SetTap(exp)
	}

	if rt.cfg.VTYEnabled() {
		addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(rt.cfg.VTYPort))
		srv, err := vty.Listen(addr, rt.loop, rt)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrManagement, err)
		}
		rt.vty = srv
	}

	rt.installSignals()
	logs.Infof(
		"host.RuntimeContext.bootstrap ready run_id=%s ms=%q sim=%v work=%v exit=%v gsmtap=%v",
		rt.runID, m.Name, m.SIMAttached(), rt.binding.HasWork(), rt.binding.HasExit(), rt.exporter != nil,
	)
	return rt.setPhase(PhaseRunning)
}

// serve is the main loop: one work tick, then one wait, until quit.
func (rt *RuntimeContext) serve() error {
	m, _ := rt.registry.First()
	for !rt.quit {
		rt.binding.Tick(m)
		rt.ticks++
		sig, ok := rt.loop.Wait(rt.signals)
		if ok && rt.handleSignal(sig, m) {
			rt.quit = true
		}
	}
	return rt.setPhase(PhaseShuttingDown)
}

// handleSignal reports whether sig ends the run.
func (rt *RuntimeContext) handleSignal(sig os.Signal, m *ms.MobileStation) bool {
	name := signalName(sig)
	_, _ = fmt.Fprintf(rt.stderr, "Signal %s received.\n", name)
	switch sig {
	case syscall.SIGHUP, syscall.SIGPIPE:
		logs.Debugf("host.RuntimeContext.handleSignal signal=%s ignored", name)
		return false
	case syscall.SIGINT, syscall.SIGTERM:
	default:
		logs.Warnf("host.RuntimeContext.handleSignal signal=%s unexpected", name)
		return false
	}

	logs.Infof("host.RuntimeContext.handleSignal signal=%s app=%q", name, rt.binding.ID())
	err := rt.binding.RequestExit(m)
	switch {
	case err == nil:
		return true
	case errors.Is(err, app.ErrBusy):
		logs.Infof("host.RuntimeContext.handleSignal exit deferred app=%q", rt.binding.ID())
		return false
	default:
		logs.Warnf("host.RuntimeContext.handleSignal app=%q exit err=%v, terminating", rt.binding.ID(), err)
		return true
	}
}

func (rt *RuntimeContext) installSignals() {
	if rt.opts.Signals != nil {
		rt.signals = rt.opts.Signals
		return
	}
	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGPIPE)
	rt.signals = ch
	rt.stopSignals = func() { signal.Stop(ch) }
}

func (rt *RuntimeContext) configureLogging() {
	logging.ConfigureRuntime()
	attached, err := logging.Attach(logging.Outputs{
		DebugMask: rt.cfg.DebugMask,
		File:      rt.cfg.LogFile,
		Writer:    rt.opts.LogWriter,
	})
	rt.outputs = attached
	if err != nil {
		logs.Warnf("host.RuntimeContext.configureLogging mask=%q err=%v", rt.cfg.DebugMask, err)
	}
}

// Close releases everything bootstrap acquired, in reverse order. It is safe
// after a failed bootstrap and on repeated calls.
func (rt *RuntimeContext) Close() error {
	if rt.phase == PhaseTerminated {
		return nil
	}
	// a failed bootstrap was never running; it goes straight to terminated
	if rt.phase != PhaseBootstrapping {
		_ = rt.setPhase(PhaseShuttingDown)
	}

	var errs []error
	if rt.stopSignals != nil {
		rt.stopSignals()
		rt.stopSignals = nil
	}
	if rt.vty != nil {
		if err := rt.vty.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if rt.exporter != nil {
		if err := rt.exporter.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := rt.registry.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := rt.loop.Close(); err != nil {
		errs = append(errs, err)
	}
	logs.Infof("host.RuntimeContext.Close run_id=%s ticks=%d dispatched=%d", rt.runID, rt.ticks, rt.loop.Dispatched())

	if err := rt.outputs.Close(); err != nil {
		errs = append(errs, err)
	}
	rt.outputs = nil

	_ = rt.setPhase(PhaseTerminated)
	return errors.Join(errs...)
}

// Status implements vty.Controller.
func (rt *RuntimeContext) Status() vty.Status {
	st := vty.Status{
		RunID:      rt.runID,
		Phase:      string(rt.phase),
		App:        rt.binding.ID(),
		Entities:   rt.registry.Len(),
		Dispatched: rt.loop.Dispatched(),
		AppStatus:  rt.binding.Status(),
	}
	if rt.exporter != nil {
		st.Capture = rt.exporter.Destination().String()
	}
	return st
}

// Entities implements vty.Controller.
func (rt *RuntimeContext) Entities() []vty.Entity {
	all := rt.registry.All()
	out := make([]vty.Entity, 0, len(all))
	for _, m := range all {
		out = append(out, vty.Entity{
			Name:          m.Name,
			ARFCN:         m.ARFCN,
			SIMAttached:   m.SIMAttached(),
			DataLinkReady: m.DataLinkReady(),
		})
	}
	return out
}

// RequestQuit sets the termination flag; the loop exits after the current
// iteration without consulting the application.
func (rt *RuntimeContext) RequestQuit() {
	rt.quit = true
}

func signalName(sig os.Signal) string {
	if s, ok := sig.(syscall.Signal); ok {
		if name := unix.SignalName(s); name != "" {
			return name
		}
	}
	return sig.String()
}
