package vty

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	logs "github.com/danmuck/smplog"
)

const idleTimeout = 5 * time.Minute

var ErrUnavailable = errors.New("vty: runtime unavailable")

// Loop is the dispatcher surface the endpoint needs.
type Loop interface {
	Post(fn func())
	Go(fn func(ctx context.Context) error)
}

// Status is the runtime summary returned by the status action.
type Status struct {
	RunID      string         `json:"run_id"`
	Phase      string         `json:"phase"`
	App        string         `json:"app"`
	Entities   int            `json:"entities"`
	Dispatched uint64         `json:"dispatched"`
	Capture    string         `json:"capture,omitempty"`
	AppStatus  map[string]any `json:"app_status,omitempty"`
}

type Entity struct {
	Name          string `json:"name"`
	ARFCN         uint16 `json:"arfcn"`
	SIMAttached   bool   `json:"sim_attached"`
	DataLinkReady bool   `json:"data_link_ready"`
}

// Controller is implemented by the lifecycle controller. Every method is
// called on the loop goroutine.
type Controller interface {
	Status() Status
	Entities() []Entity
	RequestQuit()
}

type controlRequest struct {
	Action string `json:"action"`
}

type controlResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Server is the line-JSON management endpoint.
type Server struct {
	ln      net.Listener
	loop    Loop
	ctl     Controller
	clients atomic.Int64
}

// Listen binds addr and starts accepting clients as loop sources.
func Listen(addr string, loop Loop, ctl Controller) (*Server, error) {
	ln, err := net.Listen("tcp", strings.TrimSpace(addr))
	if err != nil {
		return nil, fmt.Errorf("vty: listen %s: %w", addr, err)
	}
	s := &Server{ln: ln, loop: loop, ctl: ctl}
	logs.Infof("vty.Server listening addr=%q", ln.Addr().String())
	loop.Go(s.serve)
	return s, nil
}

func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

func (s *Server) Close() error {
	err := s.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (s *Server) serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.loop.Go(func(ctx context.Context) error {
			s.handleConn(ctx, conn)
			return nil
		})
	}
}

// handleConn decodes one request per line and writes one response per line.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	remote := conn.RemoteAddr().String()
	active := s.clients.Add(1)
	logs.Infof("vty.Server client connected remote=%q active_clients=%d", remote, active)
	defer func() {
		remaining := s.clients.Add(-1)
		logs.Infof("vty.Server client disconnected remote=%q active_clients=%d", remote, remaining)
	}()

	reader := bufio.NewReader(conn)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(idleTimeout))
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF && ctx.Err() == nil {
				logs.Warnf("vty.Server read remote=%q err=%v", remote, err)
			}
			return
		}
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var req controlRequest
		if err := json.Unmarshal(line, &req); err != nil {
			_ = writeControlResponse(conn, controlResponse{OK: false, Error: err.Error()})
			continue
		}
		resp := s.onLoop(ctx, req)
		if err := writeControlResponse(conn, resp); err != nil {
			logs.Warnf("vty.Server write remote=%q err=%v", remote, err)
			return
		}
	}
}

// onLoop runs the request on the loop goroutine and waits for its result.
func (s *Server) onLoop(ctx context.Context, req controlRequest) controlResponse {
	done := make(chan controlResponse, 1)
	s.loop.Post(func() {
		done <- s.handleControlRequest(req)
	})
	select {
	case resp := <-done:
		return resp
	case <-ctx.Done():
		return controlResponse{OK: false, Error: ErrUnavailable.Error()}
	}
}

func (s *Server) handleControlRequest(req controlRequest) controlResponse {
	switch strings.TrimSpace(req.Action) {
	case "status":
		return controlResponse{OK: true, Data: s.ctl.Status()}
	case "entities":
		return controlResponse{OK: true, Data: s.ctl.Entities()}
	case "quit":
		s.ctl.RequestQuit()
		logs.Infof("vty.Server quit requested")
		return controlResponse{OK: true}
	case "help":
		return controlResponse{OK: true, Data: []string{"status", "entities", "quit", "help"}}
	default:
		return controlResponse{OK: false, Error: fmt.Sprintf("unknown action: %s", req.Action)}
	}
}

func writeControlResponse(w io.Writer, resp controlResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	_, err = w.Write(payload)
	return err
}
