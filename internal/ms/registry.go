package ms

import (
	"errors"
	"fmt"
	"strings"

	logs "github.com/danmuck/smplog"
)

var (
	ErrEntityExists = errors.New("ms: entity already exists")
	ErrInvalidName  = errors.New("ms: invalid entity name")
	ErrClosed       = errors.New("ms: registry closed")
)

// Registry owns the live mobile-station entities in insertion order.
// Entities are never removed individually; Close releases all of them at
// process exit.
type Registry struct {
	order  []*MobileStation
	byName map[string]*MobileStation
	closed bool
}

// NewRegistry creates an empty entity registry.
func NewRegistry() *Registry {
	return &Registry{
		order:  make([]*MobileStation, 0, 1),
		byName: make(map[string]*MobileStation),
	}
}

// Create allocates an entity from d and appends it to the registry.
func (r *Registry) Create(d Defaults) (*MobileStation, error) {
	if r.closed {
		return nil, ErrClosed
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, ErrInvalidName
	}
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrEntityExists, name)
	}
	m := &MobileStation{Name: name, ARFCN: d.ARFCN}
	r.order = append(r.order, m)
	r.byName[name] = m
	logs.Debugf("ms.Registry.Create name=%q arfcn=%d count=%d", name, d.ARFCN, len(r.order))
	return m, nil
}

// All returns entities in insertion order.
func (r *Registry) All() []*MobileStation {
	out := make([]*MobileStation, len(r.order))
	copy(out, r.order)
	return out
}

// First returns the active entity.
func (r *Registry) First() (*MobileStation, bool) {
	if len(r.order) == 0 {
		return nil, false
	}
	return r.order[0], true
}

func (r *Registry) Get(name string) (*MobileStation, bool) {
	m, ok := r.byName[name]
	return m, ok
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Close releases every entity's handles, newest first. Later calls are no-ops.
func (r *Registry) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		if err := r.order[i].release(); err != nil {
			errs = append(errs, fmt.Errorf("ms %q: %w", r.order[i].Name, err))
		}
	}
	return errors.Join(errs...)
}
