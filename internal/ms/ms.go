package ms

import (
	"errors"

	"github.com/danmuck/layer23/internal/l1ctl"
	"github.com/danmuck/layer23/internal/lapdm"
	"github.com/danmuck/layer23/internal/sap"
)

const (
	DefaultName  = "1"
	DefaultARFCN = 871
)

// MobileStation is one mobile-station entity and the collaborator handles it
// owns. L1 is set once the layer2 socket is open; SAP stays nil when the SIM
// reader is unavailable.
type MobileStation struct {
	Name  string
	ARFCN uint16

	L1   *l1ctl.Link
	SAP  *sap.Client
	DCCH lapdm.Entity
	ACCH lapdm.Entity
}

// Defaults seeds a newly created entity.
type Defaults struct {
	Name  string
	ARFCN uint16
}

func DefaultDefaults() Defaults {
	return Defaults{Name: DefaultName, ARFCN: DefaultARFCN}
}

// DataLinkReady reports whether both data-link entities are bound.
func (m *MobileStation) DataLinkReady() bool {
	return m.DCCH.Ready() && m.ACCH.Ready()
}

// SIMAttached reports whether the SIM transport is usable.
func (m *MobileStation) SIMAttached() bool {
	return m.SAP.Connected()
}

// release closes every collaborator handle the entity owns.
func (m *MobileStation) release() error {
	var errs []error
	m.DCCH.Reset()
	m.ACCH.Reset()
	if m.SAP != nil {
		if err := m.SAP.Close(); err != nil {
			errs = append(errs, err)
		}
		m.SAP = nil
	}
	if m.L1 != nil {
		if err := m.L1.Close(); err != nil {
			errs = append(errs, err)
		}
		m.L1 = nil
	}
	return errors.Join(errs...)
}
