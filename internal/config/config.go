package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
)

const (
	DefaultLinkSocketPath = "/tmp/osmocom_l2"
	DefaultSAPSocketPath  = "/tmp/osmocom_sap"
	DefaultARFCN          = 871
	DefaultVTYPort        = 4247
	DefaultApp            = "echo"

	MaxARFCN = 1023
)

var (
	ErrHelpRequested         = errors.New("config: help requested")
	ErrInvalidCaptureAddress = errors.New("config: invalid gsmtap destination address")
	ErrInvalidARFCN          = errors.New("config: invalid arfcn")
	ErrInvalidPort           = errors.New("config: invalid vty port")
	ErrInvalidArgument       = errors.New("config: invalid argument")
	ErrConfigFile            = errors.New("config: config file")
)

// RuntimeConfig is the resolved process configuration. It is returned by
// value and never modified after resolution.
type RuntimeConfig struct {
	LinkSocketPath string
	SAPSocketPath  string
	ARFCN          uint16
	CaptureAddr    netip.Addr
	VTYPort        int
	DebugMask      string
	App            string
	LogFile        string
	ConfigFile     string
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		LinkSocketPath: DefaultLinkSocketPath,
		SAPSocketPath:  DefaultSAPSocketPath,
		ARFCN:          DefaultARFCN,
		VTYPort:        DefaultVTYPort,
		App:            DefaultApp,
	}
}

// CaptureEnabled reports whether a GSMTAP destination was configured.
func (c RuntimeConfig) CaptureEnabled() bool {
	return c.CaptureAddr.IsValid()
}

// VTYEnabled reports whether the management endpoint should listen.
func (c RuntimeConfig) VTYEnabled() bool {
	return c.VTYPort != 0
}

// ParseCaptureAddr accepts a dotted-quad IPv4 address.
func ParseCaptureAddr(raw string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidCaptureAddress, raw)
	}
	return addr, nil
}

func validateARFCN(v int64) (uint16, error) {
	if v < 0 || v > MaxARFCN {
		return 0, fmt.Errorf("%w: %d (want 0..%d)", ErrInvalidARFCN, v, MaxARFCN)
	}
	return uint16(v), nil
}

func validatePort(v int64) (int, error) {
	if v < 0 || v > 65535 {
		return 0, fmt.Errorf("%w: %d (want 0..65535)", ErrInvalidPort, v)
	}
	return int(v), nil
}
