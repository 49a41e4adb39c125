package gsmtap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync/atomic"
)

// Port is the registered GSMTAP UDP port.
const Port = 4729

const (
	Version   = 2
	HeaderLen = 16

	TypeUM uint8 = 1

	ARFCNFlagPCS    uint16 = 0x8000
	ARFCNFlagUplink uint16 = 0x4000
)

// Um channel sub types.
const (
	ChanUnknown uint8 = 0
	ChanBCCH    uint8 = 1
	ChanCCCH    uint8 = 2
	ChanRACH    uint8 = 3
	ChanSDCCH4  uint8 = 7
	ChanSDCCH8  uint8 = 8
	ChanTCHF    uint8 = 9
	ChanTCHH    uint8 = 10
	ChanACCH    uint8 = 0x80
)

var ErrInvalidAddress = errors.New("gsmtap: destination must be an IPv4 address")

// Header is the fixed GSMTAP v2 header.
type Header struct {
	Type        uint8
	Timeslot    uint8
	ARFCN       uint16
	SignalDBm   int8
	SNRDB       int8
	FrameNumber uint32
	SubType     uint8
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	buf[0] = Version
	buf[1] = HeaderLen / 4
	buf[2] = h.Type
	buf[3] = h.Timeslot
	binary.BigEndian.PutUint16(buf[4:6], h.ARFCN)
	buf[6] = byte(h.SignalDBm)
	buf[7] = byte(h.SNRDB)
	binary.BigEndian.PutUint32(buf[8:12], h.FrameNumber)
	buf[12] = h.SubType
	return buf
}

// SubTypeFromChanNr maps an RSL channel number to a GSMTAP Um sub type.
func SubTypeFromChanNr(chanNr uint8, acch bool) uint8 {
	cbits := chanNr >> 3
	var sub uint8
	switch {
	case cbits == 0x01:
		sub = ChanTCHF
	case cbits&0x1e == 0x02:
		sub = ChanTCHH
	case cbits&0x1c == 0x04:
		sub = ChanSDCCH4
	case cbits&0x18 == 0x08:
		sub = ChanSDCCH8
	case cbits == 0x10:
		sub = ChanBCCH
	case cbits == 0x11:
		sub = ChanRACH
	case cbits == 0x12:
		sub = ChanCCCH
	default:
		sub = ChanUnknown
	}
	if acch && sub != ChanUnknown {
		sub |= ChanACCH
	}
	return sub
}

// Exporter mirrors Um frames to a GSMTAP listener.
type Exporter struct {
	conn *net.UDPConn
	dst  netip.AddrPort
	sent atomic.Uint64
}

// Init opens the exporter towards addr on the standard port.
func Init(addr netip.Addr) (*Exporter, error) {
	return InitAddrPort(netip.AddrPortFrom(addr, Port))
}

func InitAddrPort(dst netip.AddrPort) (*Exporter, error) {
	addr := dst.Addr().Unmap()
	if !addr.Is4() {
		return nil, ErrInvalidAddress
	}
	dst = netip.AddrPortFrom(addr, dst.Port())
	conn, err := net.DialUDP("udp4", nil, net.UDPAddrFromAddrPort(dst))
	if err != nil {
		return nil, fmt.Errorf("gsmtap: dial %s: %w", dst, err)
	}
	return &Exporter{conn: conn, dst: dst}, nil
}

func (e *Exporter) Destination() netip.AddrPort {
	return e.dst
}

func (e *Exporter) Sent() uint64 {
	return e.sent.Load()
}

// Frame is one Um burst payload with the radio metadata the header carries.
type Frame struct {
	ARFCN       uint16
	Uplink      bool
	ChanNr      uint8
	ACCH        bool
	FrameNumber uint32
	SignalDBm   int8
	SNRDB       int8
	Payload     []byte
}

// Mirror sends one Um frame.
func (e *Exporter) Mirror(f Frame) error {
	arfcn := f.ARFCN
	if f.Uplink {
		arfcn |= ARFCNFlagUplink
	}
	h := Header{
		Type:        TypeUM,
		Timeslot:    f.ChanNr & 0x07,
		ARFCN:       arfcn,
		SignalDBm:   f.SignalDBm,
		SNRDB:       f.SNRDB,
		FrameNumber: f.FrameNumber,
		SubType:     SubTypeFromChanNr(f.ChanNr, f.ACCH),
	}
	pkt := append(EncodeHeader(h), f.Payload...)
	if _, err := e.conn.Write(pkt); err != nil {
		return err
	}
	e.sent.Add(1)
	return nil
}

func (e *Exporter) Close() error {
	return e.conn.Close()
}
