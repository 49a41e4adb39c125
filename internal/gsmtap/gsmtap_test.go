package gsmtap

import (
	"encoding/binary"
	"errors"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/danmuck/layer23/internal/testutil/testlog"
)

func TestEncodeHeaderLayout(t *testing.T) {
	testlog.Start(t)
	buf := EncodeHeader(Header{Type: TypeUM, Timeslot: 3, ARFCN: 871 | ARFCNFlagUplink, FrameNumber: 42, SubType: ChanBCCH})
	if len(buf) != HeaderLen || buf[0] != Version || buf[1] != 4 {
		t.Fatalf("unexpected fixed fields: % x", buf)
	}
	if binary.BigEndian.Uint16(buf[4:6]) != 871|ARFCNFlagUplink {
		t.Fatalf("unexpected arfcn field: % x", buf[4:6])
	}
	if binary.BigEndian.Uint32(buf[8:12]) != 42 || buf[12] != ChanBCCH {
		t.Fatalf("unexpected frame/subtype: % x", buf)
	}
}

func TestSubTypeFromChanNr(t *testing.T) {
	testlog.Start(t)
	cases := map[uint8]uint8{
		0x80: ChanBCCH,
		0x90: ChanCCCH,
		0x08: ChanTCHF,
		0x20: ChanSDCCH4,
		0x41: ChanSDCCH8,
	}
	for chanNr, want := range cases {
		if got := SubTypeFromChanNr(chanNr, false); got != want {
			t.Fatalf("chan_nr=%#x got=%d want=%d", chanNr, got, want)
		}
	}
	if got := SubTypeFromChanNr(0x41, true); got != ChanSDCCH8|ChanACCH {
		t.Fatalf("unexpected acch subtype: %#x", got)
	}
}

func TestInitRejectsIPv6(t *testing.T) {
	testlog.Start(t)
	if _, err := Init(netip.MustParseAddr("::1")); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress, got %v", err)
	}
}

func TestMirrorSendsDatagram(t *testing.T) {
	testlog.Start(t)
	ln, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	exp, err := InitAddrPort(ln.LocalAddr().(*net.UDPAddr).AddrPort())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer exp.Close()

	frame := Frame{ARFCN: 871, ChanNr: 0x80, FrameNumber: 0x01020304, SignalDBm: -70, SNRDB: 12, Payload: []byte{0x55, 0x06}}
	if err := exp.Mirror(frame); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	buf := make([]byte, 64)
	_ = ln.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := ln.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != HeaderLen+2 || buf[HeaderLen] != 0x55 {
		t.Fatalf("unexpected datagram: % x", buf[:n])
	}
	if buf[12] != ChanBCCH {
		t.Fatalf("unexpected subtype: %d", buf[12])
	}
	if int8(buf[6]) != -70 || buf[7] != 12 {
		t.Fatalf("unexpected signal/snr: %d/%d", int8(buf[6]), buf[7])
	}
	if buf[8] != 0x01 || buf[9] != 0x02 || buf[10] != 0x03 || buf[11] != 0x04 {
		t.Fatalf("unexpected frame number: % x", buf[8:12])
	}
	if exp.Sent() != 1 {
		t.Fatalf("unexpected sent count: %d", exp.Sent())
	}
}

func TestMirrorMarksACCHSubType(t *testing.T) {
	testlog.Start(t)
	ln, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	exp, err := InitAddrPort(ln.LocalAddr().(*net.UDPAddr).AddrPort())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer exp.Close()

	// SDCCH/8 sub-channel 0 on timeslot 1, carried on SACCH.
	if err := exp.Mirror(Frame{ARFCN: 42, Uplink: true, ChanNr: 0x41, ACCH: true, Payload: []byte{0x01}}); err != nil {
		t.Fatalf("mirror: %v", err)
	}
	buf := make([]byte, 64)
	_ = ln.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := ln.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != HeaderLen+1 {
		t.Fatalf("unexpected datagram length: %d", n)
	}
	if buf[12] != ChanSDCCH8|ChanACCH {
		t.Fatalf("expected SACCH subtype, got %#x", buf[12])
	}
	if buf[3] != 1 {
		t.Fatalf("unexpected timeslot: %d", buf[3])
	}
	if arfcn := uint16(buf[4])<<8 | uint16(buf[5]); arfcn != 42|ARFCNFlagUplink {
		t.Fatalf("unexpected arfcn field: %#x", arfcn)
	}
}
