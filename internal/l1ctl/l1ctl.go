package l1ctl

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/danmuck/layer23/internal/gsmtap"
	"github.com/danmuck/layer23/internal/link"
	"github.com/danmuck/layer23/internal/logging"
)

// HeaderLen covers msg_type, flags and two padding bytes.
const HeaderLen = 4

// MsgType is the first byte of every L1CTL frame.
type MsgType uint8

const (
	MsgNone      MsgType = 0
	MsgFBSBReq   MsgType = 1
	MsgFBSBConf  MsgType = 2
	MsgDataInd   MsgType = 3
	MsgRACHReq   MsgType = 4
	MsgDMEstReq  MsgType = 5
	MsgDataReq   MsgType = 6
	MsgResetInd  MsgType = 7
	MsgPMReq     MsgType = 8
	MsgPMConf    MsgType = 9
	MsgEchoReq   MsgType = 10
	MsgEchoConf  MsgType = 11
	MsgRACHConf  MsgType = 12
	MsgResetReq  MsgType = 13
	MsgResetConf MsgType = 14
)

// Reset types carried by MsgResetReq.
const (
	ResetFull     uint8 = 0
	ResetSchedule uint8 = 1
)

// infoDLLen is the downlink info block preceding DATA_IND payloads:
// chan_nr, link_id, band_arfcn, frame_nr, rx_level, snr, num_biterr, fire_crc.
const infoDLLen = 12

// linkIDSACCH marks a frame carried on the slow associated control channel.
const linkIDSACCH = 0x40

var (
	ErrShortMessage = errors.New("l1ctl: short message")
	ErrLinkLost     = errors.New("l1ctl: link lost")
)

// Message is one decoded L1CTL frame.
type Message struct {
	Type    MsgType
	Flags   uint8
	Payload []byte
}

func Decode(frame []byte) (Message, error) {
	if len(frame) < HeaderLen {
		return Message{}, ErrShortMessage
	}
	return Message{Type: MsgType(frame[0]), Flags: frame[1], Payload: frame[HeaderLen:]}, nil
}

func Encode(msg Message) []byte {
	buf := make([]byte, HeaderLen+len(msg.Payload))
	buf[0] = byte(msg.Type)
	buf[1] = msg.Flags
	copy(buf[HeaderLen:], msg.Payload)
	return buf
}

// Handler consumes one message on the loop goroutine.
type Handler func(msg Message)

// Tap mirrors radio frames to a capture exporter.
type Tap interface {
	Mirror(f gsmtap.Frame) error
}

// Stats counts frames seen by a Link.
type Stats struct {
	RxFrames  uint64
	TxFrames  uint64
	Unhandled uint64
	Lost      bool
}

// Link is the L1 control binding between the host stack and radio firmware.
// Handler and stats state is owned by the loop goroutine.
type Link struct {
	conn     *link.Conn
	handlers map[MsgType]Handler
	tap      Tap
	stats    Stats
}

// Open connects to the firmware's layer2 socket and starts reading frames.
func Open(path string, l link.Loop) (*Link, error) {
	conn, err := link.Dial(path)
	if err != nil {
		return nil, err
	}
	k := newLink(conn)
	conn.Pump(l, k.receive, k.lost)
	logging.Infof(logging.DL1C, "layer2 socket open path=%q", path)
	return k, nil
}

func newLink(conn *link.Conn) *Link {
	return &Link{conn: conn, handlers: make(map[MsgType]Handler)}
}

// Handle installs h for one message type, replacing any earlier handler.
func (k *Link) Handle(t MsgType, h Handler) {
	if h == nil {
		delete(k.handlers, t)
		return
	}
	k.handlers[t] = h
}

// SetTap attaches a capture tap; nil detaches.
func (k *Link) SetTap(tap Tap) {
	k.tap = tap
}

func (k *Link) Stats() Stats {
	return k.stats
}

func (k *Link) Path() string {
	return k.conn.Path()
}

// Send writes one message to the firmware.
func (k *Link) Send(t MsgType, payload []byte) error {
	if k.stats.Lost {
		return ErrLinkLost
	}
	if err := k.conn.Send(Encode(Message{Type: t, Payload: payload})); err != nil {
		return fmt.Errorf("l1ctl: send type=%d: %w", t, err)
	}
	k.stats.TxFrames++
	return nil
}

func (k *Link) SendEchoReq(data []byte) error {
	return k.Send(MsgEchoReq, data)
}

func (k *Link) SendReset(resetType uint8) error {
	return k.Send(MsgResetReq, []byte{resetType, 0, 0, 0})
}

// SendData queues one uplink L2 frame for the given channel and link id.
func (k *Link) SendData(chanNr, linkID uint8, l2 []byte) error {
	payload := make([]byte, 4+len(l2))
	payload[0] = chanNr
	payload[1] = linkID
	copy(payload[4:], l2)
	return k.Send(MsgDataReq, payload)
}

func (k *Link) Close() error {
	return k.conn.Close()
}

func (k *Link) receive(frame []byte) {
	msg, err := Decode(frame)
	if err != nil {
		logging.Noticef(logging.DL1C, "dropping frame len=%d err=%v", len(frame), err)
		return
	}
	k.stats.RxFrames++
	if msg.Type == MsgDataInd {
		k.mirror(msg.Payload)
	}
	h, ok := k.handlers[msg.Type]
	if !ok {
		k.stats.Unhandled++
		logging.Debugf(logging.DL1C, "unhandled message type=%d len=%d", msg.Type, len(msg.Payload))
		return
	}
	h(msg)
}

func (k *Link) mirror(payload []byte) {
	if k.tap == nil || len(payload) <= infoDLLen {
		return
	}
	f := gsmtap.Frame{
		ARFCN:       binary.BigEndian.Uint16(payload[2:4]),
		ChanNr:      payload[0],
		ACCH:        payload[1]&linkIDSACCH != 0,
		FrameNumber: binary.BigEndian.Uint32(payload[4:8]),
		SignalDBm:   rxLevelToDBm(payload[8]),
		SNRDB:       int8(payload[9]),
		Payload:     payload[infoDLLen:],
	}
	if err := k.tap.Mirror(f); err != nil {
		logging.Noticef(logging.DL1C, "capture mirror failed err=%v", err)
	}
}

// rxLevelToDBm converts a 0..63 RXLEV into dBm.
func rxLevelToDBm(rxLevel uint8) int8 {
	if rxLevel > 63 {
		rxLevel = 63
	}
	return int8(-110 + int(rxLevel))
}

func (k *Link) lost(err error) {
	k.stats.Lost = true
	logging.Errf(logging.DL1C, "layer2 socket lost path=%q err=%v", k.conn.Path(), err)
}
