package lapdm

import (
	"errors"
	"fmt"

	"github.com/danmuck/layer23/internal/logging"
)

var (
	ErrNoTransport    = errors.New("lapdm: no active transport")
	ErrNotInitialized = errors.New("lapdm: entity not initialized")
	ErrFrameTooLong   = errors.New("lapdm: frame exceeds L2 block")
)

// BlockLen is the size of one L2 block on the air interface.
const BlockLen = 23

// Channel selects which logical data link an entity serves.
type Channel string

const (
	ChannelDCCH Channel = "dcch"
	ChannelACCH Channel = "acch"
)

// linkID is the L1CTL link identifier for the channel (0x40 marks SACCH).
func (c Channel) linkID() uint8 {
	if c == ChannelACCH {
		return 0x40
	}
	return 0x00
}

// Transmitter is the active L1 transport an entity writes through.
type Transmitter interface {
	SendData(chanNr, linkID uint8, l2 []byte) error
}

// Entity is one data-link instance owned by a mobile station.
type Entity struct {
	channel Channel
	owner   string
	tx      Transmitter
	chanNr  uint8
	sent    uint64
	ready   bool
}

// Init binds the entity to its channel and transport. The transport must
// already be open.
func (e *Entity) Init(channel Channel, owner string, tx Transmitter) error {
	if tx == nil {
		return fmt.Errorf("%w: channel=%s owner=%q", ErrNoTransport, channel, owner)
	}
	e.channel = channel
	e.owner = owner
	e.tx = tx
	e.sent = 0
	e.ready = true
	logging.Debugf(logging.DLAPDM, "init channel=%s ms=%q", channel, owner)
	return nil
}

func (e *Entity) Ready() bool {
	return e.ready
}

func (e *Entity) Channel() Channel {
	return e.channel
}

// SetChanNr records the dedicated channel assigned by layer 3.
func (e *Entity) SetChanNr(chanNr uint8) {
	e.chanNr = chanNr
}

// Send pads one L2 frame to a full block and hands it to the transport.
func (e *Entity) Send(l2 []byte) error {
	if !e.ready {
		return ErrNotInitialized
	}
	if len(l2) > BlockLen {
		return ErrFrameTooLong
	}
	block := make([]byte, BlockLen)
	for i := range block {
		block[i] = 0x2b
	}
	copy(block, l2)
	if err := e.tx.SendData(e.chanNr, e.channel.linkID(), block); err != nil {
		return err
	}
	e.sent++
	return nil
}

func (e *Entity) Sent() uint64 {
	return e.sent
}

// Reset drops the transport binding.
func (e *Entity) Reset() {
	e.tx = nil
	e.ready = false
}
