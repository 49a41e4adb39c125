package link

import (
	"encoding/binary"
	"errors"
	"io"
)

// HeaderLen is the big-endian length prefix carried before every payload.
const HeaderLen = 2

var (
	ErrShortHeader     = errors.New("link: short length header")
	ErrShortPayload    = errors.New("link: short payload")
	ErrEmptyFrame      = errors.New("link: empty frame")
	ErrPayloadTooLarge = errors.New("link: payload too large")
)

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: 2048}
}

func (l Limits) max() int {
	if l.MaxPayloadBytes <= 0 || l.MaxPayloadBytes > 0xffff {
		return 0xffff
	}
	return l.MaxPayloadBytes
}

// ReadFrame reads one length-prefixed payload.
func ReadFrame(r io.Reader, limits Limits) ([]byte, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(hdr[:]))
	if n == 0 {
		return nil, ErrEmptyFrame
	}
	if n > limits.max() {
		return nil, ErrPayloadTooLarge
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortPayload
		}
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes payload with its length prefix in a single write.
func WriteFrame(w io.Writer, payload []byte, limits Limits) error {
	if len(payload) == 0 {
		return ErrEmptyFrame
	}
	if len(payload) > limits.max() {
		return ErrPayloadTooLarge
	}
	buf := make([]byte, HeaderLen+len(payload))
	binary.BigEndian.PutUint16(buf[0:HeaderLen], uint16(len(payload)))
	copy(buf[HeaderLen:], payload)
	_, err := w.Write(buf)
	return err
}
