// Package tachometer reads the wheel encoder board.
//
// The board counts quadrature edges for both wheels and times the interval between them with
// its 48MHz clock.  It answers a read command with a fixed 13-byte frame:
//
//	steps L  int32, big-endian
//	steps R  int32
//	period L uint16 (clock ticks between the last two edges; 0 = not moving)
//	period R uint16
//	dirs     uint8  (bits 0-1 left, bits 2-3 right; 0 stopped, 1 forward, 2 reverse)
package tachometer

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/odometry"
)

const (
	CmdRead   = 0x01
	FrameSize = 13
)

var ErrBadDirection = errors.New("bad direction bits")

type Tachometer struct {
	lock sync.Mutex
	c    spi.Conn

	w, r [1 + FrameSize]byte
}

var _ odometry.Source = (*Tachometer)(nil)

func New(deviceFile string) (*Tachometer, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph init")
	}
	p, err := spireg.Open(deviceFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open SPI port %s", deviceFile)
	}
	c, err := p.Connect(physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to encoder board")
	}
	return &Tachometer{c: c}, nil
}

func (t *Tachometer) Snapshot() (odometry.Snapshot, error) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.w = [1 + FrameSize]byte{CmdRead}
	if err := t.c.Tx(t.w[:], t.r[:]); err != nil {
		return odometry.Snapshot{}, err
	}
	// The frame comes back after the command byte.
	return Decode(t.r[1:])
}

// Decode parses a frame.
func Decode(frame []byte) (s odometry.Snapshot, err error) {
	if len(frame) < FrameSize {
		return s, fmt.Errorf("short frame: %d bytes", len(frame))
	}
	s.Steps[odometry.LeftWheel] = int32(binary.BigEndian.Uint32(frame[0:4]))
	s.Steps[odometry.RightWheel] = int32(binary.BigEndian.Uint32(frame[4:8]))
	s.Period[odometry.LeftWheel] = binary.BigEndian.Uint16(frame[8:10])
	s.Period[odometry.RightWheel] = binary.BigEndian.Uint16(frame[10:12])

	dirs := frame[12]
	for w := odometry.LeftWheel; w < odometry.NumWheels; w++ {
		d := odometry.Direction((dirs >> (2 * uint(w))) & 0x3)
		if d > odometry.Reverse {
			return s, errors.Wrapf(ErrBadDirection, "wheel %d: %#x", w, dirs)
		}
		s.Dir[w] = d
	}
	return s, nil
}

// Encode builds a frame; used by the dummy and by tests.
func Encode(s odometry.Snapshot) []byte {
	frame := make([]byte, FrameSize)
	binary.BigEndian.PutUint32(frame[0:4], uint32(s.Steps[odometry.LeftWheel]))
	binary.BigEndian.PutUint32(frame[4:8], uint32(s.Steps[odometry.RightWheel]))
	binary.BigEndian.PutUint16(frame[8:10], s.Period[odometry.LeftWheel])
	binary.BigEndian.PutUint16(frame[10:12], s.Period[odometry.RightWheel])
	frame[12] = byte(s.Dir[odometry.LeftWheel]&0x3) | byte(s.Dir[odometry.RightWheel]&0x3)<<2
	return frame
}
