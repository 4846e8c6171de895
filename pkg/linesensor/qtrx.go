package linesensor

import (
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

var ErrNotStarted = errors.New("acquisition not started")

// chargeTime is how long the sensor capacitors are driven high before the pins are switched
// to inputs and left to discharge.
const chargeTime = 10 * time.Microsecond

// QTRX drives an 8-channel Pololu QTRX RC-type array.  Each channel is charged through its
// own GPIO; after the settle time a channel that is still high is over a dark (line) surface.
type QTRX struct {
	emitters []gpio.PinIO
	channels [Channels]gpio.PinIO

	started bool
}

// NewQTRX opens the array.  channelPins lists the GPIO names of channels 0-7, emitterPins the
// even/odd emitter control pins.
func NewQTRX(channelPins []string, emitterPins []string) (*QTRX, error) {
	if len(channelPins) != Channels {
		return nil, fmt.Errorf("need %d channel pins, got %d", Channels, len(channelPins))
	}
	if _, err := host.Init(); err != nil {
		return nil, pkgerrors.Wrap(err, "periph init")
	}

	q := &QTRX{}
	for i, name := range channelPins {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown channel pin %q", name)
		}
		q.channels[i] = p
	}
	for _, name := range emitterPins {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("unknown emitter pin %q", name)
		}
		if err := p.Out(gpio.Low); err != nil {
			return nil, pkgerrors.Wrapf(err, "emitter %s", name)
		}
		q.emitters = append(q.emitters, p)
	}
	return q, nil
}

func (q *QTRX) Start() error {
	for _, e := range q.emitters {
		if err := e.Out(gpio.High); err != nil {
			return pkgerrors.Wrap(err, "emitter on")
		}
	}
	for _, c := range q.channels {
		if err := c.Out(gpio.High); err != nil {
			return pkgerrors.Wrapf(err, "charge %s", c.Name())
		}
	}
	time.Sleep(chargeTime)
	for _, c := range q.channels {
		if err := c.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return pkgerrors.Wrapf(err, "release %s", c.Name())
		}
	}
	q.started = true
	return nil
}

func (q *QTRX) End() (Reading, error) {
	if !q.started {
		return 0, ErrNotStarted
	}
	q.started = false

	var r Reading
	for i, c := range q.channels {
		if c.Read() == gpio.High {
			r |= 1 << uint(i)
		}
	}
	for _, e := range q.emitters {
		if err := e.Out(gpio.Low); err != nil {
			return r, pkgerrors.Wrap(err, "emitter off")
		}
	}
	return r, nil
}
