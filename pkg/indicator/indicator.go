// Package indicator drives the RGB status LED.
package indicator

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/actuation"
)

type rgb struct {
	r, g, b gpio.Level
}

var colours = map[actuation.Colour]rgb{
	actuation.Off:    {gpio.Low, gpio.Low, gpio.Low},
	actuation.Green:  {gpio.Low, gpio.High, gpio.Low},
	actuation.Blue:   {gpio.Low, gpio.Low, gpio.High},
	actuation.Yellow: {gpio.High, gpio.High, gpio.Low},
}

// LED is a common-cathode RGB LED on three GPIOs.
type LED struct {
	lock    sync.Mutex
	r, g, b gpio.PinIO
	current actuation.Colour
	set     bool
}

var _ actuation.Indicator = (*LED)(nil)

func New(red, green, blue string) (*LED, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph init")
	}
	l := &LED{}
	for _, p := range []struct {
		name string
		pin  *gpio.PinIO
	}{{red, &l.r}, {green, &l.g}, {blue, &l.b}} {
		*p.pin = gpioreg.ByName(p.name)
		if *p.pin == nil {
			return nil, fmt.Errorf("unknown LED pin %q", p.name)
		}
	}
	if err := l.SetColour(actuation.Off); err != nil {
		return nil, err
	}
	return l, nil
}

// SetColour only touches the pins when the colour changes; it is called every control tick.
func (l *LED) SetColour(c actuation.Colour) error {
	levels, ok := colours[c]
	if !ok {
		return fmt.Errorf("unsupported colour %v", c)
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	if l.set && l.current == c {
		return nil
	}
	for _, p := range []struct {
		pin   gpio.PinIO
		level gpio.Level
	}{{l.r, levels.r}, {l.g, levels.g}, {l.b, levels.b}} {
		if err := p.pin.Out(p.level); err != nil {
			l.set = false
			return errors.Wrapf(err, "LED pin %s", p.pin.Name())
		}
	}
	l.current, l.set = c, true
	return nil
}

// Dummy records the last colour.
type Dummy struct {
	lock    sync.Mutex
	current actuation.Colour
	changes int
}

func NewDummy() *Dummy {
	return &Dummy{}
}

func (d *Dummy) SetColour(c actuation.Colour) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if c != d.current {
		d.changes++
		d.current = c
	}
	return nil
}

func (d *Dummy) Colour() actuation.Colour {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.current
}

// Changes returns how many times the colour has changed.
func (d *Dummy) Changes() int {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.changes
}
