// Package actuation maps a steering decision onto the motors and the indicator LED.
package actuation

import (
	"fmt"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/steering"
)

type Colour int

const (
	Off Colour = iota
	Green
	Blue
	Yellow
)

func (c Colour) String() string {
	switch c {
	case Off:
		return "off"
	case Green:
		return "green"
	case Blue:
		return "blue"
	case Yellow:
		return "yellow"
	default:
		return fmt.Sprintf("Colour(%d)", int(c))
	}
}

// Motors drives the two wheels.  Duties are PWM compare values; the implementation decides
// the wheel directions for each manoeuvre.
type Motors interface {
	Forward(left, right uint16) error
	Left(left, right uint16) error
	Right(left, right uint16) error
	Stop() error
}

type Indicator interface {
	SetColour(c Colour) error
}

const NominalDuty = 2500

type DutyPair struct {
	Left, Right uint16
}

type Duties struct {
	Forward   DutyPair
	TurnLeft  DutyPair
	TurnRight DutyPair
}

func DefaultDuties() Duties {
	nominal := DutyPair{NominalDuty, NominalDuty}
	return Duties{
		Forward:   nominal,
		TurnLeft:  nominal,
		TurnRight: nominal,
	}
}

// Mapper has no state of its own beyond its collaborators.
type Mapper struct {
	Motors    Motors
	Indicator Indicator
	Duties    Duties
}

func NewMapper(m Motors, ind Indicator, d Duties) *Mapper {
	return &Mapper{
		Motors:    m,
		Indicator: ind,
		Duties:    d,
	}
}

// Apply drives the motors and indicator for the given state.  The indicator is set first; an
// indicator failure does not stop the motor command from being sent.
func (m *Mapper) Apply(s steering.State) error {
	var (
		duty  DutyPair
		drive func(l, r uint16) error
	)
	switch s {
	case steering.Center:
		duty, drive = m.Duties.Forward, m.Motors.Forward
	case steering.Left:
		duty, drive = m.Duties.TurnLeft, m.Motors.Left
	case steering.Right:
		duty, drive = m.Duties.TurnRight, m.Motors.Right
	default:
		return fmt.Errorf("unknown steering state %v", s)
	}

	indErr := m.Indicator.SetColour(ColourFor(s))
	if err := drive(duty.Left, duty.Right); err != nil {
		return err
	}
	return indErr
}

// Stop halts the motors and turns the indicator off.
func (m *Mapper) Stop() error {
	indErr := m.Indicator.SetColour(Off)
	if err := m.Motors.Stop(); err != nil {
		return err
	}
	return indErr
}

// ColourFor returns the indicator colour Apply uses for a state.
func ColourFor(s steering.State) Colour {
	switch s {
	case steering.Center:
		return Green
	case steering.Left:
		return Blue
	case steering.Right:
		return Yellow
	}
	return Off
}
