package linesensor

import (
	"fmt"
	"sync/atomic"
)

// Reading is one acquisition from the reflectance array.  Bit i is set when channel i sees
// the line; channel 0 is the right-most sensor.
type Reading uint8

const (
	Channels = 8

	// MaxPosition is the magnitude of the outermost channel weight.
	MaxPosition int32 = 332

	// NoLine is returned by Decode when no channel sees the line.
	NoLine int32 = 333
	// AllBlack is returned by Decode when every channel sees the line (e.g. a T junction).
	AllBlack int32 = 334

	allChannels Reading = 1<<Channels - 1
)

// Channel weights, right to left.  A positive position means the line is to the right of
// the robot's centre.
var weights = [Channels]int32{332, 237, 142, 47, -47, -142, -237, -332}

// Sensor is a reflectance array that needs a settle time between starting and finishing an
// acquisition.  End must not be called until at least 1ms after Start.
type Sensor interface {
	Start() error
	End() (Reading, error)
}

// Decode converts a reading into a signed lateral position: the mean weight of the channels
// that see the line.
func Decode(r Reading) int32 {
	switch r {
	case 0:
		return NoLine
	case allChannels:
		return AllBlack
	}
	var sum, count int32
	for i := 0; i < Channels; i++ {
		if r&(1<<uint(i)) != 0 {
			sum += weights[i]
			count++
		}
	}
	return sum / count
}

func (r Reading) String() string {
	return fmt.Sprintf("%08b", uint8(r))
}

// Dummy is a Sensor whose reading is set by the caller.
type Dummy struct {
	reading  atomic.Uint32
	starts   atomic.Uint32
	inFlight atomic.Bool
}

func NewDummy(initial Reading) *Dummy {
	d := &Dummy{}
	d.Set(initial)
	return d
}

func (d *Dummy) Set(r Reading) {
	d.reading.Store(uint32(r))
}

func (d *Dummy) Start() error {
	d.starts.Add(1)
	d.inFlight.Store(true)
	return nil
}

func (d *Dummy) End() (Reading, error) {
	if !d.inFlight.Swap(false) {
		return 0, ErrNotStarted
	}
	return Reading(d.reading.Load()), nil
}

// Starts returns the number of acquisitions started so far.
func (d *Dummy) Starts() uint32 {
	return d.starts.Load()
}
