package control

import (
	"math"
	"sync/atomic"

	"github.com/tigerbot-team/tigerbot/linebot/pkg/linesensor"
	"github.com/tigerbot-team/tigerbot/linebot/pkg/steering"
)

// RobotState is the state shared between the sensor task and the control task.  Every field
// has exactly one writer:
//
//   - sensor task: tick, sample, steering, intersection
//   - control task: distance, speed
//
// Anyone may read.  The only write that has to cross from the control task to the sensor
// task (ending intersection mode) goes through the request queue instead.
type RobotState struct {
	tick atomic.Uint32
	// sample packs the last reading (low byte) with the position it decoded to (high word) so
	// that a reader never sees one without the other.
	sample       atomic.Uint64
	steering     atomic.Int32
	intersection atomic.Bool

	distanceBits atomic.Uint64
	speedBits    atomic.Uint64
}

// NewRobotState returns the power-on state: tick 0, steering Center, no line seen.
func NewRobotState() *RobotState {
	s := &RobotState{}
	s.storeSample(0, linesensor.NoLine)
	s.steering.Store(int32(steering.Center))
	return s
}

func (s *RobotState) Tick() uint32 {
	return s.tick.Load()
}

func (s *RobotState) Sample() (linesensor.Reading, int32) {
	w := s.sample.Load()
	return linesensor.Reading(w), int32(uint32(w >> 32))
}

func (s *RobotState) Position() int32 {
	_, pos := s.Sample()
	return pos
}

func (s *RobotState) Steering() steering.State {
	return steering.State(s.steering.Load())
}

func (s *RobotState) Intersection() bool {
	return s.intersection.Load()
}

func (s *RobotState) DistanceMM() float64 {
	return math.Float64frombits(s.distanceBits.Load())
}

func (s *RobotState) SpeedMMPerSec() float64 {
	return math.Float64frombits(s.speedBits.Load())
}

func (s *RobotState) storeSample(r linesensor.Reading, pos int32) {
	s.sample.Store(uint64(uint32(pos))<<32 | uint64(r))
}

func (s *RobotState) storeOdometry(distanceMM, speed float64) {
	s.distanceBits.Store(math.Float64bits(distanceMM))
	s.speedBits.Store(math.Float64bits(speed))
}

// Snapshot is a point-in-time copy of the state for display.  Fields are loaded one at a
// time so the copy as a whole is not atomic.
type Snapshot struct {
	Tick          uint32
	Reading       linesensor.Reading
	Position      int32
	Steering      steering.State
	Intersection  bool
	DistanceMM    float64
	SpeedMMPerSec float64
}

func (s *RobotState) Snapshot() Snapshot {
	r, pos := s.Sample()
	return Snapshot{
		Tick:          s.Tick(),
		Reading:       r,
		Position:      pos,
		Steering:      s.Steering(),
		Intersection:  s.Intersection(),
		DistanceMM:    s.DistanceMM(),
		SpeedMMPerSec: s.SpeedMMPerSec(),
	}
}
